package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
)

// BasePolicyArn é a política gerenciada de execução básica (CloudWatch Logs).
const BasePolicyArn = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"

// IAMService manipula a lógica de negócio para Roles e Policies.
type IAMService struct {
	IAMRepo *repository.IAMRepository
}

// CheckRoleExists é um método de leitura de estado exposto ao orquestrador.
func (s *IAMService) CheckRoleExists(ctx context.Context, roleName string) (bool, error) {
	role, err := s.IAMRepo.GetRole(ctx, roleName)
	if err != nil {
		return false, err
	}
	return role != nil, nil
}

// EnsureRole garante que a Role exista e anexa a política base e as customizadas.
func (s *IAMService) EnsureRole(ctx context.Context, roleName string, policyARNs []string) (string, error) {
	role, err := s.IAMRepo.GetRole(ctx, roleName)
	if err != nil {
		return "", err
	}

	var roleArn string
	if role == nil {
		roleArn, err = s.IAMRepo.CreateRole(ctx, roleName)
		if err != nil {
			return "", err
		}
	} else {
		roleArn = aws.ToString(role.Arn)
	}

	for _, arn := range append([]string{BasePolicyArn}, policyARNs...) {
		if err := s.IAMRepo.AttachPolicy(ctx, roleName, arn); err != nil {
			return "", fmt.Errorf("failed to attach policy %s: %w", arn, err)
		}
	}

	tflog.Debug(ctx, "IAM role ready", map[string]interface{}{"role": roleName, "policies": len(policyARNs) + 1})
	return roleArn, nil
}

// DeleteRoleAndPolicies desanexa as políticas e deleta a Role.
func (s *IAMService) DeleteRoleAndPolicies(ctx context.Context, roleName string, policyARNs []string) error {
	var result *multierror.Error

	arns := append(append([]string{}, policyARNs...), BasePolicyArn)
	for _, arn := range arns {
		if err := s.IAMRepo.DetachPolicy(ctx, roleName, arn); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := s.IAMRepo.DeleteRole(ctx, roleName); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
