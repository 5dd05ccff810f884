package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

// LambdaAssumeRolePolicy é a política de confiança que permite ao serviço Lambda assumir a Role.
const LambdaAssumeRolePolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":"lambda.amazonaws.com"},"Action":"sts:AssumeRole"}]}`

// IAMRepository encapsula operações IAM de baixo nível.
type IAMRepository struct {
	Client *client.AWSClient
}

// GetRole busca uma Role IAM. Retorna nil, nil se não for encontrada.
func (r *IAMRepository) GetRole(ctx context.Context, roleName string) (*iamtypes.Role, error) {
	out, err := r.Client.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		if client.IsAPIErrorCode(err, "NoSuchEntity") {
			return nil, nil
		}
		return nil, fmt.Errorf("GetRole failed: %w", err)
	}
	return out.Role, nil
}

// CreateRole cria a Role com a política de confiança Lambda e devolve o ARN.
func (r *IAMRepository) CreateRole(ctx context.Context, roleName string) (string, error) {
	cr, err := r.Client.IAM.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(LambdaAssumeRolePolicy),
		Description:              aws.String("Execution role managed by terraform-provider-lambdaproxy"),
	})
	if err != nil {
		if client.IsAPIErrorCode(err, "EntityAlreadyExists") {
			role, gerr := r.GetRole(ctx, roleName)
			if gerr != nil {
				return "", gerr
			}
			if role != nil {
				tflog.Debug(ctx, "adopting existing IAM role", map[string]interface{}{"role": roleName})
				return aws.ToString(role.Arn), nil
			}
		}
		return "", fmt.Errorf("CreateRole failed: %w", err)
	}

	tflog.Info(ctx, "created IAM role", map[string]interface{}{"role": roleName})
	return aws.ToString(cr.Role.Arn), nil
}

// AttachPolicy anexa uma política à Role.
func (r *IAMRepository) AttachPolicy(ctx context.Context, roleName, policyArn string) error {
	_, err := r.Client.IAM.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil && !client.IsAPIErrorCode(err, "EntityAlreadyExists") {
		return fmt.Errorf("AttachPolicy failed: %w", err)
	}
	return nil
}

// DetachPolicy desanexa uma política da Role.
func (r *IAMRepository) DetachPolicy(ctx context.Context, roleName, policyArn string) error {
	_, err := r.Client.IAM.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil && !client.IsAPIErrorCode(err, "NoSuchEntity") {
		return fmt.Errorf("DetachPolicy failed: %w", err)
	}
	return nil
}

// DeleteRole deleta a Role.
func (r *IAMRepository) DeleteRole(ctx context.Context, roleName string) error {
	_, err := r.Client.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(roleName)})
	if err != nil && !client.IsAPIErrorCode(err, "NoSuchEntity") {
		return fmt.Errorf("DeleteRole failed: %w", err)
	}
	return nil
}
