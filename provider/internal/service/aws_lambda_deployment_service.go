package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
)

// DefaultRoleName devolve o nome da Role de execução quando o usuário não informa um.
func DefaultRoleName(functionName string) string {
	return fmt.Sprintf("%s-execution-role", functionName)
}

// DefaultAPIName devolve o nome da API quando o usuário não informa um.
func DefaultAPIName(functionName string) string {
	return fmt.Sprintf("%s-api", functionName)
}

// PermissionStatementID identifica a permissão de invocação concedida à API.
func PermissionStatementID(apiID string) string {
	return fmt.Sprintf("apigateway-%s", apiID)
}

// LambdaDeploymentService Orquestrador de Deploy
type LambdaDeploymentService struct {
	IAMService        *IAMService
	CWLogsService     *CWLogsService
	APIGatewayService *APIGatewayService
	LambdaRepo        *repository.LambdaRepository
	Client            *client.AWSClient
}

// CheckResourceExistence verifica se Role, função e API ainda existem na AWS.
func (s *LambdaDeploymentService) CheckResourceExistence(ctx context.Context, st *dto.ResourceState) (bool, error) {
	roleExists, err := s.IAMService.CheckRoleExists(ctx, st.RoleName)
	if err != nil || !roleExists {
		return false, err
	}

	fnConfig, err := s.LambdaRepo.GetFunction(ctx, st.FunctionName)
	if err != nil || fnConfig == nil {
		return false, err
	}

	return s.APIGatewayService.CheckAPIExists(ctx, st.Protocol, st.APIGatewayID)
}

// EnsureDeployment orquestra toda a criação ou atualização do recurso.
// prev é o estado interno anterior; nil na criação.
func (s *LambdaDeploymentService) EnsureDeployment(ctx context.Context, prev *dto.ResourceState, lc *dto.LambdaConfig, api dto.APIConfig) (*dto.ResourceState, error) {
	if lc.RoleName == "" {
		lc.RoleName = DefaultRoleName(lc.FunctionName)
	}
	if api.Name == "" {
		api.Name = DefaultAPIName(lc.FunctionName)
	}

	// 1. ROLE + política de execução básica
	roleArn, err := s.IAMService.EnsureRole(ctx, lc.RoleName, lc.PolicyARNs)
	if err != nil {
		return nil, fmt.Errorf("IAM role setup failed: %w", err)
	}
	if prev != nil {
		s.detachRemovedPolicies(ctx, lc.RoleName, prev.AttachedPolicyARNs, lc.PolicyARNs)
	}

	// 2. LAMBDA
	fnArn, err := s.LambdaRepo.EnsureFunction(ctx, lc, roleArn)
	if err != nil {
		return nil, fmt.Errorf("Lambda function setup failed: %w", err)
	}

	// 3. LOG GROUP
	logGroup, err := s.CWLogsService.EnsureLogGroup(ctx, lc.FunctionName, lc.LogRetention)
	if err != nil {
		return nil, fmt.Errorf("Log group setup failed: %w", err)
	}

	// 4. API, ROTAS, INTEGRAÇÃO, DEPLOY E STAGE
	var prevAPI *dto.APIGWState
	if prev != nil {
		prevAPI = &dto.APIGWState{
			APIGatewayID:  prev.APIGatewayID,
			Protocol:      prev.Protocol,
			IntegrationID: prev.IntegrationID,
			Routes:        prev.Routes,
		}
	}
	apigwState, err := s.APIGatewayService.EnsureProxyAPI(ctx, prevAPI, api, fnArn)
	if err != nil {
		return nil, fmt.Errorf("APIGW setup failed: %w", err)
	}

	// 5. PERMISSÃO: sem ela o API Gateway recebe erro de autorização ao invocar
	statementID := PermissionStatementID(apigwState.APIGatewayID)
	sourceArn := apigwState.ExecutionArn + "/*/*"
	if err := s.LambdaRepo.AddPermission(ctx, lc.FunctionName, statementID, sourceArn); err != nil {
		return nil, fmt.Errorf("Lambda permission failed: %w", err)
	}
	if prev != nil && prev.PermissionID != "" && prev.PermissionID != statementID {
		// A API foi recriada: a concessão antiga aponta para um execute-api que não existe mais.
		if err := s.LambdaRepo.RemovePermission(ctx, lc.FunctionName, prev.PermissionID); err != nil {
			tflog.Warn(ctx, "failed to remove stale lambda permission", map[string]interface{}{
				"statement_id": prev.PermissionID,
				"error":        err.Error(),
			})
		}
	}

	tflog.Info(ctx, "lambda proxy deployed", map[string]interface{}{
		"function":   lc.FunctionName,
		"api_id":     apigwState.APIGatewayID,
		"invoke_url": apigwState.InvokeURL,
	})

	return &dto.ResourceState{
		RoleName:           lc.RoleName,
		RoleArn:            roleArn,
		FunctionName:       lc.FunctionName,
		FunctionArn:        fnArn,
		InvokeArn:          s.Client.InvokeURI(fnArn),
		APIGatewayID:       apigwState.APIGatewayID,
		Protocol:           apigwState.Protocol,
		StageName:          apigwState.StageName,
		DeploymentID:       apigwState.DeploymentID,
		IntegrationID:      apigwState.IntegrationID,
		ExecutionArn:       apigwState.ExecutionArn,
		InvokeURL:          apigwState.InvokeURL,
		PermissionID:       statementID,
		Routes:             apigwState.Routes,
		LogGroup:           logGroup,
		Resources:          apigwState.Resources,
		AttachedPolicyARNs: lc.PolicyARNs,
		SourceCodeHash:     lc.SourceCodeHash,
	}, nil
}

// DeleteDeployment orquestra a exclusão completa dos recursos, na ordem inversa da criação.
func (s *LambdaDeploymentService) DeleteDeployment(ctx context.Context, st *dto.ResourceState) error {
	var result *multierror.Error

	if err := s.APIGatewayService.DeleteAPI(ctx, st.Protocol, st.APIGatewayID); err != nil {
		result = multierror.Append(result, fmt.Errorf("APIGW deletion failed: %w", err))
	}

	if st.PermissionID != "" {
		if err := s.LambdaRepo.RemovePermission(ctx, st.FunctionName, st.PermissionID); err != nil {
			tflog.Warn(ctx, "failed to remove lambda permission", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := s.LambdaRepo.DeleteFunction(ctx, st.FunctionName); err != nil {
		result = multierror.Append(result, fmt.Errorf("Lambda deletion failed: %w", err))
	}

	if err := s.IAMService.DeleteRoleAndPolicies(ctx, st.RoleName, st.AttachedPolicyARNs); err != nil {
		result = multierror.Append(result, fmt.Errorf("IAM role deletion failed: %w", err))
	}

	if err := s.CWLogsService.DeleteLogGroup(ctx, st.LogGroup); err != nil {
		tflog.Warn(ctx, "failed to delete log group", map[string]interface{}{"error": err.Error()})
	}

	return result.ErrorOrNil()
}

func (s *LambdaDeploymentService) detachRemovedPolicies(ctx context.Context, roleName string, before, after []string) {
	keep := make(map[string]bool, len(after))
	for _, arn := range after {
		keep[arn] = true
	}
	for _, arn := range before {
		if keep[arn] || arn == BasePolicyArn {
			continue
		}
		if err := s.IAMService.IAMRepo.DetachPolicy(ctx, roleName, arn); err != nil {
			tflog.Warn(ctx, "failed to detach removed policy", map[string]interface{}{"policy": arn, "error": err.Error()})
		}
	}
}
