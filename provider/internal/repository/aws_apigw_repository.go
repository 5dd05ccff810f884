package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	apigw "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

// APIGWRepository encapsula operações CRUD da AWS API Gateway (v1, REST).
type APIGWRepository struct {
	Client *client.AWSClient
}

// CreateRestAPI cria uma REST API regional e devolve o ID e o ID do recurso raiz.
func (r *APIGWRepository) CreateRestAPI(ctx context.Context, name string) (string, string, error) {
	out, err := r.Client.APIGW.CreateRestApi(ctx, &apigw.CreateRestApiInput{
		Name:        aws.String(name),
		Description: aws.String("Proxy API managed by terraform-provider-lambdaproxy"),
		EndpointConfiguration: &apigwtypes.EndpointConfiguration{
			Types: []apigwtypes.EndpointType{apigwtypes.EndpointTypeRegional},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("CreateRestApi failed: %w", err)
	}
	tflog.Info(ctx, "created REST API", map[string]interface{}{"name": name, "api_id": aws.ToString(out.Id)})
	return aws.ToString(out.Id), aws.ToString(out.RootResourceId), nil
}

// RestAPIExists indica se a REST API ainda existe.
func (r *APIGWRepository) RestAPIExists(ctx context.Context, apiID string) (bool, error) {
	_, err := r.Client.APIGW.GetRestApi(ctx, &apigw.GetRestApiInput{RestApiId: aws.String(apiID)})
	if err != nil {
		if client.IsAPIErrorCode(err, "NotFoundException") {
			return false, nil
		}
		return false, fmt.Errorf("GetRestApi failed: %w", err)
	}
	return true, nil
}

// GetRootResourceID busca o ID do recurso raiz (/).
func (r *APIGWRepository) GetRootResourceID(ctx context.Context, apiID string) (string, error) {
	id, err := r.findResourceByPath(ctx, apiID, "/")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("root resource not found for API ID: %s", apiID)
	}
	return id, nil
}

// EnsurePath cria os recursos do caminho que ainda não existirem, retornando o ID do recurso final.
func (r *APIGWRepository) EnsurePath(ctx context.Context, apiID, rootID, path string) (string, map[string]types.ResourceInfo, error) {
	path = strings.Trim(path, "/")
	resources := make(map[string]types.ResourceInfo)

	if path == "" {
		return rootID, resources, nil
	}

	currentParentID := rootID
	currentPath := ""

	for _, part := range strings.Split(path, "/") {
		currentPath = currentPath + "/" + part

		existing, err := r.findResourceByPath(ctx, apiID, currentPath)
		if err != nil {
			return "", nil, err
		}
		if existing != "" {
			resources[currentPath] = types.ResourceInfo{ResourceID: existing, ParentID: currentParentID, PathPart: part}
			currentParentID = existing
			continue
		}

		result, err := r.Client.APIGW.CreateResource(ctx, &apigw.CreateResourceInput{
			RestApiId: aws.String(apiID),
			ParentId:  aws.String(currentParentID),
			PathPart:  aws.String(part),
		})
		if err != nil {
			if client.IsAPIErrorCode(err, "ConflictException") {
				if again, _ := r.findResourceByPath(ctx, apiID, currentPath); again != "" {
					resources[currentPath] = types.ResourceInfo{ResourceID: again, ParentID: currentParentID, PathPart: part}
					currentParentID = again
					continue
				}
			}
			return "", nil, fmt.Errorf("CreateResource failed for path %s: %w", currentPath, err)
		}

		resources[currentPath] = types.ResourceInfo{ResourceID: aws.ToString(result.Id), ParentID: currentParentID, PathPart: part}
		currentParentID = aws.ToString(result.Id)
	}

	return currentParentID, resources, nil
}

// PutMethodAndIntegration cria o método (sem autorização) e a integração Lambda Proxy.
func (r *APIGWRepository) PutMethodAndIntegration(ctx context.Context, apiID, resourceID string, route types.RouteConfig, invokeURI string) error {
	_, err := r.Client.APIGW.PutMethod(ctx, &apigw.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String(route.Method),
		AuthorizationType: aws.String(route.Authorization),
		ApiKeyRequired:    false,
	})
	if err != nil && !client.IsAPIErrorCode(err, "ConflictException") {
		return fmt.Errorf("PutMethod failed: %w", err)
	}

	// Lambda sempre é invocada via POST, independente do método do cliente.
	_, err = r.Client.APIGW.PutIntegration(ctx, &apigw.PutIntegrationInput{
		RestApiId:             aws.String(apiID),
		ResourceId:            aws.String(resourceID),
		HttpMethod:            aws.String(route.Method),
		Type:                  apigwtypes.IntegrationTypeAwsProxy,
		IntegrationHttpMethod: aws.String("POST"),
		Uri:                   aws.String(invokeURI),
	})
	if err != nil {
		return fmt.Errorf("PutIntegration failed: %w", err)
	}
	return nil
}

// CreateDeployment cria um deployment sem stage e devolve o ID.
func (r *APIGWRepository) CreateDeployment(ctx context.Context, apiID string) (string, error) {
	out, err := r.Client.APIGW.CreateDeployment(ctx, &apigw.CreateDeploymentInput{
		RestApiId:   aws.String(apiID),
		Description: aws.String("lambdaproxy deployment"),
	})
	if err != nil {
		return "", fmt.Errorf("CreateDeployment failed: %w", err)
	}
	return aws.ToString(out.Id), nil
}

// EnsureStage cria o stage ou o aponta para o novo deployment.
func (r *APIGWRepository) EnsureStage(ctx context.Context, apiID, stageName, deploymentID string) error {
	_, err := r.Client.APIGW.GetStage(ctx, &apigw.GetStageInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stageName),
	})
	if err != nil {
		if !client.IsAPIErrorCode(err, "NotFoundException") {
			return fmt.Errorf("GetStage failed: %w", err)
		}
		_, err = r.Client.APIGW.CreateStage(ctx, &apigw.CreateStageInput{
			RestApiId:    aws.String(apiID),
			StageName:    aws.String(stageName),
			DeploymentId: aws.String(deploymentID),
		})
		if err != nil {
			return fmt.Errorf("CreateStage failed: %w", err)
		}
		return nil
	}

	_, err = r.Client.APIGW.UpdateStage(ctx, &apigw.UpdateStageInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stageName),
		PatchOperations: []apigwtypes.PatchOperation{{
			Op:    apigwtypes.OpReplace,
			Path:  aws.String("/deploymentId"),
			Value: aws.String(deploymentID),
		}},
	})
	if err != nil {
		return fmt.Errorf("UpdateStage failed: %w", err)
	}
	return nil
}

// DeleteRestAPI deleta a REST API inteira (recursos, métodos, deployments e stages).
func (r *APIGWRepository) DeleteRestAPI(ctx context.Context, apiID string) error {
	_, err := r.Client.APIGW.DeleteRestApi(ctx, &apigw.DeleteRestApiInput{RestApiId: aws.String(apiID)})
	if err != nil && !client.IsAPIErrorCode(err, "NotFoundException") {
		return fmt.Errorf("DeleteRestApi failed: %w", err)
	}
	return nil
}

// findResourceByPath devolve "" quando o caminho não existe.
func (r *APIGWRepository) findResourceByPath(ctx context.Context, apiID, path string) (string, error) {
	paginator := apigw.NewGetResourcesPaginator(r.Client.APIGW, &apigw.GetResourcesInput{
		RestApiId: aws.String(apiID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("GetResources failed: %w", err)
		}
		for _, res := range page.Items {
			if aws.ToString(res.Path) == path {
				return aws.ToString(res.Id), nil
			}
		}
	}
	return "", nil
}
