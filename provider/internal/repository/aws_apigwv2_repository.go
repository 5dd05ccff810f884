package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	apigwv2 "github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	apigwv2types "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

// Payload 1.0 mantém o mesmo evento que a integração REST entrega à função.
const httpPayloadFormatVersion = "1.0"

// APIGWv2Repository encapsula operações CRUD da AWS API Gateway v2 (HTTP API).
type APIGWv2Repository struct {
	Client *client.AWSClient
}

// CreateHTTPAPI cria uma HTTP API e devolve o ID e o endpoint base.
func (r *APIGWv2Repository) CreateHTTPAPI(ctx context.Context, name string) (string, string, error) {
	out, err := r.Client.APIGWv2.CreateApi(ctx, &apigwv2.CreateApiInput{
		Name:         aws.String(name),
		ProtocolType: apigwv2types.ProtocolTypeHttp,
		Description:  aws.String("Proxy API managed by terraform-provider-lambdaproxy"),
	})
	if err != nil {
		return "", "", fmt.Errorf("CreateApi failed: %w", err)
	}
	tflog.Info(ctx, "created HTTP API", map[string]interface{}{"name": name, "api_id": aws.ToString(out.ApiId)})
	return aws.ToString(out.ApiId), aws.ToString(out.ApiEndpoint), nil
}

// GetHTTPAPI devolve o endpoint da API, ou "" quando ela não existe.
func (r *APIGWv2Repository) GetHTTPAPI(ctx context.Context, apiID string) (string, error) {
	out, err := r.Client.APIGWv2.GetApi(ctx, &apigwv2.GetApiInput{ApiId: aws.String(apiID)})
	if err != nil {
		if client.IsAPIErrorCode(err, "NotFoundException") {
			return "", nil
		}
		return "", fmt.Errorf("GetApi failed: %w", err)
	}
	return aws.ToString(out.ApiEndpoint), nil
}

// CreateProxyIntegration cria a integração AWS_PROXY apontando para a função.
func (r *APIGWv2Repository) CreateProxyIntegration(ctx context.Context, apiID, functionArn string) (string, error) {
	out, err := r.Client.APIGWv2.CreateIntegration(ctx, &apigwv2.CreateIntegrationInput{
		ApiId:                aws.String(apiID),
		IntegrationType:      apigwv2types.IntegrationTypeAwsProxy,
		IntegrationUri:       aws.String(functionArn),
		IntegrationMethod:    aws.String("POST"),
		ConnectionType:       apigwv2types.ConnectionTypeInternet,
		PayloadFormatVersion: aws.String(httpPayloadFormatVersion),
	})
	if err != nil {
		return "", fmt.Errorf("CreateIntegration failed: %w", err)
	}
	return aws.ToString(out.IntegrationId), nil
}

// CreateRoute cria a rota apontando para a integração. Rota já existente é aceita (ID vazio).
func (r *APIGWv2Repository) CreateRoute(ctx context.Context, apiID, integrationID string, route types.RouteConfig) (string, error) {
	out, err := r.Client.APIGWv2.CreateRoute(ctx, &apigwv2.CreateRouteInput{
		ApiId:             aws.String(apiID),
		RouteKey:          aws.String(route.RouteKey()),
		Target:            aws.String("integrations/" + integrationID),
		AuthorizationType: apigwv2types.AuthorizationType(route.Authorization),
		ApiKeyRequired:    aws.Bool(false),
	})
	if err != nil {
		if client.IsAPIErrorCode(err, "ConflictException") {
			return "", nil
		}
		return "", fmt.Errorf("CreateRoute failed for %s: %w", route.RouteKey(), err)
	}
	return aws.ToString(out.RouteId), nil
}

// CreateStage cria o stage com auto-deploy.
func (r *APIGWv2Repository) CreateStage(ctx context.Context, apiID, stageName string) error {
	_, err := r.Client.APIGWv2.CreateStage(ctx, &apigwv2.CreateStageInput{
		ApiId:      aws.String(apiID),
		StageName:  aws.String(stageName),
		AutoDeploy: aws.Bool(true),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ConflictException") {
		return fmt.Errorf("CreateStage failed: %w", err)
	}
	return nil
}

// DeleteHTTPAPI deleta a HTTP API inteira.
func (r *APIGWv2Repository) DeleteHTTPAPI(ctx context.Context, apiID string) error {
	_, err := r.Client.APIGWv2.DeleteApi(ctx, &apigwv2.DeleteApiInput{ApiId: aws.String(apiID)})
	if err != nil && !client.IsAPIErrorCode(err, "NotFoundException") {
		return fmt.Errorf("DeleteApi failed: %w", err)
	}
	return nil
}
