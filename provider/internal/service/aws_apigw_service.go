package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
)

// APIGatewayService manipula a lógica de negócio da API que faz proxy para a Lambda.
type APIGatewayService struct {
	APIGWRepo   *repository.APIGWRepository
	APIGWv2Repo *repository.APIGWv2Repository
	Client      *client.AWSClient // Para obter Region/AccountID
}

// EnsureProxyAPI garante a API, as rotas gulosas, a integração e o stage.
// prev é o estado anterior (nil na criação); uma API que sumiu é recriada.
func (s *APIGatewayService) EnsureProxyAPI(ctx context.Context, prev *dto.APIGWState, cfg dto.APIConfig, functionArn string) (*dto.APIGWState, error) {
	if cfg.StageName == "" {
		cfg.StageName = dto.DefaultStageName
	}

	switch strings.ToUpper(cfg.Protocol) {
	case "", dto.ProtocolREST:
		return s.ensureRestAPI(ctx, prev, cfg, functionArn)
	case dto.ProtocolHTTP:
		return s.ensureHTTPAPI(ctx, prev, cfg, functionArn)
	default:
		return nil, fmt.Errorf("unsupported api protocol %q", cfg.Protocol)
	}
}

func (s *APIGatewayService) ensureRestAPI(ctx context.Context, prev *dto.APIGWState, cfg dto.APIConfig, functionArn string) (*dto.APIGWState, error) {
	apiID, rootID := "", ""
	if prev != nil && prev.APIGatewayID != "" && prev.Protocol == dto.ProtocolREST {
		exists, err := s.APIGWRepo.RestAPIExists(ctx, prev.APIGatewayID)
		if err != nil {
			return nil, err
		}
		if exists {
			apiID = prev.APIGatewayID
			if rootID, err = s.APIGWRepo.GetRootResourceID(ctx, apiID); err != nil {
				return nil, fmt.Errorf("getting root resource ID: %w", err)
			}
		} else {
			tflog.Warn(ctx, "REST API disappeared, recreating", map[string]interface{}{"api_id": prev.APIGatewayID})
		}
	}

	if apiID == "" {
		var err error
		if apiID, rootID, err = s.APIGWRepo.CreateRestAPI(ctx, cfg.Name); err != nil {
			return nil, err
		}
	}

	state := &dto.APIGWState{
		APIGatewayID: apiID,
		Protocol:     dto.ProtocolREST,
		StageName:    cfg.StageName,
		Resources:    make(map[string]dto.ResourceInfo),
	}
	invokeURI := s.Client.InvokeURI(functionArn)

	for _, r := range dto.ProxyRoutes(cfg.ProxyRoot) {
		resourceID, pathResources, err := s.APIGWRepo.EnsurePath(ctx, apiID, rootID, r.Path)
		if err != nil {
			return nil, fmt.Errorf("ensure path %s: %w", r.Path, err)
		}
		for k, v := range pathResources {
			state.Resources[k] = v
		}

		if err := s.APIGWRepo.PutMethodAndIntegration(ctx, apiID, resourceID, r, invokeURI); err != nil {
			return nil, fmt.Errorf("put method/integration %s %s: %w", r.Method, r.Path, err)
		}

		state.Routes = append(state.Routes, dto.RouteState{
			Path: r.Path, Method: r.Method, Authorization: r.Authorization, ResourceID: resourceID,
		})
	}

	deploymentID, err := s.APIGWRepo.CreateDeployment(ctx, apiID)
	if err != nil {
		return nil, fmt.Errorf("deploy api failed: %w", err)
	}
	if err := s.APIGWRepo.EnsureStage(ctx, apiID, cfg.StageName, deploymentID); err != nil {
		return nil, fmt.Errorf("stage %s failed: %w", cfg.StageName, err)
	}

	state.DeploymentID = deploymentID
	state.ExecutionArn = s.Client.ExecutionArn(apiID)
	state.InvokeURL = s.Client.InvokeURL(apiID, cfg.StageName)
	return state, nil
}

func (s *APIGatewayService) ensureHTTPAPI(ctx context.Context, prev *dto.APIGWState, cfg dto.APIConfig, functionArn string) (*dto.APIGWState, error) {
	var apiID, endpoint string
	if prev != nil && prev.APIGatewayID != "" && prev.Protocol == dto.ProtocolHTTP {
		got, err := s.APIGWv2Repo.GetHTTPAPI(ctx, prev.APIGatewayID)
		if err != nil {
			return nil, err
		}
		if got != "" {
			apiID, endpoint = prev.APIGatewayID, got
		} else {
			tflog.Warn(ctx, "HTTP API disappeared, recreating", map[string]interface{}{"api_id": prev.APIGatewayID})
		}
	}

	state := &dto.APIGWState{Protocol: dto.ProtocolHTTP, StageName: cfg.StageName}

	if apiID != "" && prev.IntegrationID != "" {
		// API existente: integração e rotas já apontam para a mesma função.
		state.IntegrationID = prev.IntegrationID
		state.Routes = prev.Routes
	} else {
		if apiID == "" {
			var err error
			if apiID, endpoint, err = s.APIGWv2Repo.CreateHTTPAPI(ctx, cfg.Name); err != nil {
				return nil, err
			}
		}
		integrationID, err := s.APIGWv2Repo.CreateProxyIntegration(ctx, apiID, functionArn)
		if err != nil {
			return nil, err
		}
		state.IntegrationID = integrationID
		for _, r := range dto.ProxyRoutes(cfg.ProxyRoot) {
			routeID, err := s.APIGWv2Repo.CreateRoute(ctx, apiID, integrationID, r)
			if err != nil {
				return nil, err
			}
			state.Routes = append(state.Routes, dto.RouteState{
				Path: r.Path, Method: r.Method, Authorization: r.Authorization, RouteID: routeID,
			})
		}
	}

	if err := s.APIGWv2Repo.CreateStage(ctx, apiID, cfg.StageName); err != nil {
		return nil, err
	}

	state.APIGatewayID = apiID
	state.ExecutionArn = s.Client.ExecutionArn(apiID)
	state.InvokeURL = strings.TrimSuffix(endpoint, "/") + "/" + cfg.StageName
	return state, nil
}

// CheckAPIExists verifica se a API do estado ainda existe.
func (s *APIGatewayService) CheckAPIExists(ctx context.Context, protocol, apiID string) (bool, error) {
	if apiID == "" {
		return false, nil
	}
	if protocol == dto.ProtocolHTTP {
		endpoint, err := s.APIGWv2Repo.GetHTTPAPI(ctx, apiID)
		return endpoint != "", err
	}
	return s.APIGWRepo.RestAPIExists(ctx, apiID)
}

// DeleteAPI deleta a API inteira; métodos, rotas e stages vão junto.
func (s *APIGatewayService) DeleteAPI(ctx context.Context, protocol, apiID string) error {
	if apiID == "" {
		return nil
	}
	if protocol == dto.ProtocolHTTP {
		return s.APIGWv2Repo.DeleteHTTPAPI(ctx, apiID)
	}
	return s.APIGWRepo.DeleteRestAPI(ctx, apiID)
}
