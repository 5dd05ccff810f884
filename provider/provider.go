package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/schema"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/models"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/resource"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/service"
)

// Provider retorna o schema e resources map.
func Provider() *schema.Provider {
	return &schema.Provider{
		Schema: map[string]*schema.Schema{
			"region": {
				Type:        schema.TypeString,
				Optional:    true,
				DefaultFunc: schema.EnvDefaultFunc("AWS_REGION", "us-east-1"),
				Description: "AWS region to use for resources",
			},
			"access_key": {
				Type:        schema.TypeString,
				Optional:    true,
				DefaultFunc: schema.EnvDefaultFunc("AWS_ACCESS_KEY_ID", ""),
				Description: "AWS access key",
			},
			"secret_key": {
				Type:        schema.TypeString,
				Optional:    true,
				Sensitive:   true,
				DefaultFunc: schema.EnvDefaultFunc("AWS_SECRET_ACCESS_KEY", ""),
				Description: "AWS secret key",
			},
			"profile": {
				Type:        schema.TypeString,
				Optional:    true,
				DefaultFunc: schema.EnvDefaultFunc("AWS_PROFILE", ""),
				Description: "Perfil do arquivo de credenciais compartilhado.",
			},
			"state_bucket": {
				Type:        schema.TypeString,
				Optional:    true,
				Description: "Bucket S3 para armazenar backups de estado (statefile) para rollback.",
			},
			"state_key": {
				Type:        schema.TypeString,
				Optional:    true,
				Default:     repository.DefaultStateKey,
				Description: "Chave do statefile dentro do state_bucket.",
			},
			"rollback": {
				Type:        schema.TypeBool,
				Optional:    true,
				Default:     false,
				Description: "Se true, restaura o estado de rollback anterior antes de qualquer operação.",
			},
		},
		ResourcesMap: map[string]*schema.Resource{
			"lambdaproxy_function_api": resource.ResourceLambdaFunctionAPI(),
		},
		DataSourcesMap: map[string]*schema.Resource{
			"lambdaproxy_archive": resource.DataSourceArchive(),
		},
		ConfigureContextFunc: providerConfigure,
	}
}

func providerConfigure(ctx context.Context, d *schema.ResourceData) (interface{}, diag.Diagnostics) {
	var diags diag.Diagnostics

	// 1. Inicializa o AWS Client (Base)
	awsClient, err := client.New(ctx, client.Options{
		Region:    d.Get("region").(string),
		Profile:   d.Get("profile").(string),
		AccessKey: d.Get("access_key").(string),
		SecretKey: d.Get("secret_key").(string),
	})
	if err != nil {
		diags = append(diags, diag.FromErr(fmt.Errorf("failed to create aws client: %w", err))...)
		return nil, diags
	}
	awsClient.S3Bucket = d.Get("state_bucket").(string)
	awsClient.StateKey = d.Get("state_key").(string)

	tflog.Debug(ctx, "aws client configured", map[string]interface{}{
		"region":    awsClient.Region,
		"account":   awsClient.AccountID,
		"partition": awsClient.Partition,
	})

	bundle := NewBundle(awsClient)

	// LÓGICA DE ROLLBACK (Executa o Service de Estado)
	if awsClient.S3Bucket != "" {
		diags = append(diags, bundle.StateService.HandleStateOperation(ctx, d.Get("rollback").(bool))...)
	}

	return bundle, diags
}

// NewBundle monta repositórios e services sobre um AWSClient já configurado.
func NewBundle(awsClient *client.AWSClient) *models.ConfigurationBundle {
	// Repositórios (Camada de Acesso a Dados)
	iamRepo := &repository.IAMRepository{Client: awsClient}
	lambdaRepo := &repository.LambdaRepository{Client: awsClient}
	apigwRepo := &repository.APIGWRepository{Client: awsClient}
	apigwv2Repo := &repository.APIGWv2Repository{Client: awsClient}
	cwLogsRepo := &repository.CWLogsRepository{Client: awsClient}
	stateRepo := &repository.StateRepository{Client: awsClient}

	// Services Especializados (Camada de Lógica de Negócio)
	iamService := &service.IAMService{IAMRepo: iamRepo}
	cwLogsService := &service.CWLogsService{CWLogsRepo: cwLogsRepo}
	apigwService := &service.APIGatewayService{APIGWRepo: apigwRepo, APIGWv2Repo: apigwv2Repo, Client: awsClient}

	// Service Orquestrador (Facade)
	deployService := &service.LambdaDeploymentService{
		IAMService:        iamService,
		CWLogsService:     cwLogsService,
		APIGatewayService: apigwService,
		LambdaRepo:        lambdaRepo,
		Client:            awsClient,
	}

	return &models.ConfigurationBundle{
		DeployService: deployService,
		StateService:  &service.HCLStateService{StateRepo: stateRepo},
		Client:        awsClient,
	}
}
