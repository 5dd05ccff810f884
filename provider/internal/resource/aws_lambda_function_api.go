package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/schema"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/validation"

	"github.com/raywall/terraform-provider-lambdaproxy/internal/packager"
	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/models"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/service"
)

const (
	DefaultHandler = "lambda_function.lambda_handler"
	DefaultRuntime = "python3.12"
)

// retentionDays são os valores aceitos pelo PutRetentionPolicy.
var retentionDays = []int{1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545, 731, 1096, 1827, 2192, 2557, 2922, 3288, 3653}

// Atributos que, ao mudar, disparam um novo deploy e mudam o estado interno.
var updatableAttributes = []string{
	"handler", "runtime", "filename", "source_code_hash", "memory_size",
	"timeout", "environment", "policy_arns", "log_retention_days",
}

// ResourceLambdaFunctionAPI define o schema do recurso.
func ResourceLambdaFunctionAPI() *schema.Resource {
	return &schema.Resource{
		Description:   "Função Lambda exposta por uma API Gateway que encaminha qualquer caminho e método para ela.",
		CreateContext: resourceCreate,
		ReadContext:   resourceRead,
		UpdateContext: resourceUpdate,
		DeleteContext: resourceDelete,
		CustomizeDiff: resourceCustomizeDiff,
		Schema: map[string]*schema.Schema{
			"function_name": {
				Type:         schema.TypeString,
				Required:     true,
				ForceNew:     true,
				ValidateFunc: validation.StringLenBetween(1, 64),
			},
			"handler": {Type: schema.TypeString, Optional: true, Default: DefaultHandler},
			"runtime": {
				Type:         schema.TypeString,
				Optional:     true,
				Default:      DefaultRuntime,
				ValidateFunc: validation.StringInSlice(repository.RuntimeValues(), false),
			},
			"filename": {
				Type:        schema.TypeString,
				Optional:    true,
				Default:     packager.DefaultOutput,
				Description: "Caminho do pacote zip com o código da função.",
			},
			"source_code_hash": {
				Type:        schema.TypeString,
				Optional:    true,
				Computed:    true,
				Description: "SHA-256 em base64 do pacote. Quando omitido é calculado a partir de filename.",
			},
			"memory_size": {Type: schema.TypeInt, Optional: true, Default: 128, ValidateFunc: validation.IntBetween(128, 10240)},
			"timeout":     {Type: schema.TypeInt, Optional: true, Default: 30, ValidateFunc: validation.IntBetween(1, 900)},
			"environment": {
				Type:     schema.TypeMap,
				Optional: true,
				Elem:     &schema.Schema{Type: schema.TypeString},
			},
			"role_name": {
				Type:        schema.TypeString,
				Optional:    true,
				Computed:    true,
				ForceNew:    true,
				Description: "Nome da Role de execução. Padrão: <function_name>-execution-role.",
			},
			"policy_arns": {
				Type:        schema.TypeList,
				Optional:    true,
				Description: "Políticas gerenciadas anexadas à Role além da AWSLambdaBasicExecutionRole.",
				Elem:        &schema.Schema{Type: schema.TypeString},
			},
			"api_name": {
				Type:        schema.TypeString,
				Optional:    true,
				Computed:    true,
				ForceNew:    true,
				Description: "Nome da API. Padrão: <function_name>-api.",
			},
			"api_protocol": {
				Type:         schema.TypeString,
				Optional:     true,
				Default:      dto.ProtocolREST,
				ForceNew:     true,
				ValidateFunc: validation.StringInSlice([]string{dto.ProtocolREST, dto.ProtocolHTTP}, false),
			},
			"stage_name": {Type: schema.TypeString, Optional: true, Default: dto.DefaultStageName, ForceNew: true},
			"log_retention_days": {
				Type:         schema.TypeInt,
				Optional:     true,
				Default:      int(service.DefaultLogRetentionDays),
				ValidateFunc: validation.IntInSlice(retentionDays),
			},
			"proxy_root": {
				Type:        schema.TypeBool,
				Optional:    true,
				Default:     true,
				ForceNew:    true,
				Description: "Também roteia a raiz do stage, que o {proxy+} sozinho não cobre.",
			},

			"role_arn":      {Type: schema.TypeString, Computed: true},
			"function_arn":  {Type: schema.TypeString, Computed: true},
			"invoke_arn":    {Type: schema.TypeString, Computed: true},
			"api_id":        {Type: schema.TypeString, Computed: true},
			"execution_arn": {Type: schema.TypeString, Computed: true},
			"invoke_url":    {Type: schema.TypeString, Computed: true},
			"log_group":     {Type: schema.TypeString, Computed: true},
			"internal":      {Type: schema.TypeString, Computed: true},
		},
	}
}

// resourceCreate (Controller) - Mapeia e chama o Service
func resourceCreate(ctx context.Context, d *schema.ResourceData, m interface{}) diag.Diagnostics {
	return deploy(ctx, d, m, nil)
}

// resourceRead (Controller)
func resourceRead(ctx context.Context, d *schema.ResourceData, m interface{}) diag.Diagnostics {
	bundle, diags := configured(m)
	if diags != nil {
		return diags
	}

	st, err := internalState(d)
	if err != nil {
		d.SetId("")
		return diag.FromErr(err)
	}
	if st == nil {
		return nil
	}

	exists, err := bundle.DeployService.CheckResourceExistence(ctx, st)
	if err != nil {
		return diag.FromErr(fmt.Errorf("failed during existence check: %w", err))
	}
	if !exists {
		// Role, função ou API removidos fora do Terraform: drift
		tflog.Warn(ctx, "lambda proxy resources missing, removing from state", map[string]interface{}{"id": d.Id()})
		d.SetId("")
		return nil
	}

	return diag.FromErr(setComputed(d, st))
}

// resourceUpdate (Controller)
func resourceUpdate(ctx context.Context, d *schema.ResourceData, m interface{}) diag.Diagnostics {
	// O CustomizeDiff marca internal como computed; o estado anterior fica no lado old.
	old, _ := d.GetChange("internal")
	prev, err := parseInternal(old.(string))
	if err != nil {
		return diag.FromErr(err)
	}
	return deploy(ctx, d, m, prev)
}

// resourceDelete (Controller) - Chama o Service para limpar
func resourceDelete(ctx context.Context, d *schema.ResourceData, m interface{}) diag.Diagnostics {
	bundle, diags := configured(m)
	if diags != nil {
		return diags
	}

	st, err := internalState(d)
	if err != nil {
		return diag.FromErr(err)
	}
	if st == nil {
		d.SetId("")
		return nil
	}

	if err := bundle.DeployService.DeleteDeployment(ctx, st); err != nil {
		return diag.FromErr(fmt.Errorf("failed to delete deployment: %w", err))
	}

	d.SetId("")
	return nil
}

// resourceCustomizeDiff calcula o source_code_hash a partir do pacote quando ele não é informado,
// para que uma troca do zip gere um update.
func resourceCustomizeDiff(ctx context.Context, d *schema.ResourceDiff, _ interface{}) error {
	if !hashConfigured(d) && d.NewValueKnown("filename") {
		filename := d.Get("filename").(string)
		sum, err := packager.FileHash(filename)
		switch {
		case err == nil:
			if sum != d.Get("source_code_hash").(string) {
				if err := d.SetNew("source_code_hash", sum); err != nil {
					return err
				}
			}
		case os.IsNotExist(err):
			// O pacote pode ser gerado no mesmo apply; o erro aparece no deploy.
			tflog.Debug(ctx, "package not found during plan", map[string]interface{}{"filename": filename})
		default:
			return err
		}
	}

	if d.Id() != "" && d.HasChanges(updatableAttributes...) {
		return d.SetNewComputed("internal")
	}
	return nil
}

func deploy(ctx context.Context, d *schema.ResourceData, m interface{}, prev *dto.ResourceState) diag.Diagnostics {
	bundle, diags := configured(m)
	if diags != nil {
		return diags
	}

	lc, api := expandConfig(d)
	if lc.SourceCodeHash == "" {
		// Pacote gerado depois do plan: o hash é calculado só agora.
		if sum, err := packager.FileHash(lc.ZipPath); err == nil {
			lc.SourceCodeHash = sum
		}
	}

	st, err := bundle.DeployService.EnsureDeployment(ctx, prev, lc, api)
	if err != nil {
		return diag.FromErr(fmt.Errorf("deployment failed: %w", err))
	}

	d.SetId(fmt.Sprintf("%s/%s", st.APIGatewayID, st.FunctionName))
	return diag.FromErr(setComputed(d, st))
}

func configured(m interface{}) (*models.ConfigurationBundle, diag.Diagnostics) {
	bundle, ok := m.(*models.ConfigurationBundle)
	if !ok || bundle.DeployService == nil {
		return nil, diag.Errorf("deployment service not configured")
	}
	return bundle, nil
}

// internalState devolve nil quando o recurso ainda não tem estado interno.
func internalState(d *schema.ResourceData) (*dto.ResourceState, error) {
	return parseInternal(d.Get("internal").(string))
}

func parseInternal(internal string) (*dto.ResourceState, error) {
	if internal == "" {
		return nil, nil
	}
	var st dto.ResourceState
	if err := json.Unmarshal([]byte(internal), &st); err != nil {
		return nil, fmt.Errorf("failed reading internal state: %w", err)
	}
	return &st, nil
}

func setComputed(d *schema.ResourceData, st *dto.ResourceState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding internal state: %w", err)
	}

	values := map[string]interface{}{
		"role_name":     st.RoleName,
		"role_arn":      st.RoleArn,
		"function_arn":  st.FunctionArn,
		"invoke_arn":    st.InvokeArn,
		"api_id":        st.APIGatewayID,
		"execution_arn": st.ExecutionArn,
		"invoke_url":    st.InvokeURL,
		"log_group":     st.LogGroup,
		"internal":      string(b),
	}
	if st.SourceCodeHash != "" {
		values["source_code_hash"] = st.SourceCodeHash
	}
	for k, v := range values {
		if err := d.Set(k, v); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

// expandConfig extrai os dados do schema para DTOs do Service.
func expandConfig(d *schema.ResourceData) (*dto.LambdaConfig, dto.APIConfig) {
	env := make(map[string]string)
	for k, v := range d.Get("environment").(map[string]interface{}) {
		env[k] = v.(string)
	}

	policyARNsRaw := d.Get("policy_arns").([]interface{})
	policyARNs := make([]string, 0, len(policyARNsRaw))
	for _, p := range policyARNsRaw {
		if s, ok := p.(string); ok && s != "" {
			policyARNs = append(policyARNs, s)
		}
	}

	functionName := d.Get("function_name").(string)

	roleName := d.Get("role_name").(string)
	if roleName == "" {
		roleName = service.DefaultRoleName(functionName)
	}
	apiName := d.Get("api_name").(string)
	if apiName == "" {
		apiName = service.DefaultAPIName(functionName)
	}

	lc := &dto.LambdaConfig{
		FunctionName:   functionName,
		Runtime:        d.Get("runtime").(string),
		Handler:        d.Get("handler").(string),
		ZipPath:        d.Get("filename").(string),
		SourceCodeHash: d.Get("source_code_hash").(string),
		MemorySize:     int32(d.Get("memory_size").(int)),
		Timeout:        int32(d.Get("timeout").(int)),
		RoleName:       roleName,
		PolicyARNs:     policyARNs,
		Environment:    env,
		LogRetention:   int32(d.Get("log_retention_days").(int)),
	}

	api := dto.APIConfig{
		Name:      apiName,
		Protocol:  d.Get("api_protocol").(string),
		StageName: d.Get("stage_name").(string),
		ProxyRoot: d.Get("proxy_root").(bool),
	}

	return lc, api
}

// hashConfigured indica se source_code_hash foi escrito explicitamente na configuração.
func hashConfigured(d *schema.ResourceDiff) bool {
	raw := d.GetRawConfig()
	if raw.IsNull() || !raw.IsKnown() || !raw.Type().IsObjectType() || !raw.Type().HasAttribute("source_code_hash") {
		return false
	}
	return !raw.GetAttr("source_code_hash").IsNull()
}
