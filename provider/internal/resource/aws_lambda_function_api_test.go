package resource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/schema"
	"github.com/hashicorp/terraform-plugin-sdk/v2/terraform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/terraform-provider-lambdaproxy/internal/packager"
	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/models"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/service"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/testutil"
)

func newTestBundle(t *testing.T) (*models.ConfigurationBundle, *testutil.Fakes) {
	t.Helper()
	c, fakes := testutil.NewClient()
	deploy := &service.LambdaDeploymentService{
		IAMService:    &service.IAMService{IAMRepo: &repository.IAMRepository{Client: c}},
		CWLogsService: &service.CWLogsService{CWLogsRepo: &repository.CWLogsRepository{Client: c, RetryDelay: time.Millisecond}},
		APIGatewayService: &service.APIGatewayService{
			APIGWRepo:   &repository.APIGWRepository{Client: c},
			APIGWv2Repo: &repository.APIGWv2Repository{Client: c},
			Client:      c,
		},
		LambdaRepo: &repository.LambdaRepository{Client: c, RetryDelay: time.Millisecond, WaitTimeout: time.Second},
		Client:     c,
	}
	return &models.ConfigurationBundle{DeployService: deploy, Client: c}, fakes
}

func packagedHandler(t *testing.T) packager.Result {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, packager.DefaultSource)
	require.NoError(t, os.WriteFile(src, []byte("def lambda_handler(event, context):\n    return {'statusCode': 200, 'body': 'Hello from Lambda!'}\n"), 0o644))
	res, err := packager.Zip(src, filepath.Join(dir, packager.DefaultOutput))
	require.NoError(t, err)
	return res
}

func TestResourceLambdaFunctionAPI_Schema(t *testing.T) {
	require.NoError(t, ResourceLambdaFunctionAPI().InternalValidate(nil, true))
}

func TestResourceLambdaFunctionAPI_Lifecycle(t *testing.T) {
	ctx := context.Background()
	bundle, fakes := newTestBundle(t)
	pkg := packagedHandler(t)

	d := schema.TestResourceDataRaw(t, ResourceLambdaFunctionAPI().Schema, map[string]interface{}{
		"function_name": "hello",
		"filename":      pkg.Path,
	})

	diags := resourceCreate(ctx, d, bundle)
	require.False(t, diags.HasError(), "%v", diags)

	apiID := d.Get("api_id").(string)
	assert.Equal(t, apiID+"/hello", d.Id())
	assert.Equal(t, "hello-execution-role", d.Get("role_name"))
	assert.Equal(t, "https://"+apiID+".execute-api.us-east-1.amazonaws.com/dev", d.Get("invoke_url"))
	assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:"+apiID, d.Get("execution_arn"))
	assert.Equal(t, "/aws/lambda/hello", d.Get("log_group"))
	assert.Equal(t, pkg.Base64SHA256, d.Get("source_code_hash"))
	assert.Equal(t, "hello-api", fakes.APIGW.APIs[apiID].Name)

	var st dto.ResourceState
	require.NoError(t, json.Unmarshal([]byte(d.Get("internal").(string)), &st))
	assert.Len(t, st.Routes, 2)
	assert.Equal(t, dto.ProtocolREST, st.Protocol)

	fn := fakes.Lambda.Functions["hello"]
	require.NotNil(t, fn)
	assert.Equal(t, "lambda_function.lambda_handler", *fn.Handler)
	assert.Equal(t, int32(128), *fn.MemorySize)

	diags = resourceRead(ctx, d, bundle)
	require.False(t, diags.HasError(), "%v", diags)
	assert.NotEmpty(t, d.Id())

	diags = resourceDelete(ctx, d, bundle)
	require.False(t, diags.HasError(), "%v", diags)
	assert.Empty(t, d.Id())
	assert.Empty(t, fakes.Lambda.Functions)
	assert.Empty(t, fakes.APIGW.APIs)
}

func TestResourceLambdaFunctionAPI_UpdateInPlace(t *testing.T) {
	ctx := context.Background()
	bundle, fakes := newTestBundle(t)
	pkg := packagedHandler(t)
	r := ResourceLambdaFunctionAPI()
	const s3ReadOnly = "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"

	diff, err := r.Diff(ctx, nil, terraform.NewResourceConfigRaw(map[string]interface{}{
		"function_name": "hello",
		"filename":      pkg.Path,
		"policy_arns":   []interface{}{s3ReadOnly},
	}), bundle)
	require.NoError(t, err)
	created, diags := r.Apply(ctx, nil, diff, bundle)
	require.False(t, diags.HasError(), "%v", diags)
	require.Len(t, fakes.APIGW.APIs, 1)
	assert.True(t, fakes.IAM.Attached["hello-execution-role"][s3ReadOnly])

	diff, err = r.Diff(ctx, created, terraform.NewResourceConfigRaw(map[string]interface{}{
		"function_name": "hello",
		"filename":      pkg.Path,
		"memory_size":   256,
	}), bundle)
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.False(t, diff.RequiresNew())
	require.Contains(t, diff.Attributes, "internal")
	assert.True(t, diff.Attributes["internal"].NewComputed)

	updated, diags := r.Apply(ctx, created, diff, bundle)
	require.False(t, diags.HasError(), "%v", diags)

	// Mesma API, mesmo ID, nenhuma permissão órfã
	assert.Len(t, fakes.APIGW.APIs, 1)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Attributes["api_id"], updated.Attributes["api_id"])
	assert.Equal(t, created.Attributes["invoke_url"], updated.Attributes["invoke_url"])
	assert.Len(t, fakes.Lambda.Permissions["hello"], 1)

	assert.Equal(t, int32(256), *fakes.Lambda.Functions["hello"].MemorySize)
	assert.False(t, fakes.IAM.Attached["hello-execution-role"][s3ReadOnly])
	assert.True(t, fakes.IAM.Attached["hello-execution-role"][service.BasePolicyArn])
	assert.NotEmpty(t, updated.Attributes["internal"])
}

func TestResourceLambdaFunctionAPI_ReadDrift(t *testing.T) {
	ctx := context.Background()
	bundle, fakes := newTestBundle(t)
	pkg := packagedHandler(t)

	d := schema.TestResourceDataRaw(t, ResourceLambdaFunctionAPI().Schema, map[string]interface{}{
		"function_name": "hello",
		"filename":      pkg.Path,
		"api_protocol":  "HTTP",
	})
	require.False(t, resourceCreate(ctx, d, bundle).HasError())

	delete(fakes.Lambda.Functions, "hello")

	diags := resourceRead(ctx, d, bundle)
	require.False(t, diags.HasError(), "%v", diags)
	assert.Empty(t, d.Id())
}

func TestResourceLambdaFunctionAPI_MissingPackage(t *testing.T) {
	bundle, _ := newTestBundle(t)

	d := schema.TestResourceDataRaw(t, ResourceLambdaFunctionAPI().Schema, map[string]interface{}{
		"function_name": "hello",
		"filename":      filepath.Join(t.TempDir(), "missing.zip"),
	})

	diags := resourceCreate(context.Background(), d, bundle)
	require.True(t, diags.HasError())
	assert.Contains(t, diags[0].Summary, "reading zip file")
	assert.Empty(t, d.Id())
}

func TestResourceLambdaFunctionAPI_NotConfigured(t *testing.T) {
	d := schema.TestResourceDataRaw(t, ResourceLambdaFunctionAPI().Schema, map[string]interface{}{
		"function_name": "hello",
	})
	assert.True(t, resourceCreate(context.Background(), d, nil).HasError())
	assert.True(t, resourceDelete(context.Background(), d, &models.ConfigurationBundle{}).HasError())
}

func TestExpandConfig(t *testing.T) {
	d := schema.TestResourceDataRaw(t, ResourceLambdaFunctionAPI().Schema, map[string]interface{}{
		"function_name":      "greeter",
		"role_name":          "custom-role",
		"policy_arns":        []interface{}{"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"},
		"environment":        map[string]interface{}{"GREETING": "hi"},
		"api_protocol":       "HTTP",
		"stage_name":         "prod",
		"proxy_root":         false,
		"log_retention_days": 30,
	})

	lc, api := expandConfig(d)
	assert.Equal(t, "greeter", lc.FunctionName)
	assert.Equal(t, DefaultRuntime, lc.Runtime)
	assert.Equal(t, DefaultHandler, lc.Handler)
	assert.Equal(t, packager.DefaultOutput, lc.ZipPath)
	assert.Equal(t, "custom-role", lc.RoleName)
	assert.Equal(t, []string{"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"}, lc.PolicyARNs)
	assert.Equal(t, map[string]string{"GREETING": "hi"}, lc.Environment)
	assert.Equal(t, int32(30), lc.LogRetention)
	assert.Equal(t, int32(30), lc.Timeout)

	assert.Equal(t, dto.APIConfig{Name: "greeter-api", Protocol: "HTTP", StageName: "prod", ProxyRoot: false}, api)
}
