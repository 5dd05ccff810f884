package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/testutil"
)

func newDeploymentService(c *client.AWSClient) *LambdaDeploymentService {
	return &LambdaDeploymentService{
		IAMService:    &IAMService{IAMRepo: &repository.IAMRepository{Client: c}},
		CWLogsService: &CWLogsService{CWLogsRepo: &repository.CWLogsRepository{Client: c, RetryDelay: time.Millisecond}},
		APIGatewayService: &APIGatewayService{
			APIGWRepo:   &repository.APIGWRepository{Client: c},
			APIGWv2Repo: &repository.APIGWv2Repository{Client: c},
			Client:      c,
		},
		LambdaRepo: &repository.LambdaRepository{Client: c, RetryDelay: time.Millisecond, WaitTimeout: time.Second},
		Client:     c,
	}
}

func helloConfig(t *testing.T) *dto.LambdaConfig {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "lambda_function.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("zip"), 0o644))
	return &dto.LambdaConfig{
		FunctionName: "hello",
		Runtime:      "python3.12",
		Handler:      "lambda_function.lambda_handler",
		ZipPath:      zipPath,
		MemorySize:   128,
		Timeout:      30,
	}
}

func TestEnsureDeployment_RestProxy(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)

	st, err := svc.EnsureDeployment(ctx, nil, helloConfig(t), dto.APIConfig{Protocol: dto.ProtocolREST, StageName: "dev", ProxyRoot: true})
	require.NoError(t, err)

	// Role com confiança Lambda e política básica
	assert.Equal(t, "hello-execution-role", st.RoleName)
	assert.True(t, fakes.IAM.Attached["hello-execution-role"][BasePolicyArn])

	// Função e log group
	assert.Contains(t, fakes.Lambda.Functions, "hello")
	assert.Equal(t, int32(14), fakes.CWLogs.Groups["/aws/lambda/hello"])
	assert.Equal(t, "/aws/lambda/hello", st.LogGroup)

	// Árvore REST: {proxy+} + raiz, ANY, AWS_PROXY
	api := fakes.APIGW.APIs[st.APIGatewayID]
	require.NotNil(t, api)
	assert.Equal(t, "hello-api", api.Name)
	require.Len(t, st.Routes, 2)
	for _, r := range st.Routes {
		m := api.Methods[r.ResourceID+" ANY"]
		require.NotNil(t, m, r.Path)
		assert.Equal(t, "NONE", m.Authorization)
		assert.Equal(t, st.InvokeArn, m.IntegrationURI)
	}
	assert.Equal(t, st.DeploymentID, api.Stages["dev"])

	// Permissão escopada ao execution ARN
	expectedArn := "arn:aws:execute-api:us-east-1:123456789012:" + st.APIGatewayID
	assert.Equal(t, expectedArn, st.ExecutionArn)
	assert.Equal(t, expectedArn+"/*/*", fakes.Lambda.Permissions["hello"]["apigateway-"+st.APIGatewayID])

	assert.Equal(t, "https://"+st.APIGatewayID+".execute-api.us-east-1.amazonaws.com/dev", st.InvokeURL)
	assert.Equal(t,
		"arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/arn:aws:lambda:us-east-1:123456789012:function:hello/invocations",
		st.InvokeArn)
}

func TestEnsureDeployment_UpdateReusesAPI(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)
	lc := helloConfig(t)
	api := dto.APIConfig{Protocol: dto.ProtocolREST, StageName: "dev"}

	first, err := svc.EnsureDeployment(ctx, nil, lc, api)
	require.NoError(t, err)

	lc.MemorySize = 256
	second, err := svc.EnsureDeployment(ctx, first, lc, api)
	require.NoError(t, err)

	assert.Equal(t, first.APIGatewayID, second.APIGatewayID)
	assert.Len(t, fakes.APIGW.APIs, 1)
	assert.NotEqual(t, first.DeploymentID, second.DeploymentID)
	assert.Equal(t, second.DeploymentID, fakes.APIGW.APIs[second.APIGatewayID].Stages["dev"])
}

func TestEnsureDeployment_RecreatesMissingAPI(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)
	lc := helloConfig(t)
	api := dto.APIConfig{Protocol: dto.ProtocolREST}

	first, err := svc.EnsureDeployment(ctx, nil, lc, api)
	require.NoError(t, err)
	delete(fakes.APIGW.APIs, first.APIGatewayID)

	second, err := svc.EnsureDeployment(ctx, first, lc, api)
	require.NoError(t, err)
	assert.NotEqual(t, first.APIGatewayID, second.APIGatewayID)
	assert.Equal(t, dto.DefaultStageName, second.StageName)

	// Só a concessão da API nova continua na policy da função
	perms := fakes.Lambda.Permissions["hello"]
	assert.Len(t, perms, 1)
	assert.Contains(t, perms, PermissionStatementID(second.APIGatewayID))
	assert.NotContains(t, perms, first.PermissionID)
}

func TestEnsureDeployment_DetachesRemovedPolicies(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)
	lc := helloConfig(t)
	lc.PolicyARNs = []string{"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"}

	first, err := svc.EnsureDeployment(ctx, nil, lc, dto.APIConfig{})
	require.NoError(t, err)
	assert.True(t, fakes.IAM.Attached["hello-execution-role"]["arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"])

	lc.PolicyARNs = nil
	_, err = svc.EnsureDeployment(ctx, first, lc, dto.APIConfig{})
	require.NoError(t, err)
	assert.False(t, fakes.IAM.Attached["hello-execution-role"]["arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"])
	assert.True(t, fakes.IAM.Attached["hello-execution-role"][BasePolicyArn])
}

func TestEnsureDeployment_HTTPProxy(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)
	lc := helloConfig(t)
	api := dto.APIConfig{Name: "greeter", Protocol: dto.ProtocolHTTP, StageName: "dev", ProxyRoot: true}

	st, err := svc.EnsureDeployment(ctx, nil, lc, api)
	require.NoError(t, err)

	httpAPI := fakes.APIGWv2.APIs[st.APIGatewayID]
	require.NotNil(t, httpAPI)
	assert.Equal(t, "greeter", httpAPI.Name)
	assert.Equal(t, "integrations/"+st.IntegrationID, httpAPI.Routes["ANY /{proxy+}"])
	assert.Equal(t, "integrations/"+st.IntegrationID, httpAPI.Routes["ANY /"])
	assert.True(t, httpAPI.Stages["dev"])
	assert.Equal(t, httpAPI.Endpoint+"/dev", st.InvokeURL)
	assert.Contains(t, fakes.Lambda.Permissions["hello"], "apigateway-"+st.APIGatewayID)

	again, err := svc.EnsureDeployment(ctx, st, lc, api)
	require.NoError(t, err)
	assert.Equal(t, st.APIGatewayID, again.APIGatewayID)
	assert.Equal(t, st.IntegrationID, again.IntegrationID)
	assert.Len(t, httpAPI.Integrations, 1)
}

func TestEnsureDeployment_UnknownProtocol(t *testing.T) {
	c, _ := testutil.NewClient()
	svc := newDeploymentService(c)

	_, err := svc.EnsureDeployment(context.Background(), nil, helloConfig(t), dto.APIConfig{Protocol: "WEBSOCKET"})
	assert.ErrorContains(t, err, "unsupported api protocol")
}

func TestCheckResourceExistence(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)

	st, err := svc.EnsureDeployment(ctx, nil, helloConfig(t), dto.APIConfig{})
	require.NoError(t, err)

	exists, err := svc.CheckResourceExistence(ctx, st)
	require.NoError(t, err)
	assert.True(t, exists)

	delete(fakes.APIGW.APIs, st.APIGatewayID)
	exists, err = svc.CheckResourceExistence(ctx, st)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteDeployment(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	svc := newDeploymentService(c)
	lc := helloConfig(t)
	lc.PolicyARNs = []string{"arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"}

	st, err := svc.EnsureDeployment(ctx, nil, lc, dto.APIConfig{ProxyRoot: true})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDeployment(ctx, st))
	assert.Empty(t, fakes.APIGW.APIs)
	assert.Empty(t, fakes.Lambda.Functions)
	assert.Empty(t, fakes.IAM.Roles)
	assert.Empty(t, fakes.CWLogs.Groups)

	// Repetir não falha: tudo já foi removido
	require.NoError(t, svc.DeleteDeployment(ctx, st))
}
