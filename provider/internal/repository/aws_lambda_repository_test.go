package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/testutil"
)

func writeZip(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lambda_function.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLambdaRepo() (*LambdaRepository, *testutil.Fakes) {
	c, fakes := testutil.NewClient()
	return &LambdaRepository{Client: c, RetryAttempts: 3, RetryDelay: time.Millisecond, WaitTimeout: time.Second}, fakes
}

func TestLambdaRepository_EnsureFunctionCreates(t *testing.T) {
	repo, fakes := newLambdaRepo()
	lc := &dto.LambdaConfig{
		FunctionName: "hello",
		Runtime:      "python3.12",
		Handler:      "lambda_function.lambda_handler",
		ZipPath:      writeZip(t, "zip-bytes"),
		MemorySize:   128,
		Timeout:      30,
	}

	arn, err := repo.EnsureFunction(context.Background(), lc, "arn:aws:iam::123456789012:role/r")
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:lambda:us-east-1:123456789012:function:hello", arn)
	fn := fakes.Lambda.Functions["hello"]
	require.NotNil(t, fn)
	assert.Equal(t, lambdatypes.RuntimePython312, fn.Runtime)
	assert.Equal(t, "lambda_function.lambda_handler", aws.ToString(fn.Handler))
	assert.Equal(t, []byte("zip-bytes"), fakes.Lambda.Code["hello"])
}

func TestLambdaRepository_EnsureFunctionRetriesRolePropagation(t *testing.T) {
	repo, fakes := newLambdaRepo()
	fakes.Lambda.CreateErrs = []error{
		testutil.APIError("InvalidParameterValueException", "The role defined for the function cannot be assumed by Lambda."),
	}
	lc := &dto.LambdaConfig{FunctionName: "hello", Runtime: "provided.al2023", Handler: "bootstrap", ZipPath: writeZip(t, "x")}

	_, err := repo.EnsureFunction(context.Background(), lc, "arn:aws:iam::123456789012:role/r")
	require.NoError(t, err)
	assert.Equal(t, 2, fakes.Lambda.CreateCalls)
}

func TestLambdaRepository_EnsureFunctionDoesNotRetryOtherErrors(t *testing.T) {
	repo, fakes := newLambdaRepo()
	fakes.Lambda.CreateErrs = []error{
		testutil.APIError("InvalidParameterValueException", "Uploaded file must be a non-empty zip"),
	}
	lc := &dto.LambdaConfig{FunctionName: "hello", Runtime: "python3.12", Handler: "h", ZipPath: writeZip(t, "x")}

	_, err := repo.EnsureFunction(context.Background(), lc, "role")
	assert.ErrorContains(t, err, "non-empty zip")
	assert.Equal(t, 1, fakes.Lambda.CreateCalls)
}

func TestLambdaRepository_EnsureFunctionUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	repo, fakes := newLambdaRepo()
	lc := &dto.LambdaConfig{FunctionName: "hello", Runtime: "python3.12", Handler: "h", ZipPath: writeZip(t, "v1")}
	_, err := repo.EnsureFunction(ctx, lc, "role")
	require.NoError(t, err)

	lc.Handler = "other.handler"
	lc.ZipPath = writeZip(t, "v2")
	_, err = repo.EnsureFunction(ctx, lc, "role")
	require.NoError(t, err)

	assert.Equal(t, 1, fakes.Lambda.CreateCalls)
	assert.Equal(t, 1, fakes.Lambda.UpdateCalls)
	assert.Equal(t, 1, fakes.Lambda.CodeUpdates)
	assert.Equal(t, "other.handler", aws.ToString(fakes.Lambda.Functions["hello"].Handler))
	assert.Equal(t, []byte("v2"), fakes.Lambda.Code["hello"])
}

func TestLambdaRepository_EnsureFunctionSkipsUnchangedCode(t *testing.T) {
	ctx := context.Background()
	repo, fakes := newLambdaRepo()
	lc := &dto.LambdaConfig{FunctionName: "hello", Runtime: "python3.12", Handler: "h", ZipPath: writeZip(t, "v1")}
	_, err := repo.EnsureFunction(ctx, lc, "role")
	require.NoError(t, err)

	fakes.Lambda.Functions["hello"].CodeSha256 = aws.String("hash")
	lc.SourceCodeHash = "hash"
	_, err = repo.EnsureFunction(ctx, lc, "role")
	require.NoError(t, err)

	assert.Equal(t, 0, fakes.Lambda.CodeUpdates)
}

func TestLambdaRepository_EnsureFunctionMissingZip(t *testing.T) {
	repo, _ := newLambdaRepo()
	lc := &dto.LambdaConfig{FunctionName: "hello", ZipPath: filepath.Join(t.TempDir(), "nope.zip")}

	_, err := repo.EnsureFunction(context.Background(), lc, "role")
	assert.ErrorContains(t, err, "reading zip file")
}

func TestLambdaRepository_PermissionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, fakes := newLambdaRepo()
	lc := &dto.LambdaConfig{FunctionName: "hello", Runtime: "python3.12", Handler: "h", ZipPath: writeZip(t, "x")}
	_, err := repo.EnsureFunction(ctx, lc, "role")
	require.NoError(t, err)

	src := "arn:aws:execute-api:us-east-1:123456789012:abc/*/*"
	require.NoError(t, repo.AddPermission(ctx, "hello", "apigateway-abc", src))
	require.NoError(t, repo.AddPermission(ctx, "hello", "apigateway-abc", src))
	assert.Equal(t, src, fakes.Lambda.Permissions["hello"]["apigateway-abc"])

	require.NoError(t, repo.RemovePermission(ctx, "hello", "apigateway-abc"))
	require.NoError(t, repo.RemovePermission(ctx, "hello", "apigateway-abc"))
	require.NoError(t, repo.DeleteFunction(ctx, "hello"))
	require.NoError(t, repo.DeleteFunction(ctx, "hello"))
}

func TestMapRuntime(t *testing.T) {
	assert.Equal(t, lambdatypes.RuntimeProvidedal2023, mapRuntime(" Provided.AL2023 "))
	assert.Equal(t, lambdatypes.RuntimeProvidedal2, mapRuntime("providedal2"))
	assert.Equal(t, lambdatypes.RuntimePython312, mapRuntime("python3.12"))
}

func TestRuntimeValues(t *testing.T) {
	values := RuntimeValues()
	assert.Contains(t, values, "python3.12")
	assert.Contains(t, values, "provided.al2023")
}

func TestIsRolePropagationError(t *testing.T) {
	notAssumable := testutil.APIError("InvalidParameterValueException", "The role defined for the function cannot be assumed by Lambda.")

	assert.True(t, isRolePropagationError(notAssumable))
	assert.True(t, isRolePropagationError(fmt.Errorf("create function: %w", notAssumable)))
	assert.False(t, isRolePropagationError(testutil.APIError("InvalidParameterValueException", "Unzipped size must be smaller than 262144000 bytes")))
	assert.False(t, isRolePropagationError(testutil.APIError("AccessDeniedException", "cannot be assumed")))
	assert.False(t, isRolePropagationError(errors.New("cannot be assumed")))
}
