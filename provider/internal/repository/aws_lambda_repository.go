package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	dto "github.com/raywall/terraform-provider-lambdaproxy/pkg/types"
	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

const (
	defaultRetryAttempts = 10
	defaultRetryDelay    = 3 * time.Second
	defaultWaitTimeout   = 2 * time.Minute
)

// LambdaRepository encapsula operações CRUD da AWS Lambda.
type LambdaRepository struct {
	Client *client.AWSClient

	// Zero usa os valores padrão.
	RetryAttempts uint
	RetryDelay    time.Duration
	WaitTimeout   time.Duration
}

// GetFunction busca uma função Lambda. Retorna nil se não for encontrada.
func (r *LambdaRepository) GetFunction(ctx context.Context, functionName string) (*types.FunctionConfiguration, error) {
	out, err := r.Client.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(functionName)})
	if err != nil {
		if client.IsAPIErrorCode(err, "ResourceNotFoundException") {
			return nil, nil
		}
		return nil, fmt.Errorf("GetFunction failed: %w", err)
	}
	return out.Configuration, nil
}

// EnsureFunction cria ou atualiza a função Lambda e devolve o ARN.
func (r *LambdaRepository) EnsureFunction(ctx context.Context, lc *dto.LambdaConfig, roleArn string) (string, error) {
	bs, err := os.ReadFile(lc.ZipPath)
	if err != nil {
		return "", fmt.Errorf("reading zip file %s: %w", lc.ZipPath, err)
	}
	rt := mapRuntime(lc.Runtime)

	got, err := r.GetFunction(ctx, lc.FunctionName)
	if err != nil {
		return "", err
	}

	if got != nil {
		// Função existe: UPDATE (configuração e, se mudou, código)
		if err := r.updateFunctionConfiguration(ctx, lc, roleArn, rt); err != nil {
			return "", err
		}
		if err := r.waitForUpdated(ctx, lc.FunctionName); err != nil {
			return "", err
		}
		if lc.SourceCodeHash == "" || aws.ToString(got.CodeSha256) != lc.SourceCodeHash {
			if err := r.updateFunctionCode(ctx, lc.FunctionName, bs); err != nil {
				return "", err
			}
			if err := r.waitForUpdated(ctx, lc.FunctionName); err != nil {
				return "", err
			}
		}
		return aws.ToString(got.FunctionArn), nil
	}

	// Função não existe: CREATE. A Role recém-criada pode ainda não ser assumível.
	var fnArn string
	err = retry.Do(
		func() error {
			result, cerr := r.Client.Lambda.CreateFunction(ctx, &lambda.CreateFunctionInput{
				FunctionName: aws.String(lc.FunctionName),
				Role:         aws.String(roleArn),
				Handler:      aws.String(lc.Handler),
				Runtime:      rt,
				Code:         &types.FunctionCode{ZipFile: bs},
				MemorySize:   aws.Int32(lc.MemorySize),
				Timeout:      aws.Int32(lc.Timeout),
				Environment: &types.Environment{
					Variables: lc.Environment,
				},
			})
			if cerr != nil {
				return cerr
			}
			fnArn = aws.ToString(result.FunctionArn)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.retryAttempts()),
		retry.Delay(r.retryDelay()),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRolePropagationError),
		retry.OnRetry(func(n uint, err error) {
			tflog.Debug(ctx, "waiting for IAM role propagation", map[string]interface{}{"attempt": n + 1, "error": err.Error()})
		}),
	)
	if err != nil {
		if client.IsAPIErrorCode(err, "ResourceConflictException") {
			g2, gerr := r.GetFunction(ctx, lc.FunctionName)
			if gerr == nil && g2 != nil {
				return aws.ToString(g2.FunctionArn), nil
			}
		}
		return "", fmt.Errorf("CreateFunction failed: %w", err)
	}
	if fnArn == "" {
		return "", fmt.Errorf("lambda created but ARN not available")
	}

	if err := r.waitForActive(ctx, lc.FunctionName); err != nil {
		return "", err
	}
	tflog.Info(ctx, "created lambda function", map[string]interface{}{"function": lc.FunctionName, "arn": fnArn})
	return fnArn, nil
}

// AddPermission adiciona a permissão de invocação para o API Gateway.
func (r *LambdaRepository) AddPermission(ctx context.Context, functionName, statementID, sourceArn string) error {
	_, err := r.Client.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(statementID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("apigateway.amazonaws.com"),
		SourceArn:    aws.String(sourceArn),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceConflictException") {
		return fmt.Errorf("AddPermission failed: %w", err)
	}
	return nil
}

// RemovePermission remove a permissão de invocação.
func (r *LambdaRepository) RemovePermission(ctx context.Context, functionName, statementID string) error {
	_, err := r.Client.Lambda.RemovePermission(ctx, &lambda.RemovePermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(statementID),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceNotFoundException") {
		return fmt.Errorf("RemovePermission failed: %w", err)
	}
	return nil
}

// DeleteFunction deleta a Lambda.
func (r *LambdaRepository) DeleteFunction(ctx context.Context, functionName string) error {
	_, err := r.Client.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceNotFoundException") {
		return fmt.Errorf("DeleteFunction failed: %w", err)
	}
	return nil
}

// --- Métodos Privados ---

func (r *LambdaRepository) updateFunctionConfiguration(ctx context.Context, lc *dto.LambdaConfig, roleArn string, rt types.Runtime) error {
	_, err := r.Client.Lambda.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(lc.FunctionName),
		Role:         aws.String(roleArn),
		Handler:      aws.String(lc.Handler),
		Runtime:      rt,
		MemorySize:   aws.Int32(lc.MemorySize),
		Timeout:      aws.Int32(lc.Timeout),
		Environment: &types.Environment{
			Variables: lc.Environment,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update lambda configuration: %w", err)
	}
	return nil
}

func (r *LambdaRepository) updateFunctionCode(ctx context.Context, functionName string, bs []byte) error {
	_, err := r.Client.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(functionName),
		ZipFile:      bs,
	})
	if err != nil {
		return fmt.Errorf("failed to update lambda code: %w", err)
	}
	tflog.Info(ctx, "updated lambda code", map[string]interface{}{"function": functionName})
	return nil
}

func (r *LambdaRepository) waitForActive(ctx context.Context, functionName string) error {
	waiter := lambda.NewFunctionActiveWaiter(r.Client.Lambda)
	err := waiter.Wait(ctx, &lambda.GetFunctionConfigurationInput{FunctionName: aws.String(functionName)}, r.waitTimeout())
	return r.checkAfterWait(ctx, functionName, err)
}

func (r *LambdaRepository) waitForUpdated(ctx context.Context, functionName string) error {
	waiter := lambda.NewFunctionUpdatedWaiter(r.Client.Lambda)
	err := waiter.Wait(ctx, &lambda.GetFunctionConfigurationInput{FunctionName: aws.String(functionName)}, r.waitTimeout())
	return r.checkAfterWait(ctx, functionName, err)
}

// checkAfterWait tolera timeout do waiter desde que a função ainda exista.
func (r *LambdaRepository) checkAfterWait(ctx context.Context, functionName string, waitErr error) error {
	if waitErr == nil {
		return nil
	}
	got, err := r.GetFunction(ctx, functionName)
	if err != nil {
		return fmt.Errorf("function wait failed and final check failed: %w", err)
	}
	if got == nil {
		return fmt.Errorf("function %s disappeared while waiting: %w", functionName, waitErr)
	}
	tflog.Warn(ctx, "function wait failed but final check passed", map[string]interface{}{"function": functionName, "error": waitErr.Error()})
	return nil
}

func (r *LambdaRepository) retryAttempts() uint {
	if r.RetryAttempts == 0 {
		return defaultRetryAttempts
	}
	return r.RetryAttempts
}

func (r *LambdaRepository) retryDelay() time.Duration {
	if r.RetryDelay == 0 {
		return defaultRetryDelay
	}
	return r.RetryDelay
}

func (r *LambdaRepository) waitTimeout() time.Duration {
	if r.WaitTimeout == 0 {
		return defaultWaitTimeout
	}
	return r.WaitTimeout
}

// isRolePropagationError reconhece o erro devolvido enquanto a Role ainda não propagou.
func isRolePropagationError(err error) bool {
	return client.IsAPIErrorCode(err, "InvalidParameterValueException") &&
		strings.Contains(err.Error(), "cannot be assumed")
}

// RuntimeValues lista os runtimes aceitos pelo SDK, para validação no schema.
func RuntimeValues() []string {
	values := types.Runtime("").Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func mapRuntime(runtime string) types.Runtime {
	switch strings.ToLower(strings.TrimSpace(runtime)) {
	case "provided.al2", "providedal2":
		return types.RuntimeProvidedal2
	case "provided.al2023", "providedal2023":
		return types.RuntimeProvidedal2023
	default:
		return types.Runtime(strings.TrimSpace(runtime))
	}
}
