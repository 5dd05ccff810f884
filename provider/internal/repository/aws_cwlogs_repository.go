package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

// CWLogsRepository encapsula operações CRUD da AWS CloudWatch Logs.
type CWLogsRepository struct {
	Client *client.AWSClient

	RetryAttempts uint
	RetryDelay    time.Duration
}

// CreateLogGroupIfNotExists cria um Log Group e define a retenção.
func (r *CWLogsRepository) CreateLogGroupIfNotExists(ctx context.Context, name string, retentionDays int32) error {
	_, err := r.Client.CWLogs.CreateLogGroup(ctx, &cw.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceAlreadyExistsException") {
		return fmt.Errorf("CreateLogGroup: %w", err)
	}

	// O grupo recém-criado pode ainda não estar visível para PutRetentionPolicy
	attempts := r.RetryAttempts
	if attempts == 0 {
		attempts = 6
	}
	delay := r.RetryDelay
	if delay == 0 {
		delay = 300 * time.Millisecond
	}

	err = retry.Do(
		func() error {
			_, perr := r.Client.CWLogs.PutRetentionPolicy(ctx, &cw.PutRetentionPolicyInput{
				LogGroupName:    aws.String(name),
				RetentionInDays: aws.Int32(retentionDays),
			})
			return perr
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return client.IsAPIErrorCode(err, "ResourceNotFoundException", "OperationAbortedException")
		}),
	)
	if err != nil {
		return fmt.Errorf("PutRetentionPolicy failed after retries: %w", err)
	}
	return nil
}

// DeleteLogGroup deleta o Log Group.
func (r *CWLogsRepository) DeleteLogGroup(ctx context.Context, logGroupName string) error {
	_, err := r.Client.CWLogs.DeleteLogGroup(ctx, &cw.DeleteLogGroupInput{
		LogGroupName: aws.String(logGroupName),
	})
	if err != nil && !client.IsAPIErrorCode(err, "ResourceNotFoundException") {
		return fmt.Errorf("DeleteLogGroup failed: %w", err)
	}
	return nil
}
