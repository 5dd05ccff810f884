package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

const DefaultStateKey = "terraform.tfstate"

// RollbackKey devolve a chave do backup de rollback para a chave de estado.
func RollbackKey(stateKey string) string {
	return stateKey + ".rollback"
}

// copySource monta o CopySource com cada segmento da chave codificado, como o S3 exige.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		// PathEscape mantém "+", que o S3 leria como espaço.
		segments[i] = strings.ReplaceAll(url.PathEscape(seg), "+", "%2B")
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// StateRepository encapsula a lógica de backup/rollback do statefile no S3.
type StateRepository struct {
	Client *client.AWSClient
}

func (r *StateRepository) stateKey() string {
	if r.Client.StateKey == "" {
		return DefaultStateKey
	}
	return r.Client.StateKey
}

// CreateBackupState copia o estado principal para a chave de rollback.
func (r *StateRepository) CreateBackupState(ctx context.Context) error {
	if r.Client.S3Bucket == "" {
		return nil
	}
	bucket, key := r.Client.S3Bucket, r.stateKey()

	tflog.Info(ctx, "creating rollback state backup", map[string]interface{}{"bucket": bucket, "key": RollbackKey(key)})

	_, err := r.Client.S3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(copySource(bucket, key)),
		Key:        aws.String(RollbackKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 copy failed: %w", err)
	}
	return nil
}

// RestoreRollbackState copia o backup de rollback de volta para o estado principal.
func (r *StateRepository) RestoreRollbackState(ctx context.Context) error {
	if r.Client.S3Bucket == "" {
		return fmt.Errorf("state bucket not configured for rollback")
	}
	bucket, key := r.Client.S3Bucket, r.stateKey()

	tflog.Info(ctx, "restoring rollback state", map[string]interface{}{"bucket": bucket, "key": key})

	_, err := r.Client.S3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(copySource(bucket, RollbackKey(key))),
		Key:        aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 restore failed: %w", err)
	}
	tflog.Info(ctx, "rollback state restored, run 'terraform apply' to execute rollback")
	return nil
}
