package service

import (
	"context"
	"fmt"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
)

const DefaultLogRetentionDays = 14

// LogGroupName devolve o Log Group padrão da função.
func LogGroupName(functionName string) string {
	return fmt.Sprintf("/aws/lambda/%s", functionName)
}

// CWLogsService manipula a lógica de negócio para CloudWatch Logs.
type CWLogsService struct {
	CWLogsRepo *repository.CWLogsRepository
}

// EnsureLogGroup garante que o Log Group da Lambda exista e define a retenção.
func (s *CWLogsService) EnsureLogGroup(ctx context.Context, functionName string, retentionDays int32) (string, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultLogRetentionDays
	}
	logGroupName := LogGroupName(functionName)

	if err := s.CWLogsRepo.CreateLogGroupIfNotExists(ctx, logGroupName, retentionDays); err != nil {
		return "", err
	}
	return logGroupName, nil
}

// DeleteLogGroup remove o Log Group.
func (s *CWLogsService) DeleteLogGroup(ctx context.Context, logGroupName string) error {
	if logGroupName == "" {
		return nil
	}
	return s.CWLogsRepo.DeleteLogGroup(ctx, logGroupName)
}
