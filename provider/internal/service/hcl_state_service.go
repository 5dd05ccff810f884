package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/repository"
)

// HCLStateService manipula a lógica de negócio para backup e rollback do statefile no S3.
type HCLStateService struct {
	StateRepo *repository.StateRepository
}

// HandleStateOperation decide se deve fazer rollback ou backup.
// Falha no backup vira warning; falha no rollback é erro.
func (s *HCLStateService) HandleStateOperation(ctx context.Context, doRollback bool) diag.Diagnostics {
	var diags diag.Diagnostics

	if doRollback {
		if err := s.StateRepo.RestoreRollbackState(ctx); err != nil {
			diags = append(diags, diag.FromErr(fmt.Errorf("failed to restore rollback state: %w", err))...)
		}
		return diags
	}

	if err := s.StateRepo.CreateBackupState(ctx); err != nil {
		diags = append(diags, diag.Diagnostic{
			Severity: diag.Warning,
			Summary:  "Failed to create state backup",
			Detail:   fmt.Sprintf("Could not copy current state to rollback file: %v.", err),
		})
	}
	return diags
}
