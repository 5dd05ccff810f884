package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/testutil"
)

func TestStateRepository_BackupAndRestore(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	c.S3Bucket = "states"
	repo := &StateRepository{Client: c}

	fakes.S3.Objects["states/terraform.tfstate"] = []byte("v1")
	require.NoError(t, repo.CreateBackupState(ctx))
	assert.Equal(t, []byte("v1"), fakes.S3.Objects["states/terraform.tfstate.rollback"])

	fakes.S3.Objects["states/terraform.tfstate"] = []byte("v2")
	require.NoError(t, repo.RestoreRollbackState(ctx))
	assert.Equal(t, []byte("v1"), fakes.S3.Objects["states/terraform.tfstate"])
}

func TestStateRepository_CustomKey(t *testing.T) {
	c, fakes := testutil.NewClient()
	c.S3Bucket = "states"
	c.StateKey = "env/dev.tfstate"
	repo := &StateRepository{Client: c}

	fakes.S3.Objects["states/env/dev.tfstate"] = []byte("dev")
	require.NoError(t, repo.CreateBackupState(context.Background()))
	assert.Equal(t, []byte("dev"), fakes.S3.Objects["states/env/dev.tfstate.rollback"])
}

func TestStateRepository_KeyNeedingEncoding(t *testing.T) {
	ctx := context.Background()
	c, fakes := testutil.NewClient()
	c.S3Bucket = "states"
	c.StateKey = "my env/a+b.tfstate"
	repo := &StateRepository{Client: c}

	fakes.S3.Objects["states/my env/a+b.tfstate"] = []byte("v1")
	require.NoError(t, repo.CreateBackupState(ctx))
	assert.Equal(t, "states/my%20env/a%2Bb.tfstate", fakes.S3.Sources[0])
	assert.Equal(t, []byte("v1"), fakes.S3.Objects["states/my env/a+b.tfstate.rollback"])

	fakes.S3.Objects["states/my env/a+b.tfstate"] = []byte("v2")
	require.NoError(t, repo.RestoreRollbackState(ctx))
	assert.Equal(t, "states/my%20env/a%2Bb.tfstate.rollback", fakes.S3.Sources[1])
	assert.Equal(t, []byte("v1"), fakes.S3.Objects["states/my env/a+b.tfstate"])
}

func TestStateRepository_WithoutBucket(t *testing.T) {
	c, _ := testutil.NewClient()
	repo := &StateRepository{Client: c}

	assert.NoError(t, repo.CreateBackupState(context.Background()))
	assert.Error(t, repo.RestoreRollbackState(context.Background()))
}

func TestStateRepository_MissingStateObject(t *testing.T) {
	c, _ := testutil.NewClient()
	c.S3Bucket = "states"
	repo := &StateRepository{Client: c}

	assert.ErrorContains(t, repo.CreateBackupState(context.Background()), "s3 copy failed")
}
