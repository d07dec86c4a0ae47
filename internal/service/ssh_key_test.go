package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

type fakeSSHKeyBackend struct {
	writeErr   error
	meta       *vaultclient.KVv2Metadata
	customMeta map[string]string
}

func (f *fakeSSHKeyBackend) WriteKVv2(ctx context.Context, mount, path string, data map[string]any, cas *int) (vaultclient.KVv2WriteResult, error) {
	if f.writeErr != nil {
		return vaultclient.KVv2WriteResult{}, f.writeErr
	}
	return vaultclient.KVv2WriteResult{Version: *cas + 1}, nil
}

func (f *fakeSSHKeyBackend) ReadKVv2Metadata(ctx context.Context, mount, path string) (*vaultclient.KVv2Metadata, error) {
	return f.meta, nil
}

func (f *fakeSSHKeyBackend) WriteKVv2CustomMetadata(ctx context.Context, mount, path string, custom map[string]string) error {
	f.customMeta = custom
	return nil
}

func TestSSHKeyApplyCreatesOnFirstVersion(t *testing.T) {
	backend := &fakeSSHKeyBackend{}
	svc := NewSSHKeyService(backend)

	result := svc.Apply(context.Background(), dto.SSHKey{
		Spec: dto.SSHKeySpec{SecretsEngine: "ssh", Path: "hosts/a", Version: 1, KeyType: "ca", Bits: 2048},
	})

	require.Equal(t, dto.StatusCreateSuccess, result.Status)
	assert.NotEmpty(t, backend.customMeta[SnapshotLabel])
}

func TestSSHKeyApplyVerifiesCleanSnapshotOnCASMatch(t *testing.T) {
	snapshot, _ := json.Marshal(map[string]any{"key_type": "ca", "bits": float64(2048)})
	backend := &fakeSSHKeyBackend{
		writeErr: apperror.New(apperror.CASParameterMismatch, "check-and-set parameter did not match the current version"),
		meta: &vaultclient.KVv2Metadata{
			CurrentVersion: 3,
			CustomMetadata: map[string]string{SnapshotLabel: string(snapshot)},
		},
	}
	svc := NewSSHKeyService(backend)

	result := svc.Apply(context.Background(), dto.SSHKey{
		Spec: dto.SSHKeySpec{SecretsEngine: "ssh", Path: "hosts/a", Version: 3, KeyType: "ca", Bits: 2048},
	})

	assert.Equal(t, dto.StatusVerifySuccess, result.Status)
}

func TestSSHKeyApplyReportsSnapshotMismatchOnDrift(t *testing.T) {
	snapshot, _ := json.Marshal(map[string]any{"key_type": "ca", "bits": float64(4096)})
	backend := &fakeSSHKeyBackend{
		writeErr: apperror.New(apperror.CASParameterMismatch, "check-and-set parameter did not match the current version"),
		meta: &vaultclient.KVv2Metadata{
			CurrentVersion: 3,
			CustomMetadata: map[string]string{SnapshotLabel: string(snapshot)},
		},
	}
	svc := NewSSHKeyService(backend)

	result := svc.Apply(context.Background(), dto.SSHKey{
		Spec: dto.SSHKeySpec{SecretsEngine: "ssh", Path: "hosts/a", Version: 3, KeyType: "ca", Bits: 2048},
	})

	require.Equal(t, dto.StatusVerifyError, result.Status)
	require.Len(t, result.Errors, 1)
	var mismatch *apperror.SnapshotMismatchError
	require.ErrorAs(t, result.Errors[0], &mismatch)
	assert.Contains(t, mismatch.Fields, "bits")
}

func TestSSHKeyApplyReportsVersionMismatchOnRegression(t *testing.T) {
	backend := &fakeSSHKeyBackend{
		writeErr: apperror.New(apperror.CASParameterMismatch, "check-and-set parameter did not match the current version"),
		meta:     &vaultclient.KVv2Metadata{CurrentVersion: 5},
	}
	svc := NewSSHKeyService(backend)

	result := svc.Apply(context.Background(), dto.SSHKey{
		Spec: dto.SSHKeySpec{SecretsEngine: "ssh", Path: "hosts/a", Version: 3, KeyType: "ca", Bits: 2048},
	})

	require.Equal(t, dto.StatusVerifyError, result.Status)
	var mismatch *apperror.SecretVersionMismatchError
	require.ErrorAs(t, result.Errors[0], &mismatch)
}
