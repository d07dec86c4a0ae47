package service

import (
	"context"
	"testing"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

type fakeSecretsEngineBackend struct {
	mount       *vaultapi.MountOutput
	mountConfig *vaultapi.MountConfigOutput
	enabled     bool
	tuned       bool
	tuneInput   vaultapi.MountConfigInput
}

func (f *fakeSecretsEngineBackend) EnableSecretsEngine(ctx context.Context, path string, in vaultclient.MountInput) error {
	f.enabled = true
	return nil
}
func (f *fakeSecretsEngineBackend) ReadMount(ctx context.Context, path string) (*vaultapi.MountOutput, error) {
	return f.mount, nil
}
func (f *fakeSecretsEngineBackend) ReadMountConfig(ctx context.Context, path string) (*vaultapi.MountConfigOutput, error) {
	return f.mountConfig, nil
}
func (f *fakeSecretsEngineBackend) TuneMountConfig(ctx context.Context, path string, in vaultapi.MountConfigInput) error {
	f.tuned = true
	f.tuneInput = in
	return nil
}

func TestSecretsEngineApplyCreatesWhenAbsent(t *testing.T) {
	backend := &fakeSecretsEngineBackend{}
	svc := NewSecretsEngineService(backend)

	result := svc.Apply(context.Background(), dto.SecretsEngine{
		Spec: dto.SecretsEngineSpec{Path: "kv/", Type: "kv-v2"},
	})

	require.Equal(t, dto.StatusCreateSuccess, result.Status)
	assert.True(t, backend.enabled)
}

func TestSecretsEngineApplyVerifiesWhenMatching(t *testing.T) {
	backend := &fakeSecretsEngineBackend{
		mount:       &vaultapi.MountOutput{Type: "kv"},
		mountConfig: &vaultapi.MountConfigOutput{DefaultLeaseTTL: 3600},
	}
	svc := NewSecretsEngineService(backend)

	result := svc.Apply(context.Background(), dto.SecretsEngine{
		Spec: dto.SecretsEngineSpec{Path: "kv/", Type: "kv-v2"},
	})

	assert.Equal(t, dto.StatusVerifySuccess, result.Status)
	assert.False(t, backend.tuned)
}

func TestSecretsEngineApplyTuneFieldsReachVerifySuccessOnSecondApply(t *testing.T) {
	backend := &fakeSecretsEngineBackend{
		mount: &vaultapi.MountOutput{Type: "kv"},
		mountConfig: &vaultapi.MountConfigOutput{
			AuditNonHMACRequestKeys:  []string{"password"},
			AuditNonHMACResponseKeys: []string{"token"},
			ListingVisibility:        "unauth",
		},
	}
	svc := NewSecretsEngineService(backend)

	engine := dto.SecretsEngine{
		Spec: dto.SecretsEngineSpec{
			Path: "kv/",
			Type: "kv-v2",
			Tune: map[string]any{
				"audit_non_hmac_request_keys":  []any{"password"},
				"audit_non_hmac_response_keys": []any{"token"},
				"listing_visibility":           "unauth",
			},
		},
	}

	result := svc.Apply(context.Background(), engine)

	require.Equal(t, dto.StatusVerifySuccess, result.Status,
		"a declared tune field the remote mount already reflects must verify, not update forever")
	assert.False(t, backend.tuned)
}

func TestSecretsEngineApplyTuneWritesAuditAndListingFields(t *testing.T) {
	backend := &fakeSecretsEngineBackend{
		mount:       &vaultapi.MountOutput{Type: "kv"},
		mountConfig: &vaultapi.MountConfigOutput{},
	}
	svc := NewSecretsEngineService(backend)

	result := svc.Apply(context.Background(), dto.SecretsEngine{
		Spec: dto.SecretsEngineSpec{
			Path: "kv/",
			Type: "kv-v2",
			Tune: map[string]any{
				"audit_non_hmac_request_keys": []any{"password"},
				"listing_visibility":          "unauth",
			},
		},
	})

	assert.Equal(t, dto.StatusUpdateSuccess, result.Status)
	require.True(t, backend.tuned)
	assert.Equal(t, []string{"password"}, backend.tuneInput.AuditNonHMACRequestKeys)
	assert.Equal(t, "unauth", backend.tuneInput.ListingVisibility)
}

func TestSecretsEngineApplyUpdatesOnDrift(t *testing.T) {
	backend := &fakeSecretsEngineBackend{
		mount:       &vaultapi.MountOutput{Type: "kv"},
		mountConfig: &vaultapi.MountConfigOutput{DefaultLeaseTTL: 1800},
	}
	svc := NewSecretsEngineService(backend)

	result := svc.Apply(context.Background(), dto.SecretsEngine{
		Spec: dto.SecretsEngineSpec{
			Path: "kv/",
			Type: "kv-v2",
			Tune: map[string]any{"default_lease_ttl": "3600"},
		},
	})

	assert.Equal(t, dto.StatusUpdateSuccess, result.Status)
	assert.True(t, backend.tuned)
}
