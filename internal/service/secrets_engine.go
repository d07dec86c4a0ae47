package service

import (
	"context"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// tuneFields are the mount-tune keys a declared SecretsEngine.Spec.Tune may
// name; anything else lives under Spec.Config (kv-specific configuration).
var tuneFields = map[string]bool{
	"default_lease_ttl":            true,
	"max_lease_ttl":                true,
	"description":                  true,
	"audit_non_hmac_request_keys":  true,
	"audit_non_hmac_response_keys": true,
	"listing_visibility":           true,
}

// SecretsEngineService implements the apply-verb for secrets engine mounts.
type SecretsEngineService struct {
	backend vaultclient.SecretsEngineBackend
}

func NewSecretsEngineService(backend vaultclient.SecretsEngineBackend) *SecretsEngineService {
	return &SecretsEngineService{backend: backend}
}

// Apply reconciles a single declared secrets engine against Vault.
func (s *SecretsEngineService) Apply(ctx context.Context, engine dto.SecretsEngine) dto.ApplyResult {
	log := logging.For("service.secrets_engine")
	path := engine.AbsolutePath()

	mount, err := s.backend.ReadMount(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("read mount failed")
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}

	if mount == nil {
		if err := s.create(ctx, engine); err != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
		}
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}

	diverged, err := s.diff(ctx, engine)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{err}}
	}
	if len(diverged) == 0 {
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}

	if err := s.update(ctx, engine); err != nil {
		return dto.ApplyResult{Status: dto.StatusUpdateError, Errors: []error{err}}
	}
	return dto.ApplyResult{Status: dto.StatusUpdateSuccess}
}

func (s *SecretsEngineService) create(ctx context.Context, engine dto.SecretsEngine) error {
	config := make(map[string]any, len(engine.Spec.Config))
	for k, v := range engine.Spec.Config {
		config[k] = v
	}
	err := s.backend.EnableSecretsEngine(ctx, engine.Spec.Path, vaultclient.MountInput{
		Type:        engine.Spec.Type,
		Description: engine.Spec.Description,
		Config:      config,
	})
	if err != nil {
		return apperror.Wrap(apperror.VaultAPI, "enable secrets engine", err)
	}
	if len(engine.Spec.Tune) > 0 {
		if err := s.applyTune(ctx, engine); err != nil {
			return err
		}
	}
	return nil
}

func (s *SecretsEngineService) update(ctx context.Context, engine dto.SecretsEngine) error {
	return s.applyTune(ctx, engine)
}

func (s *SecretsEngineService) applyTune(ctx context.Context, engine dto.SecretsEngine) error {
	in := vaultapi.MountConfigInput{}
	for k, v := range engine.Spec.Tune {
		str, _ := v.(string)
		switch k {
		case "default_lease_ttl":
			in.DefaultLeaseTTL = str
		case "max_lease_ttl":
			in.MaxLeaseTTL = str
		case "description":
			in.Description = &str
		case "audit_non_hmac_request_keys":
			in.AuditNonHMACRequestKeys = toStringSlice(v)
		case "audit_non_hmac_response_keys":
			in.AuditNonHMACResponseKeys = toStringSlice(v)
		case "listing_visibility":
			in.ListingVisibility = str
		}
	}
	if err := s.backend.TuneMountConfig(ctx, engine.Spec.Path, in); err != nil {
		return apperror.Wrap(apperror.VaultAPI, "tune secrets engine", err)
	}
	return nil
}

// toStringSlice normalizes a declared list field, which yaml.v3 decodes
// into []any, into the []string vaultapi.MountConfigInput expects.
func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// toAnySlice is the inverse of toStringSlice, used to normalize a []string
// remote value onto the []any shape deepEqual expects when comparing
// against a declared list.
func toAnySlice(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}

// diff builds a synthetic remote snapshot from the mount's tune
// configuration restricted to the declared field subset, then compares it
// against the declared payload.
func (s *SecretsEngineService) diff(ctx context.Context, engine dto.SecretsEngine) ([]string, error) {
	cfg, err := s.backend.ReadMountConfig(ctx, engine.Spec.Path)
	if err != nil {
		return nil, apperror.Wrap(apperror.VaultAPI, "read mount config", err)
	}

	remote := map[string]any{
		"default_lease_ttl":            cfg.DefaultLeaseTTL,
		"max_lease_ttl":                cfg.MaxLeaseTTL,
		"description":                  cfg.Description,
		"audit_non_hmac_request_keys":  toAnySlice(cfg.AuditNonHMACRequestKeys),
		"audit_non_hmac_response_keys": toAnySlice(cfg.AuditNonHMACResponseKeys),
		"listing_visibility":           cfg.ListingVisibility,
	}

	want := make(map[string]any, len(engine.Spec.Tune)+len(engine.Spec.Config))
	for k, v := range engine.Spec.Tune {
		if tuneFields[k] {
			want[k] = v
		}
	}
	for k, v := range engine.Spec.Config {
		want[k] = v
	}

	equal, diverged := subsetEqual(want, remote)
	if equal {
		return nil, nil
	}
	return diverged, nil
}
