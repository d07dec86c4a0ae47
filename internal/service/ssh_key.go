package service

import (
	"context"
	"encoding/json"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// SnapshotLabel is the reserved custom-metadata key under which a versioned
// secret's last-applied payload is stored.
const SnapshotLabel = "hqdncw.github.io/vault-autopilot/snapshot"

// SSHKeyService implements the apply-verb for SSH key-pair secrets, the
// reconciler's one versioned-secret kind: declared payloads carry a
// monotonic version, written with cas = version-1, and diffed against a
// snapshot recorded in the secret's own custom metadata.
type SSHKeyService struct {
	backend vaultclient.SSHKeyBackend
}

func NewSSHKeyService(backend vaultclient.SSHKeyBackend) *SSHKeyService {
	return &SSHKeyService{backend: backend}
}

func (s *SSHKeyService) Apply(ctx context.Context, key dto.SSHKey) dto.ApplyResult {
	cas := key.Spec.Version - 1
	payload := map[string]any{
		"key_type": key.Spec.KeyType,
		"bits":     key.Spec.Bits,
	}
	for k, v := range key.Spec.Payload {
		payload[k] = v
	}

	result, err := s.backend.WriteKVv2(ctx, key.Spec.SecretsEngine, key.Spec.Path, payload, &cas)
	if err == nil {
		if storeErr := s.storeSnapshot(ctx, key, payload); storeErr != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{storeErr}}
		}
		if key.Spec.Version == 1 {
			return dto.ApplyResult{Status: dto.StatusCreateSuccess}
		}
		_ = result
		return dto.ApplyResult{Status: dto.StatusUpdateSuccess}
	}

	appErr, ok := asAppError(err)
	if !ok || appErr.Kind != apperror.CASParameterMismatch {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}

	meta, metaErr := s.backend.ReadKVv2Metadata(ctx, key.Spec.SecretsEngine, key.Spec.Path)
	if metaErr != nil {
		return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{metaErr}}
	}
	requiredCAS := 0
	if meta != nil {
		requiredCAS = meta.CurrentVersion
	}

	if requiredCAS == key.Spec.Version {
		return s.diffAgainstSnapshot(key, meta, payload)
	}

	mismatch := &apperror.SecretVersionMismatchError{
		Path:        key.AbsolutePath(),
		Declared:    key.Spec.Version,
		RequiredCAS: requiredCAS,
	}
	return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{mismatch}}
}

func (s *SSHKeyService) diffAgainstSnapshot(key dto.SSHKey, meta *vaultclient.KVv2Metadata, declared map[string]any) dto.ApplyResult {
	if meta == nil || meta.CustomMetadata == nil {
		err := apperror.New(apperror.SecretIntegrity, "custom metadata snapshot missing for "+key.AbsolutePath())
		return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{err}}
	}
	raw, ok := meta.CustomMetadata[SnapshotLabel]
	if !ok {
		err := apperror.New(apperror.SecretIntegrity, "custom metadata snapshot missing for "+key.AbsolutePath())
		return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{err}}
	}

	var snapshot map[string]any
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		wrapped := apperror.Wrap(apperror.SecretIntegrity, "parse custom metadata snapshot", err)
		return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{wrapped}}
	}

	equal, diverged := subsetEqual(declared, snapshot)
	if equal {
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}
	mismatch := &apperror.SnapshotMismatchError{Path: key.AbsolutePath(), Fields: diverged}
	return dto.ApplyResult{Status: dto.StatusVerifyError, Errors: []error{mismatch}}
}

func (s *SSHKeyService) storeSnapshot(ctx context.Context, key dto.SSHKey, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperror.Wrap(apperror.Unexpected, "marshal snapshot payload", err)
	}
	err = s.backend.WriteKVv2CustomMetadata(ctx, key.Spec.SecretsEngine, key.Spec.Path, map[string]string{
		SnapshotLabel: string(raw),
	})
	if err != nil {
		return apperror.Wrap(apperror.VaultAPI, "write custom metadata snapshot", err)
	}
	return nil
}

func asAppError(err error) (*apperror.Error, bool) {
	for err != nil {
		if e, ok := err.(*apperror.Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
