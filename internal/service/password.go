package service

import (
	"crypto/rand"
	"math/big"

	"context"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

const defaultCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PasswordService implements the apply-verb for Password resources. A
// Password is create-only: there is no remote diff, since the generated
// value itself is the payload and Vault never returns it back for
// comparison.
type PasswordService struct {
	backend vaultclient.PasswordBackend
}

func NewPasswordService(backend vaultclient.PasswordBackend) *PasswordService {
	return &PasswordService{backend: backend}
}

func (s *PasswordService) Apply(ctx context.Context, password dto.Password) dto.ApplyResult {
	existing, err := s.backend.ReadKVv1(ctx, password.Spec.SecretsEngine, password.Spec.Path)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}
	if existing != nil {
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}

	value, err := s.generate(ctx, password)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}

	err = s.backend.WriteKVv1(ctx, password.Spec.SecretsEngine, password.Spec.Path, map[string]any{
		"password": value,
	})
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{apperror.Wrap(apperror.VaultAPI, "write password", err)}}
	}
	return dto.ApplyResult{Status: dto.StatusCreateSuccess}
}

func (s *PasswordService) generate(ctx context.Context, password dto.Password) (string, error) {
	if password.Spec.PasswordPolicyRef != "" {
		value, err := s.backend.GeneratePassword(ctx, password.Spec.PasswordPolicyRef)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
	}
	return generateFromCharset(password.Spec.Charset)
}

// generateFromCharset is the local fallback used when no password policy is
// referenced.
func generateFromCharset(charset string) (string, error) {
	if charset == "" {
		charset = defaultCharset
	}
	const length = 32
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", apperror.Wrap(apperror.Unexpected, "generate random password", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}
