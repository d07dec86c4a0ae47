package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
)

type fakePasswordBackend struct {
	existing      map[string]any
	readErr       error
	generated     string
	generateErr   error
	written       map[string]any
	writeErr      error
	generatedWith string
}

func (f *fakePasswordBackend) ReadKVv1(ctx context.Context, mount, path string) (map[string]any, error) {
	return f.existing, f.readErr
}

func (f *fakePasswordBackend) WriteKVv1(ctx context.Context, mount, path string, data map[string]any) error {
	f.written = data
	return f.writeErr
}

func (f *fakePasswordBackend) GeneratePassword(ctx context.Context, path string) (string, error) {
	f.generatedWith = path
	return f.generated, f.generateErr
}

func TestPasswordApplyVerifiesWhenSecretAlreadyExists(t *testing.T) {
	backend := &fakePasswordBackend{existing: map[string]any{"password": "already-set"}}
	svc := NewPasswordService(backend)

	result := svc.Apply(context.Background(), dto.Password{
		Spec: dto.PasswordSpec{SecretsEngine: "secret", Path: "app/db"},
	})

	assert.Equal(t, dto.StatusVerifySuccess, result.Status)
	assert.Nil(t, backend.written)
}

func TestPasswordApplyGeneratesFromPolicyWhenReferenced(t *testing.T) {
	backend := &fakePasswordBackend{generated: "policy-generated-value"}
	svc := NewPasswordService(backend)

	result := svc.Apply(context.Background(), dto.Password{
		Spec: dto.PasswordSpec{SecretsEngine: "secret", Path: "app/db", PasswordPolicyRef: "strong"},
	})

	require.Equal(t, dto.StatusCreateSuccess, result.Status)
	assert.Equal(t, "strong", backend.generatedWith)
	assert.Equal(t, "policy-generated-value", backend.written["password"])
}

func TestPasswordApplyFallsBackToCharsetWhenNoPolicyRef(t *testing.T) {
	backend := &fakePasswordBackend{}
	svc := NewPasswordService(backend)

	result := svc.Apply(context.Background(), dto.Password{
		Spec: dto.PasswordSpec{SecretsEngine: "secret", Path: "app/db", Charset: "ab"},
	})

	require.Equal(t, dto.StatusCreateSuccess, result.Status)
	value, _ := backend.written["password"].(string)
	require.Len(t, value, 32)
	for _, r := range value {
		assert.Contains(t, "ab", string(r))
	}
}

func TestPasswordApplyReportsGenerateFailure(t *testing.T) {
	backend := &fakePasswordBackend{generateErr: apperror.New(apperror.VaultAPI, "policy generation failed")}
	svc := NewPasswordService(backend)

	result := svc.Apply(context.Background(), dto.Password{
		Spec: dto.PasswordSpec{SecretsEngine: "secret", Path: "app/db", PasswordPolicyRef: "strong"},
	})

	require.Equal(t, dto.StatusCreateError, result.Status)
	require.Len(t, result.Errors, 1)
	var appErr *apperror.Error
	require.ErrorAs(t, result.Errors[0], &appErr)
	assert.Equal(t, apperror.VaultAPI, appErr.Kind)
}

func TestPasswordApplyReportsReadFailure(t *testing.T) {
	backend := &fakePasswordBackend{readErr: errors.New("read failed")}
	svc := NewPasswordService(backend)

	result := svc.Apply(context.Background(), dto.Password{
		Spec: dto.PasswordSpec{SecretsEngine: "secret", Path: "app/db"},
	})

	assert.Equal(t, dto.StatusCreateError, result.Status)
}
