package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
)

type fakePasswordPolicyBackend struct {
	existing  map[string]any
	readErr   error
	written   string
	writePath string
}

func (f *fakePasswordPolicyBackend) ReadPasswordPolicy(ctx context.Context, path string) (map[string]any, error) {
	return f.existing, f.readErr
}

func (f *fakePasswordPolicyBackend) WritePasswordPolicy(ctx context.Context, path, policyHCL string) error {
	f.writePath = path
	f.written = policyHCL
	return nil
}

func samplePolicy() dto.PasswordPolicy {
	return dto.PasswordPolicy{
		Name: "default",
		Spec: dto.PasswordPolicySpec{
			Path:   "pw-policy",
			Length: 20,
			Rules: []dto.PasswordPolicyRule{
				{Charset: "abcdefghijklmnopqrstuvwxyz", MinChars: 1},
				{Charset: "0123456789", MinChars: 1},
			},
		},
	}
}

func TestPasswordPolicyApplyCreatesWhenAbsent(t *testing.T) {
	backend := &fakePasswordPolicyBackend{}
	svc := NewPasswordPolicyService(backend)

	result := svc.Apply(context.Background(), samplePolicy())

	require.Equal(t, dto.StatusCreateSuccess, result.Status)
	assert.Equal(t, "pw-policy", backend.writePath)
	assert.Contains(t, backend.written, "length = 20")
}

func TestPasswordPolicyApplyVerifiesWhenHCLMatches(t *testing.T) {
	backend := &fakePasswordPolicyBackend{existing: map[string]any{
		"policy": `length = 20
rule "CharSet" {
  charset = "abcdefghijklmnopqrstuvwxyz"
  min-chars = 1
}
rule "CharSet" {
  charset = "0123456789"
  min-chars = 1
}
`,
	}}
	svc := NewPasswordPolicyService(backend)

	result := svc.Apply(context.Background(), samplePolicy())

	require.Equal(t, dto.StatusVerifySuccess, result.Status)
	assert.Empty(t, backend.written, "a matching remote policy must not be rewritten")
}

func TestPasswordPolicyApplyUpdatesWhenLengthDiverges(t *testing.T) {
	backend := &fakePasswordPolicyBackend{existing: map[string]any{
		"policy": `length = 8
rule "CharSet" {
  charset = "abcdefghijklmnopqrstuvwxyz"
  min-chars = 1
}
rule "CharSet" {
  charset = "0123456789"
  min-chars = 1
}
`,
	}}
	svc := NewPasswordPolicyService(backend)

	result := svc.Apply(context.Background(), samplePolicy())

	require.Equal(t, dto.StatusUpdateSuccess, result.Status)
	assert.Contains(t, backend.written, "length = 20")
}

func TestPasswordPolicyApplyReportsMalformedRemoteDocument(t *testing.T) {
	backend := &fakePasswordPolicyBackend{existing: map[string]any{
		"policy": `length = "not-a-number`,
	}}
	svc := NewPasswordPolicyService(backend)

	result := svc.Apply(context.Background(), samplePolicy())

	require.Equal(t, dto.StatusCreateError, result.Status)
	require.Len(t, result.Errors, 1)

	var appErr *apperror.Error
	require.ErrorAs(t, result.Errors[0], &appErr)
	assert.Equal(t, apperror.VaultAPI, appErr.Kind)
}
