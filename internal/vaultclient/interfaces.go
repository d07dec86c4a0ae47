package vaultclient

import (
	"context"

	vaultapi "github.com/hashicorp/vault/api"
)

// SecretsEngineBackend is the mount-management surface SecretsEngineService
// depends on. *Client satisfies it; unit tests substitute a fake.
type SecretsEngineBackend interface {
	EnableSecretsEngine(ctx context.Context, path string, in MountInput) error
	ReadMount(ctx context.Context, path string) (*vaultapi.MountOutput, error)
	ReadMountConfig(ctx context.Context, path string) (*vaultapi.MountConfigOutput, error)
	TuneMountConfig(ctx context.Context, path string, in vaultapi.MountConfigInput) error
}

// PasswordPolicyBackend is the surface PasswordPolicyService depends on.
type PasswordPolicyBackend interface {
	ReadPasswordPolicy(ctx context.Context, path string) (map[string]any, error)
	WritePasswordPolicy(ctx context.Context, path, policyHCL string) error
}

// PasswordBackend is the surface PasswordService depends on.
type PasswordBackend interface {
	ReadKVv1(ctx context.Context, mount, path string) (map[string]any, error)
	WriteKVv1(ctx context.Context, mount, path string, data map[string]any) error
	GeneratePassword(ctx context.Context, path string) (string, error)
}

// IssuerBackend is the surface IssuerService depends on.
type IssuerBackend interface {
	ReadIssuer(ctx context.Context, mount, ref string) (map[string]any, error)
	GenerateRoot(ctx context.Context, mount, certType string, params map[string]any) (map[string]any, error)
	GenerateIntermediateCSR(ctx context.Context, mount, certType string, params map[string]any) (map[string]any, error)
	SignIntermediate(ctx context.Context, parentMount, issuerRef string, params map[string]any) (map[string]any, error)
	SetSignedIntermediate(ctx context.Context, mount, certificate string) (map[string]any, error)
	UpdateIssuer(ctx context.Context, mount, ref string, updates map[string]any) error
	UpdateKey(ctx context.Context, mount, ref string, updates map[string]any) error
}

// PKIRoleBackend is the surface PKIRoleService depends on.
type PKIRoleBackend interface {
	ReadRole(ctx context.Context, mount, name string) (map[string]any, error)
	WriteRole(ctx context.Context, mount, name string, role map[string]any) error
}

// SSHKeyBackend is the surface SSHKeyService depends on.
type SSHKeyBackend interface {
	WriteKVv2(ctx context.Context, mount, path string, data map[string]any, cas *int) (KVv2WriteResult, error)
	ReadKVv2Metadata(ctx context.Context, mount, path string) (*KVv2Metadata, error)
	WriteKVv2CustomMetadata(ctx context.Context, mount, path string, custom map[string]string) error
}

var (
	_ SecretsEngineBackend  = (*Client)(nil)
	_ PasswordPolicyBackend = (*Client)(nil)
	_ PasswordBackend       = (*Client)(nil)
	_ IssuerBackend         = (*Client)(nil)
	_ PKIRoleBackend        = (*Client)(nil)
	_ SSHKeyBackend         = (*Client)(nil)
)
