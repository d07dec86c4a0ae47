package vaultclient

// Option configures a Client at construction time, following the
// functional-options shape used for engine configuration in the reference
// pack's graph package.
type Option func(*Config)

// WithNamespace sets the Vault Enterprise namespace a Client operates in.
func WithNamespace(namespace string) Option {
	return func(cfg *Config) { cfg.Namespace = namespace }
}

// WithKubernetesAuth configures a Client to authenticate via the
// Kubernetes auth method, at the given mount path (defaulting to
// "kubernetes" when empty).
func WithKubernetesAuth(role, mountPath string) Option {
	return func(cfg *Config) {
		cfg.AuthMethod = AuthKubernetes
		cfg.KubeRole = role
		cfg.KubeMountPath = mountPath
	}
}

// WithTokenAuth configures a Client to authenticate with a static token.
func WithTokenAuth(token string) Option {
	return func(cfg *Config) {
		cfg.AuthMethod = AuthToken
		cfg.Token = token
	}
}

// NewWithOptions builds a Config from address plus opts, then constructs a
// Client from it. Settings.VaultClientConfig in internal/config is the usual
// entry point for a full settings file; NewWithOptions is for callers (and
// tests) that want to assemble a Client inline.
func NewWithOptions(address string, opts ...Option) (*Client, error) {
	cfg := Config{Address: address}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}
