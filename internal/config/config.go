// Package config decodes the reconciler's settings file and overlays
// environment variables, following original_source's Settings shape:
// base_url, auth method selector, namespace, storage paths, max_dispatch.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// Auth selects exactly one of Kubernetes or Token, mirroring
// AuthMethodSelector's mutually-exclusive validation.
type Auth struct {
	Method    string `yaml:"method"`
	Token     string `yaml:"token,omitempty"`
	Role      string `yaml:"role,omitempty"`
	MountPath string `yaml:"mount_path,omitempty"`
}

// Storage names the snapshot repository's backing mount and secret path.
type Storage struct {
	SecretsEnginePath   string `yaml:"secrets_engine_path"`
	SnapshotsSecretPath string `yaml:"snapshots_secret_path"`
}

// Settings is the full decoded configuration for one reconciliation run.
type Settings struct {
	BaseURL     string  `yaml:"base_url"`
	Namespace   string  `yaml:"namespace,omitempty"`
	Auth        Auth    `yaml:"auth"`
	Storage     Storage `yaml:"storage"`
	MaxDispatch int     `yaml:"max_dispatch"`
}

const (
	defaultBaseURL             = "http://localhost:8200"
	defaultSecretsEnginePath   = "vault-autopilot"
	defaultSnapshotsSecretPath = "snapshots"
)

// Default returns the zero-config Settings a run falls back to before file
// and environment overlays are applied.
func Default() Settings {
	return Settings{
		BaseURL: defaultBaseURL,
		Storage: Storage{
			SecretsEnginePath:   defaultSecretsEnginePath,
			SnapshotsSecretPath: defaultSnapshotsSecretPath,
		},
	}
}

// Load decodes path (if non-empty) over Default(), then applies the
// VAULT_AUTOPILOT_-prefixed environment overrides, then validates the
// result.
func Load(path string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, apperror.Wrap(apperror.ManifestSyntax, "read settings file", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, apperror.Wrap(apperror.ManifestSyntax, "parse settings file", err)
		}
	}

	applyEnvOverrides(&settings)

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// applyEnvOverrides overlays VAULT_AUTOPILOT_* environment variables,
// following the precedence order the reference pack's config loaders use:
// file value, then environment, with environment always winning.
func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("VAULT_AUTOPILOT_BASE_URL"); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv("VAULT_AUTOPILOT_NAMESPACE"); v != "" {
		s.Namespace = v
	}
	if v := os.Getenv("VAULT_AUTOPILOT_AUTH_METHOD"); v != "" {
		s.Auth.Method = v
	}
	if v := os.Getenv("VAULT_AUTOPILOT_AUTH_TOKEN"); v != "" {
		s.Auth.Token = v
	}
	if v := os.Getenv("VAULT_AUTOPILOT_AUTH_ROLE"); v != "" {
		s.Auth.Role = v
	}
	if v := os.Getenv("VAULT_AUTOPILOT_MAX_DISPATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxDispatch = n
		}
	}
}

// Validate enforces the mutually-exclusive auth selector and the required
// storage fields.
func (s Settings) Validate() error {
	switch s.Auth.Method {
	case "kubernetes":
		if s.Auth.Role == "" {
			return apperror.New(apperror.ManifestValidation, "auth.role is required for kubernetes auth")
		}
	case "token":
		if s.Auth.Token == "" {
			return apperror.New(apperror.ManifestValidation, "auth.token is required for token auth")
		}
	default:
		return apperror.New(apperror.ManifestValidation, fmt.Sprintf("unsupported auth.method %q", s.Auth.Method))
	}
	if s.Storage.SecretsEnginePath == "" || s.Storage.SnapshotsSecretPath == "" {
		return apperror.New(apperror.ManifestValidation, "storage.secrets_engine_path and storage.snapshots_secret_path are required")
	}
	if s.MaxDispatch < 0 {
		return apperror.New(apperror.ManifestValidation, "max_dispatch must be >= 0")
	}
	return nil
}

// VaultClientConfig translates Settings into the vaultclient.Config shape.
func (s Settings) VaultClientConfig() vaultclient.Config {
	cfg := vaultclient.Config{
		Address:   s.BaseURL,
		Namespace: s.Namespace,
	}
	switch s.Auth.Method {
	case "kubernetes":
		cfg.AuthMethod = vaultclient.AuthKubernetes
		cfg.KubeRole = s.Auth.Role
		cfg.KubeMountPath = s.Auth.MountPath
	case "token":
		cfg.AuthMethod = vaultclient.AuthToken
		cfg.Token = s.Auth.Token
	}
	return cfg
}
