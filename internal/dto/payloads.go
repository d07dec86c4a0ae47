package dto

import "fmt"

// SecretsEngineSpec declares a Vault secrets engine mount.
type SecretsEngineSpec struct {
	Path        string            `yaml:"path"`
	Type        string            `yaml:"type"`
	Description string            `yaml:"description,omitempty"`
	Config      map[string]any    `yaml:"config,omitempty"`
	Tune        map[string]any    `yaml:"tune,omitempty"`
	Options     map[string]string `yaml:"options,omitempty"`
}

// SecretsEngine is the declared desired state of a secrets engine mount.
type SecretsEngine struct {
	Name string
	Spec SecretsEngineSpec
}

func (SecretsEngine) Kind() Kind            { return KindSecretsEngine }
func (s SecretsEngine) AbsolutePath() string { return s.Spec.Path }

// PasswordPolicyRule is one charset requirement within a policy.
type PasswordPolicyRule struct {
	Charset  string `yaml:"charset"`
	MinChars int    `yaml:"min-chars"`
}

// PasswordPolicySpec declares the shape of a Vault password policy.
type PasswordPolicySpec struct {
	Path   string               `yaml:"path"`
	Length int                  `yaml:"length"`
	Rules  []PasswordPolicyRule `yaml:"rules"`
}

type PasswordPolicy struct {
	Name string
	Spec PasswordPolicySpec
}

func (PasswordPolicy) Kind() Kind             { return KindPasswordPolicy }
func (p PasswordPolicy) AbsolutePath() string { return p.Spec.Path }

// IssuerChaining declares an intermediate issuer's parent reference.
type IssuerChaining struct {
	UpstreamIssuerRef string `yaml:"upstream_issuer_ref"`
}

// IssuerSpec declares a PKI issuer, root or intermediate.
type IssuerSpec struct {
	SecretsEngine   string          `yaml:"secrets_engine"`
	CertificateType string          `yaml:"certificate_type"`
	CSRParams       map[string]any  `yaml:"csr_params,omitempty"`
	IssuanceParams  map[string]any  `yaml:"issuance_params,omitempty"`
	Chaining        *IssuerChaining `yaml:"chaining,omitempty"`
}

type Issuer struct {
	Name string
	Spec IssuerSpec
}

func (Issuer) Kind() Kind { return KindIssuer }
func (i Issuer) AbsolutePath() string {
	return fmt.Sprintf("%s/%s", i.Spec.SecretsEngine, i.Name)
}

// IsIntermediate reports whether this issuer chains from a parent.
func (i Issuer) IsIntermediate() bool { return i.Spec.Chaining != nil }

// PKIRoleSpec declares a PKI role bound to an issuer.
type PKIRoleSpec struct {
	SecretsEngine string         `yaml:"secrets_engine"`
	IssuerRef     string         `yaml:"issuer_ref"`
	Role          map[string]any `yaml:"role"`
}

type PKIRole struct {
	Name string
	Spec PKIRoleSpec
}

func (PKIRole) Kind() Kind { return KindPKIRole }
func (r PKIRole) AbsolutePath() string {
	return fmt.Sprintf("%s/%s", r.Spec.SecretsEngine, r.Name)
}

// PasswordSpec declares a generated password secret.
type PasswordSpec struct {
	SecretsEngine     string `yaml:"secrets_engine"`
	Path              string `yaml:"path"`
	PasswordPolicyRef string `yaml:"password_policy_ref,omitempty"`
	Charset           string `yaml:"charset,omitempty"`
}

type Password struct {
	Spec PasswordSpec
}

func (Password) Kind() Kind { return KindPassword }
func (p Password) AbsolutePath() string {
	return fmt.Sprintf("%s/%s", p.Spec.SecretsEngine, p.Spec.Path)
}

// SSHKeySpec declares a versioned SSH key-pair secret.
type SSHKeySpec struct {
	SecretsEngine string         `yaml:"secrets_engine"`
	Path          string         `yaml:"path"`
	Version       int            `yaml:"version"`
	KeyType       string         `yaml:"key_type"`
	Bits          int            `yaml:"bits"`
	Payload       map[string]any `yaml:"payload,omitempty"`
}

type SSHKey struct {
	Spec SSHKeySpec
}

func (SSHKey) Kind() Kind { return KindSSHKey }
func (s SSHKey) AbsolutePath() string {
	return fmt.Sprintf("%s/%s", s.Spec.SecretsEngine, s.Spec.Path)
}
