// Package dto defines the closed set of resource kinds reconciled against
// Vault, their declared payloads, and the apply-verb result shape.
package dto

// Kind is the tag of the closed, six-member resource-kind set.
type Kind string

const (
	KindSecretsEngine  Kind = "SecretsEngine"
	KindPasswordPolicy Kind = "PasswordPolicy"
	KindIssuer         Kind = "Issuer"
	KindPKIRole        Kind = "PKIRole"
	KindPassword       Kind = "Password"
	KindSSHKey         Kind = "SSHKey"
)

// Payload is implemented by every per-kind declared resource. AbsolutePath
// returns the canonical identifier used for graph hashing, snapshot keys,
// and cross-resource references.
type Payload interface {
	Kind() Kind
	AbsolutePath() string
}

// ApplyStatus is the outcome of a single service.Apply call.
type ApplyStatus string

const (
	StatusVerifySuccess ApplyStatus = "verify_success"
	StatusVerifyError   ApplyStatus = "verify_error"
	StatusCreateSuccess ApplyStatus = "create_success"
	StatusCreateError   ApplyStatus = "create_error"
	StatusUpdateSuccess ApplyStatus = "update_success"
	StatusUpdateError   ApplyStatus = "update_error"
)

// Succeeded reports whether status denotes a non-error outcome.
func (s ApplyStatus) Succeeded() bool {
	switch s {
	case StatusVerifySuccess, StatusCreateSuccess, StatusUpdateSuccess:
		return true
	default:
		return false
	}
}

// ApplyResult is returned by every resource service's Apply method.
type ApplyResult struct {
	Status ApplyStatus
	Errors []error
}

// Succeeded reports whether the result carries a non-error status.
func (r ApplyResult) Succeeded() bool { return r.Status.Succeeded() }
