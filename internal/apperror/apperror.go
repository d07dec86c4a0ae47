// Package apperror defines the reconciler's error taxonomy and exit codes.
package apperror

import "fmt"

// Kind names a recognized error category. Kinds are matched with errors.As,
// never by inspecting message text, except where the Vault API mandates
// substring recognition (see vaultclient/errors.go).
type Kind string

const (
	AuthenticationFailure  Kind = "AuthenticationFailure"
	ConnectionRefused      Kind = "ConnectionRefused"
	ManifestSyntax         Kind = "ManifestSyntax"
	ManifestValidation     Kind = "ManifestValidation"
	UnresolvedDependency   Kind = "UnresolvedDependency"
	SecretsEnginePathInUse Kind = "SecretsEnginePathInUse"
	IssuerNameTaken        Kind = "IssuerNameTaken"
	PasswordPolicyNotFound Kind = "PasswordPolicyNotFound"
	CASParameterMismatch   Kind = "CASParameterMismatch"
	SecretIntegrity        Kind = "SecretIntegrity"
	SecretVersionMismatch  Kind = "SecretVersionMismatch"
	SnapshotMismatch       Kind = "SnapshotMismatch"
	SnapshotEngineMismatch Kind = "SnapshotEngineMismatch"
	VaultAPI               Kind = "VaultAPI"
	Aborted                Kind = "Aborted"
	Unexpected             Kind = "Unexpected"
)

// exitCodes assigns one reserved process exit code per recognized kind.
// 0 is reserved for success; 1 is the catch-all for Unexpected.
var exitCodes = map[Kind]int{
	AuthenticationFailure:  10,
	ConnectionRefused:      11,
	ManifestSyntax:         12,
	ManifestValidation:     13,
	UnresolvedDependency:   14,
	SecretsEnginePathInUse: 15,
	IssuerNameTaken:        16,
	PasswordPolicyNotFound: 17,
	CASParameterMismatch:   18,
	SecretIntegrity:        19,
	SecretVersionMismatch:  20,
	SnapshotMismatch:       21,
	SnapshotEngineMismatch: 22,
	VaultAPI:               23,
	Aborted:                24,
	Unexpected:             1,
}

// ExitCode returns the process exit code reserved for kind.
func ExitCode(kind Kind) int {
	if code, ok := exitCodes[kind]; ok {
		return code
	}
	return exitCodes[Unexpected]
}

// Error is the common application error shape: a kind plus a wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// UnresolvedDependencyError names a referrer whose declared reference could
// not be resolved within the run.
type UnresolvedDependencyError struct {
	ResourceRef   string
	DependencyRef string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("%q references undefined %q", e.ResourceRef, e.DependencyRef)
}

// SnapshotMismatchError reports the set of fields that diverged between a
// versioned secret's declared payload and its stored snapshot.
type SnapshotMismatchError struct {
	Path   string
	Fields []string
}

func (e *SnapshotMismatchError) Error() string {
	return fmt.Sprintf("snapshot mismatch at %q: fields %v diverge from last-applied state", e.Path, e.Fields)
}

// SecretVersionMismatchError reports a CAS mismatch that implies the client's
// declared version skipped or regressed relative to Vault's current version.
type SecretVersionMismatchError struct {
	Path        string
	Declared    int
	RequiredCAS int
}

func (e *SecretVersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch at %q: declared version %d implies cas %d, but vault reports required_cas %d",
		e.Path, e.Declared, e.Declared-1, e.RequiredCAS)
}

// AggregateError joins multiple concurrent failures, as produced by trigger
// fan-out and by flush batches.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred, first: %v", len(e.Errors), e.Errors[0])
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// Aggregate collects non-nil errors into an *AggregateError, returning nil if
// none were non-nil.
func Aggregate(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}
	return &AggregateError{Errors: nonNil}
}
