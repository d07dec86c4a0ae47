package vaultclient

import (
	"errors"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
)

// distinguishedSubstrings maps a recognized Vault response-body error
// substring to the apperror.Kind it implies. Matched case-sensitively
// against every string in the response's errors[] array.
var distinguishedSubstrings = []struct {
	substr string
	kind   apperror.Kind
}{
	{"check-and-set parameter did not match the current version", apperror.CASParameterMismatch},
	{"issuer name already in use", apperror.IssuerNameTaken},
	{"unable to find PKI issuer for reference", apperror.VaultAPI},
	{"path is already in use at", apperror.SecretsEnginePathInUse},
	{"cannot fetch sysview for path", apperror.VaultAPI},
	{"policy does not exist", apperror.PasswordPolicyNotFound},
}

// Classify maps err onto the reconciler's error taxonomy. A *vaultapi.ResponseError
// is inspected for distinguished substrings first; anything else becomes the
// VaultAPI catch-all (4xx/5xx) or Unexpected.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		for _, line := range respErr.Errors {
			for _, d := range distinguishedSubstrings {
				if strings.Contains(line, d.substr) {
					return apperror.Wrap(d.kind, line, err)
				}
			}
		}
		if respErr.StatusCode >= 400 {
			return apperror.Wrap(apperror.VaultAPI, "vault api error", err)
		}
	}

	return apperror.Wrap(apperror.Unexpected, "unexpected vault client error", err)
}
