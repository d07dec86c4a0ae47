package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// IssuerService implements the apply-verb for PKI issuers: verify-only via
// remote read, and two distinct create paths for root vs. intermediate
// issuers.
type IssuerService struct {
	backend vaultclient.IssuerBackend
}

func NewIssuerService(backend vaultclient.IssuerBackend) *IssuerService {
	return &IssuerService{backend: backend}
}

func (s *IssuerService) Apply(ctx context.Context, issuer dto.Issuer) dto.ApplyResult {
	remote, err := s.backend.ReadIssuer(ctx, issuer.Spec.SecretsEngine, issuer.Name)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}
	if remote != nil {
		// Issuer apply is verify-only once created: the declared CSR
		// parameters that produced a certificate are not comparable against
		// what Vault stores (the certificate itself), so presence alone
		// means "already reconciled".
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}

	if issuer.IsIntermediate() {
		if err := s.createIntermediate(ctx, issuer); err != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
		}
	} else {
		if err := s.createRoot(ctx, issuer); err != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
		}
	}
	return dto.ApplyResult{Status: dto.StatusCreateSuccess}
}

func (s *IssuerService) createRoot(ctx context.Context, issuer dto.Issuer) error {
	params := mergeParams(issuer.Spec.CSRParams, issuer.Spec.IssuanceParams)
	params["issuer_name"] = issuer.Name
	if _, err := s.backend.GenerateRoot(ctx, issuer.Spec.SecretsEngine, issuer.Spec.CertificateType, params); err != nil {
		return apperror.Wrap(apperror.VaultAPI, "generate root issuer", err)
	}
	return nil
}

// createIntermediate implements the four-step chain: generate a CSR at the
// child mount, sign it at the parent mount/issuer, set the signed
// certificate back on the child mount, then rename the single resulting
// imported issuer to the declared name.
func (s *IssuerService) createIntermediate(ctx context.Context, issuer dto.Issuer) error {
	childMount := issuer.Spec.SecretsEngine
	parentMount, parentRef, ok := strings.Cut(issuer.Spec.Chaining.UpstreamIssuerRef, "/")
	if !ok {
		return apperror.New(apperror.VaultAPI, fmt.Sprintf("malformed upstream issuer ref %q", issuer.Spec.Chaining.UpstreamIssuerRef))
	}

	csrParams := mergeParams(issuer.Spec.CSRParams, nil)
	csr, err := s.backend.GenerateIntermediateCSR(ctx, childMount, issuer.Spec.CertificateType, csrParams)
	if err != nil {
		return apperror.Wrap(apperror.VaultAPI, "generate intermediate csr", err)
	}
	csrPEM, _ := csr["csr"].(string)

	signParams := mergeParams(issuer.Spec.IssuanceParams, nil)
	signParams["csr"] = csrPEM
	signed, err := s.backend.SignIntermediate(ctx, parentMount, parentRef, signParams)
	if err != nil {
		return apperror.Wrap(apperror.VaultAPI, "sign intermediate", err)
	}
	certificate, _ := signed["certificate"].(string)

	imported, err := s.backend.SetSignedIntermediate(ctx, childMount, certificate)
	if err != nil {
		return apperror.Wrap(apperror.VaultAPI, "set signed intermediate", err)
	}

	importedRef, err := singleImportedIssuer(imported)
	if err != nil {
		return err
	}

	if err := s.backend.UpdateIssuer(ctx, childMount, importedRef, map[string]any{"issuer_name": issuer.Name}); err != nil {
		// UpdateIssuer already classifies the failure (IssuerNameTaken on a
		// real collision, VaultAPI/ConnectionRefused otherwise); propagate
		// it as-is rather than forcing every failure into one kind.
		return err
	}
	return nil
}

// singleImportedIssuer asserts set-signed returned exactly one imported
// issuer and returns its generated reference.
func singleImportedIssuer(resp map[string]any) (string, error) {
	refs, _ := resp["imported_issuers"].([]any)
	if len(refs) != 1 {
		return "", apperror.New(apperror.VaultAPI, fmt.Sprintf("expected exactly one imported issuer, got %d", len(refs)))
	}
	ref, _ := refs[0].(string)
	return ref, nil
}

func mergeParams(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
