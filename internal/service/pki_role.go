package service

import (
	"context"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// immutablePKIRoleFields cannot change after creation; a divergence there is
// a configuration error, never an update.
var immutablePKIRoleFields = map[string]bool{
	"name":       true,
	"issuer_ref": true,
}

// PKIRoleService implements the apply-verb for PKI roles.
type PKIRoleService struct {
	backend vaultclient.PKIRoleBackend
}

func NewPKIRoleService(backend vaultclient.PKIRoleBackend) *PKIRoleService {
	return &PKIRoleService{backend: backend}
}

func (s *PKIRoleService) Apply(ctx context.Context, role dto.PKIRole) dto.ApplyResult {
	remote, err := s.backend.ReadRole(ctx, role.Spec.SecretsEngine, role.Name)
	if err != nil {
		return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
	}

	declared := roleFields(role)

	if remote == nil {
		if err := s.write(ctx, role, declared); err != nil {
			return dto.ApplyResult{Status: dto.StatusCreateError, Errors: []error{err}}
		}
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}

	equal, diverged := subsetEqual(declared, remote)
	if equal {
		return dto.ApplyResult{Status: dto.StatusVerifySuccess}
	}

	for _, field := range diverged {
		if immutablePKIRoleFields[field] {
			err := apperror.New(apperror.ManifestValidation, "immutable field "+field+" diverged from remote state")
			return dto.ApplyResult{Status: dto.StatusUpdateError, Errors: []error{err}}
		}
	}

	if err := s.write(ctx, role, declared); err != nil {
		return dto.ApplyResult{Status: dto.StatusUpdateError, Errors: []error{err}}
	}
	return dto.ApplyResult{Status: dto.StatusUpdateSuccess}
}

func roleFields(role dto.PKIRole) map[string]any {
	declared := make(map[string]any, len(role.Spec.Role)+2)
	for k, v := range role.Spec.Role {
		declared[k] = v
	}
	declared["name"] = role.Name
	declared["issuer_ref"] = role.Spec.IssuerRef
	return declared
}

func (s *PKIRoleService) write(ctx context.Context, role dto.PKIRole, declared map[string]any) error {
	if err := s.backend.WriteRole(ctx, role.Spec.SecretsEngine, role.Name, declared); err != nil {
		return apperror.Wrap(apperror.VaultAPI, "write pki role", err)
	}
	return nil
}
