package processor

import (
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
)

// NewSecretsEngineProcessor wires the stateless SecretsEngine processor.
func NewSecretsEngineProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.SecretsEngine]) *Stateless[dto.SecretsEngine] {
	return NewStateless(dto.KindSecretsEngine, sem, bus, apply)
}

// NewPasswordPolicyProcessor wires the stateless PasswordPolicy processor.
func NewPasswordPolicyProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.PasswordPolicy]) *Stateless[dto.PasswordPolicy] {
	return NewStateless(dto.KindPasswordPolicy, sem, bus, apply)
}

// NewIssuerProcessor wires the chain-based Issuer processor. An issuer's
// upstream is its own kind: an intermediate issuer depends on its declared
// parent issuer.
func NewIssuerProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.Issuer]) *Chain[dto.Issuer] {
	return NewChain(dto.KindIssuer, dto.KindIssuer, sem, bus, apply, func(issuer dto.Issuer) []string {
		if issuer.Spec.Chaining == nil {
			return nil
		}
		return []string{issuer.Spec.Chaining.UpstreamIssuerRef}
	})
}

// NewPKIRoleProcessor wires the chain-based PKIRole processor, which
// depends on the Issuer named by its issuer_ref.
func NewPKIRoleProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.PKIRole]) *Chain[dto.PKIRole] {
	return NewChain(dto.KindPKIRole, dto.KindIssuer, sem, bus, apply, func(role dto.PKIRole) []string {
		if role.Spec.IssuerRef == "" {
			return nil
		}
		return []string{role.Spec.IssuerRef}
	})
}

// NewPasswordProcessor wires the chain-based Password processor, which
// depends on the referenced PasswordPolicy, if any.
func NewPasswordProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.Password]) *Chain[dto.Password] {
	return NewChain(dto.KindPassword, dto.KindPasswordPolicy, sem, bus, apply, func(password dto.Password) []string {
		if password.Spec.PasswordPolicyRef == "" {
			return nil
		}
		return []string{password.Spec.PasswordPolicyRef}
	})
}

// NewSSHKeyProcessor wires the chain-based SSHKey processor, which depends
// on its declared SecretsEngine mount.
func NewSSHKeyProcessor(sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[dto.SSHKey]) *Chain[dto.SSHKey] {
	return NewChain(dto.KindSSHKey, dto.KindSecretsEngine, sem, bus, apply, func(key dto.SSHKey) []string {
		return []string{key.Spec.SecretsEngine}
	})
}

// Processor is the common initialization contract every concrete processor
// satisfies, used by the workflow to initialize the full set uniformly.
type Processor interface {
	Initialize()
}

var (
	_ Processor = (*Stateless[dto.SecretsEngine])(nil)
	_ Processor = (*Chain[dto.Issuer])(nil)
)
