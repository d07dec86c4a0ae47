package processor

import (
	"context"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
)

// ApplyFunc is the shape every resource service's Apply method satisfies.
type ApplyFunc[T dto.Payload] func(ctx context.Context, payload T) dto.ApplyResult

// Stateless implements the contract shared by the PasswordPolicy and
// SecretsEngine processors: on ApplicationRequested, acquire the global
// semaphore, publish ApplicationInitiated, call the service, publish the
// matching outcome event, and re-raise on error after publication.
type Stateless[T dto.Payload] struct {
	kind  dto.Kind
	sem   *Semaphore
	bus   *eventbus.Bus
	apply ApplyFunc[T]
}

// NewStateless returns a Stateless processor for kind, calling apply under
// sem and publishing lifecycle events through bus.
func NewStateless[T dto.Payload](kind dto.Kind, sem *Semaphore, bus *eventbus.Bus, apply ApplyFunc[T]) *Stateless[T] {
	return &Stateless[T]{kind: kind, sem: sem, bus: bus, apply: apply}
}

// Initialize registers the processor's ApplicationRequested handler.
func (p *Stateless[T]) Initialize() {
	p.bus.Register([]eventbus.Variant{eventbus.ForKind(p.kind, eventbus.StageApplicationRequested)}, p.onRequested)
}

func (p *Stateless[T]) onRequested(ctx context.Context, event eventbus.Event) error {
	log := logging.For("processor." + string(p.kind))

	payload, ok := event.Payload.(T)
	if !ok {
		return apperror.New(apperror.Unexpected, "payload type mismatch in stateless processor")
	}

	if err := p.sem.Acquire(ctx); err != nil {
		return err
	}
	defer p.sem.Release()

	if err := p.bus.Trigger(ctx, eventbus.ApplicationInitiated(payload)); err != nil {
		log.Warn().Err(err).Msg("application initiated handlers failed")
	}

	result := p.apply(ctx, payload)

	if err := p.bus.Trigger(ctx, eventbus.Outcome(payload, result)); err != nil {
		log.Warn().Err(err).Msg("outcome handlers failed")
	}

	if !result.Succeeded() {
		return apperror.Aggregate(result.Errors...)
	}
	return nil
}
