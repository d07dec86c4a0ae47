package eventbus

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
)

// Handler reacts to a triggered Event. A returned error fails the enclosing
// Trigger call and, by extension, the task tree that awaited it.
type Handler func(ctx context.Context, event Event) error

type registration struct {
	variants map[Variant]bool
	handler  Handler
}

func (r registration) matches(v Variant) bool { return r.variants[v] }

// Bus is a process-local typed publish/subscribe. It is the only component
// that knows how to fan an Event out to every interested processor; nothing
// else holds a reference to another processor directly.
type Bus struct {
	registrations []registration
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Register associates handler with every listed variant. A handler
// registered for multiple variants is invoked once per matching Trigger,
// never once per variant.
func (b *Bus) Register(variants []Variant, handler Handler) {
	set := make(map[Variant]bool, len(variants))
	for _, v := range variants {
		set[v] = true
	}
	b.registrations = append(b.registrations, registration{variants: set, handler: handler})
}

// Trigger invokes every handler matching event.Variant concurrently and
// waits for all of them. A single failure is returned as is; when more than
// one handler failed, every failure is returned in an
// apperror.AggregateError. ctx cancellation propagates to every in-flight
// handler.
func (b *Bus) Trigger(ctx context.Context, event Event) error {
	log := logging.For("eventbus")
	log.Debug().Str("variant", event.Variant.String()).Msg("trigger")

	var matched []Handler
	for _, reg := range b.registrations {
		if reg.matches(event.Variant) {
			matched = append(matched, reg.handler)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(matched))
	for i, h := range matched {
		i, h := i, h
		g.Go(func() error {
			if err := h(gctx, event); err != nil {
				errs[i] = err
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	return apperror.Aggregate(errs...)
}
