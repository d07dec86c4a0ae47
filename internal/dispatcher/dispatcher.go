// Package dispatcher drains a channel of typed manifest payloads and turns
// each into an ApplicationRequested event, bounded by the shared processor
// semaphore, then triggers ShutdownRequested once the channel closes.
package dispatcher

import (
	"context"
	"sync"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
	"github.com/hqdncw/vault-autopilot-go/internal/processor"
)

// Dispatcher consumes a stream of decoded manifest payloads and feeds them
// into the event bus, one ApplicationRequested trigger per payload.
type Dispatcher struct {
	bus *eventbus.Bus
	sem *processor.Semaphore
}

// New returns a Dispatcher that triggers events on bus, bounding
// concurrency with sem. sem is the same instance every processor acquires
// before calling into the service layer, so dispatch and apply share one
// global concurrency cap.
func New(bus *eventbus.Bus, sem *processor.Semaphore) *Dispatcher {
	return &Dispatcher{bus: bus, sem: sem}
}

// Run drains payloads until the channel closes or ctx is done. Each payload
// acquires a slot on the shared semaphore before its ApplicationRequested
// event is triggered in its own goroutine; a semaphore bounded to exactly
// one slot makes dispatch effectively serial, since the next Acquire blocks
// until the in-flight payload's handlers release it.
//
// ShutdownRequested is triggered exactly once, after payloads is drained,
// regardless of how draining ended. Errors raised by any handler accumulate
// and are returned aggregated once Run returns.
func (d *Dispatcher) Run(ctx context.Context, payloads <-chan dto.Payload) error {
	log := logging.For("dispatcher")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	addErr := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

drain:
	for {
		select {
		case payload, ok := <-payloads:
			if !ok {
				break drain
			}
			if err := d.sem.Acquire(ctx); err != nil {
				addErr(err)
				break drain
			}

			wg.Add(1)
			go func(payload dto.Payload) {
				defer wg.Done()
				defer d.sem.Release()

				if err := d.bus.Trigger(ctx, eventbus.ApplicationRequested(payload)); err != nil {
					log.Error().Err(err).Str("kind", string(payload.Kind())).Msg("application requested handlers failed")
					addErr(err)
				}
			}(payload)
		case <-ctx.Done():
			addErr(ctx.Err())
			break drain
		}
	}

	wg.Wait()

	if err := d.bus.Trigger(ctx, eventbus.ShutdownRequested()); err != nil {
		addErr(err)
	}

	return apperror.Aggregate(errs...)
}
