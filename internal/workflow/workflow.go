// Package workflow is the reconciliation driver: it owns authentication,
// one-time snapshot bootstrap, wiring every processor onto the event bus,
// running the dispatcher over a manifest stream, the final snapshot flush,
// and collecting the run's errors into the single error Run returns.
package workflow

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dispatcher"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
	"github.com/hqdncw/vault-autopilot-go/internal/processor"
	"github.com/hqdncw/vault-autopilot-go/internal/snapshot"
	"github.com/hqdncw/vault-autopilot-go/internal/vaultclient"
)

// Client is the narrow surface Workflow needs from vaultclient.Client.
type Client interface {
	Authenticate(ctx context.Context) error
	IsAuthenticated() bool
}

// Workflow owns one end-to-end reconciliation run.
type Workflow struct {
	client      Client
	bus         *eventbus.Bus
	sem         *processor.Semaphore
	snapshotter *snapshot.Repository

	mu         sync.Mutex
	unresolved []apperror.UnresolvedDependencyError
}

// New wires a Workflow around client, bus, sem and snapshotter. Callers
// must still call RegisterProcessors with every processor.Processor before
// Run.
func New(client Client, bus *eventbus.Bus, sem *processor.Semaphore, snapshotter *snapshot.Repository) *Workflow {
	w := &Workflow{client: client, bus: bus, sem: sem, snapshotter: snapshotter}
	w.bus.Register([]eventbus.Variant{eventbus.VariantUnresolvedDepsDetected}, w.onUnresolvedDeps)
	w.bus.Register(allOutcomeVariants(), w.onOutcome)
	return w
}

func allOutcomeVariants() []eventbus.Variant {
	kinds := []dto.Kind{
		dto.KindSecretsEngine, dto.KindPasswordPolicy, dto.KindIssuer,
		dto.KindPKIRole, dto.KindPassword, dto.KindSSHKey,
	}
	stages := []eventbus.Stage{
		eventbus.StageVerifySuccess, eventbus.StageCreateSuccess, eventbus.StageUpdateSuccess,
	}
	var out []eventbus.Variant
	for _, k := range kinds {
		for _, s := range stages {
			out = append(out, eventbus.ForKind(k, s))
		}
	}
	return out
}

func (w *Workflow) onUnresolvedDeps(ctx context.Context, event eventbus.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unresolved = append(w.unresolved, event.Edges...)
	return nil
}

// onOutcome records every successfully-applied resource's serialized
// payload into the snapshot repository, so the final flush captures the
// run's full last-applied state even though individual service diffs read
// Vault directly rather than the snapshot (§4.6's generic repository is the
// process-wide record, not a per-kind cache).
func (w *Workflow) onOutcome(ctx context.Context, event eventbus.Event) error {
	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return nil
	}
	w.snapshotter.Put(event.Payload.Kind(), event.Payload.AbsolutePath(), raw)
	return nil
}

// RegisterProcessors calls Initialize on each, wiring their handlers onto
// the event bus this Workflow was built with.
func (w *Workflow) RegisterProcessors(procs ...processor.Processor) {
	for _, p := range procs {
		p.Initialize()
	}
}

// Run authenticates, bootstraps the snapshot, drains payloads through a
// Dispatcher, then flushes the snapshot. An authentication or bootstrap
// failure is returned at once; otherwise the dispatcher's error, an Aborted
// error on ctx cancellation, an UnresolvedDependency error and any flush
// error are returned together via apperror.Aggregate.
func (w *Workflow) Run(ctx context.Context, payloads <-chan dto.Payload) error {
	runID := uuid.NewString()
	log := logging.For("workflow").With().Str("run_id", runID).Logger()
	log.Info().Msg("reconciliation run starting")

	if err := w.client.Authenticate(ctx); err != nil {
		return err
	}
	if err := w.snapshotter.Bootstrap(ctx); err != nil {
		return err
	}

	d := dispatcher.New(w.bus, w.sem)
	runErr := d.Run(ctx, payloads)

	if ctx.Err() != nil {
		log.Warn().Msg("aborted: shutdown signal received mid-run")
		runErr = apperror.Aggregate(runErr, apperror.Wrap(apperror.Aborted, "aborted", ctx.Err()))
	}

	w.mu.Lock()
	unresolved := w.unresolved
	w.mu.Unlock()
	if len(unresolved) > 0 {
		edges := make([]error, 0, len(unresolved))
		for i := range unresolved {
			e := unresolved[i]
			edges = append(edges, &e)
		}
		depErr := apperror.Wrap(apperror.UnresolvedDependency, "unresolved dependencies detected", apperror.Aggregate(edges...))
		runErr = apperror.Aggregate(runErr, depErr)
	}

	// Flush on a context detached from ctx's cancellation, so a shutdown
	// signal that aborted the run still gets its partial state persisted.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if flushErr := w.snapshotter.Flush(flushCtx); flushErr != nil {
		log.Error().Err(flushErr).Msg("snapshot flush failed")
		runErr = apperror.Aggregate(runErr, flushErr)
	}

	return runErr
}

const flushTimeout = 10 * time.Second

// NotifySignals returns a context cancelled on the platform's graceful
// shutdown signals and the stop function to release its resources. SIGTSTP
// is POSIX-only and is included only on non-Windows platforms.
func NotifySignals(parent context.Context) (context.Context, context.CancelFunc) {
	sigs := []os.Signal{syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT}
	if runtime.GOOS != "windows" {
		sigs = append(sigs, syscall.SIGTSTP)
	}
	return signal.NotifyContext(parent, sigs...)
}

var _ Client = (*vaultclient.Client)(nil)
