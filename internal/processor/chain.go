package processor

import (
	"context"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
	graphpkg "github.com/hqdncw/vault-autopilot-go/internal/graph"
	"github.com/hqdncw/vault-autopilot-go/internal/logging"
)

// UpstreamBuilder returns the absolute paths a payload declares as upstream
// dependencies. An empty result means the resource has no dependency and is
// scheduled for immediate flush.
type UpstreamBuilder[T dto.Payload] func(payload T) []string

// Chain implements the contract shared by the Issuer, PKIRole, Password and
// SSHKey processors: each owns its own dependency graph instance and
// subscribes to the matching upstream kind's *Success variants.
type Chain[T dto.Payload] struct {
	kind             dto.Kind
	sem              *Semaphore
	bus              *eventbus.Bus
	graph            *graphpkg.Graph
	apply            ApplyFunc[T]
	buildUpstreams   UpstreamBuilder[T]
	upstreamVariants []eventbus.Variant
}

// NewChain returns a Chain processor for kind. upstreamKind names the kind
// whose *Success events trigger this processor's downstream scanning (the
// "upstream dependency trigger" in the processor design table).
func NewChain[T dto.Payload](
	kind dto.Kind,
	upstreamKind dto.Kind,
	sem *Semaphore,
	bus *eventbus.Bus,
	apply ApplyFunc[T],
	buildUpstreams UpstreamBuilder[T],
) *Chain[T] {
	return &Chain[T]{
		kind:             kind,
		sem:              sem,
		bus:              bus,
		graph:            graphpkg.New(),
		apply:            apply,
		buildUpstreams:   buildUpstreams,
		upstreamVariants: eventbus.SuccessVariants(upstreamKind),
	}
}

// Initialize registers the processor's ApplicationRequested handler, its
// upstream dependency trigger, and its shutdown-time postprocess.
func (c *Chain[T]) Initialize() {
	c.bus.Register([]eventbus.Variant{eventbus.ForKind(c.kind, eventbus.StageApplicationRequested)}, c.onRequested)
	c.bus.Register(c.upstreamVariants, c.onUpstreamTrigger)
	c.bus.Register([]eventbus.Variant{eventbus.VariantShutdownRequested}, c.onShutdown)
}

func (c *Chain[T]) onRequested(ctx context.Context, event eventbus.Event) error {
	payload, ok := event.Payload.(T)
	if !ok {
		return apperror.New(apperror.Unexpected, "payload type mismatch in chain processor")
	}
	return c.schedule(ctx, payload.AbsolutePath(), payload)
}

// schedule implements the two-phase schedule procedure: build fallback
// upstream nodes, then either flush immediately (no dependency, or every
// upstream already satisfied) or defer until the upstream trigger fires.
func (c *Chain[T]) schedule(ctx context.Context, hash string, payload T) error {
	upstreams := c.buildUpstreams(payload)

	c.graph.Lock()
	c.graph.AddNode(hash, payload)
	for _, up := range upstreams {
		c.graph.AddEdge(up, hash)
	}
	ready := c.graph.AreUpstreamsSatisfied(hash, "")
	if ready {
		c.graph.SetNodeStatus(hash, graphpkg.InProgress)
	}
	c.graph.Unlock()

	if !ready {
		return nil
	}
	return c.flush(ctx, []string{hash})
}

// onUpstreamTrigger handles an upstream kind's *Success event: upsert the
// satisfied upstream node, then scan its downstreams for any whose entire
// upstream set is now satisfied.
func (c *Chain[T]) onUpstreamTrigger(ctx context.Context, event eventbus.Event) error {
	upstreamHash := event.Payload.AbsolutePath()

	c.graph.Lock()
	c.graph.AddNode(upstreamHash, nil)
	c.graph.SetNodeStatus(upstreamHash, graphpkg.Satisfied)
	ready := c.graph.FilterDownstreams(upstreamHash, c.ownPendingReady)
	var toFlush []string
	for _, n := range ready {
		c.graph.SetNodeStatus(n.Hash, graphpkg.InProgress)
		toFlush = append(toFlush, n.Hash)
	}
	c.graph.Unlock()

	if len(toFlush) == 0 {
		return nil
	}
	return c.flush(ctx, toFlush)
}

// ownPendingReady reports whether node n is one of this processor's own
// pending payload nodes with every upstream edge satisfied; it is how the
// generic Chain[T] expresses the design's per-kind "downstream_selector".
func (c *Chain[T]) ownPendingReady(n *graphpkg.Node) bool {
	if n.Status != graphpkg.Pending {
		return false
	}
	if _, ok := n.Payload.(T); !ok {
		return false
	}
	return c.graph.AreUpstreamsSatisfied(n.Hash, "")
}

// flush applies and publishes outcomes for hashes, bounded by the shared
// semaphore, then marks each satisfied and recurses into their downstreams.
func (c *Chain[T]) flush(ctx context.Context, hashes []string) error {
	log := logging.For("processor." + string(c.kind))

	var errs []error
	for _, hash := range hashes {
		c.graph.Lock()
		node := c.graph.GetNode(hash)
		c.graph.Unlock()
		if node == nil {
			continue
		}
		payload, ok := node.Payload.(T)
		if !ok {
			continue
		}

		if err := c.sem.Acquire(ctx); err != nil {
			errs = append(errs, err)
			continue
		}

		if err := c.bus.Trigger(ctx, eventbus.ApplicationInitiated(payload)); err != nil {
			log.Warn().Err(err).Msg("application initiated handlers failed")
		}

		result := c.apply(ctx, payload)

		if err := c.bus.Trigger(ctx, eventbus.Outcome(payload, result)); err != nil {
			log.Warn().Err(err).Msg("outcome handlers failed")
		}
		c.sem.Release()

		if !result.Succeeded() {
			errs = append(errs, apperror.Aggregate(result.Errors...))
		}
	}

	c.graph.Lock()
	for _, hash := range hashes {
		c.graph.SetNodeStatus(hash, graphpkg.Satisfied)
	}
	c.graph.Unlock()

	for _, hash := range hashes {
		c.graph.Lock()
		ready := c.graph.FilterDownstreams(hash, c.ownPendingReady)
		var next []string
		for _, n := range ready {
			c.graph.SetNodeStatus(n.Hash, graphpkg.InProgress)
			next = append(next, n.Hash)
		}
		c.graph.Unlock()

		if len(next) > 0 {
			if err := c.flush(ctx, next); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return apperror.Aggregate(errs...)
}

// onShutdown inspects the graph for edges still pending and aggregates them
// into a single UnresolvedDepsDetected event.
func (c *Chain[T]) onShutdown(ctx context.Context, event eventbus.Event) error {
	c.graph.Lock()
	pending := c.graph.GetPendingEdges()
	c.graph.Unlock()

	if len(pending) == 0 {
		return nil
	}

	edges := make([]apperror.UnresolvedDependencyError, 0, len(pending))
	for _, e := range pending {
		edges = append(edges, apperror.UnresolvedDependencyError{ResourceRef: e.To, DependencyRef: e.From})
	}
	return c.bus.Trigger(ctx, eventbus.UnresolvedDepsDetected(edges))
}
