package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/dto"
	"github.com/hqdncw/vault-autopilot-go/internal/eventbus"
)

// recorder captures every event variant published on the bus, in order, for
// assertions about event ordering.
type recorder struct {
	mu       sync.Mutex
	variants []string
}

func (r *recorder) record(ctx context.Context, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants = append(r.variants, event.Variant.String())
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.variants))
	copy(out, r.variants)
	return out
}

func allVariants() []eventbus.Variant {
	var out []eventbus.Variant
	for _, kind := range []dto.Kind{dto.KindIssuer, dto.KindPKIRole, dto.KindPassword, dto.KindSSHKey, dto.KindSecretsEngine, dto.KindPasswordPolicy} {
		for _, stage := range []eventbus.Stage{
			eventbus.StageApplicationRequested, eventbus.StageApplicationInitiated,
			eventbus.StageVerifySuccess, eventbus.StageCreateSuccess, eventbus.StageUpdateSuccess,
			eventbus.StageVerifyError, eventbus.StageCreateError, eventbus.StageUpdateError,
		} {
			out = append(out, eventbus.ForKind(kind, stage))
		}
	}
	return out
}

func TestChainedIssuerDeferredUntilParentSucceeds(t *testing.T) {
	bus := eventbus.New()
	rec := &recorder{}
	bus.Register(allVariants(), rec.record)

	sem := NewSemaphore(0)
	applied := map[string]bool{}
	var mu sync.Mutex
	apply := func(ctx context.Context, issuer dto.Issuer) dto.ApplyResult {
		mu.Lock()
		applied[issuer.AbsolutePath()] = true
		mu.Unlock()
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}

	proc := NewIssuerProcessor(sem, bus, apply)
	proc.Initialize()

	leaf := dto.Issuer{
		Name: "leaf",
		Spec: dto.IssuerSpec{SecretsEngine: "pki_int", Chaining: &dto.IssuerChaining{UpstreamIssuerRef: "pki/root"}},
	}
	root := dto.Issuer{Name: "root", Spec: dto.IssuerSpec{SecretsEngine: "pki"}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Declared in reverse order: leaf first, root second.
	require.NoError(t, bus.Trigger(ctx, eventbus.ApplicationRequested(leaf)))

	mu.Lock()
	leafApplied := applied["pki_int/leaf"]
	mu.Unlock()
	assert.False(t, leafApplied, "leaf must not apply before its parent succeeds")

	require.NoError(t, bus.Trigger(ctx, eventbus.ApplicationRequested(root)))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, applied["pki/root"])
	assert.True(t, applied["pki_int/leaf"])
}

func TestUnresolvedIssuerRefLeavesEdgePending(t *testing.T) {
	bus := eventbus.New()
	sem := NewSemaphore(0)
	apply := func(ctx context.Context, role dto.PKIRole) dto.ApplyResult {
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}
	proc := NewPKIRoleProcessor(sem, bus, apply)
	proc.Initialize()

	a := dto.PKIRole{Name: "a", Spec: dto.PKIRoleSpec{SecretsEngine: "pki", IssuerRef: "pki/b"}}
	ctx := context.Background()

	require.NoError(t, bus.Trigger(ctx, eventbus.ApplicationRequested(a)))

	proc.graph.Lock()
	pending := proc.graph.GetPendingEdges()
	proc.graph.Unlock()
	assert.NotEmpty(t, pending, "unresolved issuer_ref leaves an edge pending")
}

func TestShutdownReportsUnresolvedDependency(t *testing.T) {
	bus := eventbus.New()
	var unresolved []string
	bus.Register([]eventbus.Variant{eventbus.VariantUnresolvedDepsDetected}, func(ctx context.Context, event eventbus.Event) error {
		for _, e := range event.Edges {
			unresolved = append(unresolved, e.ResourceRef+"->"+e.DependencyRef)
		}
		return nil
	})

	sem := NewSemaphore(0)
	apply := func(ctx context.Context, role dto.PKIRole) dto.ApplyResult {
		return dto.ApplyResult{Status: dto.StatusCreateSuccess}
	}
	proc := NewPKIRoleProcessor(sem, bus, apply)
	proc.Initialize()

	ctx := context.Background()
	require.NoError(t, bus.Trigger(ctx, eventbus.ApplicationRequested(dto.PKIRole{
		Name: "r", Spec: dto.PKIRoleSpec{SecretsEngine: "pki", IssuerRef: "pki/nope"},
	})))
	require.NoError(t, bus.Trigger(ctx, eventbus.ShutdownRequested()))

	require.Len(t, unresolved, 1)
	assert.Equal(t, "pki/r->pki/nope", unresolved[0])
}
