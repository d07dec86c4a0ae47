package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
)

func TestTriggerInvokesOnlyMatchingVariant(t *testing.T) {
	bus := New()

	var matchedCalls, unmatchedCalls int32
	bus.Register([]Variant{ForKind(dto.KindSecretsEngine, StageCreateSuccess)}, func(ctx context.Context, e Event) error {
		atomic.AddInt32(&matchedCalls, 1)
		return nil
	})
	bus.Register([]Variant{ForKind(dto.KindIssuer, StageCreateSuccess)}, func(ctx context.Context, e Event) error {
		atomic.AddInt32(&unmatchedCalls, 1)
		return nil
	})

	require.NoError(t, bus.Trigger(context.Background(), Event{
		Variant: ForKind(dto.KindSecretsEngine, StageCreateSuccess),
	}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&matchedCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&unmatchedCalls))
}

func TestTriggerWithNoRegisteredHandlersIsANoOp(t *testing.T) {
	bus := New()
	err := bus.Trigger(context.Background(), Event{Variant: ForKind(dto.KindPassword, StageCreateSuccess)})
	assert.NoError(t, err)
}

func TestTriggerRunsHandlersConcurrentlyNotSequentially(t *testing.T) {
	bus := New()

	const handlerCount = 8
	release := make(chan struct{})
	var arrived int32
	allArrived := make(chan struct{})

	for i := 0; i < handlerCount; i++ {
		bus.Register([]Variant{ForKind(dto.KindPassword, StageCreateSuccess)}, func(ctx context.Context, e Event) error {
			if atomic.AddInt32(&arrived, 1) == handlerCount {
				close(allArrived)
			}
			<-release
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- bus.Trigger(context.Background(), Event{Variant: ForKind(dto.KindPassword, StageCreateSuccess)})
	}()

	select {
	case <-allArrived:
		// every handler reached its blocking point concurrently, proving
		// Trigger fans out rather than running handlers one at a time.
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not all start concurrently within the deadline")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestTriggerAggregatesConcurrentHandlerErrors(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var seen []string

	for i := 0; i < 3; i++ {
		name := []string{"a", "b", "c"}[i]
		bus.Register([]Variant{ForKind(dto.KindSSHKey, StageCreateSuccess)}, func(ctx context.Context, e Event) error {
			mu.Lock()
			seen = append(seen, name)
			mu.Unlock()
			return errors.New(name + " failed")
		})
	}

	err := bus.Trigger(context.Background(), Event{Variant: ForKind(dto.KindSSHKey, StageCreateSuccess)})
	require.Error(t, err)

	var aggErr *apperror.AggregateError
	require.ErrorAs(t, err, &aggErr)
	assert.Len(t, aggErr.Errors, 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestTriggerPropagatesContextCancellationToHandlers(t *testing.T) {
	bus := New()

	ctx, cancel := context.WithCancel(context.Background())

	handlerErr := make(chan error, 1)
	bus.Register([]Variant{ForKind(dto.KindPKIRole, StageCreateSuccess)}, func(ctx context.Context, e Event) error {
		<-ctx.Done()
		handlerErr <- ctx.Err()
		return ctx.Err()
	})

	triggerDone := make(chan error, 1)
	go func() {
		triggerDone <- bus.Trigger(ctx, Event{Variant: ForKind(dto.KindPKIRole, StageCreateSuccess)})
	}()

	cancel()

	select {
	case err := <-handlerErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never observed context cancellation")
	}
	require.Error(t, <-triggerDone)
}
