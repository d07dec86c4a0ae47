// Package processor implements the per-kind processors that bridge the
// event bus, the dependency graph, and the resource services: stateless
// processors (PasswordPolicy, SecretsEngine) and chain-based processors
// (Issuer, PKIRole, Password, SSHKey).
package processor

import "context"

// Semaphore bounds the number of concurrent units of work that may call
// into the service layer. A single instance is shared across the
// dispatcher and every processor, per the global concurrency cap. A zero
// maxDispatch means unbounded: Acquire/Release become no-ops.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a Semaphore bounded at maxDispatch, or unbounded if
// maxDispatch is 0.
func NewSemaphore(maxDispatch int) *Semaphore {
	if maxDispatch <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{slots: make(chan struct{}, maxDispatch)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (s *Semaphore) Release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}
