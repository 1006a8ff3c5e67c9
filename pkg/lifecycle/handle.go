package lifecycle

import (
	"context"
	"time"
)

// Handle is the lifecycle controller handed to each background service.
// It is created by a Manager and wraps the service's shutdown bookkeeping.
type Handle struct {
	ctx context.Context
	// Close tells the Manager the service has stopped.
	// Call it with defer before the service goroutine returns.
	Close func()
}

// Ctx returns the handle's context.
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done is closed once the manager broadcasts shutdown.
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err returns why Done was closed.
func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep pauses for duration, returning early with the context error when the
// handle is cancelled.
func (h *Handle) Sleep(duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return nil
	}
}
