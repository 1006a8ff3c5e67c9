// Package shutdown orchestrates the graceful stop of the server.
package shutdown

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

const (
	defaultHTTPTimeout     = 15 * time.Second
	defaultGracefulTimeout = 30 * time.Second
	defaultForcefulTimeout = 1 * time.Second
	finalizerTimeout       = 5 * time.Second
)

type finalizer struct {
	name string
	fn   func(ctx context.Context) error
}

// Coordinator runs the two-phase stop. Services on the graceful manager are
// stopped first. The forceful manager is signalled once they are done or
// have overrun, so services registered there outlive the first phase and
// also bound its overrun. Finalizers such as closing the stores run last.
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	HTTPTimeout     time.Duration
	GracefulTimeout time.Duration
	ForcefulTimeout time.Duration

	finalizers []finalizer
	log        *slog.Logger
}

// NewCoordinator creates a coordinator over managers created by the caller.
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, log *slog.Logger) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		HTTPTimeout:     defaultHTTPTimeout,
		GracefulTimeout: defaultGracefulTimeout,
		ForcefulTimeout: defaultForcefulTimeout,
		log:             log,
	}
}

// OnShutdown registers fn to run after every service stopped, in
// registration order.
func (c *Coordinator) OnShutdown(name string, fn func(ctx context.Context) error) {
	c.finalizers = append(c.finalizers, finalizer{name: name, fn: fn})
}

// ListenForSignalsAndShutdown blocks until SIGINT or SIGTERM and then shuts
// everything down.
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	c.log.Info("shutdown signal received", "signal", sig.String())
	c.Shutdown(server)
}

// Shutdown stops the HTTP server, the background services and finally runs
// the finalizers. server may be nil.
func (c *Coordinator) Shutdown(server *http.Server) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
		if err := server.Shutdown(ctx); err != nil {
			c.log.Error("http server shutdown failed", "error", err)
		} else {
			c.log.Info("http server stopped")
		}
		cancel()
	}

	c.log.Info("stopping background services", "timeout", c.GracefulTimeout)
	c.GracefulManager.Shutdown()
	if remaining := c.GracefulManager.WaitWithTimeout(c.GracefulTimeout); len(remaining) > 0 {
		c.log.Warn("graceful stop timed out", "remaining", remaining)
	}

	c.ForcefulManager.Shutdown()
	if left := c.ForcefulManager.WaitWithTimeout(c.ForcefulTimeout); len(left) > 0 {
		c.log.Error("services still running after forced stop", "remaining", left)
	} else {
		c.log.Info("background services stopped")
	}

	for _, f := range c.finalizers {
		ctx, cancel := context.WithTimeout(context.Background(), finalizerTimeout)
		if err := f.fn(ctx); err != nil {
			c.log.Error("shutdown step failed", "step", f.name, "error", err)
		}
		cancel()
	}
	c.log.Info("shutdown complete")
}
