// Package health watches Redis and rebuilds what can be rebuilt after it
// restarts empty.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

const (
	DefaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// InfoClient is the part of the Redis client the checker needs.
type InfoClient interface {
	Info(ctx context.Context, section ...string) *redis.StringCmd
}

// RebuildFunc restores Redis data from the durable store.
type RebuildFunc func(ctx context.Context) error

// Checker periodically checks Redis and drives Status.
type Checker struct {
	client   InfoClient
	status   *Status
	rebuild  RebuildFunc
	interval time.Duration
	log      *slog.Logger
}

// NewChecker builds a checker. rebuild may be nil.
func NewChecker(client InfoClient, status *Status, rebuild RebuildFunc, interval time.Duration, log *slog.Logger) *Checker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Checker{client: client, status: status, rebuild: rebuild, interval: interval, log: log}
}

// RunID reads the server run_id, which changes on every Redis restart.
func (c *Checker) RunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	info, err := c.client.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", errors.New("run_id not found in redis INFO")
	}
	return matches[1], nil
}

// Initialize records the startup run_id. It fails when Redis is unreachable.
func (c *Checker) Initialize(ctx context.Context) error {
	runID, err := c.RunID(ctx)
	if err != nil {
		return fmt.Errorf("cannot read initial redis run_id: %w", err)
	}
	c.status.SetInitialRunID(runID)
	c.log.Info("redis run_id recorded", "run_id", runID)
	return nil
}

// Check performs one check and, when Redis restarted, one rebuild attempt.
func (c *Checker) Check(ctx context.Context) {
	runID, err := c.RunID(ctx)
	if !c.status.Assess(err == nil, runID, err) {
		return
	}

	success := true
	if c.rebuild != nil {
		if err := c.rebuild(ctx); err != nil {
			c.log.Error("redis rebuild failed", "error", err)
			success = false
		}
	}

	after, err := c.RunID(ctx)
	if err != nil {
		c.log.Error("redis unreachable after rebuild", "error", err)
		success = false
	}
	c.status.MarkRebuildComplete(success, after)
}

// Run checks every interval until the handle is cancelled.
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	c.log.Info("redis health checker started", "interval", c.interval)

	for {
		if err := handle.Sleep(c.interval); err != nil {
			c.log.Info("redis health checker stopping")
			return
		}
		c.Check(handle.Ctx())
	}
}
