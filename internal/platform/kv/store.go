// Package kv is the persistence boundary of the tournament. Domain packages
// only see the Store contract and typed values that passed through the codec.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrConflict is returned by Update when the key kept changing under the
	// caller for every attempt.
	ErrConflict = errors.New("kv: concurrent update conflict")

	// ErrSkipWrite may be returned by an UpdateFunc to leave the key untouched.
	// Update then returns nil.
	ErrSkipWrite = errors.New("kv: skip write")
)

// MaxUpdateAttempts bounds the optimistic retry loop of Update.
const MaxUpdateAttempts = 5

// UpdateFunc receives the current value of a key (exists=false when absent)
// and returns the value to write. It can run more than once per Update call,
// so it must not have side effects outside the returned value.
type UpdateFunc func(current string, exists bool) (string, error)

// Store is the key-value collaborator: plain strings, hashes and bounded lists.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Update performs a compare-and-swap read-modify-write of a single key.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HIncrBy(ctx context.Context, key, field string, n int64) (int64, error)

	// PushBounded prepends value to the list and trims it to capacity items.
	PushBounded(ctx context.Context, key, value string, capacity int) error
	// LRange returns items start..stop inclusive, newest first.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Ping(ctx context.Context) error
}
