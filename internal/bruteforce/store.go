package bruteforce

import (
	"context"
	"time"
)

// Store is the counter/block backend. Increment must be atomic with respect
// to concurrent requests for the same key: a check-then-increment race would
// undercount parallel failed attempts.
//
// Implementations: store/redis (production), store/memory (tests and
// degraded mode).
type Store interface {
	// Increment atomically bumps the counter for key within a trailing
	// window and returns the new count. The window's TTL starts at the
	// first increment.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)

	// Get returns the current count for key (0 when absent or expired).
	Get(ctx context.Context, key string) (int, error)

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error

	// GetBlock returns the block for an identifier, or nil when none exists.
	// Expired blocks may be returned; callers decide via ActiveAt.
	GetBlock(ctx context.Context, identifier string) (*SecurityBlock, error)

	// PutBlock stores a block until its expiry.
	PutBlock(ctx context.Context, block *SecurityBlock) error

	// DeleteBlock removes a block (admin unblock).
	DeleteBlock(ctx context.Context, identifier string) error
}
