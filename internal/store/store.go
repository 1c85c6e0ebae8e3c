// Package store is the KV abstraction every cache, counter, queue and
// result record in the system goes through. It merges what used to be a
// bare *redis.Client global and a separate in-process TTL map behind one
// interface backed by Redis, since every caller here needs the state to
// survive across cmd/api and cmd/worker processes, not just within one.
package store

import (
	"context"
	"time"
)

// Store is the minimal KV surface the rest of the module depends on.
// Every method degrades to a models.StoreUnavailable error on transport
// failure; callers decide how to fail open.
type Store interface {
	// Get returns the raw bytes stored at key, or ok=false if absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value at key with the given TTL. ttl<=0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// IncrWithExpire atomically increments the counter at key by 1 and, on
	// the first increment within the window, sets its TTL to ttl. It
	// returns the post-increment value.
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// AddToRecentSet records member in a bounded, time-ordered set at key,
	// trimming it to maxSize entries, and returns the current members in
	// insertion order (oldest first).
	AddToRecentSet(ctx context.Context, key string, member string, maxSize int) ([]string, error)

	// RecentMembers returns the current contents of a recent-set without
	// mutating it, oldest first.
	RecentMembers(ctx context.Context, key string) ([]string, error)

	// PushJob appends a job payload to the FIFO queue at key.
	PushJob(ctx context.Context, key string, payload []byte) error
	// PopJob blocks up to timeout for a job payload at key, returning
	// ok=false on timeout.
	PopJob(ctx context.Context, key string, timeout time.Duration) (payload []byte, ok bool, err error)

	// ScanKeys returns every key matching a glob-style prefix pattern, used
	// by the admin stats surface to enumerate velocity counters.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// TTL returns the remaining time-to-live for key, or ok=false if the
	// key does not exist or carries no expiry.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Delete removes key, returning whether it existed.
	Delete(ctx context.Context, key string) (existed bool, err error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}
