// Package remote defines the distributed-tier abstraction: a shared byte
// store with TTLs, prefix scans, and publish/subscribe. The tier is a single
// logical service visible to every process; its own replication and
// availability are the backend's concern.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key.
package remote

import (
	"context"
	"time"
)

// Message is one pub/sub delivery.
type Message struct {
	// Channel is the full channel name the message arrived on.
	Channel string
	// Payload is the published bytes, untouched.
	Payload []byte
}

// Remote is the distributed tier client. Must be safe for concurrent use
// from arbitrarily many goroutines without serializing unrelated keys.
type Remote interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys. Deleting absent keys is not an error.
	Del(ctx context.Context, keys ...string) error

	// ScanPrefix walks the keyspace matching prefix in cursor batches of at
	// most batch keys, invoking fn per batch. fn returning an error stops
	// the scan and surfaces that error.
	ScanPrefix(ctx context.Context, prefix string, batch int64, fn func(keys []string) error) error

	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a stream of messages matching the glob pattern.
	// The channel closes when ctx is cancelled or the connection drops;
	// callers are expected to re-subscribe.
	Subscribe(ctx context.Context, pattern string) (<-chan Message, error)

	// Ping reports reachability.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
