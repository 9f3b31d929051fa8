package cachefront

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cachefront/local"
	"github.com/unkn0wn-root/cachefront/remote"
)

// Engine is the cache coherence core: a process-local tier in front of a
// shared distributed tier, with single-flight miss fills, cascading
// invalidation, and change-event publication. One Engine serves a whole
// process; views (View[V]) give typed access on top of it.
type Engine struct {
	local  local.Store
	remote remote.Remote
	locks  *local.KeyLocks
	stats  *Collector
	log    Logger
	hooks  Hooks

	defaultTTL time.Duration
	ttlDivisor int
	scanBatch  int64

	enabled     bool
	ownLocal    bool
	closeRemote bool
	now         func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
}

func (e *Engine) Enabled() bool { return e.enabled }

// Stats snapshots the hit/miss counters.
func (e *Engine) Stats() Stats { return e.stats.Snapshot() }

// Close stops the local tier's background sweep and, when the engine owns
// it, releases the remote client. Safe to call more than once.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.ownLocal {
			err = e.local.Close()
		}
		if e.closeRemote && e.remote != nil {
			if cerr := e.remote.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

// Drop removes one exact key from both tiers, local first so a racing local
// read cannot outlive the distributed copy. Dropping an absent key is a
// no-op.
func (e *Engine) Drop(ctx context.Context, key string) error {
	if !e.enabled {
		return nil
	}
	e.local.Delete(key)
	if err := e.remote.Del(ctx, key); err != nil {
		e.hooks.RemoteDegraded("del", err)
		return err
	}
	return nil
}

// localTTL derives the local tier's expiry from the distributed TTL. The
// shorter local window bounds how long a local copy can outlive a remote
// invalidation from another process.
func (e *Engine) localTTL(ttl time.Duration) time.Duration {
	if e.ttlDivisor <= 1 {
		return ttl
	}
	d := ttl / time.Duration(e.ttlDivisor)
	if d <= 0 {
		return ttl
	}
	return d
}

// seed writes an already-encoded payload through to both tiers, remote
// first. A failed remote write skips the local write so the local tier never
// holds data the shared tier lost.
func (e *Engine) seed(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = e.defaultTTL
	}
	if err := e.remote.Set(ctx, key, payload, ttl); err != nil {
		e.hooks.RemoteDegraded("set", err)
		return err
	}
	e.local.Set(key, payload, e.localTTL(ttl))
	return nil
}

// Health reports tier reachability and local occupancy.
type HealthReport struct {
	RemoteOK     bool   `json:"remote_ok"`
	RemoteError  string `json:"remote_error,omitempty"`
	LocalEntries int    `json:"local_entries"`
	PendingLocks int    `json:"pending_locks"`
}

func (e *Engine) Health(ctx context.Context) HealthReport {
	r := HealthReport{
		LocalEntries: e.local.Len(),
		PendingLocks: e.locks.Len(),
	}
	if e.remote == nil {
		return r
	}
	if err := e.remote.Ping(ctx); err != nil {
		r.RemoteError = err.Error()
	} else {
		r.RemoteOK = true
	}
	return r
}
