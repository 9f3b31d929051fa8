package cachefront

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cachefront/codec"
)

// LoaderFunc computes the value for a missed key from the source of truth.
// Loaders should carry their own timeout via ctx; a failed loader is never
// cached and every waiter of that fill episode sees the failure.
type LoaderFunc[V any] func(ctx context.Context) (V, error)

// View is a typed read/seed handle over the engine for one value shape.
// Many views share one engine; the codec and default TTL are per view.
type View[V any] struct {
	e     *Engine
	codec codec.Codec[V]
	ttl   time.Duration
}

// NewView binds a codec and default TTL to the engine. ttl <= 0 falls back
// to the engine default.
func NewView[V any](e *Engine, c codec.Codec[V], ttl time.Duration) *View[V] {
	return &View[V]{e: e, codec: c, ttl: ttl}
}

// Get reads through the tiers with the view's default TTL.
func (v *View[V]) Get(ctx context.Context, key string, loader LoaderFunc[V]) (V, error) {
	return v.GetTTL(ctx, key, v.ttl, loader)
}

// GetTTL is the read-through sequence: local tier, then (under the key's
// single-flight lock) local again, then distributed tier, then loader.
// Across concurrently racing callers the loader runs at most once per miss
// episode; all callers observe the same value or the same loader failure.
func (v *View[V]) GetTTL(ctx context.Context, key string, ttl time.Duration, loader LoaderFunc[V]) (V, error) {
	var zero V
	e := v.e

	if !e.enabled {
		val, err := loader(ctx)
		if err != nil {
			return zero, &LoaderError{Key: key, Err: err}
		}
		return val, nil
	}
	if e.closed.Load() {
		return zero, ErrEngineClosed
	}

	ns := KeyNamespace(key)
	if ttl <= 0 {
		ttl = e.defaultTTL
	}

	if val, ok := v.localGet(key); ok {
		e.stats.Hit(ns, TierLocal)
		return val, nil
	}

	release := e.locks.Acquire(key)
	defer release()

	// mandatory re-check: a waiter ahead of us may have just filled it
	if val, ok := v.localGet(key); ok {
		e.stats.Hit(ns, TierLocal)
		return val, nil
	}

	raw, ok, err := e.remote.Get(ctx, key)
	switch {
	case err != nil:
		// unreachable tier degrades to a miss; the read must not fail
		// because the cache layer is down
		e.hooks.RemoteDegraded("get", err)
		e.log.Warn("remote get degraded to miss", Fields{"key": key, "err": err})
	case ok:
		val, derr := v.codec.Decode(raw)
		if derr == nil {
			e.local.Set(key, raw, e.localTTL(ttl))
			e.stats.Hit(ns, TierRemote)
			return val, nil
		}
		// corrupted shared payload: remove it so it cannot poison
		// subsequent readers, then fall through to the loader
		if delErr := e.remote.Del(ctx, key); delErr != nil {
			e.hooks.RemoteDegraded("del", delErr)
		}
		e.hooks.SelfHeal(key, "remote")
		e.log.Warn("corrupt remote payload dropped", Fields{"key": key, "err": derr})
	}

	e.stats.Miss(ns)
	val, lerr := loader(ctx)
	if lerr != nil {
		e.hooks.LoaderFailed(key, lerr)
		return zero, &LoaderError{Key: key, Err: lerr}
	}

	enc, eerr := v.codec.Encode(val)
	if eerr != nil {
		// the caller still gets the value; it just isn't cached
		e.hooks.EncodeFailed(key, eerr)
		e.log.Error("encode failed, result not cached", Fields{"key": key, "err": eerr})
		return val, nil
	}
	if serr := e.remote.Set(ctx, key, enc, ttl); serr != nil {
		e.hooks.RemoteDegraded("set", serr)
		e.log.Warn("remote set failed after load", Fields{"key": key, "err": serr})
	}
	e.local.Set(key, enc, e.localTTL(ttl))
	return val, nil
}

// Seed writes a freshly computed value through to both tiers ("write-
// through"). Use after a mutation's invalidation to repopulate the primary
// key hot.
func (v *View[V]) Seed(ctx context.Context, key string, val V) error {
	return v.SeedTTL(ctx, key, val, v.ttl)
}

func (v *View[V]) SeedTTL(ctx context.Context, key string, val V, ttl time.Duration) error {
	e := v.e
	if !e.enabled {
		return nil
	}
	enc, err := v.codec.Encode(val)
	if err != nil {
		e.hooks.EncodeFailed(key, err)
		return err
	}
	return e.seed(ctx, key, enc, ttl)
}

// Encode exposes the view's codec for callers assembling SeedEntry values
// for InvalidateAndReseed.
func (v *View[V]) Encode(val V) ([]byte, error) { return v.codec.Encode(val) }

// localGet decodes a live local entry, self-healing entries the codec
// rejects.
func (v *View[V]) localGet(key string) (V, bool) {
	var zero V
	raw, ok := v.e.local.Get(key)
	if !ok {
		return zero, false
	}
	val, err := v.codec.Decode(raw)
	if err != nil {
		v.e.local.Delete(key)
		v.e.hooks.SelfHeal(key, "local")
		return zero, false
	}
	return val, true
}
