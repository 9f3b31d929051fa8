// Package asynchook wraps a Hooks implementation so callbacks run on a
// small worker pool instead of the engine's hot path. Events past the queue
// bound are dropped, never blocked on.
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/cachefront"
)

type Hooks struct {
	inner cachefront.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cachefront.Hooks = (*Hooks)(nil)

func New(inner cachefront.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) enqueue(f func()) {
	select {
	case h.q <- f:
	default:
		// queue full: drop rather than stall the caller
	}
}

func (h *Hooks) SelfHeal(key, tier string) {
	h.enqueue(func() { h.inner.SelfHeal(key, tier) })
}

func (h *Hooks) RemoteDegraded(op string, err error) {
	h.enqueue(func() { h.inner.RemoteDegraded(op, err) })
}

func (h *Hooks) LoaderFailed(key string, err error) {
	h.enqueue(func() { h.inner.LoaderFailed(key, err) })
}

func (h *Hooks) PrefixSwept(prefix string, localRemoved, remoteRemoved int) {
	h.enqueue(func() { h.inner.PrefixSwept(prefix, localRemoved, remoteRemoved) })
}

func (h *Hooks) EncodeFailed(key string, err error) {
	h.enqueue(func() { h.inner.EncodeFailed(key, err) })
}
