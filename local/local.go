// Package local implements the process-local cache tier: a byte store with
// per-entry expiry, prefix sweeps, and the per-key locks used for miss-fill
// serialization.
//
// Stores MUST be byte-for-byte transparent: Get returns exactly the []byte
// previously passed to Set for the same key, or a miss.
package local

import (
	"strings"
	"sync"
	"time"
)

// Store is the local-tier byte store. Implementations must be safe for
// concurrent use; the lock held around any single operation must not extend
// beyond that operation.
type Store interface {
	// Get returns (value, true) on a live hit; expired entries are misses.
	Get(key string) ([]byte, bool)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes a key. Removing an absent key is a no-op.
	Delete(key string)

	// DeletePrefix removes every key starting with prefix and reports how
	// many entries were dropped.
	DeletePrefix(prefix string) int

	// Len returns the number of entries currently held, expired or not.
	Len() int

	// Close releases resources (background sweepers etc.).
	Close() error
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero => no expiry
}

// Memory is the default Store: a mutex-protected map with lazy expiry on
// read and a periodic sweep that drops entries past their deadline.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	now func() time.Time

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Store = (*Memory)(nil)

// NewMemory creates a map-backed store. sweepInterval <= 0 disables the
// background sweep; expired entries are then only reclaimed lazily on read
// or by DeletePrefix.
func NewMemory(sweepInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	if sweepInterval > 0 {
		m.ticker = time.NewTicker(sweepInterval)
		m.stopCh = make(chan struct{})
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m
}

// SetNow replaces the store's clock. Test hook; not safe to call once the
// store is shared.
func (m *Memory) SetNow(now func() time.Time) { m.now = now }

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: exp}
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory) DeletePrefix(prefix string) int {
	m.mu.Lock()
	removed := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			removed++
		}
	}
	m.mu.Unlock()
	return removed
}

func (m *Memory) Len() int {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return n
}

func (m *Memory) Close() error {
	m.once.Do(func() {
		if m.stopCh != nil {
			close(m.stopCh)
			m.wg.Wait()
			m.ticker.Stop()
		}
	})
	return nil
}

func (m *Memory) sweepLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	cutoff := m.now()

	m.mu.RLock()
	var expired []string
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && cutoff.After(e.expiresAt) {
			expired = append(expired, k)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	m.mu.Lock()
	for _, k := range expired {
		if e, ok := m.entries[k]; ok && !e.expiresAt.IsZero() && cutoff.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}
