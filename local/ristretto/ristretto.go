// Package ristretto adapts dgraph-io/ristretto as a local-tier store.
//
// Ristretto has no key iteration, so prefix sweeps are served from a side
// index of every key this store has admitted. The index can briefly name
// keys ristretto has already evicted; deleting those is a no-op. Index
// entries are reclaimed on Delete/DeletePrefix, so growth is bounded by the
// distinct keys written between sweeps.
package ristretto

import (
	"errors"
	"strings"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/cachefront/local"
)

type Store struct {
	c *rc.Cache

	mu    sync.Mutex
	index map[string]struct{}
}

var _ local.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, index: make(map[string]struct{})}, nil
}

func (s *Store) Get(key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// unexpected entry shape; drop it
		s.c.Del(key)
		return nil, false
	}
	return b, true
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.index[key] = struct{}{}
	s.mu.Unlock()
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()
	s.c.Del(key)
}

func (s *Store) DeletePrefix(prefix string) int {
	s.mu.Lock()
	var hit []string
	for k := range s.index {
		if strings.HasPrefix(k, prefix) {
			hit = append(hit, k)
			delete(s.index, k)
		}
	}
	s.mu.Unlock()

	for _, k := range hit {
		s.c.Del(k)
	}
	return len(hit)
}

func (s *Store) Len() int {
	s.mu.Lock()
	n := len(s.index)
	s.mu.Unlock()
	return n
}

func (s *Store) Close() error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters for callers that enabled them.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
