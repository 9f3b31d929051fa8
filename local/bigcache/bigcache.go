// Package bigcache adapts allegro/bigcache as a local-tier store.
//
// BigCache does not track per-entry TTLs; every entry lives for the
// configured LifeWindow. Callers that need the local tier's expiry to track
// a fraction of the distributed tier's TTL should set LifeWindow to that
// fraction of their shortest cache TTL.
package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/cachefront/local"
)

type Store struct {
	c *bc.BigCache
}

var _ local.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(key string) ([]byte, bool) {
	b, err := s.c.Get(key)
	if err != nil {
		// ErrEntryNotFound and shard-level errors are both misses here
		return nil, false
	}
	return b, true
}

func (s *Store) Set(key string, value []byte, _ time.Duration) {
	// per-entry TTL unsupported; LifeWindow governs
	_ = s.c.Set(key, value)
}

func (s *Store) Delete(key string) {
	_ = s.c.Delete(key)
}

func (s *Store) DeletePrefix(prefix string) int {
	var hit []string
	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.Key(), prefix) {
			hit = append(hit, info.Key())
		}
	}
	for _, k := range hit {
		_ = s.c.Delete(k)
	}
	return len(hit)
}

func (s *Store) Len() int { return s.c.Len() }

func (s *Store) Close() error { return s.c.Close() }
