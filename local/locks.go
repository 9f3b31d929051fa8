package local

import "sync"

// KeyLocks hands out one mutex per cache key so that concurrent miss-fills
// for the same key serialize while different keys proceed in parallel.
//
// Growth policy: a lock entry is reference-counted and dropped as soon as the
// last holder releases it. The table therefore never outgrows the number of
// keys with an in-flight fill; the cost is a map insert/delete per contended
// episode instead of a background sweep.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu      sync.Mutex
	holders int
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[string]*keyLock)}
}

// Acquire blocks until the per-key lock is held and returns the release
// function. Release must be called exactly once, on every exit path.
func (kl *KeyLocks) Acquire(key string) (release func()) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyLock{}
		kl.locks[key] = l
	}
	l.holders++
	kl.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			kl.mu.Lock()
			l.holders--
			if l.holders == 0 {
				delete(kl.locks, key)
			}
			kl.mu.Unlock()
		})
	}
}

// Len reports the number of keys with a live lock entry.
func (kl *KeyLocks) Len() int {
	kl.mu.Lock()
	n := len(kl.locks)
	kl.mu.Unlock()
	return n
}
