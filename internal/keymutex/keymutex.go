// Package keymutex serializes work per string key.
package keymutex

import "sync"

// KeyMutex hands out one mutex per key so read-modify-write cycles
// against the same product serialize while distinct keys proceed in
// parallel. Mutexes are retained for the life of the process; the key
// space (tracked products) is small and bounded in practice.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyMutex) Lock(key string) {
	k.forKey(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyMutex) Unlock(key string) {
	k.forKey(key).Unlock()
}

func (k *KeyMutex) forKey(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
