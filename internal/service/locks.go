package service

import "sync"

// keyedMutex serializes mutation per session. Sessions are single-writer by
// contract; two concurrent HTTP requests against the same session queue up
// here instead of interleaving their read-modify-write cycles.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the mutex for one key and returns its unlock function.
func (k *keyedMutex) lock(key int64) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// forget drops the mutex for a deleted session.
func (k *keyedMutex) forget(key int64) {
	k.mu.Lock()
	delete(k.locks, key)
	k.mu.Unlock()
}
