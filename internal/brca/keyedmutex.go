package brca

import "sync"

// keyedMutex stripes a mutex per key (agent id), the concurrency
// discipline named in spec.md §5 — (i) "per-agent mutex held around the
// belief-store write phase of analyzeNewMemory".
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lockFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns an unlock function.
func (k *keyedMutex) Lock(key string) func() {
	m := k.lockFor(key)
	m.Lock()
	return m.Unlock
}
