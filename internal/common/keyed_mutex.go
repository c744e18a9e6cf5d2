package common

import (
	"context"
	"sync"
)

// KeyedMutex hands out one lock per key. Entries are reference counted and dropped
// when the last holder or waiter lets go, so the map only holds keys in use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

// keyedEntry is a one-slot semaphore so waiters can select on ctx.Done
type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock func
func (k *KeyedMutex) Lock(key string) func() {
	entry := k.acquire(key)
	entry.sem <- struct{}{}
	return k.unlocker(key, entry)
}

// LockContext is Lock for waiters that can give up. It returns ctx.Err() if ctx is
// done before key is free; the caller then holds nothing.
func (k *KeyedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	entry := k.acquire(key)

	select {
	case entry.sem <- struct{}{}:
		return k.unlocker(key, entry), nil
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are held or awaited
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *KeyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (k *KeyedMutex) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *KeyedMutex) unlocker(key string, entry *keyedEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			k.release(key, entry)
		})
	}
}
