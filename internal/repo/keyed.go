package repo

import "sync"

// Keyed manages one repository per key, created on demand by a factory:
// a gallery per search query, albums per album type.
type Keyed[K comparable, R Repository] struct {
	mu      sync.RWMutex
	repos   map[K]R
	factory func(key K) R
}

// NewKeyed creates a Keyed that builds missing repositories with factory.
func NewKeyed[K comparable, R Repository](factory func(key K) R) *Keyed[K, R] {
	return &Keyed[K, R]{
		repos:   make(map[K]R),
		factory: factory,
	}
}

// Get returns the repository for key, creating it if it doesn't exist.
func (k *Keyed[K, R]) Get(key K) R {
	k.mu.RLock()
	if r, ok := k.repos[key]; ok {
		k.mu.RUnlock()
		return r
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if r, ok := k.repos[key]; ok {
		return r
	}
	r := k.factory(key)
	k.repos[key] = r
	return r
}

// Has returns true if a repository exists for key.
func (k *Keyed[K, R]) Has(key K) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.repos[key]
	return ok
}

// Len returns the number of repositories created so far.
func (k *Keyed[K, R]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.repos)
}

// Invalidate marks every repository as not fresh.
func (k *Keyed[K, R]) Invalidate() {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, r := range k.repos {
		r.Invalidate()
	}
}

// Close closes and forgets every repository.
func (k *Keyed[K, R]) Close() {
	k.mu.Lock()
	repos := k.repos
	k.repos = make(map[K]R)
	k.mu.Unlock()
	for _, r := range repos {
		r.Close()
	}
}
