package repo

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Realm manages a group of repositories with a shared lifecycle.
// Teardown cancels the realm context and closes every owned repository.
//
// A CLI session uses one realm per library connection; switching the
// library tears the realm down and starts a fresh one.
type Realm struct {
	mu     sync.RWMutex
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	repos  map[string]Repository
}

// NewRealm creates a realm with a cancellable context derived from parent.
func NewRealm(name string, parent context.Context) *Realm { //nolint:revive // context-as-argument: name is the primary differentiator
	ctx, cancel := context.WithCancel(parent)
	return &Realm{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		repos:  make(map[string]Repository),
	}
}

// Name returns the realm's identifier.
func (r *Realm) Name() string { return r.name }

// Context returns the realm's context. Canceled on teardown.
// Pass it to repositories with WithContext so their fetches die with the realm.
func (r *Realm) Context() context.Context { return r.ctx }

// Register adds a repository to the realm, closing any previous one under key.
func (r *Realm) Register(key string, repo Repository) {
	r.mu.Lock()
	prev := r.repos[key]
	r.repos[key] = repo
	r.mu.Unlock()
	if prev != nil && prev != repo {
		prev.Close()
	}
}

// Get returns a registered repository by key, or nil if not found.
func (r *Realm) Get(key string) Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repos[key]
}

// Keys returns the registered keys in sorted order.
func (r *Realm) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.repos))
	for k := range r.repos {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Invalidate marks every repository in the realm as not fresh.
func (r *Realm) Invalidate() {
	for _, repo := range r.snapshot() {
		repo.Invalidate()
	}
}

// UpdateIfEverUpdated refreshes every repository that was ever used and
// returns a Handle settling when all of them have.
func (r *Realm) UpdateIfEverUpdated() *Handle {
	return r.each(Repository.UpdateIfEverUpdated)
}

// UpdateIfNotFresh updates every repository whose data is not fresh.
func (r *Realm) UpdateIfNotFresh() *Handle {
	return r.each(Repository.UpdateIfNotFresh)
}

func (r *Realm) each(fn func(Repository) *Handle) *Handle {
	repos := r.snapshot()
	handles := make([]*Handle, 0, len(repos))
	for _, repo := range repos {
		handles = append(handles, fn(repo))
	}
	h := newHandle()
	go func() {
		h.resolve(WaitAll(context.Background(), handles...))
	}()
	return h
}

// Statuses returns the status of every repository, sorted by name.
func (r *Realm) Statuses() []Status {
	repos := r.snapshot()
	statuses := make([]Status, 0, len(repos))
	for _, repo := range repos {
		statuses = append(statuses, repo.Status())
	}
	slices.SortFunc(statuses, func(a, b Status) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return statuses
}

// Teardown cancels the realm's context and closes all repositories.
// After teardown, the realm should not be reused.
func (r *Realm) Teardown() {
	r.mu.Lock()
	repos := r.repos
	r.repos = make(map[string]Repository)
	r.mu.Unlock()
	// Close first: a fetch canceled by the realm context must not report
	// its cancellation ahead of ErrClosed.
	for _, repo := range repos {
		repo.Close()
	}
	r.cancel()
}

func (r *Realm) snapshot() []Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	repos := make([]Repository, 0, len(r.repos))
	for _, repo := range r.repos {
		repos = append(repos, repo)
	}
	return repos
}

// RealmRepository retrieves or creates a typed repository within a realm.
// Each key maps to exactly one concrete type; callers must be consistent.
func RealmRepository[R Repository](r *Realm, key string, create func(ctx context.Context) R) R {
	r.mu.RLock()
	if repo, ok := r.repos[key]; ok {
		r.mu.RUnlock()
		return mustType[R](r.name, key, repo)
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, ok := r.repos[key]; ok {
		return mustType[R](r.name, key, repo)
	}
	repo := create(r.ctx)
	r.repos[key] = repo
	return repo
}

func mustType[R Repository](realm, key string, repo Repository) R {
	typed, ok := repo.(R)
	if !ok {
		panic(fmt.Sprintf("realm %q: repository %q has type %T, want %T", realm, key, repo, *new(R)))
	}
	return typed
}
