// Package resilience keeps prismctl from hammering a struggling library
// server. A circuit breaker, a token bucket and a bulkhead gate every remote
// fetch; their state is persisted so that concurrent prismctl processes
// (a watch loop next to one-off commands) coordinate.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	stateFile = "resilience.json"
	lockFile  = "resilience.lock"
)

// LockTimeout bounds how long a command waits for another process's lock.
// Past it the store proceeds unlocked: a briefly inconsistent count is
// preferable to a hung command.
const LockTimeout = 100 * time.Millisecond

// Store reads and writes State under a cross-process file lock.
type Store struct {
	dir string
}

// NewStore creates a store in dir, or in the user cache dir when dir is empty.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir returns $XDG_CACHE_HOME/prismctl, falling back to the
// platform cache dir and then the temp dir.
func DefaultDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "prismctl")
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "prismctl")
	}
	return filepath.Join(os.TempDir(), "prismctl")
}

// Path returns the state file path.
func (s *Store) Path() string { return filepath.Join(s.dir, stateFile) }

// lock takes the directory lock. A nil unlock with a nil error means the
// lock timed out and the caller proceeds unlocked.
func (s *Store) lock() (unlock func(), err error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(s.dir, lockFile))

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	switch {
	case errors.Is(err, context.DeadlineExceeded), err == nil && !locked:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("locking resilience state: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *Store) locked(fn func() error) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}
	return fn()
}

// Load returns the persisted state, empty if there is none or it is corrupt.
func (s *Store) Load() (*State, error) {
	var state *State
	err := s.locked(func() error {
		var err error
		state, err = s.read()
		return err
	})
	return state, err
}

// Update runs fn on the state of host and persists the result, holding
// the lock for the whole read-modify-write.
func (s *Store) Update(host string, fn func(h *HostState, now time.Time) error) error {
	return s.locked(func() error {
		state, err := s.read()
		if err != nil {
			return err
		}
		now := time.Now()
		if err := fn(state.Host(host), now); err != nil {
			return err
		}
		state.UpdatedAt = now
		return s.write(state)
	})
}

// Clear removes the persisted state.
func (s *Store) Clear() error {
	return s.locked(func() error {
		if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (s *Store) read() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, err
	}
	var state State
	if json.Unmarshal(data, &state) != nil || state.Version != StateVersion {
		return NewState(), nil
	}
	return &state, nil
}

// write replaces the state file through a uniquely named temp file, so
// unlocked writers never interleave bytes.
func (s *Store) write(state *State) error {
	state.Version = StateVersion
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
