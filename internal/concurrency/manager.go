package concurrency

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cexll/codeagent/internal/vcs"
)

var (
	// ErrCapacity is returned when every run slot is taken.
	ErrCapacity = errors.New("too many runs in progress")
	// ErrRepoBusy is returned when a run against the same repository is in progress.
	ErrRepoBusy = errors.New("a run for this repository is already in progress")
)

// Manager caps simultaneous runs and serializes runs per repository.
type Manager struct {
	slots *semaphore.Weighted
	locks sync.Map // map[string]chan struct{}
}

// NewManager creates a manager allowing at most maxRuns concurrent runs.
// Values below 1 are treated as 1.
func NewManager(maxRuns int) *Manager {
	if maxRuns < 1 {
		maxRuns = 1
	}
	return &Manager{slots: semaphore.NewWeighted(int64(maxRuns))}
}

// Acquire reserves a run slot and the repository lock for repoURL without
// blocking. The returned release function frees both and is safe to call
// more than once.
func (m *Manager) Acquire(repoURL string) (release func(), err error) {
	key := RepoKey(repoURL)
	if !m.TryAcquire(key) {
		return nil, ErrRepoBusy
	}
	if !m.slots.TryAcquire(1) {
		m.Release(key)
		return nil, ErrCapacity
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.slots.Release(1)
			m.Release(key)
		})
	}, nil
}

// TryAcquire attempts to acquire the lock for the given key.
// Returns true if lock was acquired, false if already locked.
func (m *Manager) TryAcquire(key string) bool {
	actual, _ := m.locks.LoadOrStore(key, make(chan struct{}, 1))
	ch := actual.(chan struct{})

	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release releases the lock for the given key.
// Safe to call even if lock was never acquired or already released.
func (m *Manager) Release(key string) {
	if actual, ok := m.locks.Load(key); ok {
		ch := actual.(chan struct{})
		select {
		case <-ch:
		default:
		}
	}
}

// RepoKey normalizes a repository URL so that spellings of the same
// repository share one lock, e.g. "https://github.com/Acme/Widgets.git" and
// "https://token@github.com/acme/widgets" both map to "acme/widgets".
func RepoKey(repoURL string) string {
	if owner, repo, err := vcs.ParseRepoURL(repoURL); err == nil {
		return strings.ToLower(owner + "/" + repo)
	}
	key := strings.TrimSuffix(strings.TrimSpace(vcs.StripCredentials(repoURL)), "/")
	return strings.ToLower(strings.TrimSuffix(key, ".git"))
}
