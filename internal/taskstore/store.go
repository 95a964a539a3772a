// Package taskstore keeps the history of prompt-on-repo runs and their
// progress log, in memory or in a SQLite file.
package taskstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one prompt-on-repo execution.
type Run struct {
	ID            string     `json:"id"`
	RepoURL       string     `json:"repo_url"`
	Prompt        string     `json:"prompt"`
	Branch        string     `json:"branch"`
	Status        RunStatus  `json:"status"`
	PRURL         string     `json:"pr_url,omitempty"`
	FilesModified int        `json:"files_modified"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Logs          []LogEntry `json:"logs,omitempty"`
}

// LogEntry is one progress event recorded against a run.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// Store persists runs. List returns runs newest first without their logs;
// Get includes the logs in the order they were added.
type Store interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context) ([]*Run, error)
	Update(ctx context.Context, run *Run) error
	AddLog(ctx context.Context, id, kind, message string) error
	Close() error
}

// Open returns a SQLite store at path, or an in-memory store when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*Run),
	}
}

func (s *MemoryStore) Create(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	cp := *run
	cp.Logs = nil
	s.runs[run.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	cp.Logs = append([]LogEntry(nil), run.Logs...)
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		cp.Logs = nil
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *MemoryStore) Update(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.runs[run.ID]
	if !ok {
		return ErrNotFound
	}
	run.UpdatedAt = time.Now().UTC()
	cur.Branch = run.Branch
	cur.Status = run.Status
	cur.PRURL = run.PRURL
	cur.FilesModified = run.FilesModified
	cur.Error = run.Error
	cur.UpdatedAt = run.UpdatedAt
	return nil
}

func (s *MemoryStore) AddLog(_ context.Context, id, kind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	run.Logs = append(run.Logs, LogEntry{
		Timestamp: now,
		Kind:      kind,
		Message:   message,
	})
	run.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Close() error { return nil }
