package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hevcd/hevcd/internal/model"
	"github.com/hevcd/hevcd/internal/platform"
)

// taskIDLength is the number of hex characters kept from the generated UUID.
// Short ids keep URLs and filenames readable while staying unique enough for
// an in-memory table.
const taskIDLength = 12

// Stats summarizes the task table for the status and troubleshooting
// endpoints.
type Stats struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Ready      int `json:"ready"`
	Failed     int `json:"failed"`
}

// Store is the in-memory task table. Tasks live for the lifetime of the
// process; cleanup removes a task together with its on-disk artifacts.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task

	workDir   string
	outputDir string
}

// NewStore creates an empty task table rooted at the given working and
// output directories.
func NewStore(workDir, outputDir string) *Store {
	return &Store{
		tasks:     make(map[string]*model.Task),
		workDir:   workDir,
		outputDir: outputDir,
	}
}

// Create registers a new task in the starting phase and returns a copy.
func (s *Store) Create(url, rename string) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newTaskID()
	for _, exists := s.tasks[id]; exists; _, exists = s.tasks[id] {
		id = newTaskID()
	}

	t := &model.Task{
		ID:        id,
		URL:       url,
		Rename:    rename,
		Phase:     model.PhaseStarting,
		Message:   "Starting download...",
		CreatedAt: time.Now(),
	}
	s.tasks[t.ID] = t
	return t.Clone()
}

// Get returns a copy of the task so callers never share memory with the
// orchestration goroutine.
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// Update applies fn to the task under the store lock. Terminal tasks are
// immutable: updates against them are dropped and false is returned.
func (s *Store) Update(id string, fn func(*model.Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Phase.IsTerminal() {
		return false
	}
	fn(t)
	return true
}

// Snapshot returns copies of every task, newest first.
func (s *Store) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// Count returns the number of tasks currently tracked.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Stats returns phase counts across the table.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		switch t.Phase {
		case model.PhaseReady:
			stats.Ready++
		case model.PhaseError:
			stats.Failed++
		default:
			stats.Processing++
		}
	}
	return stats
}

// RecentErrors returns up to n failed tasks, most recently finished first.
func (s *Store) RecentErrors(n int) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failed := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.Phase == model.PhaseError {
			failed = append(failed, t.Clone())
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].FinishedAt.After(failed[j].FinishedAt)
	})
	if len(failed) > n {
		failed = failed[:n]
	}
	return failed
}

// OutputPath returns the on-disk location of the task's converted artifact.
func (s *Store) OutputPath(id string) string {
	return filepath.Join(s.outputDir, id+platform.OutputExtensionMKV)
}

// Delete removes the task record and its on-disk artifacts: the converted
// output and any leftover download candidates. It is idempotent; deleting an
// unknown task only sweeps the filesystem.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()

	if err := os.Remove(s.OutputPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove output file: %w", err)
	}
	if err := platform.PurgeCandidates(s.workDir, id); err != nil {
		return fmt.Errorf("failed to purge work files: %w", err)
	}
	return nil
}

// newTaskID returns 12 hex characters of a random (v4) UUID. Time-ordered
// UUID variants carry their timestamp in exactly the leading 12 hex chars, so
// the id must come from random bits.
func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:taskIDLength]
}
