package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

const snapshotVersion = 1

type snapshot struct {
	Version  int              `json:"version"`
	SavedAt  time.Time        `json:"savedAt"`
	Tasks    []models.Task    `json:"tasks"`
	Projects []models.Project `json:"projects"`
	Filters  Filters          `json:"filters"`
	View     ViewSettings     `json:"viewSettings"`
	Selected []string         `json:"selectedTasks"`
}

// Save writes the persisted part of the store: tasks, projects, filters,
// view settings and selection. Errors and in-flight toggles are not saved.
func (s *Store) Save(w io.Writer) error {
	s.mu.Lock()
	snap := snapshot{
		Version:  snapshotVersion,
		SavedAt:  s.now().UTC(),
		Tasks:    cloneTasks(s.tasks),
		Projects: append([]models.Project{}, s.projects...),
		Filters:  s.filters,
		View:     s.view,
		Selected: append([]string{}, s.selected...),
	}
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Restore replaces the store contents with a snapshot written by Save.
func (s *Store) Restore(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, snap.Version)
	}
	if snap.Tasks == nil {
		snap.Tasks = []models.Task{}
	}
	if snap.Projects == nil {
		snap.Projects = []models.Project{}
	}
	if snap.View.SortBy == "" {
		snap.View = DefaultViewSettings()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = snap.Tasks
	s.projects = snap.Projects
	s.filters = snap.Filters
	s.view = snap.View
	s.selected = snap.Selected
	s.toggles = make(map[string]*toggleState)
	return nil
}

// SaveFile writes the snapshot atomically through a temp file.
func (s *Store) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile restores from path. A missing file leaves the store empty.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()
	return s.Restore(f)
}
