package store

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

// Filters narrows the task list view. Empty slices match everything.
type Filters struct {
	Search     string              `json:"search,omitempty"`
	Priorities []models.Priority   `json:"priority,omitempty"`
	Statuses   []models.TaskStatus `json:"status,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	Projects   []string            `json:"projects,omitempty"`
	// ShowCompleted hides completed tasks only when explicitly false.
	ShowCompleted *bool `json:"showCompleted,omitempty"`
	ShowOverdue   bool  `json:"showOverdue,omitempty"`
}

func (f Filters) match(t models.Task, now time.Time) bool {
	if q := strings.TrimSpace(f.Search); q != "" &&
		!strings.Contains(strings.ToLower(t.Title), strings.ToLower(q)) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(t.Tags, func(tag string) bool {
		return slices.Contains(f.Tags, tag)
	}) {
		return false
	}
	if len(f.Projects) > 0 && !slices.Contains(f.Projects, t.ProjectID) {
		return false
	}
	if f.ShowCompleted != nil && !*f.ShowCompleted && t.Completed {
		return false
	}
	if f.ShowOverdue && !t.IsOverdue(now) {
		return false
	}
	return true
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

type ViewSettings struct {
	SortBy          SortField `json:"sortBy"`
	SortOrder       SortOrder `json:"sortOrder"`
	ShowSubtasks    bool      `json:"showSubtasks"`
	ShowDescription bool      `json:"showDescription"`
}

func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		SortBy:          SortCreatedAt,
		SortOrder:       Desc,
		ShowSubtasks:    true,
		ShowDescription: true,
	}
}

// less orders a before b ascending. Tasks without a due date sort before
// dated ones.
func (v ViewSettings) less(a, b models.Task) bool {
	switch v.SortBy {
	case SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case SortDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return a.DueDate == nil && b.DueDate != nil
		}
		return a.DueDate.Before(*b.DueDate)
	case SortPriority:
		return a.Priority.Rank() < b.Priority.Rank()
	case SortTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (v ViewSettings) sort(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if v.SortOrder == Asc {
			return v.less(tasks[i], tasks[j])
		}
		return v.less(tasks[j], tasks[i])
	})
}

// Visible returns the filtered and sorted task list.
func (s *Store) Visible() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if s.filters.match(t, now) {
			out = append(out, t.Clone())
		}
	}
	s.view.sort(out)
	return out
}

func (s *Store) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

func (s *Store) ClearFilters() {
	s.SetFilters(Filters{})
}

func (s *Store) ViewSettings() ViewSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetViewSettings replaces the view settings. Unknown sort fields fall back
// to creation time.
func (s *Store) SetViewSettings(v ViewSettings) {
	if v.SortOrder != Asc {
		v.SortOrder = Desc
	}
	switch v.SortBy {
	case SortCreatedAt, SortUpdatedAt, SortDueDate, SortPriority, SortTitle:
	default:
		v.SortBy = SortCreatedAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selected...)
}

func (s *Store) SetSelected(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append([]string(nil), ids...)
}

func (s *Store) ToggleSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.selected, id) {
		s.selected = without(s.selected, id)
		return
	}
	s.selected = append(s.selected, id)
}
