// Package calendar groups tasks by due date for month and week grids.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

const DefaultMaxVisible = 3

type Options struct {
	// ProjectID "" or "all" keeps every task.
	ProjectID string
	// MaxVisible caps the tasks carried by a cell; 0 means DefaultMaxVisible.
	MaxVisible int
	// Now decides which cell is today.
	Now time.Time
	// Location defines calendar days; nil uses the location of the
	// displayed date.
	Location *time.Location
}

func (o Options) maxVisible() int {
	if o.MaxVisible <= 0 {
		return DefaultMaxVisible
	}
	return o.MaxVisible
}

type Cell struct {
	Date  time.Time     `json:"date"`
	Today bool          `json:"today"`
	Tasks []models.Task `json:"tasks"`
	// Hidden is the number of tasks beyond MaxVisible.
	Hidden int `json:"hidden"`
}

// Total is the number of tasks due on the cell's day.
func (c Cell) Total() int {
	return len(c.Tasks) + c.Hidden
}

// MoreLabel renders the overflow as "+N more", or "" when nothing is hidden.
func (c Cell) MoreLabel() string {
	if c.Hidden == 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", c.Hidden)
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	// Leading is the weekday of the first day (Sunday = 0), i.e. the
	// number of blank cells before it in a Sunday-first grid.
	Leading int    `json:"leading"`
	Cells   []Cell `json:"cells"`
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// TasksForDate returns the tasks due on date's calendar day, ignoring the
// time of day, ordered by due time.
func TasksForDate(tasks []models.Task, date time.Time, projectID string, loc *time.Location) []models.Task {
	if loc == nil {
		loc = date.Location()
	}
	var out []models.Task
	for _, t := range tasks {
		if t.DueDate == nil || !SameDay(*t.DueDate, date, loc) {
			continue
		}
		if projectID != "" && projectID != "all" && t.ProjectID != projectID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out
}

// MonthGrid builds one cell per day of the month containing ref.
func MonthGrid(tasks []models.Task, ref time.Time, opts Options) Month {
	loc := opts.location(ref)
	first := firstOfMonth(ref, loc)
	m := Month{Year: first.Year(), Month: first.Month(), Leading: int(first.Weekday())}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		m.Cells = append(m.Cells, buildCell(tasks, d, loc, opts))
	}
	return m
}

// WeekGrid builds the seven cells, Sunday first, of the week containing ref.
func WeekGrid(tasks []models.Task, ref time.Time, opts Options) []Cell {
	loc := opts.location(ref)
	y, mo, d := ref.In(loc).Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	start := day.AddDate(0, 0, -int(day.Weekday()))

	cells := make([]Cell, 0, 7)
	for i := 0; i < 7; i++ {
		cells = append(cells, buildCell(tasks, start.AddDate(0, 0, i), loc, opts))
	}
	return cells
}

func buildCell(tasks []models.Task, day time.Time, loc *time.Location, opts Options) Cell {
	due := TasksForDate(tasks, day, opts.ProjectID, loc)
	c := Cell{Date: day, Today: !opts.Now.IsZero() && SameDay(day, opts.Now, loc)}
	if n := opts.maxVisible(); len(due) > n {
		c.Hidden = len(due) - n
		due = due[:n]
	}
	c.Tasks = due
	return c
}

// NextMonth returns the first day of the month after t.
func NextMonth(t time.Time) time.Time {
	return firstOfMonth(t, t.Location()).AddDate(0, 1, 0)
}

// PrevMonth returns the first day of the month before t.
func PrevMonth(t time.Time) time.Time {
	return firstOfMonth(t, t.Location()).AddDate(0, -1, 0)
}

// DaySummary reports progress on the tasks due on date.
type DaySummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

func SummarizeDay(tasks []models.Task, date time.Time, projectID string, loc *time.Location) DaySummary {
	var s DaySummary
	for _, t := range TasksForDate(tasks, date, projectID, loc) {
		s.Total++
		if t.Completed {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Percent = (s.Completed*100 + s.Total/2) / s.Total
	}
	return s
}

func (o Options) location(ref time.Time) *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return ref.Location()
}

func firstOfMonth(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}
