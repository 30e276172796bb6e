// Package analytics derives time-windowed statistics from a task collection.
// Every function is pure: the current time is always passed in.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

// Window is a look-back period in days.
type Window int

const (
	Week    Window = 7
	Month   Window = 30
	Quarter Window = 90
)

// ParseWindow accepts "7d", "30d" or "90d" (the suffix is optional).
func ParseWindow(s string) (Window, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "d") {
	case "7":
		return Week, nil
	case "30":
		return Month, nil
	case "90":
		return Quarter, nil
	}
	return 0, fmt.Errorf("unsupported window %q (want 7d, 30d or 90d)", s)
}

func (w Window) String() string {
	return fmt.Sprintf("%dd", int(w))
}

// Weights balance completion rate against on-time rate in the productivity
// score.
type Weights struct {
	Completion float64
	OnTime     float64
}

var DefaultWeights = Weights{Completion: 0.7, OnTime: 0.3}

// Options select the filtered set. ProjectID "" or "all" keeps every task.
type Options struct {
	Window    Window
	ProjectID string
	Now       time.Time
	Weights   Weights
}

func (o Options) weights() Weights {
	if o.Weights.Completion == 0 && o.Weights.OnTime == 0 {
		return DefaultWeights
	}
	return o.Weights
}

func (o Options) window() Window {
	if o.Window <= 0 {
		return Month
	}
	return o.Window
}

type TrendPoint struct {
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Rate      float64   `json:"completionRate"`
}

type PriorityCount struct {
	Priority models.Priority `json:"priority"`
	Count    int             `json:"count"`
	Color    string          `json:"color"`
}

type ProjectStat struct {
	ProjectID string  `json:"projectId"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"completionRate"`
}

type Report struct {
	Window         Window          `json:"window"`
	ProjectID      string          `json:"projectId,omitempty"`
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Overdue        int             `json:"overdue"`
	CompletionRate float64         `json:"completionRate"`
	OnTimeRate     float64         `json:"onTimeRate"`
	Trend          []TrendPoint    `json:"trend"`
	Priorities     []PriorityCount `json:"priorities"`
	Projects       []ProjectStat   `json:"projects"`
	Streak         int             `json:"streak"`
	Score          int             `json:"productivityScore"`
}

var priorityColors = map[models.Priority]string{
	models.PriorityHigh:   "#EF4444",
	models.PriorityMedium: "#F59E0B",
	models.PriorityLow:    "#10B981",
}

// Compute builds the full report for the filtered set.
func Compute(tasks []models.Task, projects []models.Project, opts Options) Report {
	filtered := Filter(tasks, opts)
	w := opts.window()
	completed := countCompleted(filtered)
	return Report{
		Window:         w,
		ProjectID:      opts.ProjectID,
		Total:          len(filtered),
		Completed:      completed,
		Overdue:        Overdue(filtered, opts.Now),
		CompletionRate: CompletionRate(filtered),
		OnTimeRate:     OnTimeRate(filtered),
		Trend:          CompletionTrend(filtered, w, opts.Now),
		Priorities:     PriorityDistribution(filtered),
		Projects:       ProjectBreakdown(filtered, projects),
		Streak:         Streak(filtered, opts.Now.Location()),
		Score:          ProductivityScore(filtered, opts.weights()),
	}
}

// Filter keeps tasks created within [now-window, now] that match the
// project filter.
func Filter(tasks []models.Task, opts Options) []models.Task {
	start := opts.Now.AddDate(0, 0, -int(opts.window()))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.CreatedAt.Before(start) || t.CreatedAt.After(opts.Now) {
			continue
		}
		if !matchesProject(t, opts.ProjectID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesProject(t models.Task, projectID string) bool {
	return projectID == "" || projectID == "all" || t.ProjectID == projectID
}

// CompletionTrend returns one point per calendar day of the window, oldest
// first. Tasks created before the first day land in the first bucket, so
// the totals always add up to len(filtered).
func CompletionTrend(filtered []models.Task, window Window, now time.Time) []TrendPoint {
	n := int(window)
	if n <= 0 {
		return nil
	}
	loc := now.Location()
	today := dayNumber(now, loc)

	points := make([]TrendPoint, n)
	for i := range points {
		day := now.AddDate(0, 0, -(n - 1 - i))
		y, m, d := day.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		points[i] = TrendPoint{Date: date, Label: date.Format("Jan 02")}
	}

	for _, t := range filtered {
		idx := n - 1 - (today - dayNumber(t.CreatedAt, loc))
		if idx < 0 {
			idx = 0
		}
		if idx > n-1 {
			idx = n - 1
		}
		points[idx].Total++
		if t.Completed {
			points[idx].Completed++
		}
	}
	for i := range points {
		if points[i].Total > 0 {
			points[i].Rate = float64(points[i].Completed) / float64(points[i].Total) * 100
		}
	}
	return points
}

// PriorityDistribution counts high, medium and low in that order. Unknown
// priorities count as medium, the default.
func PriorityDistribution(filtered []models.Task) []PriorityCount {
	counts := make(map[models.Priority]int, len(models.Priorities))
	for _, t := range filtered {
		p := t.Priority
		if !p.Valid() {
			p = models.PriorityMedium
		}
		counts[p]++
	}
	out := make([]PriorityCount, 0, len(models.Priorities))
	for _, p := range models.Priorities {
		out = append(out, PriorityCount{Priority: p, Count: counts[p], Color: priorityColors[p]})
	}
	return out
}

// ProjectBreakdown returns one entry per project, in the given order.
func ProjectBreakdown(filtered []models.Task, projects []models.Project) []ProjectStat {
	type tally struct{ total, completed int }
	byProject := make(map[string]*tally)
	for _, t := range filtered {
		if t.ProjectID == "" {
			continue
		}
		c, ok := byProject[t.ProjectID]
		if !ok {
			c = &tally{}
			byProject[t.ProjectID] = c
		}
		c.total++
		if t.Completed {
			c.completed++
		}
	}

	out := make([]ProjectStat, 0, len(projects))
	for _, p := range projects {
		stat := ProjectStat{ProjectID: p.ID, Name: p.Name, Color: p.Color}
		if c := byProject[p.ID]; c != nil {
			stat.Total = c.total
			stat.Completed = c.completed
			stat.Rate = float64(c.completed) / float64(c.total) * 100
		}
		out = append(out, stat)
	}
	return out
}

// Streak is the longest run of consecutive calendar days, in loc, with at
// least one completion. Several completions on one day count once.
func Streak(filtered []models.Task, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[int]bool)
	var days []int
	for _, t := range filtered {
		if !t.Completed || t.CompletedAt == nil {
			continue
		}
		d := dayNumber(*t.CompletedAt, loc)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(days)))

	best, current := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] == 1 {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
	}
	return best
}

// CompletionRate is completed/total in percent, 0 for an empty set.
func CompletionRate(filtered []models.Task) float64 {
	if len(filtered) == 0 {
		return 0
	}
	return float64(countCompleted(filtered)) / float64(len(filtered)) * 100
}

// OnTimeRate is the share of completed tasks finished at or before their
// due date, in percent. Tasks without a due date are on time. The
// denominator is max(completed, 1).
func OnTimeRate(filtered []models.Task) float64 {
	completed, onTime := 0, 0
	for _, t := range filtered {
		if !t.Completed {
			continue
		}
		completed++
		if isOnTime(t) {
			onTime++
		}
	}
	return float64(onTime) / float64(max(completed, 1)) * 100
}

func isOnTime(t models.Task) bool {
	if t.DueDate == nil {
		return true
	}
	// a completed task without a completion time cannot prove it was on time
	if t.CompletedAt == nil {
		return false
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// ProductivityScore is round(completionRate*w.Completion + onTimeRate*w.OnTime),
// or 0 for an empty set.
func ProductivityScore(filtered []models.Task, w Weights) int {
	if len(filtered) == 0 {
		return 0
	}
	return int(math.Round(CompletionRate(filtered)*w.Completion + OnTimeRate(filtered)*w.OnTime))
}

// Overdue counts open tasks whose due date is before now.
func Overdue(tasks []models.Task, now time.Time) int {
	n := 0
	for _, t := range tasks {
		if t.IsOverdue(now) {
			n++
		}
	}
	return n
}

func countCompleted(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// dayNumber maps t to a count of civil days in loc, so that subtracting two
// values gives a calendar-day difference independent of DST.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
