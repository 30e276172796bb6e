package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

const (
	dashboardListSize = 5
	upcomingHorizon   = 7 * 24 * time.Hour
)

// Dashboard summarizes the whole collection, without a time window.
type Dashboard struct {
	Total          int           `json:"total"`
	Completed      int           `json:"completed"`
	DueToday       int           `json:"dueToday"`
	Overdue        int           `json:"overdue"`
	Upcoming       int           `json:"upcoming"`
	CompletionRate int           `json:"completionRate"`
	RecentOpen     []models.Task `json:"recentOpen"`
	NextDeadlines  []models.Task `json:"nextDeadlines"`
}

func Summarize(tasks []models.Task, now time.Time) Dashboard {
	loc := now.Location()
	today := dayNumber(now, loc)
	horizon := now.Add(upcomingHorizon)

	var d Dashboard
	var open, withDue []models.Task
	for _, t := range tasks {
		d.Total++
		if t.Completed {
			d.Completed++
		} else {
			open = append(open, t)
		}
		if t.DueDate == nil {
			continue
		}
		if dayNumber(*t.DueDate, loc) == today {
			d.DueToday++
		}
		if t.Completed {
			continue
		}
		withDue = append(withDue, t)
		if t.DueDate.Before(now) {
			d.Overdue++
		} else if !t.DueDate.After(horizon) {
			d.Upcoming++
		}
	}
	if d.Total > 0 {
		d.CompletionRate = int(math.Round(float64(d.Completed) / float64(d.Total) * 100))
	}

	sort.SliceStable(open, func(i, j int) bool { return open[i].UpdatedAt.After(open[j].UpdatedAt) })
	sort.SliceStable(withDue, func(i, j int) bool { return withDue[i].DueDate.Before(*withDue[j].DueDate) })
	d.RecentOpen = head(open, dashboardListSize)
	d.NextDeadlines = head(withDue, dashboardListSize)
	return d
}

func head(tasks []models.Task, n int) []models.Task {
	if len(tasks) > n {
		tasks = tasks[:n]
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}
