package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chepyr/go-task-planner/internal/analytics"
	"github.com/chepyr/go-task-planner/internal/calendar"
	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/spf13/cobra"
)

func analyticsCmd(app *App) *cobra.Command {
	var window, project string
	cmd := &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"stats"},
		Short:   "Completion trend, priorities, projects and productivity score",
		Example: `  taskctl analytics --window 30d --project Work`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			if window == "" {
				window = app.cfg.Window
			}
			w, err := analytics.ParseWindow(window)
			if err != nil {
				return err
			}
			projectID, err := app.projectFilter(project)
			if err != nil {
				return err
			}

			report := analytics.Compute(app.store.Tasks(), app.store.Projects(), analytics.Options{
				Window:    w,
				ProjectID: projectID,
				Now:       app.now(),
				Weights: analytics.Weights{
					Completion: app.cfg.Weights.Completion,
					OnTime:     app.cfg.Weights.OnTime,
				},
			})
			if app.jsonOutput {
				return app.printJSON(report)
			}
			app.printReport(report)
			return nil
		},
	}
	cmd.Flags().StringVar(&window, "window", "", "Time range: 7d, 30d or 90d (default from config)")
	cmd.Flags().StringVar(&project, "project", "", "Only this project (id or name)")
	return cmd
}

func (a *App) printReport(r analytics.Report) {
	fmt.Fprintf(a.Out, "Last %s: %d tasks, %d completed, %d overdue\n", r.Window, r.Total, r.Completed, r.Overdue)
	fmt.Fprintf(a.Out, "Completion rate %.0f%%, on time %.0f%%, streak %d days, productivity score %d\n\n",
		r.CompletionRate, r.OnTimeRate, r.Streak, r.Score)

	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tCREATED\tCOMPLETED\tRATE")
	for _, p := range r.Trend {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\n", p.Label, p.Total, p.Completed, p.Rate)
	}
	w.Flush()

	fmt.Fprintln(a.Out)
	for _, p := range r.Priorities {
		fmt.Fprintf(a.Out, "%-7s %3d %s\n", p.Priority, p.Count, strings.Repeat("#", p.Count))
	}

	if len(r.Projects) > 0 {
		fmt.Fprintln(a.Out)
		w = tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROJECT\tTASKS\tDONE\tRATE")
		for _, p := range r.Projects {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\n", p.Name, p.Total, p.Completed, p.Rate)
		}
		w.Flush()
	}
}

func calendarCmd(app *App) *cobra.Command {
	var month, project, day string
	var week bool
	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Show tasks by due date for a month or a week",
		Example: `  taskctl calendar --month 2024-03
  taskctl calendar --week
  taskctl calendar --day 2024-03-15`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			projectID, err := app.projectFilter(project)
			if err != nil {
				return err
			}
			now := app.now()
			loc := now.Location()
			opts := calendar.Options{
				ProjectID:  projectID,
				MaxVisible: app.cfg.MaxVisible,
				Now:        now,
				Location:   loc,
			}
			tasks := app.store.Tasks()

			switch {
			case day != "":
				d, err := parseDate(day, loc)
				if err != nil {
					return err
				}
				return app.printDay(tasks, d, projectID)
			case week:
				cells := calendar.WeekGrid(tasks, now, opts)
				if app.jsonOutput {
					return app.printJSON(cells)
				}
				for _, c := range cells {
					app.printCell(c)
				}
				return nil
			default:
				ref := now
				if month != "" {
					ref, err = time.ParseInLocation("2006-01", month, loc)
					if err != nil {
						return fmt.Errorf("invalid month %q (want YYYY-MM)", month)
					}
				}
				grid := calendar.MonthGrid(tasks, ref, opts)
				if app.jsonOutput {
					return app.printJSON(grid)
				}
				app.printMonth(grid)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to show, YYYY-MM (default current)")
	cmd.Flags().BoolVar(&week, "week", false, "Show the current week")
	cmd.Flags().StringVar(&day, "day", "", "Show all tasks due on one day, YYYY-MM-DD")
	cmd.Flags().StringVar(&project, "project", "", "Only this project (id or name)")
	return cmd
}

func (a *App) printMonth(m calendar.Month) {
	fmt.Fprintf(a.Out, "%s %d\n", m.Month, m.Year)
	fmt.Fprintln(a.Out, " Su  Mo  Tu  We  Th  Fr  Sa")
	var b strings.Builder
	b.WriteString(strings.Repeat("    ", m.Leading))
	for i, c := range m.Cells {
		mark := " "
		switch {
		case c.Today:
			mark = "*"
		case c.Total() > 0:
			mark = "+"
		}
		fmt.Fprintf(&b, "%3d%s", c.Date.Day(), mark)
		if (m.Leading+i)%7 == 6 {
			b.WriteString("\n")
		}
	}
	fmt.Fprintln(a.Out, strings.TrimRight(b.String(), "\n"))
	fmt.Fprintln(a.Out)

	for _, c := range m.Cells {
		if c.Total() > 0 {
			a.printCell(c)
		}
	}
}

func (a *App) printCell(c calendar.Cell) {
	label := formatDay(c.Date)
	if c.Today {
		label += " (today)"
	}
	if c.Total() == 0 {
		fmt.Fprintf(a.Out, "%s: -\n", label)
		return
	}
	titles := make([]string, 0, len(c.Tasks)+1)
	for _, t := range c.Tasks {
		titles = append(titles, taskLabel(t))
	}
	if more := c.MoreLabel(); more != "" {
		titles = append(titles, more)
	}
	fmt.Fprintf(a.Out, "%s: %s\n", label, strings.Join(titles, ", "))
}

func (a *App) printDay(tasks []models.Task, day time.Time, projectID string) error {
	due := calendar.TasksForDate(tasks, day, projectID, day.Location())
	summary := calendar.SummarizeDay(tasks, day, projectID, day.Location())
	if a.jsonOutput {
		return a.printJSON(map[string]any{"date": day, "tasks": due, "summary": summary})
	}
	fmt.Fprintf(a.Out, "%s: %d/%d done (%d%%)\n", formatDay(day), summary.Completed, summary.Total, summary.Percent)
	a.printTasks(due)
	return nil
}

func taskLabel(t models.Task) string {
	if t.Completed {
		return "[x] " + t.Title
	}
	return t.Title
}

func dashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Overview of today, overdue and upcoming work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			d := analytics.Summarize(app.store.Tasks(), app.now())
			if app.jsonOutput {
				return app.printJSON(d)
			}
			fmt.Fprintf(app.Out, "Total %d  Completed %d (%d%%)  Due today %d  Overdue %d  Next 7 days %d\n",
				d.Total, d.Completed, d.CompletionRate, d.DueToday, d.Overdue, d.Upcoming)
			if len(d.RecentOpen) > 0 {
				fmt.Fprintln(app.Out, "\nRecently updated:")
				app.printTasks(d.RecentOpen)
			}
			if len(d.NextDeadlines) > 0 {
				fmt.Fprintln(app.Out, "\nUpcoming deadlines:")
				app.printTasks(d.NextDeadlines)
			}
			return nil
		},
	}
}

// projectFilter maps a project flag to an id; "" and "all" mean every project.
func (a *App) projectFilter(ref string) (string, error) {
	if ref == "" || ref == "all" {
		return "", nil
	}
	p, err := a.resolveProject(ref)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}
