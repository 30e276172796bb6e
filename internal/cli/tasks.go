package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/chepyr/go-task-planner/internal/store"
	"github.com/spf13/cobra"
)

func tasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(listTasksCmd(app))
	cmd.AddCommand(addTaskCmd(app))
	cmd.AddCommand(updateTaskCmd(app))
	cmd.AddCommand(completeTaskCmd(app))
	cmd.AddCommand(deleteTaskCmd(app))
	return cmd
}

func listTasksCmd(app *App) *cobra.Command {
	var (
		search, project, sortBy, order string
		priorities, statuses, tags     []string
		hideCompleted, overdue, clear  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks with the saved filters and sort order.

Filter and sort flags are remembered in the local snapshot until --clear.`,
		Example: `  taskctl tasks list --priority high --hide-completed
  taskctl tasks list --sort dueDate --order asc
  taskctl tasks list --clear`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}

			f := app.store.Filters()
			if clear {
				f = store.Filters{}
			}
			flags := cmd.Flags()
			if flags.Changed("search") {
				f.Search = search
			}
			if flags.Changed("priority") {
				f.Priorities = nil
				for _, p := range priorities {
					prio := models.Priority(strings.ToLower(p))
					if !prio.Valid() {
						return fmt.Errorf("invalid priority %q", p)
					}
					f.Priorities = append(f.Priorities, prio)
				}
			}
			if flags.Changed("status") {
				f.Statuses = nil
				for _, s := range statuses {
					st := models.NormalizeStatus(s)
					if st == "" {
						return fmt.Errorf("invalid status %q", s)
					}
					f.Statuses = append(f.Statuses, st)
				}
			}
			if flags.Changed("tag") {
				f.Tags = tags
			}
			if flags.Changed("project") {
				f.Projects = nil
				if project != "" && project != "all" {
					p, err := app.resolveProject(project)
					if err != nil {
						return err
					}
					f.Projects = []string{p.ID}
				}
			}
			if flags.Changed("hide-completed") {
				show := !hideCompleted
				f.ShowCompleted = &show
			}
			if flags.Changed("overdue") {
				f.ShowOverdue = overdue
			}
			app.store.SetFilters(f)

			view := app.store.ViewSettings()
			if clear {
				view = store.DefaultViewSettings()
			}
			if flags.Changed("sort") {
				view.SortBy = store.SortField(sortBy)
			}
			if flags.Changed("order") {
				view.SortOrder = store.SortOrder(order)
			}
			app.store.SetViewSettings(view)
			app.persist()

			tasks := app.store.Visible()
			if app.jsonOutput {
				return app.printJSON(tasks)
			}
			app.printTasks(tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Match titles containing this text")
	cmd.Flags().StringSliceVar(&priorities, "priority", nil, "Only these priorities (low, medium, high)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only these statuses (todo, in-progress, done, cancelled)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Only tasks carrying one of these tags")
	cmd.Flags().StringVar(&project, "project", "", "Only tasks of this project (id or name, 'all' to reset)")
	cmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "Hide completed tasks")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "Only overdue tasks")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by createdAt, updatedAt, dueDate, priority or title")
	cmd.Flags().StringVar(&order, "order", "", "Sort order: asc or desc")
	cmd.Flags().BoolVar(&clear, "clear", false, "Reset saved filters and sorting first")
	return cmd
}

func addTaskCmd(app *App) *cobra.Command {
	var (
		description, priority, due, project string
		tags                                []string
	)
	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Create a task",
		Example: `  taskctl tasks add "Write report" --priority high --due 2024-03-15 --project Work`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			in := models.TaskInput{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    models.Priority(strings.ToLower(priority)),
				Tags:        tags,
			}
			if due != "" {
				d, err := parseDate(due, app.location())
				if err != nil {
					return err
				}
				in.DueDate = &d
			}
			if project != "" && project != "none" {
				p, err := app.resolveProject(project)
				if err != nil {
					return err
				}
				in.ProjectID = p.ID
			}

			task, err := app.store.AddTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(task)
			}
			fmt.Fprintf(app.Out, "Created task %s: %s\n", shortID(task.ID), task.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&project, "project", "", "Project id or name")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags")
	return cmd
}

func updateTaskCmd(app *App) *cobra.Command {
	var (
		title, description, priority, status, due, project string
		tags                                               []string
	)
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of a task",
		Example: `  taskctl tasks update 3f2a --status in-progress --due 2024-03-20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			task, err := app.resolveTask(args[0])
			if err != nil {
				return err
			}

			var patch models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p := models.Priority(strings.ToLower(priority))
				patch.Priority = &p
			}
			if flags.Changed("status") {
				s := models.TaskStatus(strings.ToLower(status))
				patch.Status = &s
			}
			if flags.Changed("due") {
				d, err := parseDate(due, app.location())
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			if flags.Changed("project") {
				id := ""
				if project != "" && project != "none" {
					p, err := app.resolveProject(project)
					if err != nil {
						return err
					}
					id = p.ID
				}
				patch.ProjectID = &id
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}

			updated, err := app.store.UpdateTask(cmd.Context(), task.ID, patch)
			if err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(updated)
			}
			fmt.Fprintf(app.Out, "Updated task %s: %s\n", shortID(updated.ID), updated.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&status, "status", "", "todo, in-progress, done or cancelled")
	cmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&project, "project", "", "Project id or name, 'none' to detach")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace the tags")
	return cmd
}

func completeTaskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <id>",
		Aliases: []string{"toggle", "done"},
		Short:   "Toggle the completed flag of a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			task, err := app.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := app.store.ToggleComplete(cmd.Context(), task.ID); err != nil {
				return err
			}
			app.persist()

			updated, _ := app.store.Task(task.ID)
			if app.jsonOutput {
				return app.printJSON(updated)
			}
			state := "open"
			if updated.Completed {
				state = "completed"
			}
			fmt.Fprintf(app.Out, "Task %s is now %s\n", shortID(updated.ID), state)
			return nil
		},
	}
}

func deleteTaskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			task, err := app.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := app.store.DeleteTask(cmd.Context(), task.ID); err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(map[string]any{"deleted": task.ID})
			}
			fmt.Fprintf(app.Out, "Deleted task %s\n", shortID(task.ID))
			return nil
		},
	}
}

func (a *App) printTasks(tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(a.Out, "No tasks found.")
		return
	}
	now := a.now()
	projects := make(map[string]string)
	for _, p := range a.store.Projects() {
		projects[p.ID] = p.Name
	}

	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tSTATUS\tDUE\tPROJECT\tTITLE")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.In(now.Location()).Format("2006-01-02")
			if t.IsOverdue(now) {
				due += " !"
			}
		}
		project := "-"
		if name, ok := projects[t.ProjectID]; ok {
			project = name
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), done, t.Priority, t.Status, due, project, t.Title)
	}
	w.Flush()
}

func formatDay(t time.Time) string {
	return t.Format("Mon Jan 2")
}
