package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/spf13/cobra"
)

func projectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(listProjectsCmd(app))
	cmd.AddCommand(addProjectCmd(app))
	cmd.AddCommand(updateProjectCmd(app))
	cmd.AddCommand(deleteProjectCmd(app))
	return cmd
}

func listProjectsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with their task counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			projects := app.store.Projects()
			if app.jsonOutput {
				return app.printJSON(projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(app.Out, "No projects found.")
				return nil
			}

			type counts struct{ total, done int }
			byProject := make(map[string]*counts)
			for _, t := range app.store.Tasks() {
				c := byProject[t.ProjectID]
				if c == nil {
					c = &counts{}
					byProject[t.ProjectID] = c
				}
				c.total++
				if t.Completed {
					c.done++
				}
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOLOR\tTASKS\tDONE")
			for _, p := range projects {
				c := byProject[p.ID]
				if c == nil {
					c = &counts{}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", shortID(p.ID), p.Name, p.Color, c.total, c.done)
			}
			return w.Flush()
		},
	}
}

func addProjectCmd(app *App) *cobra.Command {
	var description, color string
	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Create a project",
		Example: `  taskctl projects add Work --color "#3B82F6"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			p, err := app.store.AddProject(cmd.Context(), models.ProjectInput{
				Name:        args[0],
				Description: description,
				Color:       color,
			})
			if err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(p)
			}
			fmt.Fprintf(app.Out, "Created project %s: %s\n", shortID(p.ID), p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.Flags().StringVar(&color, "color", "", "Display color as #RRGGBB")
	return cmd
}

func updateProjectCmd(app *App) *cobra.Command {
	var name, description, color string
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			p, err := app.resolveProject(args[0])
			if err != nil {
				return err
			}
			var patch models.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			updated, err := app.store.UpdateProject(cmd.Context(), p.ID, patch)
			if err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(updated)
			}
			fmt.Fprintf(app.Out, "Updated project %s: %s\n", shortID(updated.ID), updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&color, "color", "", "New color as #RRGGBB")
	return cmd
}

func deleteProjectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a project; its tasks keep their reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sync(cmd.Context()); err != nil {
				return err
			}
			p, err := app.resolveProject(args[0])
			if err != nil {
				return err
			}
			if err := app.store.DeleteProject(cmd.Context(), p.ID); err != nil {
				return err
			}
			app.persist()
			if app.jsonOutput {
				return app.printJSON(map[string]any{"deleted": p.ID})
			}
			fmt.Fprintf(app.Out, "Deleted project %s\n", p.Name)
			return nil
		},
	}
}
