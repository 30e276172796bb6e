package cli

import (
	"fmt"

	"github.com/chepyr/go-task-planner/internal/apiclient"
	"github.com/spf13/cobra"
)

func watchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print task changes as they happen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Token == "" {
				return errNotLoggedIn
			}
			return app.client.Watch(cmd.Context(), func(ev apiclient.Event) {
				if app.jsonOutput {
					if err := app.printJSON(ev); err != nil {
						app.Log.WithError(err).Warn("print event")
					}
					return
				}
				title := ""
				if ev.Task != nil {
					title = ev.Task.Title
				}
				fmt.Fprintf(app.Out, "%-15s %s %s\n", ev.Type, shortID(ev.TaskID), title)
			})
		},
	}
}
