package cli

import (
	"fmt"

	"github.com/chepyr/go-task-planner/internal/apiclient"
	"github.com/spf13/cobra"
)

func loginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in and store the token in the config file",
		Example: `  taskctl login --email ada@example.com --password secret123`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return app.saveSession(session)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(app *App) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.client.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			return app.saveSession(session)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (at least 4 characters)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.cfg.Token = ""
			if err := app.cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintln(app.Out, "Logged out")
			return nil
		},
	}
}

func (a *App) saveSession(session apiclient.Session) error {
	a.cfg.Token = session.Token
	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if a.jsonOutput {
		return a.printJSON(map[string]any{"user": session.User, "token": session.Token})
	}
	fmt.Fprintf(a.Out, "Logged in as %s <%s>\n", session.User.Name, session.User.Email)
	return nil
}
