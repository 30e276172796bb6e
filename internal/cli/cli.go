// Package cli implements the taskctl commands on top of the client core.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/apiclient"
	"github.com/chepyr/go-task-planner/internal/config"
	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/chepyr/go-task-planner/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in: run 'taskctl login' first")

// App holds what every command needs. Fields set before Execute override
// the defaults.
type App struct {
	Out        io.Writer
	Log        *logrus.Logger
	HTTPClient *http.Client
	Now        func() time.Time

	configPath string
	apiURL     string
	jsonOutput bool
	debug      bool

	cfg    *config.Client
	client *apiclient.Client
	store  *store.Store
}

// NewRootCmd builds the taskctl command tree.
func NewRootCmd(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Log == nil {
		app.Log = logrus.New()
		app.Log.SetOutput(os.Stderr)
		app.Log.SetLevel(logrus.WarnLevel)
	}
	if app.Now == nil {
		app.Now = time.Now
	}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "taskctl - manage tasks and projects from the terminal",
		Long:          `taskctl talks to the task planner API and keeps a local snapshot for offline reads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup()
		},
	}
	root.SetOut(app.Out)

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file (default $TASKCTL_CONFIG or ~/.config/taskctl/config.yaml)")
	root.PersistentFlags().StringVar(&app.apiURL, "api-url", "", "API base URL, overrides the config file")
	root.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVar(&app.debug, "debug", false, "Log requests to stderr")

	root.AddCommand(loginCmd(app))
	root.AddCommand(registerCmd(app))
	root.AddCommand(logoutCmd(app))
	root.AddCommand(tasksCmd(app))
	root.AddCommand(projectsCmd(app))
	root.AddCommand(analyticsCmd(app))
	root.AddCommand(calendarCmd(app))
	root.AddCommand(dashboardCmd(app))
	root.AddCommand(watchCmd(app))
	return root
}

func (a *App) setup() error {
	if a.debug {
		a.Log.SetLevel(logrus.DebugLevel)
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadClientFile(a.configPath)
	} else {
		a.cfg, err = config.LoadClient()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.apiURL != "" {
		a.cfg.APIURL = strings.TrimRight(a.apiURL, "/")
	}

	opts := []apiclient.Option{apiclient.WithToken(a.cfg.Token), apiclient.WithLogger(a.Log)}
	if a.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(a.HTTPClient))
	}
	a.client = apiclient.New(a.cfg.APIURL, opts...)
	a.store = store.New(a.client,
		store.WithLogger(a.Log),
		store.WithClock(a.Now),
		store.WithErrorTTL(a.cfg.ErrorTimeout()),
	)
	if err := a.store.LoadFile(a.cfg.StatePath()); err != nil {
		a.Log.WithError(err).Warn("ignoring local snapshot")
	}
	return nil
}

// sync refreshes the store from the server. When the server cannot be
// reached the cached snapshot is used instead.
func (a *App) sync(ctx context.Context) error {
	if a.cfg.Token == "" {
		return errNotLoggedIn
	}
	err := a.store.Load(ctx)
	if err == nil {
		a.persist()
		return nil
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w", apiErr.Message, errNotLoggedIn)
		}
		return err
	}
	a.Log.WithError(err).Warn("server unreachable, showing cached data")
	return nil
}

func (a *App) persist() {
	if err := a.store.SaveFile(a.cfg.StatePath()); err != nil {
		a.Log.WithError(err).Warn("could not save local snapshot")
	}
}

func (a *App) location() *time.Location {
	loc, err := a.cfg.Location()
	if err != nil {
		a.Log.WithError(err).Warn("unknown timezone, using local time")
		return time.Local
	}
	return loc
}

func (a *App) now() time.Time {
	return a.Now().In(a.location())
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveTask accepts a full id or a unique prefix of one.
func (a *App) resolveTask(ref string) (models.Task, error) {
	if t, ok := a.store.Task(ref); ok {
		return t, nil
	}
	var found []models.Task
	for _, t := range a.store.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return models.Task{}, fmt.Errorf("task %q: %w", ref, store.ErrTaskNotFound)
	case 1:
		return found[0], nil
	default:
		return models.Task{}, fmt.Errorf("task id %q is ambiguous (%d matches)", ref, len(found))
	}
}

// resolveProject accepts an id, an id prefix or a case-insensitive name.
func (a *App) resolveProject(ref string) (models.Project, error) {
	var found []models.Project
	for _, p := range a.store.Projects() {
		if p.ID == ref {
			return p, nil
		}
		if strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return models.Project{}, fmt.Errorf("project %q not found", ref)
	case 1:
		return found[0], nil
	default:
		return models.Project{}, fmt.Errorf("project %q is ambiguous (%d matches)", ref, len(found))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseDate reads YYYY-MM-DD in loc, or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
