package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"git.sr.ht/~jakintosh/tasknet/internal/app"
	"git.sr.ht/~jakintosh/tasknet/internal/config"
	"git.sr.ht/~jakintosh/tasknet/pkg/api"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeAuthRequired = 2
)

var ErrNotLoggedIn = errors.New("not logged in")

// cli holds state shared by the commands of one invocation.
type cli struct {
	configPath string
	apiURL     string
	store      string
	storePath  string
	logLevel   string

	app *app.App
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	log.SetOutput(stderr)

	err := root.Execute()
	if closeErr := c.close(); closeErr != nil && err == nil {
		fmt.Fprintf(stderr, "Error: %v\n", closeErr)
		return ExitCodeError
	}
	if err != nil {
		return exitCode(err)
	}
	return ExitCodeSuccess
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tasknet",
		Short: "Command-line client for the TaskNet API",
		Long: `tasknet talks to the TaskNet API with stored credentials.

The API location comes from TASKNET_API_URL (or --api-url), falling back to
the hosted backend. Expired access credentials are refreshed automatically;
when the refresh credential is rejected the stored credentials are cleared
and you need to log in again.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file (default $TASKNET_CONFIG)")
	flags.StringVar(&c.apiURL, "api-url", "", "API base URL (overrides $TASKNET_API_URL)")
	flags.StringVar(&c.store, "store", "", "credential store: file, sqlite or memory")
	flags.StringVar(&c.storePath, "store-path", "", "credential store location")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: none, error, info or debug")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newStatusCmd(c),
		newTokenCmd(c),
		newGetCmd(c),
	)
	return root
}

// open builds the app on first use, so help and flag errors never touch
// the credential store.
func (c *cli) open() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.apiURL != "" {
		cfg.BaseURL = c.apiURL
	}
	if c.store != "" {
		cfg.Store = c.store
	}
	if c.storePath != "" {
		cfg.StorePath = c.storePath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	cfg = cfg.Normalized()

	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func exitCode(err error) int {
	var refreshErr *transport.RefreshError
	switch {
	case errors.Is(err, ErrNotLoggedIn),
		errors.Is(err, api.ErrUnauthorized),
		errors.As(err, &refreshErr):
		return ExitCodeAuthRequired
	default:
		return ExitCodeError
	}
}

func authRequired(err error) error {
	return fmt.Errorf("%w, run 'tasknet login'", err)
}
