// ABOUTME: Root cobra command and shared wiring for every subcommand
// ABOUTME: Loads configuration, builds the logger, and opens the cache, API client and board on demand
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/cache"
	"github.com/harperreed/dealflow/config"
	"github.com/harperreed/dealflow/logging"
	"github.com/harperreed/dealflow/merge"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App carries what the subcommands share. Everything is opened lazily.
type App struct {
	version string
	cfg     *config.Config
	logger  *zap.Logger
	store   *cache.Store
	client  *api.Client

	apiURL   string
	logLevel string
	logFile  string
}

// NewRootCommand builds the dealflow command tree.
func NewRootCommand(version string) *cobra.Command {
	root, _ := newRoot(version)
	return root
}

func newRoot(version string) (*cobra.Command, *App) {
	app := &App{version: version}

	root := &cobra.Command{
		Use:           "dealflow",
		Short:         "Sales pipeline board, activity scheduler and document history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[logToFileAnnotation] == "true" {
				app.logFile = boardLogPath()
			}
			return app.init()
		},
	}

	root.PersistentFlags().StringVar(&app.apiURL, "api-url", "", "API base URL (overrides config)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(app),
		newTokenCommand(app),
		newBoardCommand(app),
		newMCPCommand(app),
		newStagesCommand(app),
		newDealsCommand(app),
		newSchedulesCommand(app),
		newDocsCommand(app),
		newLoginCommand(app),
		newLogoutCommand(app),
		newVizCommand(app),
	)
	return root, app
}

// Execute runs the command tree against os.Args.
func Execute(version string) error {
	root, app := newRoot(version)
	defer app.close()

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func (a *App) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	var paths []string
	if a.logFile != "" {
		paths = []string{a.logFile}
	}
	logger, err := logging.New(cfg.LogLevel, paths...)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close cache", zap.Error(err))
		}
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// boardLogPath keeps TUI logs off the terminal.
func boardLogPath() string {
	return filepath.Join(xdg.StateHome, "dealflow", "board.log")
}

func (a *App) openStore() (*cache.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	dir := a.cfg.CacheDir
	if dir == "" {
		dir = cache.DefaultDir()
	}
	store, err := cache.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.store = store
	return store, nil
}

func (a *App) apiClient(out io.Writer) (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	opts := []api.Option{
		api.WithLogger(a.logger),
		api.WithUnauthorizedHandler(func() {
			fmt.Fprintln(out, "Session expired. Run 'dealflow login' to sign in again.")
		}),
	}
	if a.cfg.Token != "" {
		opts = append(opts, api.WithToken(a.cfg.Token))
	} else {
		store, err := a.openStore()
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithSession(store))
	}

	client, err := api.NewClient(a.cfg.APIURL, opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *App) loadBoard(ctx context.Context, out io.Writer, notifier pipeline.Notifier) (*pipeline.Board, error) {
	client, err := a.apiClient(out)
	if err != nil {
		return nil, err
	}
	board := pipeline.NewBoard(client, pipeline.Options{
		Logger:               a.logger,
		Notifier:             notifier,
		PersistScheduleOrder: a.cfg.PersistScheduleOrder,
	})
	if err := board.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	return board, nil
}

func (a *App) merger(out io.Writer) (*merge.Merger, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	client, err := a.apiClient(out)
	if err != nil {
		return nil, err
	}
	return &merge.Merger{Store: store, Source: client, Logger: a.logger}, nil
}
