// ABOUTME: Server-side CLI commands
// ABOUTME: Runs the REST API over SQLite and manages the API tokens it accepts
package cli

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *App) openDatabase() (*sql.DB, string, error) {
	path := a.cfg.DBPath
	if path == "" {
		path = db.DefaultPath()
	}
	database, err := db.OpenDatabase(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	return database, path, nil
}

func newServeCommand(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, path, err := app.openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			repos := db.NewRepositories(database)
			if err := repos.Stages.Seed(cmd.Context(), models.DefaultStages); err != nil {
				return fmt.Errorf("failed to seed stages: %w", err)
			}

			if addr == "" {
				addr = app.cfg.Addr
			}
			app.logger.Info("Database ready", zap.String("path", path))

			count, err := repos.Tokens.Count(cmd.Context())
			if err != nil {
				return err
			}
			if count == 0 {
				app.logger.Warn("No API tokens issued; the API is open. Run 'dealflow token issue' to require one")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return web.NewServer(repos, app.logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func newTokenCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens accepted by the server",
	}

	var label string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withRepos(func(repos *db.Repositories) error {
				token, err := repos.Tokens.Issue(cmd.Context(), label)
				if err != nil {
					return fmt.Errorf("failed to issue token: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Token issued: %s\n", token)
				fmt.Fprintln(cmd.OutOrStdout(), "  Give it to 'dealflow login' on each client")
				return nil
			})
		},
	}
	issue.Flags().StringVar(&label, "label", "", "Label to remember the token by")

	revoke := &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke an API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withRepos(func(repos *db.Repositories) error {
				if err := repos.Tokens.Revoke(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to revoke token: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Token revoked")
				return nil
			})
		},
	}

	cmd.AddCommand(issue, revoke)
	return cmd
}

func (a *App) withRepos(fn func(*db.Repositories) error) error {
	database, _, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()
	return fn(db.NewRepositories(database))
}
