// ABOUTME: Login and logout commands
// ABOUTME: Verifies an API token against the server and keeps it in the local cache
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the API with a token",
		Long: `Prompts for an API token, checks it against the server and stores it in
the local cache. Passing --api-url also saves that URL to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			token, err := readToken(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("token is required")
			}

			client, err := api.NewClient(app.cfg.APIURL, api.WithToken(token), api.WithLogger(app.logger))
			if err != nil {
				return err
			}
			if _, err := client.ListStages(cmd.Context()); err != nil {
				return fmt.Errorf("token was not accepted: %w", err)
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			if err := store.SetToken(cmd.Context(), token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			if cmd.Flags().Changed("api-url") {
				if err := config.Save(app.cfg); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
			}

			fmt.Fprintf(out, "✓ Logged in to %s\n", app.cfg.APIURL)
			return nil
		},
	}
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			if err := store.ClearToken(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

// readToken prompts without echo on a terminal and reads a plain line otherwise.
func readToken(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "API token: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
