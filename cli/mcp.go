// ABOUTME: MCP server subcommand
// ABOUTME: Serves the pipeline tools, resources and prompts over stdio
package cli

import (
	"fmt"

	"github.com/harperreed/dealflow/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMCPCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, so user-facing notices go to stderr.
			errOut := cmd.ErrOrStderr()
			board, err := app.loadBoard(cmd.Context(), errOut, nil)
			if err != nil {
				return err
			}
			merger, err := app.merger(errOut)
			if err != nil {
				return err
			}

			app.logger.Info("Starting MCP server", zap.String("api", app.cfg.APIURL))
			server := handlers.NewServer(board, merger, app.version)
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("MCP server failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}
