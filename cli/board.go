// ABOUTME: Interactive board subcommand
// ABOUTME: Opens the kanban TUI over the optimistic pipeline board
package cli

import (
	"github.com/harperreed/dealflow/tui"
	"github.com/spf13/cobra"
)

// logToFileAnnotation marks commands whose logs must stay off the terminal.
const logToFileAnnotation = "dealflow/log-to-file"

func newBoardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "board",
		Aliases:     []string{"tui"},
		Short:       "Open the interactive pipeline board",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{logToFileAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			notices := tui.NewNotices()
			board, err := app.loadBoard(cmd.Context(), cmd.ErrOrStderr(), notices)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), board, notices)
		},
	}
}
