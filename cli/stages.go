// ABOUTME: Stage CLI commands
// ABOUTME: List, add, rename, reorder and delete pipeline stages
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/dealflow/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newStagesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Manage pipeline stages",
	}
	cmd.AddCommand(
		newStagesListCommand(app),
		newStagesAddCommand(app),
		newStagesRenameCommand(app),
		newStagesReorderCommand(app),
		newStagesDeleteCommand(app),
	)
	return cmd
}

func newStagesListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stages in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tDEALS\tTOTAL\tID")
			fmt.Fprintln(w, "-\t----\t-----\t-----\t--")
			for i, s := range board.Stages() {
				total := decimal.Zero
				for _, d := range s.Deals {
					total = total.Add(d.Amount)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i, s.Name, len(s.Deals), total.StringFixed(2), s.ID)
			}
			return w.Flush()
		},
	}
}

func newStagesAddCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a stage at the end of the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			id, err := board.AddStage(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to add stage: %w", err)
			}
			fmt.Fprintf(out, "✓ Stage added: %s (ID: %s)\n", strings.TrimSpace(args[0]), id)
			return nil
		},
	}
}

func newStagesRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <stage> <new-name>",
		Short: "Rename a stage; its deals follow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			stage, err := board.FindStage(args[0])
			if err != nil {
				return fmt.Errorf("stage %q: %w", args[0], err)
			}
			if err := board.EditStageName(cmd.Context(), stage.ID, args[1]); err != nil {
				return fmt.Errorf("failed to rename stage: %w", err)
			}
			fmt.Fprintf(out, "✓ Renamed %s to %s\n", stage.Name, strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newStagesReorderCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <stage> <position>",
		Short: "Move a stage to a zero-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}

			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			stage, err := board.FindStage(args[0])
			if err != nil {
				return fmt.Errorf("stage %q: %w", args[0], err)
			}

			stages := board.Stages()
			if to < 0 || to >= len(stages) {
				return fmt.Errorf("position must be between 0 and %d", len(stages)-1)
			}
			from := 0
			for i, s := range stages {
				if s.ID == stage.ID {
					from = i
				}
			}

			reorderErr := board.ReorderStages(cmd.Context(), from, to)

			names := make([]string, 0, len(stages))
			for _, s := range board.Stages() {
				names = append(names, s.Name)
			}
			fmt.Fprintf(out, "Order: %s\n", strings.Join(names, " → "))
			if reorderErr != nil {
				return fmt.Errorf("some stages were not saved: %w", reorderErr)
			}
			fmt.Fprintln(out, "✓ Stage order saved")
			return nil
		},
	}
}

func newStagesDeleteCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <stage>",
		Short: "Delete a stage and every deal in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			stage, err := board.FindStage(args[0])
			if err != nil {
				return fmt.Errorf("stage %q: %w", args[0], err)
			}

			confirm := func(s models.Stage) bool {
				if yes {
					return true
				}
				return confirmPrompt(cmd.InOrStdin(), out,
					fmt.Sprintf("Delete stage %q and its %d deals?", s.Name, len(s.Deals)))
			}
			if err := board.DeleteStage(cmd.Context(), stage.ID, confirm); err != nil {
				return fmt.Errorf("failed to delete stage: %w", err)
			}
			fmt.Fprintf(out, "✓ Stage deleted: %s\n", stage.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirmPrompt asks a yes/no question; anything but y/yes is no.
func confirmPrompt(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
