// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for listing, adding, moving and annotating deals
package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newDealsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Manage deals on the board",
	}
	cmd.AddCommand(
		newDealsListCommand(app),
		newDealsAddCommand(app),
		newDealsMoveCommand(app),
		newDealsDeleteCommand(app),
		newDealsNotesCommand(app),
	)
	return cmd
}

func newDealsListCommand(app *App) *cobra.Command {
	var stageRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals with their next activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}

			stages := board.Stages()
			if stageRef != "" {
				stage, err := board.FindStage(stageRef)
				if err != nil {
					return fmt.Errorf("stage %q: %w", stageRef, err)
				}
				stages = []models.Stage{stage}
			}

			now := time.Now()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTAGE\tAMOUNT\tNEXT\tNOTES")
			fmt.Fprintln(w, "--\t-----\t-----\t------\t----\t-----")
			for _, s := range stages {
				for _, d := range s.Deals {
					next := "-"
					if sched := pipeline.NextSchedule(d, now); sched != nil {
						next = fmt.Sprintf("%s (%s)", sched.ActivityName, sched.When().Local().Format("02 Jan 15:04"))
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
						d.ID, d.Title, s.Name, d.Amount.StringFixed(2), d.Currency, next, notes.PreviewLabel(d.Notes, now))
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&stageRef, "stage", "", "Only list this stage (id or name)")
	return cmd
}

func newDealsAddCommand(app *App) *cobra.Command {
	var (
		amount, currency, customer, priority, salesperson string
	)

	cmd := &cobra.Command{
		Use:   "add <stage> <title>",
		Short: "Add a deal to a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			value := decimal.Zero
			if amount != "" {
				var err error
				if value, err = decimal.NewFromString(amount); err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
			}

			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			stage, err := board.FindStage(args[0])
			if err != nil {
				return fmt.Errorf("stage %q: %w", args[0], err)
			}

			deal, err := board.AddDeal(cmd.Context(), stage.ID, models.Deal{
				Title:        args[1],
				CustomerName: customer,
				Amount:       value,
				Currency:     currency,
				Priority:     models.ParsePriority(priority),
				Salesperson:  salesperson,
			})
			if err != nil {
				return fmt.Errorf("failed to add deal: %w", err)
			}

			fmt.Fprintf(out, "✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
			fmt.Fprintf(out, "  Stage: %s\n", stage.Name)
			fmt.Fprintf(out, "  Amount: %s %s\n", deal.Amount.StringFixed(2), deal.Currency)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Deal amount, e.g. 12500.50")
	cmd.Flags().StringVar(&currency, "currency", "THB", "Currency")
	cmd.Flags().StringVar(&customer, "customer", "", "Customer name")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low, medium, high")
	cmd.Flags().StringVar(&salesperson, "salesperson", "", "Salesperson")
	return cmd
}

func newDealsMoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <deal-id> <stage>",
		Short: "Move a deal to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}

			fromID, index, err := board.DealPosition(args[0])
			if err != nil {
				return fmt.Errorf("deal %q: %w", args[0], err)
			}
			to, err := board.FindStage(args[1])
			if err != nil {
				return fmt.Errorf("stage %q: %w", args[1], err)
			}

			msg, err := board.MoveDeal(cmd.Context(), fromID, index, to.ID)
			if err != nil {
				return fmt.Errorf("failed to move deal: %w", err)
			}
			if msg == "" {
				fmt.Fprintf(out, "Deal is already in %s\n", to.Name)
				return nil
			}
			fmt.Fprintf(out, "✓ %s\n", msg)
			return nil
		},
	}
}

func newDealsDeleteCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <deal-id>",
		Short: "Delete a deal and its activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			deal, _, err := board.Deal(args[0])
			if err != nil {
				return fmt.Errorf("deal %q: %w", args[0], err)
			}
			if !yes && !confirmPrompt(cmd.InOrStdin(), out, fmt.Sprintf("Delete deal %q?", deal.Title)) {
				return pipeline.ErrNotConfirmed
			}
			if err := board.DeleteDeal(cmd.Context(), deal.ID); err != nil {
				return fmt.Errorf("failed to delete deal: %w", err)
			}
			fmt.Fprintf(out, "✓ Deal deleted: %s\n", deal.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newDealsNotesCommand(app *App) *cobra.Command {
	var (
		add     string
		attach  []string
		edit    int
		newText string
	)

	cmd := &cobra.Command{
		Use:   "notes <deal-id>",
		Short: "Show, add or edit a deal's dated notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			dealID := args[0]

			switch {
			case add != "" || len(attach) > 0:
				attachments, err := readAttachments(attach)
				if err != nil {
					return err
				}
				if _, err := board.AddNote(cmd.Context(), dealID, add, attachments); err != nil {
					return fmt.Errorf("failed to add note: %w", err)
				}
				fmt.Fprintln(out, "✓ Note added")
			case cmd.Flags().Changed("edit"):
				if _, err := board.EditNote(cmd.Context(), dealID, edit, newText); err != nil {
					return fmt.Errorf("failed to edit note: %w", err)
				}
				fmt.Fprintln(out, "✓ Note updated")
			}

			deal, _, err := board.Deal(dealID)
			if err != nil {
				return fmt.Errorf("deal %q: %w", dealID, err)
			}
			printNotes(out, deal)
			return nil
		},
	}
	cmd.Flags().StringVar(&add, "add", "", "Append a note")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "Attach a file to the new note (repeatable)")
	cmd.Flags().IntVar(&edit, "edit", 0, "Index of the note to rewrite")
	cmd.Flags().StringVar(&newText, "text", "", "New text for --edit; empty removes the note")
	return cmd
}

func printNotes(out io.Writer, deal models.Deal) {
	frags := notes.Decode(deal.Notes)
	if len(frags) == 0 {
		fmt.Fprintf(out, "No notes for %s\n", deal.Title)
		return
	}
	fmt.Fprintf(out, "Notes for %s:\n", deal.Title)
	for i, f := range frags {
		date := f.DateText
		if date == "" {
			date = "undated"
		}
		fmt.Fprintf(out, "  [%d] %s\n", i, date)
		for _, line := range strings.Split(f.Text, "\n") {
			fmt.Fprintf(out, "      %s\n", line)
		}
		for _, a := range f.Attachments {
			fmt.Fprintf(out, "      📎 %s (%s)\n", a.Name, a.Type)
		}
	}
}

func readAttachments(paths []string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		attachments = append(attachments, models.Attachment{
			Type: mimeType,
			Name: filepath.Base(p),
			Data: base64.StdEncoding.EncodeToString(data),
		})
	}
	return attachments, nil
}
