// ABOUTME: Activity schedule CLI commands
// ABOUTME: Add, complete and list the activities planned on a deal
package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealflow/pipeline"
	"github.com/spf13/cobra"
)

// dueLayouts are accepted for --due, in local time unless a zone is given.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
}

func parseDue(s string) (time.Time, error) {
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due time %q (use YYYY-MM-DD HH:MM)", s)
}

func newSchedulesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedules",
		Aliases: []string{"activities"},
		Short:   "Manage activities planned on deals",
	}
	cmd.AddCommand(
		newSchedulesListCommand(app),
		newSchedulesAddCommand(app),
		newSchedulesDoneCommand(app),
		newSchedulesNextCommand(app),
	)
	return cmd
}

func newSchedulesListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <deal-id>",
		Short: "List a deal's activities in order",
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

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACTIVITY\tDUE\tSTATE")
			fmt.Fprintln(w, "--\t--------\t---\t-----")
			for _, s := range deal.ActivitySchedules {
				due := "-"
				if when := s.When(); when != nil {
					due = when.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.ActivityName, due, s.State())
			}
			return w.Flush()
		},
	}
}

func newSchedulesAddCommand(app *App) *cobra.Command {
	var due, activity, salesperson string

	cmd := &cobra.Command{
		Use:   "add <deal-id>",
		Short: "Schedule an activity on a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if due == "" {
				return pipeline.ErrDueDateRequired
			}
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}

			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			deal, _, err := board.Deal(args[0])
			if err != nil {
				return fmt.Errorf("deal %q: %w", args[0], err)
			}
			if salesperson == "" {
				salesperson = deal.Salesperson
			}

			sched, err := board.AddSchedule(cmd.Context(), deal.ID, dueAt, activity, salesperson, deal.CustomerName)
			if err != nil {
				return fmt.Errorf("failed to add activity: %w", err)
			}
			fmt.Fprintf(out, "✓ Activity scheduled: %s (ID: %s)\n", sched.ActivityName, sched.ID)
			fmt.Fprintf(out, "  Due: %s\n", dueAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "Due time, e.g. \"2024-03-11 14:00\" (required)")
	cmd.Flags().StringVar(&activity, "activity", "", "What needs to happen")
	cmd.Flags().StringVar(&salesperson, "salesperson", "", "Owner (default: the deal's salesperson)")
	return cmd
}

func newSchedulesDoneCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <deal-id> <schedule-id>",
		Short: "Toggle an activity between done and pending",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			completed, err := board.ToggleComplete(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to update activity: %w", err)
			}
			if completed {
				fmt.Fprintln(out, "✓ Activity marked done")
			} else {
				fmt.Fprintln(out, "✓ Activity reopened")
			}
			return nil
		},
	}
}

func newSchedulesNextCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "next <deal-id>",
		Short: "Show the activity a deal should do next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			next, err := board.NextScheduleFor(args[0])
			if err != nil {
				return fmt.Errorf("deal %q: %w", args[0], err)
			}
			if next == nil {
				fmt.Fprintln(out, "No open activities")
				return nil
			}

			when := next.When().Local()
			label := "due"
			if when.Before(time.Now()) {
				label = "overdue since"
			}
			fmt.Fprintf(out, "Next: %s (%s %s)\n", next.ActivityName, label, when.Format("2006-01-02 15:04"))
			return nil
		},
	}
}
