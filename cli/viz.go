// ABOUTME: Visualization CLI commands
// ABOUTME: Renders the pipeline as terminal bars or a Graphviz graph, and the dashboard
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/harperreed/dealflow/viz"
	"github.com/spf13/cobra"
)

func newVizCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Visualize the pipeline",
	}
	cmd.AddCommand(newVizPipelineCommand(app), newVizDashboardCommand(app))
	return cmd
}

func newVizPipelineCommand(app *App) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Render stages and their deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}

			var rendered string
			switch format {
			case "ascii":
				rendered = viz.RenderPipeline(board.Stages())
			case "dot":
				rendered, err = viz.PipelineDOT(cmd.Context(), board.Stages())
				if err != nil {
					return fmt.Errorf("failed to render graph: %w", err)
				}
			default:
				return fmt.Errorf("unknown format %q (use ascii or dot)", format)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				fmt.Fprintf(out, "✓ Pipeline written to %s\n", output)
				return nil
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "ascii", "Output format: ascii or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newVizDashboardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show pipeline totals and deals that need attention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			board, err := app.loadBoard(cmd.Context(), out, nil)
			if err != nil {
				return err
			}
			stats := viz.GenerateDashboardStats(board.Stages(), time.Now())
			fmt.Fprint(out, viz.RenderDashboard(stats))
			return nil
		},
	}
}
