// ABOUTME: Business document CLI commands
// ABOUTME: Lists merged local and server documents, and forgets local drafts
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/dealflow/models"
	"github.com/spf13/cobra"
)

func newDocsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Quotations, invoices, billing notes, tax invoices and purchase orders",
	}
	cmd.AddCommand(newDocsListCommand(app), newDocsForgetCommand(app))
	return cmd
}

func newDocsListCommand(app *App) *cobra.Command {
	var customer string

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List documents of one kind, local drafts included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			kind, err := models.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			merger, err := app.merger(out)
			if err != nil {
				return err
			}

			docs, err := merger.List(cmd.Context(), kind)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tCUSTOMER\tDATE\tSOURCE")
			fmt.Fprintln(w, "------\t--------\t----\t------")
			for _, d := range docs {
				if customer != "" && d.Customer != customer {
					continue
				}
				date := d.Details.Date
				if kind == models.KindPurchaseOrder && d.ExtraFields.OrderDate != "" {
					date = d.ExtraFields.OrderDate
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Number, d.Customer, date, d.Source)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Only documents for this customer")
	return cmd
}

func newDocsForgetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <kind> <number>",
		Short: "Remove a local invoice or billing note draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			kind, err := models.ParseDocumentKind(args[0])
			if err != nil {
				return err
			}
			merger, err := app.merger(out)
			if err != nil {
				return err
			}
			if err := merger.Forget(cmd.Context(), kind, args[1]); err != nil {
				return fmt.Errorf("failed to forget document: %w", err)
			}
			fmt.Fprintf(out, "✓ Local %s %s forgotten\n", kind, args[1])
			return nil
		},
	}
}
