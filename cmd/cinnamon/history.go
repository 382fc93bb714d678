package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmturner/cinnamon/internal/cli"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent prediction history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			audit, err := initAudit(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = audit.Close() }()

			records, err := audit.RecentPredictions(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to load prediction history: %w", err)
			}

			if len(records) == 0 {
				fmt.Println(cli.InfoStyle.Render("No predictions recorded yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("When"),
				cli.TableHeaderStyle.Render("Description"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Source"),
				cli.TableHeaderStyle.Render("Confidence"),
				cli.TableHeaderStyle.Render("Auto"))

			for _, rec := range records {
				auto := ""
				if rec.AutoApproved {
					auto = cli.SuccessIcon
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate(rec.Description, 40),
					rec.Category,
					sourceLabel(rec.Source),
					rec.Confidence*100,
					auto)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "number of records to show")

	return cmd
}
