package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmturner/cinnamon/internal/cli"
	"github.com/jmturner/cinnamon/internal/model"
)

func learnCmd() *cobra.Command {
	var noApply bool

	cmd := &cobra.Command{
		Use:   "learn <transaction-id> <category>",
		Short: "Confirm a category for a transaction",
		Long: `Record a confirmed (transaction, category) pair. The merchant memory
and statistical model are updated immediately, and the category is
written back to Firefly unless --no-apply is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			transactionID, category := args[0], args[1]

			source, err := initFirefly()
			if err != nil {
				return err
			}

			eng, _, cleanup, err := initEngine(ctx, source, engineConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			txn, err := source.GetTransaction(ctx, transactionID)
			if err != nil {
				return fmt.Errorf("failed to fetch transaction: %w", err)
			}

			categories, err := source.Categories(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch categories: %w", err)
			}
			if !model.ContainsCategory(categories, category) {
				return fmt.Errorf("category %q does not exist in Firefly", category)
			}

			manualTags := model.MergeTags(txn.Tags, engineConfig().AutoApprove.ManualTags)
			if !noApply {
				if err := source.UpdateTransaction(ctx, transactionID, category, manualTags); err != nil {
					return fmt.Errorf("failed to update transaction: %w", err)
				}
			}

			event := model.LearningEvent{
				Transaction:       *txn,
				Category:          category,
				SuggestedCategory: txn.Category,
				Tags:              manualTags,
			}
			if err := eng.Learn(ctx, event); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Learned %q → %s", txn.Description, category)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noApply, "no-apply", false, "learn without writing the category back to Firefly")

	return cmd
}
