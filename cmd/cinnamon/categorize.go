package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmturner/cinnamon/internal/cli"
	"github.com/jmturner/cinnamon/internal/engine"
	"github.com/jmturner/cinnamon/internal/model"
)

func categorizeCmd() *cobra.Command {
	var (
		startDate string
		endDate   string
		inputFile string
		page      int
		limit     int
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Predict categories for Firefly transactions",
		Long: `Fetch a page of withdrawal transactions from Firefly III (or read them
from a JSON file with --input) and stream category predictions for
them. Transactions that already have a category pass through
unchanged. With --apply and a configured approval threshold, strong
predictions are written back to Firefly immediately.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			source, err := initFirefly()
			if err != nil {
				return err
			}

			cfg := engineConfig()
			if !apply {
				// Predictions only; nothing is committed upstream.
				cfg.AutoApprove.Threshold = 0
			}

			eng, _, cleanup, err := initEngine(ctx, source, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var txns []model.Transaction
			if inputFile != "" {
				txns, err = readTransactionFile(inputFile)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatTitle(fmt.Sprintf("Categorizing %d transactions from %s",
					len(txns), inputFile)))
			} else {
				opts, optsErr := listOptions(startDate, endDate, page, limit)
				if optsErr != nil {
					return optsErr
				}

				txnPage, listErr := source.ListTransactions(ctx, opts)
				if listErr != nil {
					return fmt.Errorf("failed to fetch transactions: %w", listErr)
				}
				txns = txnPage.Transactions
				fmt.Println(cli.FormatTitle(fmt.Sprintf("Categorizing %d transactions (page %d/%d)",
					len(txns), txnPage.Page, txnPage.TotalPages)))
			}

			if len(txns) == 0 {
				fmt.Println(cli.InfoStyle.Render("No transactions found."))
				return nil
			}

			categories, err := source.Categories(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch categories: %w", err)
			}

			return streamResults(ctx, eng, txns, categories)
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&inputFile, "input", "", "JSON file with transactions to categorize instead of fetching")
	cmd.Flags().IntVar(&page, "page", 1, "page of transactions to fetch")
	cmd.Flags().IntVar(&limit, "limit", 50, "transactions per page")
	cmd.Flags().BoolVar(&apply, "apply", false, "write auto-approved categories back to Firefly")

	return cmd
}

// readTransactionFile loads a JSON array of transactions.
func readTransactionFile(path string) ([]model.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var txns []model.Transaction
	if err := json.Unmarshal(data, &txns); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return txns, nil
}

func streamResults(ctx context.Context, eng *engine.Engine, txns []model.Transaction, categories []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Date"),
		cli.TableHeaderStyle.Render("Description"),
		cli.TableHeaderStyle.Render("Amount"),
		cli.TableHeaderStyle.Render("Category"))

	for event := range eng.PredictBatch(ctx, txns, categories) {
		switch event.Type {
		case engine.EventResult:
			printResult(w, txns, event.Result)
		case engine.EventError:
			_ = w.Flush()
			return fmt.Errorf("categorization stream failed: %s", event.Err)
		case engine.EventDone:
			_ = w.Flush()
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Processed %d transactions", len(txns))))
		}
	}

	if err := ctx.Err(); err != nil {
		fmt.Println(cli.FormatWarning("Categorization interrupted"))
	}
	return nil
}

func printResult(w *tabwriter.Writer, txns []model.Transaction, result *engine.Result) {
	txn := findTransaction(txns, result.TransactionID)
	fmt.Fprintf(w, "%s\t%s\t%.2f %s\t%s\n",
		txn.Date.Format("2006-01-02"),
		truncate(txn.Description, 48),
		txn.Amount,
		txn.Currency,
		formatCategory(result))
}

func formatCategory(result *engine.Result) string {
	switch {
	case result.AutoApproved:
		return cli.SuccessStyle.Render(result.ExistingCategory + " " + cli.SuccessIcon + " auto")
	case result.ExistingCategory != "":
		return cli.SubtleStyle.Render(result.ExistingCategory)
	case result.Prediction != nil:
		return fmt.Sprintf("%s %s",
			cli.BoldStyle.Render(result.Prediction.Category),
			cli.SubtleStyle.Render(fmt.Sprintf("(%s %.0f%%)",
				sourceLabel(result.Prediction.Source), result.Prediction.Confidence*100)))
	default:
		return cli.WarningStyle.Render("Unknown")
	}
}

func sourceLabel(source model.Source) string {
	switch source {
	case model.SourceMemoryExact:
		return "memory"
	case model.SourceMemoryFuzzy:
		return "fuzzy"
	case model.SourceStatistical:
		return "stats"
	case model.SourceLLM:
		return "llm"
	default:
		return string(source)
	}
}

func findTransaction(txns []model.Transaction, id string) model.Transaction {
	for i := range txns {
		if txns[i].ID == id {
			return txns[i]
		}
	}
	return model.Transaction{ID: id}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
