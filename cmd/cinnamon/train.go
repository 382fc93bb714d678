package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmturner/cinnamon/internal/cli"
	"github.com/jmturner/cinnamon/internal/firefly"
	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/service"
)

const trainPageLimit = 500

func trainCmd() *cobra.Command {
	var (
		fetchWorkers int
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Bootstrap the learned state from categorized history",
		Long: `Fetch every withdrawal transaction from Firefly III and feed the ones
that already carry a category into the learning loop. Transactions that
were already trained on are skipped unless --force is given, so the
command is safe to re-run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			source, err := initFirefly()
			if err != nil {
				return err
			}

			eng, audit, cleanup, err := initEngine(ctx, source, engineConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println(cli.FormatTitle("Fetching transactions from Firefly"))
			transactions, err := fetchAllTransactions(ctx, source, fetchWorkers)
			if err != nil {
				return err
			}

			candidates := make([]model.Transaction, 0, len(transactions))
			for _, txn := range transactions {
				if txn.Category == "" || txn.Description == "" {
					continue
				}
				candidates = append(candidates, txn)
			}

			if len(candidates) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categorized transactions to train on."))
				return nil
			}

			bar := progressbar.NewOptions(len(candidates),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Training...[reset]"))

			var learned, skipped int
			for _, txn := range candidates {
				if err := ctx.Err(); err != nil {
					return err
				}

				if !force {
					trained, trainedErr := audit.IsTrained(ctx, txn.ID)
					if trainedErr != nil {
						return trainedErr
					}
					if trained {
						skipped++
						_ = bar.Add(1)
						continue
					}
				}

				event := model.LearningEvent{
					Transaction: txn,
					Category:    txn.Category,
					Tags:        txn.Tags,
				}
				if err := eng.Learn(ctx, event); err != nil {
					return fmt.Errorf("training failed on transaction %s: %w", txn.ID, err)
				}
				learned++
				_ = bar.Add(1)
			}
			_ = bar.Finish()
			fmt.Println()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Trained on %d transactions (%d already known), memory now holds %d merchants",
				learned, skipped, eng.MemorySize())))
			return nil
		},
	}

	cmd.Flags().IntVar(&fetchWorkers, "fetch-workers", 4, "concurrent page fetches")
	cmd.Flags().BoolVar(&force, "force", false, "retrain on transactions already marked as trained")

	return cmd
}

// fetchAllTransactions pages through the full transaction history. The
// first page is fetched alone to learn the page count; the rest come
// down concurrently.
func fetchAllTransactions(ctx context.Context, source *firefly.Client, workers int) ([]model.Transaction, error) {
	if workers <= 0 {
		workers = 1
	}

	first, err := source.ListTransactions(ctx, service.TransactionListOptions{Page: 1, Limit: trainPageLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	if first.TotalPages <= 1 {
		return first.Transactions, nil
	}

	pages := make([][]model.Transaction, first.TotalPages+1)
	pages[1] = first.Transactions

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for page := 2; page <= first.TotalPages; page++ {
		page := page
		g.Go(func() error {
			result, fetchErr := source.ListTransactions(gctx, service.TransactionListOptions{
				Page:  page,
				Limit: trainPageLimit,
			})
			if fetchErr != nil {
				return fmt.Errorf("failed to fetch page %d: %w", page, fetchErr)
			}
			mu.Lock()
			pages[page] = result.Transactions
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Transaction
	for _, page := range pages {
		all = append(all, page...)
	}
	return all, nil
}
