package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmturner/cinnamon/internal/cli"
	"github.com/jmturner/cinnamon/internal/classify"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the learned merchant memory",
	}

	cmd.AddCommand(memoryListCmd())
	cmd.AddCommand(memoryStatsCmd())
	cmd.AddCommand(memoryClearCmd())

	return cmd
}

func memoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned merchant keys and their categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, cleanup, err := initEngine(cmd.Context(), nil, engineConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			table := eng.Memory()
			if len(table) == 0 {
				fmt.Println(cli.InfoStyle.Render("Memory is empty. Run 'cinnamon train' or 'cinnamon learn' first."))
				return nil
			}

			keys := make([]string, 0, len(table))
			for key := range table {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Merchant"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Uses"),
				cli.TableHeaderStyle.Render("Last used"))

			for _, key := range keys {
				entry := table[key]
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					key, entry.Category, entry.UseCount, entry.LastUsed.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func memoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learned-state statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, cleanup, err := initEngine(cmd.Context(), nil, engineConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			table := eng.Memory()
			categories := make(map[string]int)
			for _, entry := range table {
				categories[entry.Category]++
			}

			fmt.Println(cli.FormatTitle("Learned state"))
			fmt.Printf("  Merchants:     %d\n", len(table))
			fmt.Printf("  Categories:    %d\n", len(categories))
			if eng.ModelTrained() {
				fmt.Printf("  Model:         %s\n", cli.SuccessStyle.Render("trained"))
			} else {
				fmt.Printf("  Model:         %s\n", cli.WarningStyle.Render("untrained"))
			}
			return nil
		},
	}
}

func memoryClearCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Erase all learned state",
		Long: `Remove the merchant memory and the trained model from disk. This
cannot be undone; the next predictions start from scratch.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear learned state without --yes")
			}

			learningStore, err := initLearningStore()
			if err != nil {
				return err
			}
			if err := learningStore.Save(classify.MemoryTable{}, nil); err != nil {
				return fmt.Errorf("failed to clear learned state: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Learned state cleared"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm erasing all learned state")

	return cmd
}
