package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmturner/cinnamon/internal/cli"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories defined in Firefly III",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			source, err := initFirefly()
			if err != nil {
				return err
			}

			categories, err := source.Categories(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories defined in Firefly."))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d categories", len(categories))))
			for _, name := range categories {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}
}
