package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/transcat/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		RunE:  runCategories,
	}

	cmd.Flags().Bool("totals", false, "Show the summed amount per category")

	return cmd
}

func runCategories(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	totals, _ := cmd.Flags().GetBool("totals")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if totals {
		sums, err := store.CategoryTotals(ctx)
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatTitle("Category totals"))
		fmt.Print(cli.RenderTotals(sums))
		return nil
	}

	names, err := store.Categories(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(cli.FormatInfo("No categorized records yet. Seed the store with: transcat import <file.csv>"))
		return nil
	}
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%d categories", len(names))))
	fmt.Println(strings.Join(names, "\n"))
	return nil
}
