package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/transcat/internal/cli"
)

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct <id> <category>",
		Short: "Change the category of a saved record",
		Long: `Replace the category of one saved record and emit a changed label
event. The id may be given as "2195" or in key form "2195-0".`,
		Args: cobra.ExactArgs(2),
		RunE: runCorrect,
	}
}

func runCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := openEventWriter(ctx)
	if err != nil {
		return err
	}
	defer events.Close()

	eng, err := buildEngine(store, events.emitter)
	if err != nil {
		return err
	}

	if err := eng.Correct(ctx, args[0], args[1]); err != nil {
		return err
	}

	resp, err := eng.ChosenCategory(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(resp.Message))
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the saved category of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := buildEngine(store, nil)
			if err != nil {
				return err
			}

			resp, err := eng.ChosenCategory(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}
