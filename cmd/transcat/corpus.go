package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/transcat/internal/cli"
	"github.com/Veraticus/transcat/internal/corpus"
	"github.com/Veraticus/transcat/internal/model"
)

const importChunkSize = 500

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Seed the record store from a labeled CSV file",
		Long: `Import labeled records (id, description, category, amount,
operation_date, type) into the record store.

Records are appended in id order. Ids at or below the highest stored id are
skipped, so importing the same file twice adds nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("delimiter", ",", "CSV field delimiter")
	cmd.Flags().Bool("dry-run", false, "Parse the file without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	delim, err := delimiterFlag(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	records, err := corpus.ReadFile(args[0], delim)
	if err != nil {
		return err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Parsed %d records from %s", len(records), args[0])))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing records...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	inserted, skipped := 0, 0
	for start := 0; start < len(records); start += importChunkSize {
		end := min(start+importChunkSize, len(records))
		res, err := store.AppendRecords(ctx, records[start:end])
		if err != nil {
			return fmt.Errorf("failed to import records %d-%d: %w", start+1, end, err)
		}
		inserted += len(res.Inserted)
		skipped += res.Skipped
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	slog.Info("Import complete", "file", args[0], "inserted", inserted, "skipped", skipped)
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d records (%d already present)", inserted, skipped)))
	return nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Dump the record store to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	cmd.Flags().String("delimiter", ",", "CSV field delimiter")
	cmd.Flags().Bool("labeled-only", false, "Only export records with a category")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	delim, err := delimiterFlag(cmd)
	if err != nil {
		return err
	}
	labeledOnly, _ := cmd.Flags().GetBool("labeled-only")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var records []model.CategoryRecord
	if labeledOnly {
		records, err = store.LoadHistorical(ctx)
	} else {
		records, err = store.LoadAll(ctx)
	}
	if err != nil {
		return err
	}

	if err := corpus.WriteFile(args[0], records, delim); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d records to %s", len(records), args[0])))
	return nil
}

func delimiterFlag(cmd *cobra.Command) (rune, error) {
	s, _ := cmd.Flags().GetString("delimiter")
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}
