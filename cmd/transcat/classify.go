package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/transcat/internal/cli"
	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/stream"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <records.json>",
		Short: "Classify a batch of inbound transactions from a file",
		Long: `Run one batch through the pipeline and print the result.

The file holds a JSON array of records in the stream format:

  [{"key": "1714550400000-0", "type": "SETTLEMENT", "operation_id": 1,
    "data": {"amount": "-12,99", "operation_date": "01-05-2024",
             "card": "5375...", "place": "Zabka NANO Warszawa"}}]

Predictions are saved and label events are published to stream.event_stream.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	txns, err := readRecordFile(args[0])
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return common.ErrNoTransactions
	}

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

	outcome, err := eng.Process(ctx, txns)
	if err != nil {
		return err
	}

	for _, resp := range outcome.Responses {
		fmt.Println(cli.RenderResponse(resp))
	}
	for _, r := range outcome.Rejected {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("[%s] skipped: %v", r.Key, r.Err)))
	}
	return nil
}

func readRecordFile(path string) ([]model.Transaction, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []stream.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	txns := make([]model.Transaction, 0, len(records))
	for _, rec := range records {
		txn, err := rec.Transaction()
		if err != nil {
			if appCfg.Pipeline.SkipMalformed {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("[%s] skipped: %v", rec.Key, err)))
				continue
			}
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}
