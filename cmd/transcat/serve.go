package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Veraticus/transcat/internal/cli"
	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/engine"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/stream"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Classify transactions arriving on the input stream",
		Long: `Consume the input stream through a consumer group and classify each
batch read from it.

Entries left unacknowledged by a previous run are processed first. Label
events go to the event stream and formatted summaries to the reply stream.
Run a single worker per group: it is the only writer of the record table.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cli.NewInterruptHandler(os.Stderr).
		HandleInterrupts(cmd.Context(), "Unacknowledged entries will be reprocessed on the next start.")
	sc := appCfg.Stream

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := redisClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	reader, err := stream.NewReader(client, stream.ReaderConfig{
		Stream:   sc.InputStream,
		Group:    sc.Group,
		Consumer: sc.Consumer,
		Block:    sc.Block,
	})
	if err != nil {
		return err
	}
	if err := reader.EnsureGroup(ctx); err != nil {
		return err
	}

	var events engine.EventEmitter
	if sc.EventStream != "" {
		events = stream.NewWriter(client, sc.EventStream)
	}
	eng, err := buildEngine(store, events)
	if err != nil {
		return err
	}

	var replies *stream.Writer
	if sc.ReplyStream != "" {
		replies = stream.NewWriter(client, sc.ReplyStream)
	}

	handler := func(ctx context.Context, txns []model.Transaction) error {
		var outcome *engine.Outcome
		err := common.WithRetry(ctx, func() error {
			var procErr error
			outcome, procErr = eng.Process(ctx, txns)
			return procErr
		}, storeRetry)
		if err != nil {
			return err
		}

		if replies == nil {
			return nil
		}
		for _, resp := range outcome.Responses {
			if err := replies.Reply(ctx, resp); err != nil {
				slog.Error("Failed to publish reply", "stream", replies.Stream(), "error", err)
			}
		}
		return nil
	}

	worker := stream.NewWorker(reader, handler, stream.WorkerConfig{
		BatchSize:     sc.BatchSize,
		SkipMalformed: appCfg.Pipeline.SkipMalformed,
	})

	slog.Info("Serving",
		"stream", sc.InputStream,
		"group", sc.Group,
		"consumer", sc.Consumer,
		"batch_size", sc.BatchSize)

	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	slog.Info("Worker stopped")
	return nil
}

// eventsCloser owns the Redis client behind an event writer, if any.
type eventsCloser struct {
	emitter engine.EventEmitter
	client  *redis.Client
}

func (e *eventsCloser) Close() {
	if e.client != nil {
		_ = e.client.Close()
	}
}

// openEventWriter connects the label event stream. Without a configured
// stream, events are only logged.
func openEventWriter(ctx context.Context) (*eventsCloser, error) {
	if appCfg.Stream.EventStream == "" {
		return &eventsCloser{}, nil
	}
	client, err := redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return &eventsCloser{
		emitter: stream.NewWriter(client, appCfg.Stream.EventStream),
		client:  client,
	}, nil
}
