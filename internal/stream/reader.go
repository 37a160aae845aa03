package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/transcat/internal/common"
)

// ReaderConfig names the consumer group position of a reader.
type ReaderConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block bounds how long ReadNew waits for entries. Zero or negative
	// means DefaultBlock.
	Block time.Duration
}

// DefaultBlock is the ReadNew wait used when none is configured.
const DefaultBlock = 5 * time.Second

// Reader consumes a stream through a consumer group.
type Reader struct {
	client *redis.Client
	config ReaderConfig
}

// NewReader creates a reader. EnsureGroup must succeed before the first read.
func NewReader(client *redis.Client, config ReaderConfig) (*Reader, error) {
	if config.Stream == "" || config.Group == "" || config.Consumer == "" {
		return nil, fmt.Errorf("%w: stream, group and consumer are required", common.ErrInvalidConfig)
	}
	if config.Block <= 0 {
		config.Block = DefaultBlock
	}
	return &Reader{client: client, config: config}, nil
}

// Stream returns the stream name.
func (r *Reader) Stream() string {
	return r.config.Stream
}

// EnsureGroup creates the consumer group, and the stream with it, reading
// from the beginning. An existing group is left as is.
func (r *Reader) EnsureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.config.Stream, r.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create group %s on %s: %w", r.config.Group, r.config.Stream, wrapRedisError(err))
	}
	return nil
}

// ReadNew returns up to count entries never delivered to the group.
func (r *Reader) ReadNew(ctx context.Context, count int64) ([]redis.XMessage, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.config.Group,
		Consumer: r.config.Consumer,
		Streams:  []string{r.config.Stream, ">"},
		Count:    count,
		Block:    r.config.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.config.Stream, wrapRedisError(err))
	}

	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

// ReadPending returns up to count entries delivered to this consumer but
// never acknowledged, oldest first. Entries trimmed from the stream meanwhile
// are acknowledged and dropped.
func (r *Reader) ReadPending(ctx context.Context, count int64) ([]redis.XMessage, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   r.config.Stream,
		Group:    r.config.Group,
		Start:    "-",
		End:      "+",
		Count:    count,
		Consumer: r.config.Consumer,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pending on %s: %w", r.config.Stream, wrapRedisError(err))
	}

	out := make([]redis.XMessage, 0, len(pending))
	var gone []string
	for _, p := range pending {
		msgs, err := r.client.XRangeN(ctx, r.config.Stream, p.ID, p.ID, 1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pending entry %s: %w", p.ID, wrapRedisError(err))
		}
		if len(msgs) == 0 {
			gone = append(gone, p.ID)
			continue
		}
		out = append(out, msgs[0])
	}
	if len(gone) > 0 {
		if err := r.Ack(ctx, gone...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Ack acknowledges processed entries.
func (r *Reader) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.config.Stream, r.config.Group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to ack %d entries: %w", len(ids), wrapRedisError(err))
	}
	return nil
}

// wrapRedisError marks connection failures as retryable.
func wrapRedisError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return common.WrapStoreError(err)
}
