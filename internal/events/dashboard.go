package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rediscommon "github.com/dsocial118/SISOC-sub000/common/redis"
	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	counterPrefix = "dashboard:program:"
	seenPrefix    = "dashboard:seen:"
	seenTTL       = 24 * time.Hour
)

// CounterKey is the Redis key counting events of kind for programID.
func CounterKey(programID, kind string) string {
	return counterPrefix + programID + ":" + kind
}

type DashboardConfig struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// DashboardConsumer keeps per-program event counters from the case event stream.
// A per-event marker keeps an event that reaches the stream twice from being counted twice.
type DashboardConsumer struct {
	client *redis.Client
	kv     store.KV
	cfg    DashboardConfig
	logger *zap.Logger
}

func NewDashboardConsumer(client *redis.Client, kv store.KV, cfg DashboardConfig, logger *zap.Logger) *DashboardConsumer {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Group == "" {
		cfg.Group = "vaac-dashboard"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "dashboard-1"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Block == 0 {
		cfg.Block = 2 * time.Second
	}
	return &DashboardConsumer{client: client, kv: kv, cfg: cfg, logger: logger}
}

// Start consumes until ctx is done, backing off on read errors.
func (c *DashboardConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.client, c.cfg.Stream, c.cfg.Group); err != nil {
		return err
	}
	c.logger.Info("Dashboard consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("consumer_group", c.cfg.Group),
		zap.String("consumer_name", c.cfg.Consumer),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, err := c.ConsumeOnce(ctx)
		if err == nil {
			backoff = time.Second
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Error("Failed to consume case events", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// ConsumeOnce retries this consumer's unacknowledged entries, then reads one batch of
// new ones. Entries whose counter update fails stay pending and are retried on the next
// call; while any of them fail no new entries are read.
func (c *DashboardConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	pending, err := rediscommon.ReadPendingFromStream(ctx, c.client, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("read pending %s: %w", c.cfg.Stream, err)
	}
	handled, err := c.handle(ctx, pending)
	if err != nil {
		return handled, err
	}

	msgs, err := rediscommon.ReadFromStream(ctx, c.client, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, c.cfg.Block)
	if err != nil {
		return handled, fmt.Errorf("read %s: %w", c.cfg.Stream, err)
	}
	n, err := c.handle(ctx, msgs)
	return handled + n, err
}

// handle applies and acknowledges msgs. Undecodable entries are acknowledged and dropped.
func (c *DashboardConsumer) handle(ctx context.Context, msgs []rediscommon.StreamMessage) (int, error) {
	handled, failed := 0, 0
	for _, msg := range msgs {
		e, err := decodeStreamEvent(msg.Values)
		if err != nil {
			c.logger.Error("Dropping undecodable case event", zap.String("message_id", msg.ID), zap.Error(err))
		} else if err := c.apply(ctx, e); err != nil {
			c.logger.Warn("Failed to apply case event", zap.String("message_id", msg.ID), zap.Error(err))
			failed++
			continue
		}
		if err := rediscommon.Ack(ctx, c.client, c.cfg.Stream, c.cfg.Group, msg.ID); err != nil {
			return handled, fmt.Errorf("ack %s: %w", msg.ID, err)
		}
		if e != nil {
			handled++
		}
	}
	if failed > 0 {
		return handled, fmt.Errorf("%d case events left pending on %s", failed, c.cfg.Stream)
	}
	return handled, nil
}

// apply bumps the counter of e unless its marker says it was already counted.
// The marker is written only after the increment succeeds.
func (c *DashboardConsumer) apply(ctx context.Context, e *domain.CaseEvent) error {
	if e.ID != "" {
		_, err := c.kv.Get(ctx, seenPrefix+e.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrMiss) {
			return err
		}
	}
	program := e.ProgramID
	if program == "" {
		program = "none"
	}
	if _, err := c.kv.IncrBy(ctx, CounterKey(program, string(e.Kind)), 1); err != nil {
		return err
	}
	if e.ID != "" {
		if _, err := c.kv.SetNX(ctx, seenPrefix+e.ID, "1", seenTTL); err != nil {
			c.logger.Warn("Failed to mark case event counted", zap.String("event_id", e.ID), zap.Error(err))
		}
	}
	return nil
}

// Counters returns the event counts of programID keyed by event kind.
func Counters(ctx context.Context, kv store.KV, programID string) (map[string]int64, error) {
	prefix := counterPrefix + programID + ":"
	keys, err := kv.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		v, err := kv.Get(ctx, k)
		if errors.Is(err, store.ErrMiss) {
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", k, err)
		}
		out[strings.TrimPrefix(k, prefix)] = n
	}
	return out, nil
}
