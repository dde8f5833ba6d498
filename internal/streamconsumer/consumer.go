// Package streamconsumer implements at-least-once consumption of a
// Redis stream inside a named consumer group, with pending-message
// recovery on restart and idle-message reclaim from dead siblings.
// It is built on github.com/redis/go-redis/v9's XReadGroup/XAck/
// XAutoClaim surface. The two-cooperating-goroutines-plus-stop-signal
// shape is the natural Go rendering: one goroutine per role (read loop,
// claimer), sharing a context.Context cancellation as the stop signal.
package streamconsumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aman-news/searchcore/internal/apperrors"
)

// Handler processes one stream message's payload. It must be idempotent:
// at-least-once delivery means the same payload can arrive more than once.
type Handler func(ctx context.Context, payload string) error

// Config configures one Consumer.
type Config struct {
	// Stream is the input stream name (default "analyzer_articles").
	Stream string
	// Group is the consumer group name (default "searcher_api").
	Group string
	// PayloadField is the message field carrying the callback payload
	// (the `done` field of each notification).
	PayloadField string

	BatchSize     int64
	BlockTimeout  time.Duration
	IdleThreshold time.Duration
	ClaimInterval time.Duration
	Backoff       apperrors.BackoffConfig

	Logger *slog.Logger
}

// DefaultConfig fills in the deployment defaults.
func DefaultConfig() Config {
	return Config{
		Stream:        "analyzer_articles",
		Group:         "searcher_api",
		PayloadField:  "done",
		BatchSize:     10,
		BlockTimeout:  10 * time.Second,
		IdleThreshold: 1000 * time.Millisecond,
		ClaimInterval: 5000 * time.Millisecond,
		Backoff:       apperrors.DefaultStreamBackoff(),
	}
}

// Consumer is a single logical consumer inside cfg.Group. It is not safe
// for concurrent Run calls.
type Consumer struct {
	client       *redis.Client
	cfg          Config
	consumerName string
	handler      Handler
	logger       *slog.Logger
}

// New builds a Consumer with a unique ephemeral consumer name
// "<group>_<random>".
func New(client *redis.Client, cfg Config, handler Handler) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Consumer{
		client:       client,
		cfg:          cfg,
		consumerName: fmt.Sprintf("%s_%s", cfg.Group, uuid.NewString()),
		handler:      handler,
		logger:       cfg.Logger,
	}
}

// Run ensures the consumer group exists, then drives the read loop and a
// background claimer until ctx is cancelled, the single cooperative
// shutdown signal. It returns once both have stopped.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.claimLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		c.readLoop(ctx)
	}()

	wg.Wait()
	return nil
}

// ensureGroup idempotently creates cfg.Group on cfg.Stream.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return apperrors.Startup(fmt.Sprintf("creating consumer group %q on stream %q", c.cfg.Group, c.cfg.Stream), err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// readLoop runs the consumer's main cycle: own-pending recovery, then
// new-messages-only reads, invoking the handler and acking on success.
// Connection errors reopen with capped exponential backoff.
func (c *Consumer) readLoop(ctx context.Context) {
	checkPending := true
	lastID := "0"
	backoff := apperrors.NewBackoff(c.cfg.Backoff)

	for {
		if ctx.Err() != nil {
			return
		}

		cursor := ">"
		if checkPending {
			cursor = lastID
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.consumerName,
			Streams:  []string{c.cfg.Stream, cursor},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.BlockTimeout,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				if checkPending {
					checkPending = false
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("stream read failed, reconnecting", "error", err, "stream", c.cfg.Stream)
			if werr := backoff.Wait(ctx); werr != nil {
				return
			}
			continue
		}
		backoff.Reset()

		messages := flattenMessages(streams)
		if len(messages) == 0 {
			if checkPending {
				checkPending = false
			}
			continue
		}

		for _, msg := range messages {
			c.handleMessage(ctx, msg)
			if checkPending {
				lastID = msg.ID
			}
		}
	}
}

func flattenMessages(streams []redis.XStream) []redis.XMessage {
	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out
}

// handleMessage invokes the user callback; on success it acks, on failure
// it logs and leaves the message pending for redelivery
// redelivered later: delivery is at-least-once.
func (c *Consumer) handleMessage(ctx context.Context, msg redis.XMessage) {
	payload, _ := msg.Values[c.cfg.PayloadField].(string)

	if err := c.handler(ctx, payload); err != nil {
		c.logger.Error("stream callback failed, leaving message pending",
			"error", err, "message_id", msg.ID, "stream", c.cfg.Stream)
		return
	}

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		c.logger.Error("acking stream message failed", "error", err, "message_id", msg.ID)
	}
}

// claimLoop periodically reassigns messages idle longer than
// cfg.IdleThreshold to this consumer.
func (c *Consumer) claimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.claimOnce(ctx)
		}
	}
}

func (c *Consumer) claimOnce(ctx context.Context) {
	start := "0-0"
	for {
		messages, cursor, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.consumerName,
			MinIdle:  c.cfg.IdleThreshold,
			Start:    start,
			Count:    c.cfg.BatchSize,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("auto-claim failed", "error", err, "stream", c.cfg.Stream)
			}
			return
		}
		for _, msg := range messages {
			c.handleMessage(ctx, msg)
		}
		if cursor == "0-0" || len(messages) == 0 {
			return
		}
		start = cursor
	}
}
