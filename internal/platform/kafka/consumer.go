package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one message. Returning an error wrapped with
// backoff.Permanent skips retries.
type HandlerFunc func(ctx context.Context, msg kafkago.Message) error

// Consumer reads a topic within a consumer group.
type Consumer struct {
	reader     *kafkago.Reader
	logger     *zap.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewConsumer creates a Consumer for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		logger:     logger,
		maxRetries: 5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Consume blocks, handing each message to handler until ctx is cancelled.
// Messages are committed once handled or once retries are exhausted.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("giving up on message",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler HandlerFunc, msg kafkago.Message) error {
	return Retry(ctx, c.newBackOff(), c.maxRetries, func() error {
		return handler(ctx, msg)
	}, func(err error, next time.Duration) {
		c.logger.Warn("message handler failed, retrying",
			zap.Int64("offset", msg.Offset),
			zap.Duration("next_attempt_in", next),
			zap.Error(err),
		)
	})
}

// Retry runs op with exponential backoff up to maxRetries extra attempts.
// Errors wrapped with backoff.Permanent stop immediately and are unwrapped.
func Retry(ctx context.Context, b backoff.BackOff, maxRetries uint64, op func() error, notify backoff.Notify) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
	err := backoff.RetryNotify(op, policy, notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
