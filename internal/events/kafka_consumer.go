package events

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/eventcraft/service-booking/internal/application"
	"github.com/eventcraft/service-booking/internal/contracts"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/kafka"
)

// BalanceSettler confirms a booking once its balance has been collected.
// *application.BookingService satisfies it.
type BalanceSettler interface {
	MarkFullyPaid(ctx context.Context, bookingID, actorProviderID uuid.UUID) (*application.BookingDTO, error)
}

// PaymentEventConsumer listens to payment events and confirms settled bookings.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  BalanceSettler
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service BalanceSettler,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case contracts.PaymentBalanceSettled:
		return c.handleBalanceSettled(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleBalanceSettled(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.BalanceSettledEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse BalanceSettledEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}
	if evt.BookingID == uuid.Nil || evt.ProviderID == uuid.Nil {
		c.logger.Error("balance settled event is missing booking or provider id",
			zap.String("event_id", cloudEvent.ID),
		)
		return nil
	}

	log := c.logger.With(
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("provider_id", evt.ProviderID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
	)
	log.Info("processing balance settled event")

	_, err := c.service.MarkFullyPaid(ctx, evt.BookingID, evt.ProviderID)
	switch {
	case err == nil:
		log.Info("booking confirmed after balance settlement")
		return nil
	case errors.Is(err, apperror.ErrStoreUnavailable), errors.Is(err, apperror.ErrConflict):
		log.Warn("transient failure confirming booking", zap.Error(err))
		return err
	case errors.Is(err, apperror.ErrAlreadySettled):
		log.Info("booking already settled, acknowledging duplicate event")
		return nil
	case errors.Is(err, apperror.ErrInvalidTransition),
		errors.Is(err, apperror.ErrForbidden),
		errors.Is(err, apperror.ErrNotFound):
		log.Warn("balance settlement rejected", zap.Error(err))
		return nil
	default:
		log.Error("unexpected failure confirming booking", zap.Error(err))
		return backoff.Permanent(err)
	}
}
