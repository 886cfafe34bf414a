package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventcraft/service-booking/internal/application"
	"github.com/eventcraft/service-booking/internal/contracts"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/kafka"
)

type stubSettler struct {
	err             error
	bookingID       uuid.UUID
	actorProviderID uuid.UUID
	calls           int
}

func (s *stubSettler) MarkFullyPaid(_ context.Context, bookingID, actorProviderID uuid.UUID) (*application.BookingDTO, error) {
	s.calls++
	s.bookingID = bookingID
	s.actorProviderID = actorProviderID
	if s.err != nil {
		return nil, s.err
	}
	return &application.BookingDTO{ID: bookingID, Status: "confirmed"}, nil
}

func settledMessage(t *testing.T, evt contracts.BalanceSettledEvent) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-payment", contracts.PaymentBalanceSettled, evt)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: contracts.TopicPaymentEvents, Value: raw}
}

func newTestConsumer(settler BalanceSettler) *PaymentEventConsumer {
	return &PaymentEventConsumer{service: settler, logger: zap.NewNop()}
}

func TestHandleBalanceSettled_CallsMarkFullyPaidAsProvider(t *testing.T) {
	settler := &stubSettler{}
	c := newTestConsumer(settler)
	evt := contracts.BalanceSettledEvent{
		PaymentID:  uuid.New(),
		BookingID:  uuid.New(),
		ProviderID: uuid.New(),
		Amount:     "750.00",
	}

	err := c.handleMessage(context.Background(), settledMessage(t, evt))

	require.NoError(t, err)
	assert.Equal(t, 1, settler.calls)
	assert.Equal(t, evt.BookingID, settler.bookingID)
	assert.Equal(t, evt.ProviderID, settler.actorProviderID)
}

func TestHandleBalanceSettled_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		permanent bool
	}{
		{"already settled is acked", apperror.NewAlreadySettledError("paid"), false, false},
		{"invalid transition is acked", apperror.NewInvalidTransitionError("cancelled", "mark_fully_paid"), false, false},
		{"forbidden is acked", apperror.NewForbiddenError("not yours"), false, false},
		{"not found is acked", apperror.NewNotFoundError("booking", "x"), false, false},
		{"store unavailable is retried", apperror.NewStoreUnavailableError("update", errors.New("timeout")), true, false},
		{"conflict is retried", apperror.NewConflictError("raced"), true, false},
		{"unexpected is permanent", errors.New("boom"), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(&stubSettler{err: tt.err})
			msg := settledMessage(t, contracts.BalanceSettledEvent{BookingID: uuid.New(), ProviderID: uuid.New()})

			err := c.handleMessage(context.Background(), msg)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perm *backoff.PermanentError
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
		})
	}
}

func TestHandleMessage_SkipsMalformedAndForeignEvents(t *testing.T) {
	settler := &stubSettler{}
	c := newTestConsumer(settler)

	assert.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: []byte("not json")}))

	ce, err := kafka.NewCloudEvent("service-payment", "payment.refunded", map[string]string{"booking_id": uuid.NewString()})
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	assert.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: raw}))

	assert.NoError(t, c.handleMessage(context.Background(), settledMessage(t, contracts.BalanceSettledEvent{})))

	assert.Zero(t, settler.calls)
}

func TestHandleBalanceSettled_RetriedUntilStoreRecovers(t *testing.T) {
	settler := &stubSettler{err: apperror.NewStoreUnavailableError("update", errors.New("timeout"))}
	c := newTestConsumer(settler)
	msg := settledMessage(t, contracts.BalanceSettledEvent{BookingID: uuid.New(), ProviderID: uuid.New()})

	attempts := 0
	err := kafka.Retry(context.Background(), &backoff.ZeroBackOff{}, 5, func() error {
		attempts++
		if attempts == 3 {
			settler.err = nil
		}
		return c.handleMessage(context.Background(), msg)
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, settler.calls)
}
