// Package contracts holds the topics, event types and payloads exchanged
// with other services over kafka.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Event types produced on TopicBookingEvents.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingFullyPaid = "booking.fully_paid"
)

// Event types consumed from TopicPaymentEvents.
const (
	PaymentBalanceSettled = "payment.balance_settled"
)

// BookingCreatedEvent announces a new pending booking.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	ProviderID    uuid.UUID `json:"provider_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	PackageName   string    `json:"package_name"`
	EventDate     string    `json:"event_date"`
	FullAmount    string    `json:"full_amount"`
	AdvanceAmount string    `json:"advance_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent signals a cancellation for customer notification.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	ProviderID    uuid.UUID `json:"provider_id"`
	CancelledBy   uuid.UUID `json:"cancelled_by"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingFullyPaidEvent signals that the booking's balance was settled.
type BookingFullyPaidEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	ProviderID    uuid.UUID `json:"provider_id"`
	CustomerEmail string    `json:"customer_email"`
	FullAmount    string    `json:"full_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BalanceSettledEvent is emitted by the payment side once the remaining
// balance of a booking has been collected.
type BalanceSettledEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Amount     string    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}
