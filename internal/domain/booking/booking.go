package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for an event-services booking.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	providerID    uuid.UUID
	customer      Customer
	event         EventDetails
	packageName   string
	ledger        Ledger
	status        BookingStatus

	cancelledAt  *time.Time
	cancelReason string
	paidAt       *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams holds the validated inputs of a customer booking request.
type NewBookingParams struct {
	ProviderID    uuid.UUID
	Customer      Customer
	Event         EventDetails
	PackageName   string
	FullAmount    Money
	AdvanceAmount Money
	CreatedAt     time.Time
}

// generateBookingNumber creates a booking number in the format "EV-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "EV-" + string(result), nil
}

// Validate returns every rule the params violate. Blank strings count as
// missing.
func (p NewBookingParams) Validate() []apperror.FieldError {
	var errs []apperror.FieldError
	if p.ProviderID == uuid.Nil {
		errs = append(errs, required("provider_id"))
	}
	errs = append(errs, p.Customer.validate()...)
	errs = append(errs, p.Event.validate()...)
	if strings.TrimSpace(p.PackageName) == "" {
		errs = append(errs, required("package_name"))
	}
	_, ledgerErrs := NewLedger(p.FullAmount, p.AdvanceAmount)
	errs = append(errs, ledgerErrs...)
	if p.CreatedAt.IsZero() {
		errs = append(errs, required("created_at"))
	}
	return errs
}

// NewBooking creates a pending Booking. All violated fields are reported in one
// validation error.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if errs := p.Validate(); len(errs) > 0 {
		return nil, apperror.NewValidationError("invalid booking request", errs...)
	}
	ledger := Ledger{full: p.FullAmount, advance: p.AdvanceAmount}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := p.CreatedAt.UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		providerID:    p.ProviderID,
		customer:      p.Customer,
		event:         p.Event,
		packageName:   strings.TrimSpace(p.PackageName),
		ledger:        ledger,
		status:        StatusPending,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	providerID uuid.UUID,
	customer Customer,
	event EventDetails,
	packageName string,
	ledger Ledger,
	status BookingStatus,
	cancelledAt *time.Time,
	cancelReason string,
	paidAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		bookingNumber: bookingNumber,
		providerID:    providerID,
		customer:      customer,
		event:         event,
		packageName:   packageName,
		ledger:        ledger,
		status:        status,
		cancelledAt:   cancelledAt,
		cancelReason:  cancelReason,
		paidAt:        paidAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// ProviderID returns the owning provider.
func (b *Booking) ProviderID() uuid.UUID { return b.providerID }

// Customer returns who placed the booking.
func (b *Booking) Customer() Customer { return b.customer }

// Event returns the booked event's details.
func (b *Booking) Event() EventDetails { return b.event }

// PackageName returns the selected service package.
func (b *Booking) PackageName() string { return b.packageName }

// Ledger returns the payment ledger.
func (b *Booking) Ledger() Ledger { return b.ledger }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelReason returns the cancellation reason.
func (b *Booking) CancelReason() string { return b.cancelReason }

// PaidAt returns the time the balance was settled.
func (b *Booking) PaidAt() *time.Time { return b.paidAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsOwnedBy checks if the booking belongs to the given provider.
func (b *Booking) IsOwnedBy(providerID uuid.UUID) bool {
	return b.providerID == providerID
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
