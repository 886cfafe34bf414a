package booking

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

var createdAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func validParams() NewBookingParams {
	return NewBookingParams{
		ProviderID: uuid.New(),
		Customer: Customer{
			Name:  "Nadeesha Perera",
			NIC:   "199012345678",
			Phone: "+94771234567",
			Email: "nadeesha@example.com",
		},
		Event: EventDetails{
			Type:         "wedding",
			Date:         time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
			LocationName: "Lakeside Hall",
			Address:      "12 Lake Rd, Kandy",
			CrowdSize:    250,
		},
		PackageName:   "Gold Catering",
		FullAmount:    100000,
		AdvanceAmount: 25000,
		CreatedAt:     createdAt,
	}
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(validParams())
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	b := newPending(t)

	assert.NotEqual(t, uuid.Nil, b.ID())
	assert.Regexp(t, regexp.MustCompile(`^EV-[A-HJ-NP-Z2-9]{6}$`), b.BookingNumber())
	assert.Equal(t, StatusPending, b.Status())
	assert.Equal(t, int64(1), b.Version())
	assert.Equal(t, createdAt, b.CreatedAt())
	assert.Equal(t, Money(75000), b.Ledger().BalanceDue())
	assert.Nil(t, b.CancelledAt())
	assert.Nil(t, b.PaidAt())
}

func TestNewBooking_ReportsEveryViolation(t *testing.T) {
	p := NewBookingParams{
		Event:         EventDetails{Notes: strings.Repeat("x", 1001), Coordinator: &Coordinator{}},
		FullAmount:    0,
		AdvanceAmount: -1,
	}

	_, err := NewBooking(p)
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)

	fields := make(map[string]bool)
	for _, f := range appErr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{
		"provider_id",
		"customer.name", "customer.nic", "customer.phone", "customer.email",
		"event.type", "event.date", "event.location_name", "event.address",
		"event.crowd_size", "event.coordinator", "event.notes",
		"package_name", "full_amount", "advance_amount", "created_at",
	} {
		assert.True(t, fields[want], "missing violation for %s", want)
	}
}

func TestNewBooking_AdvanceExceedsFull(t *testing.T) {
	p := validParams()
	p.AdvanceAmount = p.FullAmount + 1

	_, err := NewBooking(p)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "advance_amount", appErr.Fields[0].Field)
}

func TestNewBooking_ZeroAdvanceAllowed(t *testing.T) {
	p := validParams()
	p.AdvanceAmount = 0

	b, err := NewBooking(p)
	require.NoError(t, err)
	assert.Equal(t, p.FullAmount, b.Ledger().BalanceDue())
}

func TestBookingStatus(t *testing.T) {
	next, ok := StatusPending.Next(OpCancel)
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, next)

	next, ok = StatusPending.Next(OpMarkFullyPaid)
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, next)

	for _, s := range []BookingStatus{StatusConfirmed, StatusCancelled, StatusCompleted} {
		assert.True(t, s.IsTerminal(), s)
		_, ok := s.Next(OpCancel)
		assert.False(t, ok, s)
	}
	assert.False(t, StatusPending.IsTerminal())

	_, err := ParseBookingStatus("Active")
	assert.Error(t, err)
	s, err := ParseBookingStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
}
