package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

func newEngine() *LifecycleEngine {
	return NewLifecycleEngine(NewDefaultCancellationPolicy())
}

func TestLifecycle_CancelWithinWindow(t *testing.T) {
	b := newPending(t)
	at := createdAt.Add(12 * time.Hour)

	require.NoError(t, newEngine().Cancel(b, at, "client postponed"))

	assert.Equal(t, StatusCancelled, b.Status())
	require.NotNil(t, b.CancelledAt())
	assert.Equal(t, at, *b.CancelledAt())
	assert.Equal(t, "client postponed", b.CancelReason())
	assert.Equal(t, Money(25000), b.Ledger().AdvanceAmount())
}

func TestLifecycle_CancelAfterWindowLeavesBookingUntouched(t *testing.T) {
	b := newPending(t)
	before := *b

	err := newEngine().Cancel(b, createdAt.Add(12*time.Hour+time.Millisecond), "")

	assert.ErrorIs(t, err, apperror.ErrCancellationWindowExpired)
	assert.NotErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, before, *b)
}

func TestLifecycle_CancelTwiceIsInvalidTransition(t *testing.T) {
	b := newPending(t)
	e := newEngine()
	require.NoError(t, e.Cancel(b, createdAt, ""))

	err := e.Cancel(b, createdAt, "")

	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "cancelled", appErr.Details["current_status"])
	assert.Equal(t, "cancel", appErr.Details["operation"])
}

func TestLifecycle_CancelledExpiredStillReportsTransition(t *testing.T) {
	b := newPending(t)
	e := newEngine()
	require.NoError(t, e.Cancel(b, createdAt, ""))

	err := e.Cancel(b, createdAt.Add(48*time.Hour), "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestLifecycle_MarkFullyPaid(t *testing.T) {
	b := newPending(t)
	e := newEngine()
	at := createdAt.Add(time.Hour)

	require.NoError(t, e.MarkFullyPaid(b, at))

	assert.Equal(t, StatusConfirmed, b.Status())
	assert.Equal(t, Money(100000), b.Ledger().AdvanceAmount())
	assert.Equal(t, Money(0), b.Ledger().BalanceDue())
	require.NotNil(t, b.PaidAt())
	assert.Equal(t, at, *b.PaidAt())

	err := e.MarkFullyPaid(b, at)
	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
}

func TestLifecycle_ConfirmedCannotBeCancelled(t *testing.T) {
	b := newPending(t)
	e := newEngine()
	require.NoError(t, e.MarkFullyPaid(b, createdAt))
	before := *b

	err := e.Cancel(b, createdAt, "")

	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, before, *b)
}

func TestLifecycle_CancelledCannotBePaid(t *testing.T) {
	b := newPending(t)
	e := newEngine()
	require.NoError(t, e.Cancel(b, createdAt, ""))
	before := *b

	err := e.MarkFullyPaid(b, createdAt)

	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, before, *b)
}

func TestLifecycle_PendingWithFullDepositIsAlreadySettled(t *testing.T) {
	p := validParams()
	p.AdvanceAmount = p.FullAmount
	b, err := NewBooking(p)
	require.NoError(t, err)

	err = newEngine().MarkFullyPaid(b, createdAt)

	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
	assert.Equal(t, StatusPending, b.Status())
}

func TestLifecycle_InvariantsAcrossOperations(t *testing.T) {
	e := newEngine()
	ops := [][]Operation{
		{OpCancel, OpMarkFullyPaid, OpCancel},
		{OpMarkFullyPaid, OpCancel, OpMarkFullyPaid},
	}
	for _, seq := range ops {
		b := newPending(t)
		var terminal BookingStatus
		for _, op := range seq {
			switch op {
			case OpCancel:
				_ = e.Cancel(b, createdAt, "")
			case OpMarkFullyPaid:
				_ = e.MarkFullyPaid(b, createdAt)
			}
			l := b.Ledger()
			assert.GreaterOrEqual(t, int64(l.AdvanceAmount()), int64(0))
			assert.LessOrEqual(t, int64(l.AdvanceAmount()), int64(l.FullAmount()))
			if terminal != "" {
				assert.Equal(t, terminal, b.Status(), "terminal status must not change")
			}
			if b.Status().IsTerminal() {
				terminal = b.Status()
			}
		}
	}
}
