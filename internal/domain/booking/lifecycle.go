package booking

import (
	"fmt"
	"time"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

// LifecycleEngine validates and applies status transitions. Every guard is
// checked before any field changes, so a rejected operation leaves the
// booking untouched.
type LifecycleEngine struct {
	policy CancellationPolicy
}

// NewLifecycleEngine creates an engine consulting policy for cancellations.
func NewLifecycleEngine(policy CancellationPolicy) *LifecycleEngine {
	return &LifecycleEngine{policy: policy}
}

// Cancel moves a pending booking to cancelled if the cancellation window is still open.
func (e *LifecycleEngine) Cancel(b *Booking, now time.Time, reason string) error {
	next, ok := b.status.Next(OpCancel)
	if !ok {
		return apperror.NewInvalidTransitionError(string(b.status), string(OpCancel))
	}
	if !e.policy.IsCancellable(b.createdAt, now) {
		deadline := b.createdAt.Add(e.policy.Window())
		return apperror.NewCancellationWindowExpiredError(
			fmt.Sprintf("bookings can only be cancelled within %s of creation", e.policy.Window()),
			map[string]string{
				"created_at":   b.createdAt.Format(time.RFC3339),
				"cancel_until": deadline.Format(time.RFC3339),
			},
		)
	}

	now = now.UTC()
	b.status = next
	b.cancelledAt = &now
	b.cancelReason = reason
	b.updatedAt = now
	return nil
}

// MarkFullyPaid settles the ledger and confirms the booking in one step.
func (e *LifecycleEngine) MarkFullyPaid(b *Booking, now time.Time) error {
	if b.status == StatusCancelled {
		return apperror.NewInvalidTransitionError(string(b.status), string(OpMarkFullyPaid))
	}
	settled, err := b.ledger.Settle()
	if err != nil {
		return err
	}
	next, ok := b.status.Next(OpMarkFullyPaid)
	if !ok {
		return apperror.NewInvalidTransitionError(string(b.status), string(OpMarkFullyPaid))
	}

	now = now.UTC()
	b.ledger = settled
	b.status = next
	b.paidAt = &now
	b.updatedAt = now
	return nil
}
