package booking

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a booking listing. Zero values mean "no filter".
type ListFilter struct {
	ProviderID *uuid.UUID
	Status     *BookingStatus
	Query      string
	Page       int
	Limit      int
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// List retrieves bookings matching filter, newest first, with the total match count.
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	// The stored version must equal booking.Version()-1.
	Update(ctx context.Context, booking *Booking) error
}
