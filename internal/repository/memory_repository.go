package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	bookingDomain "github.com/eventcraft/service-booking/internal/domain/booking"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/pagination"
)

// MemoryBookingRepository keeps bookings in process memory. It honours the
// same version contract as the GORM store and hands out copies, so callers
// never share an aggregate with the store.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]bookingDomain.Booking
	numbers  map[string]uuid.UUID
}

// NewMemoryBookingRepository creates an empty in-memory store.
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[uuid.UUID]bookingDomain.Booking),
		numbers:  make(map[string]uuid.UUID),
	}
}

// FindByID retrieves a booking by its unique identifier.
func (r *MemoryBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewStoreUnavailableError("find booking", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	bk, ok := r.bookings[id]
	if !ok {
		return nil, apperror.NewNotFoundError("booking", id.String())
	}
	return &bk, nil
}

// List retrieves bookings matching filter, newest first, with the total match count.
func (r *MemoryBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, apperror.NewStoreUnavailableError("list bookings", err)
	}
	page, limit := pagination.Normalize(filter.Page, filter.Limit)
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	r.mu.RLock()
	matched := make([]*bookingDomain.Booking, 0, len(r.bookings))
	for _, bk := range r.bookings {
		if filter.ProviderID != nil && bk.ProviderID() != *filter.ProviderID {
			continue
		}
		if filter.Status != nil && bk.Status() != *filter.Status {
			continue
		}
		if query != "" && !matchesQuery(&bk, query) {
			continue
		}
		cp := bk
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt().Equal(matched[j].CreatedAt()) {
			return matched[i].CreatedAt().After(matched[j].CreatedAt())
		}
		return matched[i].ID().String() < matched[j].ID().String()
	})

	total := int64(len(matched))
	start := pagination.Offset(page, limit)
	if start >= len(matched) {
		return []*bookingDomain.Booking{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func matchesQuery(bk *bookingDomain.Booking, query string) bool {
	c := bk.Customer()
	e := bk.Event()
	for _, field := range []string{
		bk.BookingNumber(), c.Name, c.NIC, c.Phone, c.Email,
		e.Type, e.LocationName, bk.PackageName(),
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// CountByStatus returns booking counts grouped by status.
func (r *MemoryBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewStoreUnavailableError("count bookings by status", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

// Save persists a new booking.
func (r *MemoryBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewStoreUnavailableError("save booking", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[bk.ID()]; exists {
		return apperror.NewConflictError("booking already exists")
	}
	if _, exists := r.numbers[bk.BookingNumber()]; exists {
		return apperror.NewConflictError("booking already exists")
	}
	r.bookings[bk.ID()] = *bk
	r.numbers[bk.BookingNumber()] = bk.ID()
	return nil
}

// Update replaces a stored booking if its version is still the one read.
func (r *MemoryBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewStoreUnavailableError("update booking", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bookings[bk.ID()]
	if !ok {
		return apperror.NewNotFoundError("booking", bk.ID().String())
	}
	if current.Version() != bk.Version()-1 {
		return apperror.NewConflictError("booking was modified by another transaction")
	}
	r.bookings[bk.ID()] = *bk
	return nil
}
