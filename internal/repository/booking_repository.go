package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/eventcraft/service-booking/internal/domain/booking"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/pagination"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber      string          `gorm:"uniqueIndex;not null;size:20"`
	ProviderID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status             string          `gorm:"not null;size:30;index;check:chk_bookings_status,status IN ('pending', 'confirmed', 'completed', 'cancelled')"`
	CustomerName       string          `gorm:"not null;size:200"`
	CustomerNIC        string          `gorm:"column:customer_nic;not null;size:50"`
	CustomerPhone      string          `gorm:"not null;size:50"`
	CustomerEmail      string          `gorm:"not null;size:254"`
	EventType          string          `gorm:"not null;size:100"`
	EventLocation      string          `gorm:"not null;size:200"`
	EventDate          time.Time       `gorm:"not null"`
	Event              json.RawMessage `gorm:"type:jsonb;not null"`
	PackageName        string          `gorm:"not null;size:200"`
	FullAmountCents    int64           `gorm:"not null;check:chk_bookings_full_amount,full_amount_cents > 0"`
	AdvanceAmountCents int64           `gorm:"not null;check:chk_bookings_advance_le_full,advance_amount_cents >= 0 AND advance_amount_cents <= full_amount_cents"`
	CancelledAt        *time.Time      `gorm:""`
	CancelReason       string          `gorm:"size:500"`
	PaidAt             *time.Time      `gorm:""`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null;index"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("booking", id.String())
		}
		return nil, apperror.NewStoreUnavailableError("find booking", err)
	}
	return toDomainBooking(&model)
}

// List retrieves bookings matching filter, newest first, with the total match count.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	page, limit := pagination.Normalize(filter.Page, filter.Limit)
	query := r.applyFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.NewStoreUnavailableError("count bookings", err)
	}

	var models []BookingModel
	if err := query.
		Order("created_at DESC").
		Order("id").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, apperror.NewStoreUnavailableError("list bookings", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

func (r *GormBookingRepository) applyFilter(query *gorm.DB, filter bookingDomain.ListFilter) *gorm.DB {
	if filter.ProviderID != nil {
		query = query.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query = query.Where(
			r.db.Where("booking_number ILIKE ?", pattern).
				Or("customer_name ILIKE ?", pattern).
				Or("customer_nic ILIKE ?", pattern).
				Or("customer_phone ILIKE ?", pattern).
				Or("customer_email ILIKE ?", pattern).
				Or("event_type ILIKE ?", pattern).
				Or("event_location ILIKE ?", pattern).
				Or("package_name ILIKE ?", pattern),
		)
	}
	return query
}

// escapeLike makes user text literal inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, apperror.NewStoreUnavailableError("count bookings by status", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return apperror.NewInternalError("failed to convert booking to model", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConflictError("booking already exists")
		}
		return apperror.NewStoreUnavailableError("save booking", err)
	}
	return nil
}

// Update persists the mutable columns of an existing booking in a single
// statement guarded by the version read earlier.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return apperror.NewInternalError("failed to convert booking to model", err)
	}

	// IncrementVersion was already called, so the stored row is one behind.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":               model.Status,
			"advance_amount_cents": model.AdvanceAmountCents,
			"cancelled_at":         model.CancelledAt,
			"cancel_reason":        model.CancelReason,
			"paid_at":              model.PaidAt,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})

	if result.Error != nil {
		return apperror.NewStoreUnavailableError("update booking", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperror.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	eventJSON, err := json.Marshal(bk.Event())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event details: %w", err)
	}

	customer := bk.Customer()
	event := bk.Event()
	ledger := bk.Ledger()
	return &BookingModel{
		ID:                 bk.ID(),
		BookingNumber:      bk.BookingNumber(),
		ProviderID:         bk.ProviderID(),
		Status:             string(bk.Status()),
		CustomerName:       customer.Name,
		CustomerNIC:        customer.NIC,
		CustomerPhone:      customer.Phone,
		CustomerEmail:      customer.Email,
		EventType:          event.Type,
		EventLocation:      event.LocationName,
		EventDate:          event.Date,
		Event:              eventJSON,
		PackageName:        bk.PackageName(),
		FullAmountCents:    int64(ledger.FullAmount()),
		AdvanceAmountCents: int64(ledger.AdvanceAmount()),
		CancelledAt:        bk.CancelledAt(),
		CancelReason:       bk.CancelReason(),
		PaidAt:             bk.PaidAt(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var event bookingDomain.EventDetails
	if err := json.Unmarshal(m.Event, &event); err != nil {
		return nil, apperror.NewInternalError("failed to unmarshal event details", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, apperror.NewInternalError("stored booking has unknown status", err)
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.ProviderID,
		bookingDomain.Customer{
			Name:  m.CustomerName,
			NIC:   m.CustomerNIC,
			Phone: m.CustomerPhone,
			Email: m.CustomerEmail,
		},
		event,
		m.PackageName,
		bookingDomain.ReconstructLedger(bookingDomain.Money(m.FullAmountCents), bookingDomain.Money(m.AdvanceAmountCents)),
		status,
		utcPtr(m.CancelledAt),
		m.CancelReason,
		utcPtr(m.PaidAt),
		m.Version,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
