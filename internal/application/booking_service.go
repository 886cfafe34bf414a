package application

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventcraft/service-booking/internal/contracts"
	bookingDomain "github.com/eventcraft/service-booking/internal/domain/booking"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/clock"
	"github.com/eventcraft/service-booking/internal/platform/kafka"
	"github.com/eventcraft/service-booking/internal/platform/pagination"
)

const (
	eventSource = "service-booking"

	// maxUpdateAttempts bounds reload-and-retry after a lost version race.
	maxUpdateAttempts = 3

	// maxCreateAttempts bounds booking number regeneration on insert.
	maxCreateAttempts = 3

	// DefaultStoreTimeout is used when no store timeout is configured.
	DefaultStoreTimeout = 3 * time.Second
)

// EventPublisher publishes integration events. *kafka.Producer and
// *kafka.NopProducer both satisfy it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID                  `json:"id"`
	BookingNumber string                     `json:"booking_number"`
	ProviderID    uuid.UUID                  `json:"provider_id"`
	Status        string                     `json:"status"`
	Customer      bookingDomain.Customer     `json:"customer"`
	Event         bookingDomain.EventDetails `json:"event"`
	PackageName   string                     `json:"package_name"`
	FullAmount    bookingDomain.Money        `json:"full_amount"`
	AdvanceAmount bookingDomain.Money        `json:"advance_amount"`
	BalanceDue    bookingDomain.Money        `json:"balance_due"`
	CancelledAt   *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason  string                     `json:"cancel_reason,omitempty"`
	PaidAt        *time.Time                 `json:"paid_at,omitempty"`
	Version       int64                      `json:"version"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo         bookingDomain.BookingRepository
	engine       *bookingDomain.LifecycleEngine
	clock        clock.Clock
	publisher    EventPublisher
	logger       *zap.Logger
	storeTimeout time.Duration
	locks        *keyedLocker
	validate     *validator.Validate
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	engine *bookingDomain.LifecycleEngine,
	clk clock.Clock,
	publisher EventPublisher,
	logger *zap.Logger,
	storeTimeout time.Duration,
) *BookingService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &BookingService{
		repo:         repo,
		engine:       engine,
		clock:        clk,
		publisher:    publisher,
		logger:       logger,
		storeTimeout: storeTimeout,
		locks:        newKeyedLocker(),
		validate:     newValidator(),
	}
}

// CreateBooking validates a customer request and stores a new pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	params, err := s.toParams(req, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var bk *bookingDomain.Booking
	for attempt := 1; ; attempt++ {
		bk, err = bookingDomain.NewBooking(params)
		if err != nil {
			return nil, err
		}
		err = s.withStore(ctx, func(ctx context.Context) error {
			return s.repo.Save(ctx, bk)
		})
		if err == nil {
			break
		}
		// A conflict on insert is a booking number collision; draw a new one.
		if !errors.Is(err, apperror.ErrConflict) || attempt == maxCreateAttempts {
			return nil, storeError("save booking", err)
		}
		s.logger.Debug("booking number collision, regenerating",
			zap.String("booking_number", bk.BookingNumber()),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("provider_id", bk.ProviderID().String()),
	)

	s.publishEvent(ctx, contracts.BookingCreated, bk.ID().String(), contracts.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ProviderID:    bk.ProviderID(),
		CustomerName:  bk.Customer().Name,
		CustomerEmail: bk.Customer().Email,
		PackageName:   bk.PackageName(),
		EventDate:     bk.Event().Date.Format("2006-01-02"),
		FullAmount:    bk.Ledger().FullAmount().String(),
		AdvanceAmount: bk.Ledger().AdvanceAmount().String(),
		OccurredAt:    bk.CreatedAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking owned by the acting provider.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorProviderID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.findOwned(ctx, bookingID, actorProviderID, "get")
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns one page of the provider's bookings, newest first.
// The acting provider may only list their own bookings.
func (s *BookingService) ListBookings(ctx context.Context, actorProviderID, providerID uuid.UUID, q ListQuery) (*pagination.PaginatedResult[BookingDTO], error) {
	if actorProviderID != providerID {
		s.logger.Warn("forbidden booking listing",
			zap.String("actor_id", actorProviderID.String()),
			zap.String("provider_id", providerID.String()),
		)
		err := apperror.WithDetail(apperror.NewForbiddenError("cannot list another provider's bookings"),
			"actor_id", actorProviderID.String())
		return nil, err
	}
	return s.list(ctx, &providerID, q)
}

// CancelBooking cancels a pending booking within its cancellation window.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorProviderID uuid.UUID, reason string) (*BookingDTO, error) {
	if err := s.validateCancel(reason); err != nil {
		return nil, err
	}

	bk, err := s.mutate(ctx, bookingID, actorProviderID, bookingDomain.OpCancel, func(bk *bookingDomain.Booking, now time.Time) error {
		return s.engine.Cancel(bk, now, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("actor_id", actorProviderID.String()),
	)

	s.publishEvent(ctx, contracts.BookingCancelled, bk.ID().String(), contracts.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ProviderID:    bk.ProviderID(),
		CancelledBy:   actorProviderID,
		CustomerEmail: bk.Customer().Email,
		Reason:        reason,
		OccurredAt:    *bk.CancelledAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// MarkFullyPaid settles the remaining balance and confirms the booking.
func (s *BookingService) MarkFullyPaid(ctx context.Context, bookingID, actorProviderID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.mutate(ctx, bookingID, actorProviderID, bookingDomain.OpMarkFullyPaid, s.engine.MarkFullyPaid)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking fully paid",
		zap.String("booking_id", bk.ID().String()),
		zap.String("actor_id", actorProviderID.String()),
	)

	s.publishEvent(ctx, contracts.BookingFullyPaid, bk.ID().String(), contracts.BookingFullyPaidEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ProviderID:    bk.ProviderID(),
		CustomerEmail: bk.Customer().Email,
		FullAmount:    bk.Ledger().FullAmount().String(),
		OccurredAt:    *bk.PaidAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// --- Admin methods ---

// ListAllBookings returns bookings across providers (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, providerID *uuid.UUID, q ListQuery) (*pagination.PaginatedResult[BookingDTO], error) {
	return s.list(ctx, providerID, q)
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	var counts map[string]int64
	if err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		counts, err = s.repo.CountByStatus(ctx)
		return err
	}); err != nil {
		return nil, storeError("count bookings", err)
	}

	byStatus := map[string]int64{
		string(bookingDomain.StatusPending):   0,
		string(bookingDomain.StatusConfirmed): 0,
		string(bookingDomain.StatusCompleted): 0,
		string(bookingDomain.StatusCancelled): 0,
	}
	var total int64
	for status, c := range counts {
		byStatus[status] += c
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      byStatus,
	}, nil
}

// --- Helpers ---

func (s *BookingService) list(ctx context.Context, providerID *uuid.UUID, q ListQuery) (*pagination.PaginatedResult[BookingDTO], error) {
	status, err := parseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	page, limit := pagination.Normalize(q.Page, q.Limit)
	filter := bookingDomain.ListFilter{
		ProviderID: providerID,
		Status:     status,
		Query:      q.Query,
		Page:       page,
		Limit:      limit,
	}

	var (
		bookings []*bookingDomain.Booking
		total    int64
	)
	if err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		bookings, total, err = s.repo.List(ctx, filter)
		return err
	}); err != nil {
		return nil, storeError("list bookings", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := pagination.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// mutate runs apply under the booking's lock and persists the result. When
// another writer wins the version race the booking is reloaded and the
// guards are evaluated again, so a racing caller sees the new state.
func (s *BookingService) mutate(
	ctx context.Context,
	bookingID, actorProviderID uuid.UUID,
	op bookingDomain.Operation,
	apply func(*bookingDomain.Booking, time.Time) error,
) (*bookingDomain.Booking, error) {
	unlock := s.locks.Lock(bookingID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		bk, err := s.findOwned(ctx, bookingID, actorProviderID, string(op))
		if err != nil {
			return nil, err
		}

		if err := apply(bk, s.clock.Now()); err != nil {
			return nil, decorate(err, bookingID, actorProviderID)
		}

		bk.IncrementVersion()
		err = s.withStore(ctx, func(ctx context.Context) error {
			return s.repo.Update(ctx, bk)
		})
		if err == nil {
			return bk, nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt == maxUpdateAttempts {
			return nil, decorate(storeError("update booking", err), bookingID, actorProviderID)
		}
		s.logger.Debug("booking version conflict, retrying",
			zap.String("booking_id", bookingID.String()),
			zap.String("operation", string(op)),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *BookingService) findOwned(ctx context.Context, bookingID, actorProviderID uuid.UUID, op string) (*bookingDomain.Booking, error) {
	var bk *bookingDomain.Booking
	if err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		bk, err = s.repo.FindByID(ctx, bookingID)
		return err
	}); err != nil {
		return nil, decorate(storeError("find booking", err), bookingID, actorProviderID)
	}

	if !bk.IsOwnedBy(actorProviderID) {
		s.logger.Warn("forbidden booking access",
			zap.String("booking_id", bookingID.String()),
			zap.String("actor_id", actorProviderID.String()),
			zap.String("operation", op),
		)
		return nil, decorate(apperror.NewForbiddenError("booking does not belong to this provider"), bookingID, actorProviderID)
	}
	return bk, nil
}

// withStore bounds a store call by the configured timeout.
func (s *BookingService) withStore(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

// storeError classifies an error returned by the repository. Anything that
// is not already an application error is an infrastructure failure.
func storeError(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewStoreUnavailableError(op, err)
}

func decorate(err error, bookingID, actorProviderID uuid.UUID) error {
	err = apperror.WithDetail(err, "booking_id", bookingID.String())
	return apperror.WithDetail(err, "actor_id", actorProviderID.String())
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	ledger := bk.Ledger()
	return BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ProviderID:    bk.ProviderID(),
		Status:        string(bk.Status()),
		Customer:      bk.Customer(),
		Event:         bk.Event(),
		PackageName:   bk.PackageName(),
		FullAmount:    ledger.FullAmount(),
		AdvanceAmount: ledger.AdvanceAmount(),
		BalanceDue:    ledger.BalanceDue(),
		CancelledAt:   bk.CancelledAt(),
		CancelReason:  bk.CancelReason(),
		PaidAt:        bk.PaidAt(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

// publishEvent emits an integration event after the change is committed.
// Failures are logged and never undo the committed change.
func (s *BookingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(context.WithoutCancel(ctx), contracts.TopicBookingEvents, cloudEvent.WithSubject(key)); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", contracts.TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
