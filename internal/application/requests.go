package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	bookingDomain "github.com/eventcraft/service-booking/internal/domain/booking"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

// Amount keeps a monetary input exactly as sent so it can be parsed without
// float rounding. Both JSON strings and JSON numbers are accepted.
type Amount string

// UnmarshalJSON stores the raw text of a string or number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

// CustomerRequest identifies who is booking.
type CustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	NIC   string `json:"nic" validate:"required,max=50"`
	Phone string `json:"phone" validate:"required,max=50"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// CoordinatorRequest is the optional on-site contact.
type CoordinatorRequest struct {
	Name  string `json:"name" validate:"required_without=Phone,max=200"`
	Phone string `json:"phone" validate:"required_without=Name,max=50"`
}

// EventRequest describes the event being booked.
type EventRequest struct {
	Type         string              `json:"type" validate:"required,max=100"`
	Date         string              `json:"date" validate:"required"`
	LocationName string              `json:"location_name" validate:"required,max=200"`
	MapReference string              `json:"map_reference" validate:"omitempty,max=500"`
	Address      string              `json:"address" validate:"required,max=500"`
	CrowdSize    int                 `json:"crowd_size" validate:"gt=0"`
	Coordinator  *CoordinatorRequest `json:"coordinator"`
	Notes        string              `json:"notes" validate:"omitempty,max=1000"`
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ProviderID    string          `json:"provider_id" validate:"required,uuid"`
	Customer      CustomerRequest `json:"customer"`
	Event         EventRequest    `json:"event"`
	PackageName   string          `json:"package_name" validate:"required,max=200"`
	FullAmount    Amount          `json:"full_amount"`
	AdvanceAmount Amount          `json:"advance_amount"`
}

// CancelBookingRequest carries the optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// ListQuery narrows a booking listing.
type ListQuery struct {
	Status string
	Query  string
	Page   int
	Limit  int
}

var eventDateLayouts = []string{"2006-01-02", time.RFC3339}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors flattens validator output into field errors keyed by JSON path.
func fieldErrors(err error) []apperror.FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperror.FieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, apperror.FieldError{Field: field, Message: validationMessage(fe)})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "name or phone is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// toParams validates req and converts it into domain parameters. Every
// violation is reported in one validation error: tag checks and parse
// failures first, then the domain rules for fields not already reported.
func (s *BookingService) toParams(req CreateBookingRequest, now time.Time) (bookingDomain.NewBookingParams, error) {
	var errs []apperror.FieldError
	if err := s.validate.Struct(req); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}

	providerID, _ := uuid.Parse(req.ProviderID)

	var eventDate time.Time
	if req.Event.Date != "" {
		d, ok := parseEventDate(req.Event.Date)
		if !ok {
			errs = append(errs, apperror.FieldError{Field: "event.date", Message: "must be a date (YYYY-MM-DD) or RFC3339 timestamp"})
		}
		eventDate = d
	}

	full, err := bookingDomain.ParseMoney(string(req.FullAmount))
	if err != nil {
		errs = append(errs, apperror.FieldError{Field: "full_amount", Message: err.Error()})
	}
	var advance bookingDomain.Money
	if strings.TrimSpace(string(req.AdvanceAmount)) != "" {
		advance, err = bookingDomain.ParseMoney(string(req.AdvanceAmount))
		if err != nil {
			errs = append(errs, apperror.FieldError{Field: "advance_amount", Message: err.Error()})
		}
	}

	params := bookingDomain.NewBookingParams{
		ProviderID: providerID,
		Customer: bookingDomain.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			NIC:   strings.TrimSpace(req.Customer.NIC),
			Phone: strings.TrimSpace(req.Customer.Phone),
			Email: strings.TrimSpace(req.Customer.Email),
		},
		Event: bookingDomain.EventDetails{
			Type:         strings.TrimSpace(req.Event.Type),
			Date:         eventDate,
			LocationName: strings.TrimSpace(req.Event.LocationName),
			MapReference: strings.TrimSpace(req.Event.MapReference),
			Address:      strings.TrimSpace(req.Event.Address),
			CrowdSize:    req.Event.CrowdSize,
			Notes:        req.Event.Notes,
		},
		PackageName:   req.PackageName,
		FullAmount:    full,
		AdvanceAmount: advance,
		CreatedAt:     now,
	}
	if c := req.Event.Coordinator; c != nil {
		params.Event.Coordinator = &bookingDomain.Coordinator{
			Name:  strings.TrimSpace(c.Name),
			Phone: strings.TrimSpace(c.Phone),
		}
	}

	errs = mergeFieldErrors(errs, params.Validate())
	if len(errs) > 0 {
		return bookingDomain.NewBookingParams{}, apperror.NewValidationError("invalid booking request", errs...)
	}
	return params, nil
}

// mergeFieldErrors appends the extra errors whose field, or a field nested
// under it, is not yet reported.
func mergeFieldErrors(errs, extra []apperror.FieldError) []apperror.FieldError {
	reported := func(field string) bool {
		for _, fe := range errs {
			if fe.Field == field || strings.HasPrefix(fe.Field, field+".") {
				return true
			}
		}
		return false
	}
	for _, fe := range extra {
		if !reported(fe.Field) {
			errs = append(errs, fe)
		}
	}
	return errs
}

// validateCancel checks the optional cancellation reason.
func (s *BookingService) validateCancel(reason string) error {
	if err := s.validate.Struct(CancelBookingRequest{Reason: reason}); err != nil {
		return apperror.NewValidationError("invalid cancel request", fieldErrors(err)...)
	}
	return nil
}

func parseEventDate(s string) (time.Time, bool) {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseStatusFilter(raw string) (*bookingDomain.BookingStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := bookingDomain.ParseBookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return nil, apperror.NewValidationError("invalid status filter",
			apperror.FieldError{Field: "status", Message: "must be one of pending, confirmed, completed, cancelled"})
	}
	return &status, nil
}
