package booking

import (
	"strings"
	"time"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

const maxNotesLength = 1000

// Customer is an immutable value object identifying who placed the booking.
type Customer struct {
	Name  string `json:"name"`
	NIC   string `json:"nic"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Coordinator is the optional on-site contact for an event.
type Coordinator struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// EventDetails is an immutable value object describing the booked event.
type EventDetails struct {
	Type         string       `json:"type"`
	Date         time.Time    `json:"date"`
	LocationName string       `json:"location_name"`
	MapReference string       `json:"map_reference,omitempty"`
	Address      string       `json:"address"`
	CrowdSize    int          `json:"crowd_size"`
	Coordinator  *Coordinator `json:"coordinator,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

func (c Customer) validate() []apperror.FieldError {
	var errs []apperror.FieldError
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, required("customer.name"))
	}
	if strings.TrimSpace(c.NIC) == "" {
		errs = append(errs, required("customer.nic"))
	}
	if strings.TrimSpace(c.Phone) == "" {
		errs = append(errs, required("customer.phone"))
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, required("customer.email"))
	}
	return errs
}

func (e EventDetails) validate() []apperror.FieldError {
	var errs []apperror.FieldError
	if strings.TrimSpace(e.Type) == "" {
		errs = append(errs, required("event.type"))
	}
	if e.Date.IsZero() {
		errs = append(errs, required("event.date"))
	}
	if strings.TrimSpace(e.LocationName) == "" {
		errs = append(errs, required("event.location_name"))
	}
	if strings.TrimSpace(e.Address) == "" {
		errs = append(errs, required("event.address"))
	}
	if e.CrowdSize <= 0 {
		errs = append(errs, apperror.FieldError{Field: "event.crowd_size", Message: "must be greater than zero"})
	}
	if e.Coordinator != nil && strings.TrimSpace(e.Coordinator.Name) == "" && strings.TrimSpace(e.Coordinator.Phone) == "" {
		errs = append(errs, apperror.FieldError{Field: "event.coordinator", Message: "must have a name or phone when present"})
	}
	if len(e.Notes) > maxNotesLength {
		errs = append(errs, apperror.FieldError{Field: "event.notes", Message: "must be at most 1000 characters"})
	}
	return errs
}

func required(field string) apperror.FieldError {
	return apperror.FieldError{Field: field, Message: "is required"}
}
