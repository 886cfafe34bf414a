package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed" // confirmed and fully paid
	StatusCompleted BookingStatus = "completed" // reserved for fulfillment tracking; never produced here
	StatusCancelled BookingStatus = "cancelled"
)

// Operation names a lifecycle operation applied to a booking.
type Operation string

const (
	OpCancel        Operation = "cancel"
	OpMarkFullyPaid Operation = "mark_fully_paid"
)

// validTransitions defines the state machine: status -> operation -> next status.
var validTransitions = map[BookingStatus]map[Operation]BookingStatus{
	StatusPending: {
		OpCancel:        StatusCancelled,
		OpMarkFullyPaid: StatusConfirmed,
	},
	StatusConfirmed: {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// Next returns the status reached by applying op, and whether op is permitted.
func (s BookingStatus) Next(op Operation) (BookingStatus, bool) {
	next, ok := validTransitions[s][op]
	return next, ok
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
