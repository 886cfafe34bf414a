package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

// Money is an amount in minor units (cents). Arithmetic stays in integers.
type Money int64

// maxMoneyLength caps the textual form of an amount. An int64 of cents has at
// most 19 digits, the rest is room for a sign, a point and trailing zeros.
const maxMoneyLength = 32

// ParseMoney parses a decimal string such as "1000", "1000.5" or "1000.50".
// Exponent notation is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("is required")
	}
	if len(s) > maxMoneyLength {
		return 0, errors.New("is out of range")
	}
	if strings.ContainsAny(s, "eE") {
		return 0, errors.New("must be a decimal number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("must be a decimal number")
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, errors.New("must have at most two decimal places")
	}
	if !cents.BigInt().IsInt64() {
		return 0, errors.New("is out of range")
	}
	return Money(cents.IntPart()), nil
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseMoney(s)
	if err != nil {
		return fmt.Errorf("amount %s", err)
	}
	*m = v
	return nil
}

// Ledger tracks the contracted price and the amount collected so far.
// Invariant: 0 <= advance <= full and full > 0.
type Ledger struct {
	full    Money
	advance Money
}

// NewLedger validates and builds a ledger. Every violated rule is reported.
func NewLedger(full, advance Money) (Ledger, []apperror.FieldError) {
	var errs []apperror.FieldError
	if full <= 0 {
		errs = append(errs, apperror.FieldError{Field: "full_amount", Message: "must be greater than zero"})
	}
	if advance < 0 {
		errs = append(errs, apperror.FieldError{Field: "advance_amount", Message: "must not be negative"})
	}
	if full > 0 && advance > full {
		errs = append(errs, apperror.FieldError{Field: "advance_amount", Message: "must not exceed full_amount"})
	}
	if len(errs) > 0 {
		return Ledger{}, errs
	}
	return Ledger{full: full, advance: advance}, nil
}

// ReconstructLedger rebuilds a ledger from persistence data (no validation).
func ReconstructLedger(full, advance Money) Ledger {
	return Ledger{full: full, advance: advance}
}

// FullAmount returns the contracted price.
func (l Ledger) FullAmount() Money { return l.full }

// AdvanceAmount returns the amount collected so far.
func (l Ledger) AdvanceAmount() Money { return l.advance }

// BalanceDue returns the amount still owed.
func (l Ledger) BalanceDue() Money { return l.full - l.advance }

// IsSettled reports whether nothing is owed.
func (l Ledger) IsSettled() bool { return l.advance >= l.full }

// Settle returns the ledger with the advance raised to the full amount.
func (l Ledger) Settle() (Ledger, error) {
	if l.IsSettled() {
		return l, apperror.NewAlreadySettledError(
			fmt.Sprintf("booking is already fully paid (%s of %s)", l.advance, l.full))
	}
	return Ledger{full: l.full, advance: l.full}, nil
}
