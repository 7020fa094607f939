// Package money provides the fixed-point monetary value type used by the
// ledger. All amounts are held as decimals and rounded to two places before
// comparison or storage; float64 never enters monetary arithmetic.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon absorbs decimal rounding drift when comparing balances
// (0.005 currency units).
var Epsilon = decimal.New(5, -3)

// Money is an immutable monetary amount. The zero value is zero money.
type Money struct {
	amount decimal.Decimal
}

// Zero returns zero money.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// New creates Money from a decimal amount.
func New(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// FromFloat creates Money from a float64 value.
func FromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount)}
}

// FromInt creates Money from whole currency units.
func FromInt(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// Parse creates Money from its string representation.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// MustParse is Parse that panics on malformed input. For constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal amount.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Neg returns the amount with its sign reversed.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs()}
}

// Round2 rounds to two decimal places.
func (m Money) Round2() Money {
	return Money{amount: m.amount.Round(2)}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports exact equality of the two amounts.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// WithinEpsilonOf reports |m - other| <= Epsilon.
func (m Money) WithinEpsilonOf(other Money) bool {
	return m.amount.Sub(other.amount).Abs().LessThanOrEqual(Epsilon)
}

// NearZero reports |m| <= Epsilon.
func (m Money) NearZero() bool {
	return m.amount.Abs().LessThanOrEqual(Epsilon)
}

// ExceedsByEpsilon reports m > other + Epsilon.
func (m Money) ExceedsByEpsilon(other Money) bool {
	return m.amount.Sub(other.amount).GreaterThan(Epsilon)
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(2))
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("money: invalid JSON amount: %s", data)
		}
		m.amount = decimal.NewFromFloat(f)
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	m.amount = d
	return nil
}

// Value implements driver.Valuer for database storage.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	case float64:
		m.amount = decimal.NewFromFloat(v)
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", value)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: invalid decimal value %q: %w", s, err)
	}
	m.amount = d
	return nil
}
