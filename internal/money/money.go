// Package money stores amounts as integer cents and speaks decimal on the
// wire. JSON values are plain numbers with two decimals.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in hundredths of the currency unit
type Cents int64

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)

	// "1.234" or "12.345.678": dots grouping thousands, no decimal part
	thousandsOnly = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3})+$`)
)

// ErrOutOfRange is returned for amounts that do not fit in Cents
var ErrOutOfRange = errors.New("amount out of range")

// Parse accepts "1234.56", "1234,56", "1.234,56" and "1.234" (one thousand
// two hundred thirty-four) and rounds half away from zero to the nearest
// cent.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromDecimal rounds d to cents
func FromDecimal(d decimal.Decimal) (Cents, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Cents(cents.IntPart()), nil
}

// Decimal returns the amount in currency units
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount with two decimals, e.g. "-12.50"
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// BRL renders the amount the way the dashboard shows it, e.g. "R$ 1.234,56"
func (c Cents) BRL() string {
	s := c.Decimal().Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if c < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), frac)
}

// MarshalJSON writes the amount as a JSON number
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON reads a JSON number or numeric string
func (c *Cents) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Value stores the amount as an integer column
func (c Cents) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan reads an integer column
func (c *Cents) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = 0
	case int64:
		*c = Cents(v)
	case int32:
		*c = Cents(v)
	case float64:
		*c = Cents(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		*c = Cents(d.IntPart())
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		*c = Cents(d.IntPart())
	default:
		return fmt.Errorf("cannot scan %T into money.Cents", src)
	}
	return nil
}
