package gnc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is an exact rational amount, the way the GnuCash file format stores
// every monetary value: an integer numerator over an integer denominator.
// Arithmetic never goes through floating point.
//
// The zero value is "0/1". The denominator is always positive; the sign lives
// in the numerator.
type Numeric struct {
	Num   int64
	Denom int64
}

// Zero is the canonical zero amount.
var Zero = Numeric{Num: 0, Denom: 1}

// NewNumeric builds a Numeric, normalizing the sign into the numerator.
// A zero denominator is invalid.
func NewNumeric(num, denom int64) (Numeric, error) {
	if denom == 0 {
		return Numeric{}, fmt.Errorf("numeric %d/%d: zero denominator", num, denom)
	}
	if denom < 0 {
		num, denom = -num, -denom
	}
	return Numeric{Num: num, Denom: denom}, nil
}

// ParseNumeric parses the wire representation "num/denom".
// A plain integer without a slash is read as denominator 1.
func ParseNumeric(s string) (Numeric, error) {
	s = strings.TrimSpace(s)
	numStr, denomStr, found := strings.Cut(s, "/")
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return Numeric{}, fmt.Errorf("numeric %q: %w", s, err)
	}
	if !found {
		return Numeric{Num: num, Denom: 1}, nil
	}
	denom, err := strconv.ParseInt(denomStr, 10, 64)
	if err != nil {
		return Numeric{}, fmt.Errorf("numeric %q: %w", s, err)
	}
	return NewNumeric(num, denom)
}

// FromDecimal converts a decimal amount to a Numeric with the given
// denominator, rounding half-up to the nearest representable fraction.
func FromDecimal(d decimal.Decimal, denom int64) (Numeric, error) {
	if denom <= 0 {
		return Numeric{}, fmt.Errorf("numeric denominator %d must be positive", denom)
	}
	num := d.Mul(decimal.NewFromInt(denom)).Round(0).IntPart()
	return Numeric{Num: num, Denom: denom}, nil
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// normalized returns n with a positive denominator, defaulting "0/0" to Zero.
func (n Numeric) normalized() Numeric {
	if n.Denom == 0 {
		return Zero
	}
	if n.Denom < 0 {
		return Numeric{Num: -n.Num, Denom: -n.Denom}
	}
	return n
}

// Reduce returns the amount with numerator and denominator divided by their
// greatest common divisor.
func (n Numeric) Reduce() Numeric {
	n = n.normalized()
	g := gcd(n.Num, n.Denom)
	return Numeric{Num: n.Num / g, Denom: n.Denom / g}
}

// Add returns the exact sum of the two amounts, reduced.
func (n Numeric) Add(m Numeric) Numeric {
	n, m = n.normalized(), m.normalized()
	if n.Denom == m.Denom {
		return Numeric{Num: n.Num + m.Num, Denom: n.Denom}.Reduce()
	}
	return Numeric{
		Num:   n.Num*m.Denom + m.Num*n.Denom,
		Denom: n.Denom * m.Denom,
	}.Reduce()
}

// Sub returns n - m.
func (n Numeric) Sub(m Numeric) Numeric { return n.Add(m.Neg()) }

// Neg returns the amount with the opposite sign.
func (n Numeric) Neg() Numeric {
	n = n.normalized()
	return Numeric{Num: -n.Num, Denom: n.Denom}
}

// Abs returns the amount without its sign.
func (n Numeric) Abs() Numeric {
	n = n.normalized()
	if n.Num < 0 {
		return Numeric{Num: -n.Num, Denom: n.Denom}
	}
	return n
}

// IsZero reports whether the amount equals zero.
func (n Numeric) IsZero() bool { return n.Num == 0 }

// Sign returns -1, 0 or +1.
func (n Numeric) Sign() int {
	n = n.normalized()
	switch {
	case n.Num < 0:
		return -1
	case n.Num > 0:
		return 1
	default:
		return 0
	}
}

// Equal reports whether the two amounts represent the same rational value,
// regardless of representation.
func (n Numeric) Equal(m Numeric) bool {
	n, m = n.Reduce(), m.Reduce()
	return n.Num == m.Num && n.Denom == m.Denom
}

// Decimal converts the amount to a decimal for formatting and rounding.
func (n Numeric) Decimal() decimal.Decimal {
	n = n.normalized()
	return decimal.NewFromInt(n.Num).Div(decimal.NewFromInt(n.Denom))
}

// String renders the wire representation "num/denom".
func (n Numeric) String() string {
	n = n.normalized()
	return strconv.FormatInt(n.Num, 10) + "/" + strconv.FormatInt(n.Denom, 10)
}
