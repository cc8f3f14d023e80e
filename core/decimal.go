package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultDecimalPrecision is the minimum number of digits after the decimal
// point that the global arithmetic context keeps in a division result.
// Addition, subtraction and multiplication are exact.
const DefaultDecimalPrecision = 50

var (
	decimalCtxOnce sync.Once
	decimalCtxSet  int32
)

// InitDecimalContext fixes the global decimal division precision exactly
// once for the lifetime of the process. Subsequent calls with a different
// precision are ignored; the context is deliberately not mutable after
// first use.
//
// precision values below DefaultDecimalPrecision are clamped up, never down,
// so a caller can never accidentally weaken the guarantee.
func InitDecimalContext(precision int) {
	if precision < DefaultDecimalPrecision {
		precision = DefaultDecimalPrecision
	}
	decimalCtxOnce.Do(func() {
		decimal.DivisionPrecision = precision
		decimalCtxSet = int32(precision)
	})
}

// DecimalPrecision reports the precision the context was initialized with,
// initializing it with the default if no caller has done so yet.
func DecimalPrecision() int {
	InitDecimalContext(DefaultDecimalPrecision)
	return int(decimalCtxSet)
}

// Decimal is an exact, fixed-precision numeric value. It has no NaN or
// infinity representation: every constructed Decimal is finite by
// construction, and IsFinite always reports true. The zero value is the
// exact number zero.
type Decimal struct {
	d decimal.Decimal
}

// ErrInvalidQuantity is returned when a Decimal cannot be constructed from
// caller input, including the not-a-number and infinite sentinels that
// many decimal libraries accept but this one deliberately does not.
type ErrInvalidQuantity struct {
	Input string
}

func (e *ErrInvalidQuantity) Error() string {
	return fmt.Sprintf("invalid quantity: %q", e.Input)
}

var nonFiniteLiterals = map[string]struct{}{
	"nan": {}, "+nan": {}, "-nan": {},
	"inf": {}, "+inf": {}, "-inf": {}, "infinity": {}, "+infinity": {}, "-infinity": {},
}

// NewDecimalFromString parses s into a Decimal. It rejects NaN/Infinity
// spellings explicitly (ErrInvalidQuantity) before handing the string to the
// underlying parser, and surfaces any other parse failure wrapped the same
// way so callers have one error type to check for construction failures.
func NewDecimalFromString(s string) (Decimal, error) {
	InitDecimalContext(DefaultDecimalPrecision)
	trimmed := strings.TrimSpace(s)
	if _, bad := nonFiniteLiterals[strings.ToLower(trimmed)]; bad {
		return Decimal{}, &ErrInvalidQuantity{Input: s}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Decimal{}, &ErrInvalidQuantity{Input: s}
	}
	return Decimal{d: d}, nil
}

// NewDecimalFromInt builds an exact integral Decimal.
func NewDecimalFromInt(i int64) Decimal {
	InitDecimalContext(DefaultDecimalPrecision)
	return Decimal{d: decimal.NewFromInt(i)}
}

// DecimalZero is the exact number zero.
func DecimalZero() Decimal { return NewDecimalFromInt(0) }

// mustCanonical is used internally to rebuild a Decimal from our own
// canonical string form, which is always well-formed.
func mustCanonical(s string) Decimal {
	d, err := NewDecimalFromString(s)
	if err != nil {
		panic(fmt.Sprintf("core: corrupt canonical decimal %q: %v", s, err))
	}
	return d
}

// Add returns a+b.
func (a Decimal) Add(b Decimal) Decimal { return Decimal{d: a.d.Add(b.d)} }

// Sub returns a-b.
func (a Decimal) Sub(b Decimal) Decimal { return Decimal{d: a.d.Sub(b.d)} }

// Mul returns a*b.
func (a Decimal) Mul(b Decimal) Decimal { return Decimal{d: a.d.Mul(b.d)} }

// Div returns a/b, rounded to DecimalPrecision() places after the decimal
// point with banker's rounding (round-half-to-even). An error is returned
// for division by zero rather than propagating a non-finite result, since
// Decimal cannot represent one.
func (a Decimal) Div(b Decimal) (Decimal, error) {
	if b.IsZero() {
		return Decimal{}, fmt.Errorf("core: division by zero")
	}
	places := int32(DecimalPrecision())
	q, r := a.d.QuoRem(b.d, places)
	// q is truncated toward zero; compare twice the remainder, scaled to
	// q's last place, with the divisor to decide whether to step away from
	// zero (above half, or exactly half with an odd last digit).
	c := r.Abs().Mul(decimal.NewFromInt(2)).Shift(places).Cmp(b.d.Abs())
	if c > 0 || (c == 0 && !q.Shift(places).Mod(decimal.NewFromInt(2)).IsZero()) {
		step := decimal.New(1, -places)
		if a.d.Sign()*b.d.Sign() < 0 {
			q = q.Sub(step)
		} else {
			q = q.Add(step)
		}
	}
	return Decimal{d: q}, nil
}

// Neg returns -a.
func (a Decimal) Neg() Decimal { return Decimal{d: a.d.Neg()} }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Decimal) Cmp(b Decimal) int { return a.d.Cmp(b.d) }

// Equal reports value equality, independent of how each operand was
// textually spelled (e.g. "100" and "100.00" are Equal).
func (a Decimal) Equal(b Decimal) bool { return a.d.Equal(b.d) }

// IsZero reports whether a is the exact number zero.
func (a Decimal) IsZero() bool { return a.d.IsZero() }

// Sign returns -1, 0 or 1 reflecting the sign of a.
func (a Decimal) Sign() int { return a.d.Sign() }

// IsFinite always reports true: Decimal has no non-finite representation.
// Kept as an explicit predicate so callers porting validation code from
// other decimal libraries have an equivalent call to make.
func (a Decimal) IsFinite() bool { return true }

// Round rounds a to the given number of places after the decimal point
// using banker's rounding (round-half-to-even), the default mode for
// balance accumulation.
func (a Decimal) Round(places int32) Decimal { return Decimal{d: a.d.RoundBank(places)} }

// ToCanonicalString renders a using the single canonical textual form: no
// trailing fractional zeros, no decimal point at all for integral values, a
// single leading '-' for negatives, never a '+', never exponent notation.
// ToCanonicalString(a) == ToCanonicalString(b) iff a == b.
func (a Decimal) ToCanonicalString() string {
	s := a.d.String()
	if !strings.Contains(s, ".") {
		if s == "-0" {
			return "0"
		}
		return s
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "0" {
		return "0"
	}
	if neg {
		return "-" + s
	}
	return s
}

func (a Decimal) String() string { return a.ToCanonicalString() }
