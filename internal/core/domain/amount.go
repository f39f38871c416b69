package domain

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var bigTen = big.NewInt(10)

// Amount is an exact, arbitrary-precision decimal used for every monetary value in the ledger.
// Equality and ordering are by numeric value: 1.50 and 1.5 are the same Amount.
// Amounts are never built from float64.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmountFromInt creates an Amount from a signed integer.
func NewAmountFromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// ParseAmount parses exact decimal text such as "-12.50" or "3".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("cannot parse empty string as amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustParseAmount is ParseAmount for literals known to be valid. It panics otherwise.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAmountFromUnscaled creates unscaled × 10^-scale, e.g. (1234, 2) is 12.34.
func NewAmountFromUnscaled(unscaled *big.Int, scale int32) Amount {
	return Amount{d: decimal.NewFromBigInt(new(big.Int).Set(unscaled), -scale)}
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Mul(b Amount) Amount { return Amount{d: a.d.Mul(b.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }
func (a Amount) Abs() Amount         { return Amount{d: a.d.Abs()} }

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// Equal reports numeric equality.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) Sign() int    { return a.d.Sign() }
func (a Amount) IsZero() bool { return a.d.IsZero() }

// normalized returns the coefficient and exponent with trailing zeros removed from the coefficient.
// Trailing zeros are trimmed on the digit string in one pass.
func (a Amount) normalized() (*big.Int, int64) {
	coef := a.d.Coefficient()
	exp := int64(a.d.Exponent())
	if coef.Sign() == 0 {
		return coef, 0
	}
	digits := coef.String()
	trimmed := strings.TrimRight(digits, "0")
	if zeros := len(digits) - len(trimmed); zeros > 0 {
		coef.SetString(trimmed, 10)
		exp += int64(zeros)
	}
	return coef, exp
}

// Scale returns the number of significant fractional digits, ignoring trailing zeros.
// Scales beyond math.MaxInt32 are reported as math.MaxInt32.
func (a Amount) Scale() int32 {
	_, exp := a.normalized()
	switch {
	case exp >= 0:
		return 0
	case -exp > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(-exp)
}

// IntegerDigits returns the number of digits left of the decimal point of |a|,
// without building the expanded value. It is zero or negative for |a| < 1.
func (a Amount) IntegerDigits() int64 {
	coef, exp := a.normalized()
	if coef.Sign() == 0 {
		return 0
	}
	return int64(len(coef.Abs(coef).Text(10))) + exp
}

// Unscaled returns the integer u such that a == u × 10^-Scale().
// It expands positive exponents, so callers bound the magnitude first.
func (a Amount) Unscaled() *big.Int {
	coef, exp := a.normalized()
	if exp > 0 {
		coef.Mul(coef, new(big.Int).Exp(bigTen, big.NewInt(exp), nil))
	}
	return coef
}

// RoundTo rounds half away from zero to the given number of fractional digits.
// It is the only operation on Amount that may lose precision.
func (a Amount) RoundTo(scale int32) Amount {
	return Amount{d: a.d.Round(scale)}
}

// String returns the canonical decimal text. Equal amounts always produce the same text.
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number, parsed from its literal text.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return fmt.Errorf("amount cannot be null")
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner. Binary floating point sources are rejected.
func (a *Amount) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		return a.scanText(v)
	case []byte:
		return a.scanText(string(v))
	case int64:
		*a = NewAmountFromInt(v)
		return nil
	case nil:
		return fmt.Errorf("cannot scan NULL into amount")
	default:
		return fmt.Errorf("cannot scan %T into amount", value)
	}
}

func (a *Amount) scanText(s string) error {
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer using the canonical text form.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// SumAmounts adds up all values of the map.
func SumAmounts(amounts map[string]Amount) Amount {
	sum := ZeroAmount
	for _, v := range amounts {
		sum = sum.Add(v)
	}
	return sum
}
