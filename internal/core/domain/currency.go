package domain

// MaxUnscaledDigits bounds the unscaled value (amount × 10^scale) of any stored amount
// to 10^30 - 1. Every stored value then fits NUMERIC(40, scale).
const MaxUnscaledDigits = 30

// Currency represents the currency the ledger books amounts in.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // e.g., "EUR"
	Scale        int32  `json:"scale"`        // Max fractional digits, e.g. 2 for cents
}

// DefaultCurrency is used when no currency is configured.
var DefaultCurrency = Currency{CurrencyCode: "EUR", Scale: 2}

// FitsScale reports whether the amount has at most Scale significant fractional digits.
func (c Currency) FitsScale(a Amount) bool {
	return a.Scale() <= c.Scale
}

// IntegerDigits is the number of digits allowed left of the decimal point.
func (c Currency) IntegerDigits() int64 {
	return MaxUnscaledDigits - int64(c.Scale)
}

// FitsMagnitude reports whether |a| × 10^Scale is at most 10^30 - 1.
// The check counts digits, so huge exponents are rejected without expanding them.
func (c Currency) FitsMagnitude(a Amount) bool {
	if a.IsZero() {
		return true
	}
	return a.IntegerDigits() <= c.IntegerDigits()
}
