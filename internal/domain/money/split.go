// Package money holds the commission arithmetic shared by checkout and the
// payment event processor. All amounts are integer minor units (cents); rates
// are exact decimals and results are rounded half-up exactly once.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSplit   = errors.New("invalid commission split")
	ErrInvalidDecimal = errors.New("invalid decimal")
)

var hundred = decimal.NewFromInt(100)

// Split is the derived triple persisted on a booking.
type Split struct {
	GrossMinor      int64 `json:"gross_minor"`
	CommissionMinor int64 `json:"commission_minor"`
	OwnerMinor      int64 `json:"owner_minor"`
}

// ParseDecimal parses a decimal string ("250", "250.00", "6.5").
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	return d, nil
}

// MustDecimal is ParseDecimal for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ValidRate reports whether rate is a percentage within [0, 100].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// ToMinor converts a major-unit amount to minor units, rounding half away
// from zero.
func ToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}

// FormatMinor renders minor units as a major-unit string with two decimals.
func FormatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// PercentOf returns round(minor * ratePercent / 100), half-up.
func PercentOf(minor int64, ratePercent decimal.Decimal) int64 {
	return decimal.NewFromInt(minor).Mul(ratePercent).Shift(-2).Round(0).IntPart()
}

// SplitMajor computes the split from major-unit decimals.
func SplitMajor(gross, ratePercent, fixedFee decimal.Decimal) (Split, error) {
	if fixedFee.IsNegative() {
		return Split{}, fmt.Errorf("%w: negative fixed fee", ErrInvalidSplit)
	}
	return SplitMinor(ToMinor(gross), ratePercent, ToMinor(fixedFee))
}

// SplitMinor computes commission = round(gross*rate/100) + fixedFee and
// owner = gross - commission. A commission that would leave the owner with
// nothing is an error, never clamped.
func SplitMinor(grossMinor int64, ratePercent decimal.Decimal, fixedFeeMinor int64) (Split, error) {
	if grossMinor <= 0 {
		return Split{}, fmt.Errorf("%w: gross must be positive, got %d", ErrInvalidSplit, grossMinor)
	}
	if !ValidRate(ratePercent) {
		return Split{}, fmt.Errorf("%w: rate must be within [0, 100]", ErrInvalidSplit)
	}
	if fixedFeeMinor < 0 {
		return Split{}, fmt.Errorf("%w: negative fixed fee", ErrInvalidSplit)
	}
	return withCommission(grossMinor, PercentOf(grossMinor, ratePercent)+fixedFeeMinor)
}

// SplitCaptured builds the split around a commission the processor already
// withheld, such as an inline application fee.
func SplitCaptured(grossMinor, commissionMinor int64) (Split, error) {
	if grossMinor <= 0 {
		return Split{}, fmt.Errorf("%w: gross must be positive, got %d", ErrInvalidSplit, grossMinor)
	}
	if commissionMinor < 0 {
		return Split{}, fmt.Errorf("%w: negative commission %d", ErrInvalidSplit, commissionMinor)
	}
	return withCommission(grossMinor, commissionMinor)
}

func withCommission(grossMinor, commission int64) (Split, error) {
	if commission >= grossMinor {
		return Split{}, fmt.Errorf("%w: commission %d >= gross %d", ErrInvalidSplit, commission, grossMinor)
	}
	return Split{
		GrossMinor:      grossMinor,
		CommissionMinor: commission,
		OwnerMinor:      grossMinor - commission,
	}, nil
}

// Valid reports whether the persisted triple still adds up.
func (s Split) Valid() bool {
	return s.GrossMinor > 0 &&
		s.CommissionMinor >= 0 &&
		s.OwnerMinor > 0 &&
		s.CommissionMinor+s.OwnerMinor == s.GrossMinor
}
