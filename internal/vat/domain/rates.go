package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateCategory identifies one of the fixed VAT rate buckets.
// Values are persisted in reports; do not rename.
type RateCategory string

const (
	RateStandard      RateCategory = "STANDARD"
	RateReduced       RateCategory = "REDUCED"
	RateSecondReduced RateCategory = "SECOND_REDUCED"
	RateZero          RateCategory = "ZERO"
	RateExempt        RateCategory = "EXEMPT"
)

// RateCategories lists the buckets in reporting order.
var RateCategories = []RateCategory{
	RateStandard,
	RateReduced,
	RateSecondReduced,
	RateZero,
	RateExempt,
}

// RateTable maps rate categories to percentages (23.0 means 23%).
type RateTable struct {
	rates map[RateCategory]decimal.Decimal
}

// NewRateTable builds a table from percentages keyed by category name.
// Missing categories fall back to the Irish defaults.
func NewRateTable(percentages map[string]decimal.Decimal) RateTable {
	table := DefaultRateTable()
	for key, value := range percentages {
		category := RateCategory(strings.ToUpper(strings.TrimSpace(key)))
		if !category.Valid() || value.IsNegative() {
			continue
		}
		table.rates[category] = value
	}
	return table
}

// DefaultRateTable returns the Irish VAT rates.
func DefaultRateTable() RateTable {
	return RateTable{rates: map[RateCategory]decimal.Decimal{
		RateStandard:      decimal.RequireFromString("23.0"),
		RateReduced:       decimal.RequireFromString("13.5"),
		RateSecondReduced: decimal.RequireFromString("9.0"),
		RateZero:          decimal.Zero,
		RateExempt:        decimal.Zero,
	}}
}

func (c RateCategory) Valid() bool {
	switch c {
	case RateStandard, RateReduced, RateSecondReduced, RateZero, RateExempt:
		return true
	default:
		return false
	}
}

// Rate returns the percentage for a category.
func (t RateTable) Rate(category RateCategory) decimal.Decimal {
	if rate, ok := t.rates[category]; ok {
		return rate
	}
	return decimal.Zero
}

func (t RateTable) Standard() decimal.Decimal {
	return t.Rate(RateStandard)
}

// CategoryFor returns the bucket a percentage belongs to. Only the four
// named rates match; anything else lands in EXEMPT.
func (t RateTable) CategoryFor(percent decimal.Decimal) RateCategory {
	for _, category := range []RateCategory{RateStandard, RateReduced, RateSecondReduced, RateZero} {
		if percent.Equal(t.Rate(category)) {
			return category
		}
	}
	return RateExempt
}

// Known reports whether percent is one of the table's configured rates.
func (t RateTable) Known(percent decimal.Decimal) bool {
	for _, category := range RateCategories {
		if percent.Equal(t.Rate(category)) {
			return true
		}
	}
	return false
}
