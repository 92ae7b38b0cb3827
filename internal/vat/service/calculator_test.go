package service

import (
	"testing"

	"github.com/shopspring/decimal"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nonZeroBuckets(b vatdomain.Buckets) int {
	count := 0
	for _, category := range vatdomain.RateCategories {
		if !b.Get(category).IsZero() {
			count++
		}
	}
	return count
}

func TestCalculateLineIrishConsumer(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())

	got := calc.CalculateLine(dec("123.00"), dec("23.0"), vatdomain.CustomerB2C)

	assert.True(t, got.VatAmount.Equal(dec("23")), "vat %s", got.VatAmount)
	assert.True(t, got.Subtotal.Equal(dec("100")), "subtotal %s", got.Subtotal)
	assert.True(t, got.Buckets.Standard.Equal(dec("23")))
	assert.Equal(t, vatdomain.RateStandard, got.Category)
	assert.False(t, got.ReverseCharge)
}

func TestCalculateLineEUBusinessReverseCharge(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())

	for _, rate := range []string{"23.0", "13.5", "9.0", "0", "5"} {
		got := calc.CalculateLine(dec("500.00"), dec(rate), vatdomain.CustomerB2BEU)

		assert.True(t, got.Subtotal.Equal(dec("500")), "rate %s", rate)
		assert.True(t, got.VatAmount.IsZero(), "rate %s", rate)
		assert.True(t, got.ReverseCharge, "rate %s", rate)
		assert.Equal(t, 0, nonZeroBuckets(got.Buckets), "rate %s", rate)
	}
}

func TestCalculateLineNonEUIsZeroRatedTurnover(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())

	got := calc.CalculateLine(dec("80.00"), dec("23.0"), vatdomain.CustomerB2BNonEU)

	assert.True(t, got.Subtotal.Equal(dec("80")))
	assert.True(t, got.VatAmount.IsZero())
	assert.False(t, got.ReverseCharge)
	assert.True(t, got.Buckets.Zero.Equal(dec("80")))
	assert.Equal(t, 1, nonZeroBuckets(got.Buckets))
}

func TestCalculateLineDecompositionHolds(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())
	tolerance := dec("0.01")

	totals := []string{"0", "0.01", "0.99", "1", "9.99", "19.95", "123", "999.99", "12345.67"}
	rates := []string{"23.0", "13.5", "9.0", "0.0"}
	for _, customerType := range []vatdomain.CustomerType{vatdomain.CustomerB2C, vatdomain.CustomerB2BIE} {
		for _, total := range totals {
			for _, rate := range rates {
				got := calc.CalculateLine(dec(total), dec(rate), customerType)

				sum := got.Subtotal.Round(2).Add(got.VatAmount.Round(2))
				assert.True(t, sum.Sub(dec(total)).Abs().LessThanOrEqual(tolerance),
					"%s total=%s rate=%s sum=%s", customerType, total, rate, sum)
				assert.LessOrEqual(t, nonZeroBuckets(got.Buckets), 1)
			}
		}
	}
}

func TestCalculateLineBucketsFollowRate(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())

	reduced := calc.CalculateLine(dec("113.50"), dec("13.5"), vatdomain.CustomerB2BIE)
	assert.True(t, reduced.Buckets.Reduced.Equal(dec("13.5")), "reduced %s", reduced.Buckets.Reduced)
	assert.Equal(t, vatdomain.RateReduced, reduced.Category)

	second := calc.CalculateLine(dec("109.00"), dec("9.0"), vatdomain.CustomerB2C)
	assert.True(t, second.Buckets.SecondReduced.Equal(dec("9")))
	assert.Equal(t, vatdomain.RateSecondReduced, second.Category)

	unknown := calc.CalculateLine(dec("105.00"), dec("5"), vatdomain.CustomerB2C)
	assert.Equal(t, vatdomain.RateExempt, unknown.Category)
	assert.True(t, unknown.Buckets.Exempt.Equal(dec("5")))
	assert.Equal(t, 1, nonZeroBuckets(unknown.Buckets))
}

func TestCalculateLineKeepsPrecisionUntilRounding(t *testing.T) {
	calc := NewCalculator(vatdomain.DefaultRateTable())

	got := calc.CalculateLine(dec("10.00"), dec("23.0"), vatdomain.CustomerB2C)

	// 10 * 23 / 123 = 1.869918...
	assert.True(t, got.VatAmount.GreaterThan(dec("1.8699")))
	assert.True(t, got.VatAmount.LessThan(dec("1.8700")))
	assert.Equal(t, "1.87", got.VatAmount.StringFixed(2))
	assert.Equal(t, "8.13", got.Subtotal.StringFixed(2))
}
