package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(customerType vatdomain.CustomerType, country, subtotal, vat string, buckets vatdomain.Buckets) vatdomain.TaxRecord {
	return vatdomain.TaxRecord{
		CustomerType:     customerType,
		CustomerCountry:  country,
		Subtotal:         dec(subtotal),
		VatAmount:        dec(vat),
		StandardVat:      buckets.Standard,
		ReducedVat:       buckets.Reduced,
		SecondReducedVat: buckets.SecondReduced,
		ZeroVat:          buckets.Zero,
		ExemptAmount:     buckets.Exempt,
	}
}

func TestSummarizeTotals(t *testing.T) {
	j := vatdomain.NewJurisdiction("IE", []string{"IE", "DE", "FR"})
	records := []vatdomain.TaxRecord{
		record(vatdomain.CustomerB2C, "IE", "100", "23", vatdomain.Buckets{Standard: dec("23")}),
		record(vatdomain.CustomerB2C, "IE", "200", "46", vatdomain.Buckets{Standard: dec("46")}),
	}

	got := summarize(records, j)

	assert.Equal(t, int64(2), got.TotalOrders)
	assert.True(t, got.TotalSales.Equal(dec("300")))
	assert.True(t, got.TotalVatCollected.Equal(dec("69")))
	assert.True(t, got.StandardRateSales.Equal(dec("300")))
	assert.True(t, got.StandardRateVat.Equal(dec("69")))
	assert.True(t, got.ReducedRateSales.IsZero())
	assert.True(t, got.EUB2BSales.IsZero())
	assert.True(t, got.EUB2CSales.IsZero())
}

func TestSummarizeCrossBorderSales(t *testing.T) {
	j := vatdomain.NewJurisdiction("IE", []string{"IE", "DE", "FR"})
	vatNumber := "DE123456789"
	business := record(vatdomain.CustomerB2BEU, "DE", "500", "0", vatdomain.Buckets{})
	business.CustomerVatNumber = &vatNumber
	records := []vatdomain.TaxRecord{
		business,
		record(vatdomain.CustomerB2BEU, "FR", "40", "0", vatdomain.Buckets{}),
		record(vatdomain.CustomerB2BNonEU, "US", "80", "0", vatdomain.Buckets{Zero: dec("80")}),
		record(vatdomain.CustomerB2C, "IE", "100", "13.5", vatdomain.Buckets{Reduced: dec("13.5")}),
	}

	got := summarize(records, j)

	assert.Equal(t, int64(4), got.TotalOrders)
	assert.True(t, got.EUB2BSales.Equal(dec("540")), "eu b2b %s", got.EUB2BSales)
	// A buyer VAT number does not move a record out of EU B2C sales.
	assert.True(t, got.EUB2CSales.Equal(dec("540")), "eu b2c %s", got.EUB2CSales)
	assert.True(t, got.ZeroRateSales.Equal(dec("80")))
	assert.True(t, got.ReducedRateSales.Equal(dec("100")))
	assert.True(t, got.ReducedRateVat.Equal(dec("13.5")))
	assert.True(t, got.StandardRateSales.IsZero())
}

func TestBreakdownDropsUntouchedCategories(t *testing.T) {
	records := []vatdomain.TaxRecord{
		record(vatdomain.CustomerB2C, "IE", "100", "23", vatdomain.Buckets{Standard: dec("23")}),
		record(vatdomain.CustomerB2C, "IE", "150", "26.5", vatdomain.Buckets{Standard: dec("23"), SecondReduced: dec("3.5")}),
		record(vatdomain.CustomerB2BNonEU, "US", "80", "0", vatdomain.Buckets{Zero: dec("80")}),
		record(vatdomain.CustomerB2BEU, "DE", "500", "0", vatdomain.Buckets{}),
	}

	rows := breakdown(records, vatdomain.DefaultRateTable())

	require.Len(t, rows, 3)
	assert.Equal(t, vatdomain.RateStandard, rows[0].Category)
	assert.Equal(t, int64(2), rows[0].OrderCount)
	assert.True(t, rows[0].SalesAmount.Equal(dec("250")))
	assert.True(t, rows[0].VatAmount.Equal(dec("46")))
	assert.True(t, rows[0].RatePercent.Equal(dec("23")))

	assert.Equal(t, vatdomain.RateSecondReduced, rows[1].Category)
	assert.Equal(t, int64(1), rows[1].OrderCount)
	assert.True(t, rows[1].VatAmount.Equal(dec("3.5")))

	assert.Equal(t, vatdomain.RateZero, rows[2].Category)
	assert.True(t, rows[2].SalesAmount.Equal(dec("80")))
	assert.True(t, rows[2].VatAmount.IsZero())
}

func TestBreakdownEmpty(t *testing.T) {
	assert.Empty(t, breakdown(nil, vatdomain.DefaultRateTable()))
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("2025-01-01", "2025-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), r.filter().To)

	period := "2025-02"
	r, err = parseRange("", "", &period)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, "2025-02", r.filter().Period)

	cases := []struct {
		name   string
		start  string
		end    string
		period string
		want   error
	}{
		{name: "bad start", start: "01/01/2025", end: "2025-01-31", want: vatdomain.ErrInvalidDateRange},
		{name: "missing end", start: "2025-01-01", want: vatdomain.ErrInvalidDateRange},
		{name: "reversed", start: "2025-02-01", end: "2025-01-01", want: vatdomain.ErrInvalidDateRange},
		{name: "bad period", start: "2025-01-01", end: "2025-01-31", period: "2025-13", want: vatdomain.ErrInvalidPeriod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p *string
			if tc.period != "" {
				p = &tc.period
			}
			_, err := parseRange(tc.start, tc.end, p)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, vatdomain.IsValidation(err))
		})
	}
}

func TestGetTaxSummaryOverStoredRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.order("IE", time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), "0", orderLine{total: "123.00", rate: "23.0"})
	b := f.order("IE", time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC), "0", orderLine{total: "246.00", rate: "23.0"})
	outside := f.order("IE", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "0", orderLine{total: "984.00", rate: "23.0"})
	for _, id := range []string{a.ID.String(), b.ID.String(), outside.ID.String()} {
		_, err := f.svc.CalculateOrderTax(ctx, id)
		require.NoError(t, err)
	}

	summary, err := f.svc.GetTaxSummary(ctx, vatdomain.SummaryRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalOrders)
	assert.Equal(t, "300.00", summary.TotalSales.StringFixed(2))
	assert.Equal(t, "69.00", summary.TotalVatCollected.StringFixed(2))

	rows, err := f.svc.GetVatBreakdown(ctx, vatdomain.SummaryRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].OrderCount)

	period := "2025-02"
	records, err := f.svc.ListTaxRecords(ctx, vatdomain.SummaryRequest{Period: &period})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, outside.ID, records[0].OrderID)
	assert.True(t, records[0].VatAmount.Equal(decimal.NewFromInt(184)))
}

func TestGetTaxSummaryCountsEUBusinessUnderBothEUTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.order("DE", january, "0", orderLine{total: "500.00", rate: "23.0"})
	vatNumber := "DE123"
	order.VatNumber = &vatNumber
	f.orders.add(order)
	_, err := f.svc.CalculateOrderTax(ctx, order.ID.String())
	require.NoError(t, err)

	summary, err := f.svc.GetTaxSummary(ctx, vatdomain.SummaryRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "500.00", summary.EUB2BSales.StringFixed(2))
	assert.Equal(t, "500.00", summary.EUB2CSales.StringFixed(2))
}
