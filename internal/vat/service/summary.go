package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
)

const dateLayout = "2006-01-02"

// dateRange is an inclusive [Start, End] day range plus an optional tax period key.
type dateRange struct {
	Start  time.Time
	End    time.Time
	Period string
}

func (r dateRange) filter() vatdomain.RecordFilter {
	return vatdomain.RecordFilter{
		From:   r.Start,
		To:     r.End.AddDate(0, 0, 1),
		Period: r.Period,
	}
}

// parseRange validates YYYY-MM-DD dates. When both dates are empty and a
// YYYY-MM period is given, the range covers that month.
func parseRange(startDate, endDate string, period *string) (dateRange, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	var key string
	if period != nil {
		key = strings.TrimSpace(*period)
	}
	if key != "" {
		if _, err := time.Parse(taxPeriodLayout, key); err != nil {
			return dateRange{}, fmt.Errorf("period %q: %w", key, vatdomain.ErrInvalidPeriod)
		}
	}

	if startDate == "" && endDate == "" && key != "" {
		month, _ := time.Parse(taxPeriodLayout, key)
		return dateRange{
			Start:  month,
			End:    month.AddDate(0, 1, -1),
			Period: key,
		}, nil
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return dateRange{}, fmt.Errorf("start date %q: %w", startDate, vatdomain.ErrInvalidDateRange)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return dateRange{}, fmt.Errorf("end date %q: %w", endDate, vatdomain.ErrInvalidDateRange)
	}
	if end.Before(start) {
		return dateRange{}, fmt.Errorf("end date %s before start date %s: %w", endDate, startDate, vatdomain.ErrInvalidDateRange)
	}
	return dateRange{Start: start, End: end, Period: key}, nil
}

func (s *Service) loadRecords(ctx context.Context, r dateRange) ([]vatdomain.TaxRecord, error) {
	records, err := s.repo.ListTaxRecords(ctx, r.filter())
	if err != nil {
		return nil, fmt.Errorf("list tax records %s..%s: %w", r.Start.Format(dateLayout), r.End.Format(dateLayout), err)
	}
	return records, nil
}

func (s *Service) ListTaxRecords(ctx context.Context, req vatdomain.SummaryRequest) ([]vatdomain.TaxRecord, error) {
	r, err := parseRange(req.StartDate, req.EndDate, req.Period)
	if err != nil {
		return nil, err
	}
	return s.loadRecords(ctx, r)
}

func (s *Service) GetTaxSummary(ctx context.Context, req vatdomain.SummaryRequest) (*vatdomain.TaxSummary, error) {
	r, err := parseRange(req.StartDate, req.EndDate, req.Period)
	if err != nil {
		return nil, err
	}
	rl, err := s.rules()
	if err != nil {
		return nil, err
	}
	records, err := s.loadRecords(ctx, r)
	if err != nil {
		return nil, err
	}
	summary := summarize(records, rl.jurisdiction)
	summary.StartDate = r.Start
	summary.EndDate = r.End
	summary.Period = r.Period
	return &summary, nil
}

func (s *Service) GetVatBreakdown(ctx context.Context, req vatdomain.SummaryRequest) ([]vatdomain.VatBreakdown, error) {
	r, err := parseRange(req.StartDate, req.EndDate, req.Period)
	if err != nil {
		return nil, err
	}
	rl, err := s.rules()
	if err != nil {
		return nil, err
	}
	records, err := s.loadRecords(ctx, r)
	if err != nil {
		return nil, err
	}
	return breakdown(records, rl.rates), nil
}

// summarize folds records into period totals in a single pass. A positive-rate
// bucket only attracts sales when the record actually carries VAT in it; the
// zero and exempt buckets hold turnover and are summed directly.
func summarize(records []vatdomain.TaxRecord, jurisdiction vatdomain.Jurisdiction) vatdomain.TaxSummary {
	summary := vatdomain.TaxSummary{
		TotalSales:             decimal.Zero,
		TotalVatCollected:      decimal.Zero,
		StandardRateSales:      decimal.Zero,
		StandardRateVat:        decimal.Zero,
		ReducedRateSales:       decimal.Zero,
		ReducedRateVat:         decimal.Zero,
		SecondReducedRateSales: decimal.Zero,
		SecondReducedRateVat:   decimal.Zero,
		ZeroRateSales:          decimal.Zero,
		ExemptSales:            decimal.Zero,
		EUB2BSales:             decimal.Zero,
		EUB2CSales:             decimal.Zero,
	}

	for _, rec := range records {
		summary.TotalOrders++
		summary.TotalSales = summary.TotalSales.Add(rec.Subtotal)
		summary.TotalVatCollected = summary.TotalVatCollected.Add(rec.VatAmount)

		if !rec.StandardVat.IsZero() {
			summary.StandardRateSales = summary.StandardRateSales.Add(rec.Subtotal)
			summary.StandardRateVat = summary.StandardRateVat.Add(rec.StandardVat)
		}
		if !rec.ReducedVat.IsZero() {
			summary.ReducedRateSales = summary.ReducedRateSales.Add(rec.Subtotal)
			summary.ReducedRateVat = summary.ReducedRateVat.Add(rec.ReducedVat)
		}
		if !rec.SecondReducedVat.IsZero() {
			summary.SecondReducedRateSales = summary.SecondReducedRateSales.Add(rec.Subtotal)
			summary.SecondReducedRateVat = summary.SecondReducedRateVat.Add(rec.SecondReducedVat)
		}
		summary.ZeroRateSales = summary.ZeroRateSales.Add(rec.ZeroVat)
		summary.ExemptSales = summary.ExemptSales.Add(rec.ExemptAmount)

		if rec.CustomerType == vatdomain.CustomerB2BEU {
			summary.EUB2BSales = summary.EUB2BSales.Add(rec.Subtotal)
		}
		// Every other-EU buyer counts here as well as under B2B, matching the
		// classifier's treatment of EU consumers as B2B_EU.
		if jurisdiction.IsOtherEU(rec.CustomerCountry) {
			summary.EUB2CSales = summary.EUB2CSales.Add(rec.Subtotal)
		}
	}
	return summary
}

// breakdown returns one row per rate category in reporting order, dropping
// categories no record touched.
func breakdown(records []vatdomain.TaxRecord, rates vatdomain.RateTable) []vatdomain.VatBreakdown {
	rows := make(map[vatdomain.RateCategory]*vatdomain.VatBreakdown, len(vatdomain.RateCategories))
	for _, category := range vatdomain.RateCategories {
		rows[category] = &vatdomain.VatBreakdown{
			Category:    category,
			RatePercent: rates.Rate(category),
			SalesAmount: decimal.Zero,
			VatAmount:   decimal.Zero,
		}
	}

	for _, rec := range records {
		buckets := rec.Buckets()
		for _, category := range vatdomain.RateCategories {
			amount := buckets.Get(category)
			if amount.IsZero() {
				continue
			}
			row := rows[category]
			row.OrderCount++
			switch category {
			case vatdomain.RateZero, vatdomain.RateExempt:
				row.SalesAmount = row.SalesAmount.Add(amount)
			default:
				row.SalesAmount = row.SalesAmount.Add(rec.Subtotal)
				row.VatAmount = row.VatAmount.Add(amount)
			}
		}
	}

	out := make([]vatdomain.VatBreakdown, 0, len(rows))
	for _, category := range vatdomain.RateCategories {
		if row := rows[category]; row.OrderCount > 0 {
			out = append(out, *row)
		}
	}
	return out
}
