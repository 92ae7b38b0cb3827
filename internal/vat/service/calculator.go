package service

import (
	"github.com/shopspring/decimal"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
)

var hundred = decimal.NewFromInt(100)

// Calculator decomposes VAT-inclusive line totals using a fixed rate table.
// Results are unrounded; rounding happens when a record is persisted.
type Calculator struct {
	rates vatdomain.RateTable
}

func NewCalculator(rates vatdomain.RateTable) Calculator {
	return Calculator{rates: rates}
}

func (c Calculator) CalculateLine(lineTotal, vatRatePercent decimal.Decimal, customerType vatdomain.CustomerType) vatdomain.LineTaxBreakdown {
	switch customerType {
	case vatdomain.CustomerB2BEU:
		return vatdomain.LineTaxBreakdown{
			Subtotal:       lineTotal,
			VatAmount:      decimal.Zero,
			VatRatePercent: vatRatePercent,
			Category:       c.rates.CategoryFor(vatRatePercent),
			ReverseCharge:  true,
		}
	case vatdomain.CustomerB2BNonEU:
		// Exports are zero-rated turnover, not untaxed.
		return vatdomain.LineTaxBreakdown{
			Subtotal:       lineTotal,
			VatAmount:      decimal.Zero,
			VatRatePercent: vatRatePercent,
			Category:       vatdomain.RateZero,
			Buckets:        vatdomain.Buckets{}.With(vatdomain.RateZero, lineTotal),
		}
	}

	vat := includedVAT(lineTotal, vatRatePercent)
	category := c.rates.CategoryFor(vatRatePercent)
	return vatdomain.LineTaxBreakdown{
		Subtotal:       lineTotal.Sub(vat),
		VatAmount:      vat,
		VatRatePercent: vatRatePercent,
		Category:       category,
		Buckets:        vatdomain.Buckets{}.With(category, vat),
	}
}

// includedVAT back-calculates the VAT contained in a gross amount.
func includedVAT(gross, ratePercent decimal.Decimal) decimal.Decimal {
	if gross.IsZero() || ratePercent.Sign() <= 0 {
		return decimal.Zero
	}
	return gross.Mul(ratePercent).Div(hundred.Add(ratePercent))
}

var _ vatdomain.LineCalculator = Calculator{}
