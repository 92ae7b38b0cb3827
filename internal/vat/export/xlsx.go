package export

import (
	"fmt"

	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Summary"
	sheetBreakdown = "Breakdown"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// numFmtMoney is the built-in "#,##0.00" format.
	numFmtMoney = 4
)

// RenderXLSX writes a Summary sheet of period totals and a Breakdown sheet with
// one row per rate category.
func RenderXLSX(ret *vatdomain.TaxReturn, rows []vatdomain.VatBreakdown) (*Document, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetBreakdown); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return nil, err
	}

	header := [][]any{
		{"VAT return", ret.Period},
		{"Period type", string(ret.PeriodType)},
		{"From", ret.StartDate.Format("2006-01-02")},
		{"To", ret.EndDate.Format("2006-01-02")},
		{"Status", string(ret.Status)},
	}
	row := 1
	for _, values := range header {
		if err := setRow(f, sheetSummary, row, values); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", row-1), bold); err != nil {
		return nil, err
	}

	row++
	amounts := []struct {
		label string
		value any
	}{
		{"Total orders", ret.TotalOrders},
		{"Total sales (net)", ret.TotalSales.InexactFloat64()},
		{"VAT collected", ret.TotalVatCollected.InexactFloat64()},
		{"VAT due", ret.TotalVatDue.InexactFloat64()},
		{"Standard rate sales", ret.StandardRateSales.InexactFloat64()},
		{"Standard rate VAT", ret.StandardRateVat.InexactFloat64()},
		{"Reduced rate sales", ret.ReducedRateSales.InexactFloat64()},
		{"Reduced rate VAT", ret.ReducedRateVat.InexactFloat64()},
		{"Second reduced rate sales", ret.SecondReducedRateSales.InexactFloat64()},
		{"Second reduced rate VAT", ret.SecondReducedRateVat.InexactFloat64()},
		{"Zero rated sales", ret.ZeroRateSales.InexactFloat64()},
		{"Exempt sales", ret.ExemptSales.InexactFloat64()},
		{"EU B2B sales", ret.EUB2BSales.InexactFloat64()},
		{"EU B2C sales", ret.EUB2CSales.InexactFloat64()},
	}
	first := row
	for _, a := range amounts {
		if err := setRow(f, sheetSummary, row, []any{a.label, a.value}); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetCellStyle(sheetSummary, fmt.Sprintf("B%d", first+1), fmt.Sprintf("B%d", row-1), money); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetSummary, "A", "A", 28); err != nil {
		return nil, err
	}

	if err := setRow(f, sheetBreakdown, 1, []any{"Category", "Rate %", "Sales", "VAT", "Orders"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetBreakdown, "A1", "E1", bold); err != nil {
		return nil, err
	}
	for i, r := range rows {
		values := []any{
			string(r.Category),
			r.RatePercent.InexactFloat64(),
			r.SalesAmount.InexactFloat64(),
			r.VatAmount.InexactFloat64(),
			r.OrderCount,
		}
		if err := setRow(f, sheetBreakdown, i+2, values); err != nil {
			return nil, err
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheetBreakdown, "C2", fmt.Sprintf("D%d", len(rows)+1), money); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    filename(ret, FormatXLSX),
		ContentType: contentTypeXLSX,
		Body:        buf.Bytes(),
	}, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
