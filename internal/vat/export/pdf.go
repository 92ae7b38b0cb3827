package export

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
)

const contentTypePDF = "application/pdf"

// RenderPDF lays out the return as a single summary document.
func RenderPDF(ret *vatdomain.TaxReturn, rows []vatdomain.VatBreakdown) (*Document, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "VAT return "+ret.Period, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Period type: "+string(ret.PeriodType), props.Text{Top: 0}),
			text.New("From: "+ret.StartDate.Format("2006-01-02"), props.Text{Top: 4}),
			text.New("To: "+ret.EndDate.Format("2006-01-02"), props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Status: "+string(ret.Status), props.Text{Top: 0, Align: align.Right}),
			text.New(filedLine(ret), props.Text{Top: 4, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(12, "Summary", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}),
	)
	for _, line := range summaryLines(ret) {
		m.AddRow(6,
			text.NewCol(8, line[0], props.Text{Size: 9}),
			text.NewCol(4, line[1], props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		text.NewCol(12, "Breakdown by rate", props.Text{Size: 12, Style: fontstyle.Bold, Top: 5}),
	)
	m.AddRow(8,
		text.NewCol(4, "Category", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Rate %", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Sales", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "VAT", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Orders", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	if len(rows) == 0 {
		m.AddRow(6, text.NewCol(12, "No taxable activity in this period.", props.Text{Size: 9}))
	}
	for _, r := range rows {
		m.AddRow(6,
			text.NewCol(4, string(r.Category), props.Text{Size: 9}),
			text.NewCol(2, r.RatePercent.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, r.SalesAmount.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, r.VatAmount.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", r.OrderCount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    filename(ret, FormatPDF),
		ContentType: contentTypePDF,
		Body:        doc.GetBytes(),
	}, nil
}

func filedLine(ret *vatdomain.TaxReturn) string {
	if ret.FiledAt == nil {
		return "Not filed"
	}
	by := "system"
	if ret.FiledBy != nil {
		by = *ret.FiledBy
	}
	return fmt.Sprintf("Filed %s by %s", ret.FiledAt.Format("2006-01-02 15:04"), by)
}
