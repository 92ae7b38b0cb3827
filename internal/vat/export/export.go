package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat defaults to xlsx when raw is empty.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("export format %q: %w", raw, vatdomain.ErrInvalidFormat)
	}
}

// Document is a rendered tax return ready to be served as an attachment.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Params struct {
	fx.In

	Service vatdomain.Service
	Log     *zap.Logger
}

type Exporter struct {
	svc vatdomain.Service
	log *zap.Logger
}

func NewExporter(p Params) *Exporter {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{svc: p.Service, log: log.Named("vat.export")}
}

func (e *Exporter) ExportTaxReturn(ctx context.Context, id string, format Format) (*Document, error) {
	ret, err := e.svc.GetTaxReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := decodeBreakdown(ret)
	if err != nil {
		return nil, err
	}

	var doc *Document
	switch format {
	case FormatXLSX:
		doc, err = RenderXLSX(ret, rows)
	case FormatPDF:
		doc, err = RenderPDF(ret, rows)
	default:
		return nil, fmt.Errorf("export format %q: %w", format, vatdomain.ErrInvalidFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("render tax return %s as %s: %w", ret.ID, format, err)
	}

	e.log.Info("tax return exported",
		zap.String("tax_return_id", ret.ID.String()),
		zap.String("format", string(format)),
		zap.Int("bytes", len(doc.Body)),
	)
	return doc, nil
}

func decodeBreakdown(ret *vatdomain.TaxReturn) ([]vatdomain.VatBreakdown, error) {
	if len(ret.Breakdown) == 0 {
		return nil, nil
	}
	var rows []vatdomain.VatBreakdown
	if err := json.Unmarshal(ret.Breakdown, &rows); err != nil {
		return nil, fmt.Errorf("decode breakdown of tax return %s: %w", ret.ID, err)
	}
	return rows, nil
}

func filename(ret *vatdomain.TaxReturn, format Format) string {
	period := strings.NewReplacer("/", "-", " ", "_").Replace(ret.Period)
	return fmt.Sprintf("vat-return-%s.%s", period, format)
}

// summaryLines are the label/value pairs shared by every export format.
func summaryLines(ret *vatdomain.TaxReturn) [][2]string {
	money := func(v decimal.Decimal) string { return v.StringFixed(2) }
	return [][2]string{
		{"Total orders", fmt.Sprintf("%d", ret.TotalOrders)},
		{"Total sales (net)", money(ret.TotalSales)},
		{"VAT collected", money(ret.TotalVatCollected)},
		{"VAT due", money(ret.TotalVatDue)},
		{"Standard rate sales", money(ret.StandardRateSales)},
		{"Standard rate VAT", money(ret.StandardRateVat)},
		{"Reduced rate sales", money(ret.ReducedRateSales)},
		{"Reduced rate VAT", money(ret.ReducedRateVat)},
		{"Second reduced rate sales", money(ret.SecondReducedRateSales)},
		{"Second reduced rate VAT", money(ret.SecondReducedRateVat)},
		{"Zero rated sales", money(ret.ZeroRateSales)},
		{"Exempt sales", money(ret.ExemptSales)},
		{"EU B2B sales", money(ret.EUB2BSales)},
		{"EU B2C sales", money(ret.EUB2CSales)},
	}
}
