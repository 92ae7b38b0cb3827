package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vatledger/pkg/db/pagination"
)

// LineCalculator computes the VAT decomposition of one order line.
type LineCalculator interface {
	CalculateLine(lineTotal, vatRatePercent decimal.Decimal, customerType CustomerType) LineTaxBreakdown
}

type Service interface {
	CalculateOrderTax(ctx context.Context, orderID string) (*TaxRecord, error)
	RecalculateAllTaxRecords(ctx context.Context) (*RecalculationResult, error)
	ListTaxRecords(ctx context.Context, req SummaryRequest) ([]TaxRecord, error)

	GetTaxSummary(ctx context.Context, req SummaryRequest) (*TaxSummary, error)
	GetVatBreakdown(ctx context.Context, req SummaryRequest) ([]VatBreakdown, error)

	CreateTaxReturn(ctx context.Context, req CreateReturnRequest) (*TaxReturn, error)
	UpdateTaxReturnStatus(ctx context.Context, req UpdateReturnStatusRequest) (*TaxReturn, error)
	GetTaxReturn(ctx context.Context, id string) (*TaxReturn, error)
	ListTaxReturns(ctx context.Context, req ListReturnsRequest) (*ListReturnsResponse, error)
}

// SummaryRequest selects records by inclusive YYYY-MM-DD dates and an optional YYYY-MM period.
type SummaryRequest struct {
	StartDate string  `json:"start_date" form:"start_date"`
	EndDate   string  `json:"end_date" form:"end_date"`
	Period    *string `json:"period,omitempty" form:"period"`
}

type CreateReturnRequest struct {
	Period     string     `json:"period"`
	PeriodType PeriodType `json:"period_type"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
}

type UpdateReturnStatusRequest struct {
	ID      string       `json:"id"`
	Status  ReturnStatus `json:"status"`
	FiledBy string       `json:"filed_by"`
}

type ListReturnsRequest struct {
	pagination.Pagination
}

type ListReturnsResponse struct {
	Items    []TaxReturn          `json:"items"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}
