package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Buckets holds one amount per rate category. For the three positive rates
// the amount is VAT; for ZERO and EXEMPT it is turnover.
type Buckets struct {
	Standard      decimal.Decimal
	Reduced       decimal.Decimal
	SecondReduced decimal.Decimal
	Zero          decimal.Decimal
	Exempt        decimal.Decimal
}

func (b Buckets) Get(category RateCategory) decimal.Decimal {
	switch category {
	case RateStandard:
		return b.Standard
	case RateReduced:
		return b.Reduced
	case RateSecondReduced:
		return b.SecondReduced
	case RateZero:
		return b.Zero
	case RateExempt:
		return b.Exempt
	default:
		return decimal.Zero
	}
}

// With returns a copy of b with amount added to category.
func (b Buckets) With(category RateCategory, amount decimal.Decimal) Buckets {
	switch category {
	case RateStandard:
		b.Standard = b.Standard.Add(amount)
	case RateReduced:
		b.Reduced = b.Reduced.Add(amount)
	case RateSecondReduced:
		b.SecondReduced = b.SecondReduced.Add(amount)
	case RateZero:
		b.Zero = b.Zero.Add(amount)
	case RateExempt:
		b.Exempt = b.Exempt.Add(amount)
	}
	return b
}

func (b Buckets) Add(other Buckets) Buckets {
	return Buckets{
		Standard:      b.Standard.Add(other.Standard),
		Reduced:       b.Reduced.Add(other.Reduced),
		SecondReduced: b.SecondReduced.Add(other.SecondReduced),
		Zero:          b.Zero.Add(other.Zero),
		Exempt:        b.Exempt.Add(other.Exempt),
	}
}

func (b Buckets) Round(places int32) Buckets {
	return Buckets{
		Standard:      b.Standard.Round(places),
		Reduced:       b.Reduced.Round(places),
		SecondReduced: b.SecondReduced.Round(places),
		Zero:          b.Zero.Round(places),
		Exempt:        b.Exempt.Round(places),
	}
}

// LineTaxBreakdown is the VAT decomposition of a single order line.
// Values are unrounded.
type LineTaxBreakdown struct {
	Subtotal       decimal.Decimal
	VatAmount      decimal.Decimal
	VatRatePercent decimal.Decimal
	Category       RateCategory
	ReverseCharge  bool
	Buckets        Buckets
}

// TaxRecord is the persisted VAT outcome of one completed order.
// Rows are written once and never updated.
type TaxRecord struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID           snowflake.ID    `gorm:"column:order_id;not null;uniqueIndex:ux_tax_records_order" json:"order_id"`
	OrderNumber       string          `gorm:"column:order_number;type:text;not null" json:"order_number"`
	CustomerType      CustomerType    `gorm:"column:customer_type;type:text;not null" json:"customer_type"`
	CustomerCountry   string          `gorm:"column:customer_country;type:text;not null" json:"customer_country"`
	CustomerVatNumber *string         `gorm:"column:customer_vat_number;type:text" json:"customer_vat_number,omitempty"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	VatAmount         decimal.Decimal `gorm:"column:vat_amount;type:numeric(14,2);not null" json:"vat_amount"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	StandardVat       decimal.Decimal `gorm:"column:standard_vat;type:numeric(14,2);not null" json:"standard_vat"`
	ReducedVat        decimal.Decimal `gorm:"column:reduced_vat;type:numeric(14,2);not null" json:"reduced_vat"`
	SecondReducedVat  decimal.Decimal `gorm:"column:second_reduced_vat;type:numeric(14,2);not null" json:"second_reduced_vat"`
	ZeroVat           decimal.Decimal `gorm:"column:zero_vat;type:numeric(14,2);not null" json:"zero_vat"`
	ExemptAmount      decimal.Decimal `gorm:"column:exempt_amount;type:numeric(14,2);not null" json:"exempt_amount"`
	VatNumber         string          `gorm:"column:vat_number;type:text;not null" json:"vat_number"`
	InvoiceNumber     string          `gorm:"column:invoice_number;type:text;not null" json:"invoice_number"`
	ReverseCharge     bool            `gorm:"column:reverse_charge;not null;default:false" json:"reverse_charge"`
	OrderDate         time.Time       `gorm:"column:order_date;not null;index" json:"order_date"`
	TaxPeriod         string          `gorm:"column:tax_period;type:text;not null;index" json:"tax_period"`
	ReportingYear     int             `gorm:"column:reporting_year;not null" json:"reporting_year"`
	ReportingQuarter  int             `gorm:"column:reporting_quarter;not null" json:"reporting_quarter"`
	ReportingMonth    int             `gorm:"column:reporting_month;not null" json:"reporting_month"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
}

func (TaxRecord) TableName() string { return "tax_records" }

// Buckets returns the record's bucket columns.
func (r TaxRecord) Buckets() Buckets {
	return Buckets{
		Standard:      r.StandardVat,
		Reduced:       r.ReducedVat,
		SecondReduced: r.SecondReducedVat,
		Zero:          r.ZeroVat,
		Exempt:        r.ExemptAmount,
	}
}

type PeriodType string

const (
	PeriodMonthly   PeriodType = "MONTHLY"
	PeriodBimonthly PeriodType = "BIMONTHLY"
	PeriodQuarterly PeriodType = "QUARTERLY"
	PeriodAnnual    PeriodType = "ANNUAL"
)

func (p PeriodType) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodBimonthly, PeriodQuarterly, PeriodAnnual:
		return true
	default:
		return false
	}
}

type ReturnStatus string

const (
	ReturnDraft ReturnStatus = "DRAFT"
	ReturnFiled ReturnStatus = "FILED"
)

func (s ReturnStatus) Valid() bool {
	return s == ReturnDraft || s == ReturnFiled
}

// TaxReturn is a filing snapshot of a period summary.
// Status moves DRAFT -> FILED only; FILED is terminal.
type TaxReturn struct {
	ID                     snowflake.ID    `gorm:"primaryKey" json:"id"`
	Period                 string          `gorm:"type:text;not null;uniqueIndex:ux_tax_returns_period" json:"period"`
	PeriodType             PeriodType      `gorm:"column:period_type;type:text;not null" json:"period_type"`
	StartDate              time.Time       `gorm:"column:start_date;not null" json:"start_date"`
	EndDate                time.Time       `gorm:"column:end_date;not null" json:"end_date"`
	TotalOrders            int64           `gorm:"column:total_orders;not null" json:"total_orders"`
	TotalSales             decimal.Decimal `gorm:"column:total_sales;type:numeric(14,2);not null" json:"total_sales"`
	TotalVatCollected      decimal.Decimal `gorm:"column:total_vat_collected;type:numeric(14,2);not null" json:"total_vat_collected"`
	TotalVatDue            decimal.Decimal `gorm:"column:total_vat_due;type:numeric(14,2);not null" json:"total_vat_due"`
	StandardRateSales      decimal.Decimal `gorm:"column:standard_rate_sales;type:numeric(14,2);not null" json:"standard_rate_sales"`
	StandardRateVat        decimal.Decimal `gorm:"column:standard_rate_vat;type:numeric(14,2);not null" json:"standard_rate_vat"`
	ReducedRateSales       decimal.Decimal `gorm:"column:reduced_rate_sales;type:numeric(14,2);not null" json:"reduced_rate_sales"`
	ReducedRateVat         decimal.Decimal `gorm:"column:reduced_rate_vat;type:numeric(14,2);not null" json:"reduced_rate_vat"`
	SecondReducedRateSales decimal.Decimal `gorm:"column:second_reduced_rate_sales;type:numeric(14,2);not null" json:"second_reduced_rate_sales"`
	SecondReducedRateVat   decimal.Decimal `gorm:"column:second_reduced_rate_vat;type:numeric(14,2);not null" json:"second_reduced_rate_vat"`
	ZeroRateSales          decimal.Decimal `gorm:"column:zero_rate_sales;type:numeric(14,2);not null" json:"zero_rate_sales"`
	ExemptSales            decimal.Decimal `gorm:"column:exempt_sales;type:numeric(14,2);not null" json:"exempt_sales"`
	EUB2BSales             decimal.Decimal `gorm:"column:eu_b2b_sales;type:numeric(14,2);not null" json:"eu_b2b_sales"`
	EUB2CSales             decimal.Decimal `gorm:"column:eu_b2c_sales;type:numeric(14,2);not null" json:"eu_b2c_sales"`
	Breakdown              datatypes.JSON  `gorm:"type:json" json:"breakdown"`
	Status                 ReturnStatus    `gorm:"type:text;not null" json:"status"`
	FiledAt                *time.Time      `gorm:"column:filed_at" json:"filed_at,omitempty"`
	FiledBy                *string         `gorm:"column:filed_by;type:text" json:"filed_by,omitempty"`
	CreatedAt              time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"not null" json:"updated_at"`
}

func (TaxReturn) TableName() string { return "tax_returns" }

// TaxSummary aggregates tax records over a date range.
type TaxSummary struct {
	StartDate              time.Time       `json:"start_date"`
	EndDate                time.Time       `json:"end_date"`
	Period                 string          `json:"period,omitempty"`
	TotalOrders            int64           `json:"total_orders"`
	TotalSales             decimal.Decimal `json:"total_sales"`
	TotalVatCollected      decimal.Decimal `json:"total_vat_collected"`
	StandardRateSales      decimal.Decimal `json:"standard_rate_sales"`
	StandardRateVat        decimal.Decimal `json:"standard_rate_vat"`
	ReducedRateSales       decimal.Decimal `json:"reduced_rate_sales"`
	ReducedRateVat         decimal.Decimal `json:"reduced_rate_vat"`
	SecondReducedRateSales decimal.Decimal `json:"second_reduced_rate_sales"`
	SecondReducedRateVat   decimal.Decimal `json:"second_reduced_rate_vat"`
	ZeroRateSales          decimal.Decimal `json:"zero_rate_sales"`
	ExemptSales            decimal.Decimal `json:"exempt_sales"`
	EUB2BSales             decimal.Decimal `json:"eu_b2b_sales"`
	EUB2CSales             decimal.Decimal `json:"eu_b2c_sales"`
}

// VatBreakdown is one rate row of a period breakdown.
type VatBreakdown struct {
	Category    RateCategory    `json:"category"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	SalesAmount decimal.Decimal `json:"sales_amount"`
	VatAmount   decimal.Decimal `json:"vat_amount"`
	OrderCount  int64           `json:"order_count"`
}

// RecalculationFailure captures one order that could not be processed.
type RecalculationFailure struct {
	OrderID snowflake.ID `json:"order_id"`
	Error   string       `json:"error"`
}

// RecalculationResult is the outcome of a batch recalculation.
type RecalculationResult struct {
	RunID     string                 `json:"run_id"`
	Processed int                    `json:"processed"`
	Skipped   int                    `json:"skipped"`
	Failures  []RecalculationFailure `json:"failures"`
}
