package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RecordFilter selects tax records by order date in [From, To).
type RecordFilter struct {
	From   time.Time
	To     time.Time
	Period string
}

type ReturnListFilter struct {
	AfterID snowflake.ID
	Limit   int
}

type Repository interface {
	// InsertTaxRecord stores rec unless a record for the same order exists.
	// It reports false when the insert was skipped by the uniqueness constraint.
	InsertTaxRecord(ctx context.Context, rec *TaxRecord) (bool, error)
	FindTaxRecordByOrderID(ctx context.Context, orderID snowflake.ID) (*TaxRecord, error)
	ListTaxRecords(ctx context.Context, filter RecordFilter) ([]TaxRecord, error)

	InsertTaxReturn(ctx context.Context, ret *TaxReturn) error
	FindTaxReturnByID(ctx context.Context, id snowflake.ID) (*TaxReturn, error)
	FindTaxReturnByPeriod(ctx context.Context, period string) (*TaxReturn, error)
	ListTaxReturns(ctx context.Context, filter ReturnListFilter) ([]TaxReturn, error)
	// MarkTaxReturnFiled flips a DRAFT return to FILED and reports whether a row changed.
	MarkTaxReturnFiled(ctx context.Context, id snowflake.ID, filedAt time.Time, filedBy string) (bool, error)
}
