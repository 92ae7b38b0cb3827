package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) vatdomain.Repository {
	return &repository{db: db}
}

// InsertTaxRecord relies on ux_tax_records_order: a concurrent insert for the
// same order affects no rows instead of failing.
func (r *repository) InsertTaxRecord(ctx context.Context, rec *vatdomain.TaxRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindTaxRecordByOrderID(ctx context.Context, orderID snowflake.ID) (*vatdomain.TaxRecord, error) {
	var rec vatdomain.TaxRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) ListTaxRecords(ctx context.Context, filter vatdomain.RecordFilter) ([]vatdomain.TaxRecord, error) {
	stmt := r.db.WithContext(ctx).Model(&vatdomain.TaxRecord{})
	if !filter.From.IsZero() {
		stmt = stmt.Where("order_date >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("order_date < ?", filter.To.UTC())
	}
	if period := strings.TrimSpace(filter.Period); period != "" {
		stmt = stmt.Where("tax_period = ?", period)
	}

	var items []vatdomain.TaxRecord
	if err := stmt.Order("order_date ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) InsertTaxReturn(ctx context.Context, ret *vatdomain.TaxReturn) error {
	err := r.db.WithContext(ctx).Create(ret).Error
	if db.IsDuplicateKeyErr(err) {
		return vatdomain.ErrDuplicateReturn
	}
	return err
}

func (r *repository) FindTaxReturnByID(ctx context.Context, id snowflake.ID) (*vatdomain.TaxReturn, error) {
	return r.findReturn(ctx, "id = ?", id)
}

func (r *repository) FindTaxReturnByPeriod(ctx context.Context, period string) (*vatdomain.TaxReturn, error) {
	return r.findReturn(ctx, "period = ?", strings.TrimSpace(period))
}

func (r *repository) findReturn(ctx context.Context, query string, arg any) (*vatdomain.TaxReturn, error) {
	var ret vatdomain.TaxReturn
	err := r.db.WithContext(ctx).Where(query, arg).Take(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// ListTaxReturns pages by ascending id after filter.AfterID.
func (r *repository) ListTaxReturns(ctx context.Context, filter vatdomain.ReturnListFilter) ([]vatdomain.TaxReturn, error) {
	stmt := r.db.WithContext(ctx).Model(&vatdomain.TaxReturn{})
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var items []vatdomain.TaxReturn
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkTaxReturnFiled only touches DRAFT rows, so FILED stays terminal even
// under concurrent filing.
func (r *repository) MarkTaxReturnFiled(ctx context.Context, id snowflake.ID, filedAt time.Time, filedBy string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&vatdomain.TaxReturn{}).
		Where("id = ? AND status = ?", id, vatdomain.ReturnDraft).
		Updates(map[string]any{
			"status":     vatdomain.ReturnFiled,
			"filed_at":   filedAt.UTC(),
			"filed_by":   filedBy,
			"updated_at": filedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
