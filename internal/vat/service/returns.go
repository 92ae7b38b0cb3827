package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/pkg/db/pagination"
	"github.com/smallbiznis/vatledger/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	defaultFiler    = "system"
	maxPeriodKeyLen = 32
)

func (s *Service) CreateTaxReturn(ctx context.Context, req vatdomain.CreateReturnRequest) (*vatdomain.TaxReturn, error) {
	ctx, span := tracer.Start(ctx, "vat.CreateTaxReturn", trace.WithAttributes(attribute.String("period", req.Period)))
	defer span.End()

	ret, err := s.createTaxReturn(ctx, req)
	endSpan(span, err)
	return ret, err
}

func (s *Service) createTaxReturn(ctx context.Context, req vatdomain.CreateReturnRequest) (*vatdomain.TaxReturn, error) {
	period := strings.TrimSpace(req.Period)
	if period == "" || len(period) > maxPeriodKeyLen {
		return nil, fmt.Errorf("period %q: %w", period, vatdomain.ErrInvalidPeriod)
	}
	periodType := vatdomain.PeriodType(strings.ToUpper(strings.TrimSpace(string(req.PeriodType))))
	if periodType == "" {
		periodType = vatdomain.PeriodMonthly
	}
	if !periodType.Valid() {
		return nil, fmt.Errorf("period type %q: %w", req.PeriodType, vatdomain.ErrInvalidPeriodType)
	}
	// The return period is a free-form key ("2025-01", "2025-Q1"), so only the
	// date range selects records.
	r, err := parseRange(req.StartDate, req.EndDate, nil)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindTaxReturnByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load tax return for period %s: %w", period, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("tax return for period %s: %w", period, vatdomain.ErrDuplicateReturn)
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
	rows, err := json.Marshal(breakdown(records, rl.rates))
	if err != nil {
		return nil, fmt.Errorf("encode breakdown for period %s: %w", period, err)
	}

	now := s.now()
	ret := &vatdomain.TaxReturn{
		ID:                     s.genID.Generate(),
		Period:                 period,
		PeriodType:             periodType,
		StartDate:              r.Start,
		EndDate:                r.End,
		TotalOrders:            summary.TotalOrders,
		TotalSales:             summary.TotalSales,
		TotalVatCollected:      summary.TotalVatCollected,
		TotalVatDue:            summary.TotalVatCollected,
		StandardRateSales:      summary.StandardRateSales,
		StandardRateVat:        summary.StandardRateVat,
		ReducedRateSales:       summary.ReducedRateSales,
		ReducedRateVat:         summary.ReducedRateVat,
		SecondReducedRateSales: summary.SecondReducedRateSales,
		SecondReducedRateVat:   summary.SecondReducedRateVat,
		ZeroRateSales:          summary.ZeroRateSales,
		ExemptSales:            summary.ExemptSales,
		EUB2BSales:             summary.EUB2BSales,
		EUB2CSales:             summary.EUB2CSales,
		Breakdown:              datatypes.JSON(rows),
		Status:                 vatdomain.ReturnDraft,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.repo.InsertTaxReturn(ctx, ret); err != nil {
		if errors.Is(err, vatdomain.ErrDuplicateReturn) {
			return nil, fmt.Errorf("tax return for period %s: %w", period, vatdomain.ErrDuplicateReturn)
		}
		return nil, fmt.Errorf("persist tax return for period %s: %w", period, err)
	}

	s.metrics.RecordReturnTransition(string(vatdomain.ReturnDraft))
	ctxlogger.WithContext(ctx, s.log).Info("tax return created",
		zap.String("tax_return_id", ret.ID.String()),
		zap.String("period", period),
		zap.Int64("total_orders", ret.TotalOrders),
		zap.String("total_vat_due", ret.TotalVatDue.StringFixed(moneyPlaces)),
	)
	return ret, nil
}

// UpdateTaxReturnStatus applies DRAFT -> FILED. Requesting the current status
// is a no-op; FILED is terminal.
func (s *Service) UpdateTaxReturnStatus(ctx context.Context, req vatdomain.UpdateReturnStatusRequest) (*vatdomain.TaxReturn, error) {
	id, err := parseReturnID(req.ID)
	if err != nil {
		return nil, err
	}
	status := vatdomain.ReturnStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", req.Status, vatdomain.ErrInvalidStatus)
	}

	ret, err := s.findReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status == status {
		return ret, nil
	}
	if ret.Status == vatdomain.ReturnFiled {
		return nil, fmt.Errorf("tax return %s is filed: %w", id, vatdomain.ErrInvalidState)
	}

	filedBy := strings.TrimSpace(req.FiledBy)
	if filedBy == "" {
		filedBy = defaultFiler
	}
	changed, err := s.repo.MarkTaxReturnFiled(ctx, id, s.now(), filedBy)
	if err != nil {
		return nil, fmt.Errorf("file tax return %s: %w", id, err)
	}

	ret, err = s.findReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with another filer; the outcome is the same.
		if ret.Status == vatdomain.ReturnFiled {
			return ret, nil
		}
		return nil, fmt.Errorf("tax return %s not filed: %w", id, vatdomain.ErrInvalidState)
	}

	s.metrics.RecordReturnTransition(string(vatdomain.ReturnFiled))
	ctxlogger.WithContext(ctx, s.log).Info("tax return filed",
		zap.String("tax_return_id", id.String()),
		zap.String("period", ret.Period),
		zap.String("filed_by", filedBy),
	)
	return ret, nil
}

func (s *Service) GetTaxReturn(ctx context.Context, id string) (*vatdomain.TaxReturn, error) {
	returnID, err := parseReturnID(id)
	if err != nil {
		return nil, err
	}
	return s.findReturn(ctx, returnID)
}

func (s *Service) ListTaxReturns(ctx context.Context, req vatdomain.ListReturnsRequest) (*vatdomain.ListReturnsResponse, error) {
	filter := vatdomain.ReturnListFilter{Limit: req.Limit() + 1}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, fmt.Errorf("page token: %w", vatdomain.ErrInvalidID)
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, fmt.Errorf("page token: %w", vatdomain.ErrInvalidID)
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.ListTaxReturns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tax returns: %w", err)
	}
	if items == nil {
		items = []vatdomain.TaxReturn{}
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, req.Limit(), func(ret vatdomain.TaxReturn) pagination.Cursor {
		return pagination.Cursor{ID: ret.ID.String()}
	})
	if err != nil {
		return nil, err
	}
	return &vatdomain.ListReturnsResponse{Items: items, PageInfo: pageInfo}, nil
}

func (s *Service) findReturn(ctx context.Context, id snowflake.ID) (*vatdomain.TaxReturn, error) {
	ret, err := s.repo.FindTaxReturnByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load tax return %s: %w", id, err)
	}
	if ret == nil {
		return nil, fmt.Errorf("tax return %s: %w", id, vatdomain.ErrNotFound)
	}
	return ret, nil
}

func parseReturnID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, vatdomain.ErrInvalidID
	}
	return id, nil
}
