package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vatledger/internal/clock"
	"github.com/smallbiznis/vatledger/internal/config"
	"github.com/smallbiznis/vatledger/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/vatledger/internal/order/domain"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/pkg/log/ctxlogger"
	"github.com/smallbiznis/vatledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	invoicePrefix   = "INV-"
	moneyPlaces     = 2
	taxPeriodLayout = "2006-01"
)

// RecalculationGuard serialises batch recalculation across instances.
type RecalculationGuard interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type ServiceParam struct {
	fx.In

	Repo      vatdomain.Repository
	Orders    orderdomain.Reader
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	VATConfig *config.VATConfigHolder
	Metrics   *metrics.Metrics   `optional:"true"`
	Guard     RecalculationGuard `optional:"true"`
}

type Service struct {
	repo      vatdomain.Repository
	orders    orderdomain.Reader
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	vatConfig *config.VATConfigHolder
	metrics   *metrics.Metrics
	guard     RecalculationGuard
}

func NewService(p ServiceParam) vatdomain.Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	holder := p.VATConfig
	if holder == nil {
		holder = config.NewStaticVATConfigHolder(config.DefaultVATConfig())
	}
	return &Service{
		repo:      p.Repo,
		orders:    p.Orders,
		log:       log.Named("vat.service"),
		genID:     p.GenID,
		clock:     clk,
		vatConfig: holder,
		metrics:   p.Metrics,
		guard:     p.Guard,
	}
}

// rules is an immutable snapshot of the jurisdiction taken once per operation,
// so a config reload never splits a single calculation across two rate tables.
type rules struct {
	rates           vatdomain.RateTable
	jurisdiction    vatdomain.Jurisdiction
	classifier      vatdomain.Classifier
	calculator      Calculator
	sellerVATNumber string
}

func (s *Service) rules() (rules, error) {
	cfg := s.vatConfig.Get()
	percentages, err := cfg.RatePercentages()
	if err != nil {
		return rules{}, fmt.Errorf("vat rates: %w", err)
	}
	rates := vatdomain.NewRateTable(percentages)
	jurisdiction := vatdomain.NewJurisdiction(cfg.HomeCountry, cfg.EUCountries)
	return rules{
		rates:           rates,
		jurisdiction:    jurisdiction,
		classifier:      vatdomain.NewClassifier(jurisdiction),
		calculator:      NewCalculator(rates),
		sellerVATNumber: cfg.SellerVATNumber,
	}, nil
}

func (s *Service) CalculateOrderTax(ctx context.Context, orderID string) (*vatdomain.TaxRecord, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(orderID))
	if err != nil {
		return nil, vatdomain.ErrInvalidID
	}

	ctx, span := tracer.Start(ctx, "vat.CalculateOrderTax", trace.WithAttributes(attribute.String("order_id", id.String())))
	defer span.End()

	record, created, err := s.calculateOrderTax(ctx, id)
	endSpan(span, err)
	span.SetAttributes(attribute.Bool("created", created))
	return record, err
}

// calculateOrderTax reports created=false when the record already existed.
func (s *Service) calculateOrderTax(ctx context.Context, orderID snowflake.ID) (*vatdomain.TaxRecord, bool, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, false, fmt.Errorf("order %s: %w", orderID, vatdomain.ErrNotFound)
	}
	if !order.Status.IsCompleted() {
		return nil, false, fmt.Errorf("order %s has status %s: %w", orderID, order.Status, vatdomain.ErrInvalidState)
	}

	existing, err := s.repo.FindTaxRecordByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("load tax record for order %s: %w", orderID, err)
	}
	if existing != nil {
		s.metrics.RecordTaxRecordDeduplicated()
		return existing, false, nil
	}

	r, err := s.rules()
	if err != nil {
		return nil, false, err
	}

	record, err := s.buildRecord(ctx, r, order)
	if err != nil {
		return nil, false, err
	}
	inserted, err := s.repo.InsertTaxRecord(ctx, record)
	if err != nil {
		return nil, false, fmt.Errorf("persist tax record for order %s: %w", orderID, err)
	}
	if !inserted {
		// A concurrent caller won the unique order_id race; return its row.
		winner, err := s.repo.FindTaxRecordByOrderID(ctx, orderID)
		if err != nil {
			return nil, false, fmt.Errorf("load tax record for order %s: %w", orderID, err)
		}
		if winner == nil {
			return nil, false, fmt.Errorf("tax record for order %s vanished after conflict: %w", orderID, vatdomain.ErrNotFound)
		}
		s.metrics.RecordTaxRecordDeduplicated()
		return winner, false, nil
	}

	s.metrics.RecordTaxRecordCreated(string(record.CustomerType))
	ctxlogger.WithContext(ctx, s.log).Info("tax record created",
		zap.String("order_id", orderID.String()),
		zap.String("customer_type", string(record.CustomerType)),
		zap.String("tax_period", record.TaxPeriod),
		zap.String("vat_amount", record.VatAmount.StringFixed(moneyPlaces)),
	)
	return record, true, nil
}

func (s *Service) buildRecord(ctx context.Context, r rules, order *orderdomain.Order) (*vatdomain.TaxRecord, error) {
	if order.ShippingCost.IsNegative() {
		return nil, fmt.Errorf("order %s shipping cost %s: %w", order.ID, order.ShippingCost, vatdomain.ErrInvalidAmount)
	}
	for _, line := range order.Lines {
		if line.LineTotal.IsNegative() {
			return nil, fmt.Errorf("order %s product %s line total %s: %w", order.ID, line.ProductID, line.LineTotal, vatdomain.ErrInvalidAmount)
		}
	}

	country := r.jurisdiction.HomeCountry
	if order.BillingAddress != nil {
		if c := vatdomain.NormalizeCountry(order.BillingAddress.Country); c != "" {
			country = c
		}
	}
	customerType := r.classifier.Classify(country, order.VatNumber)

	subtotal := decimal.Zero
	vatAmount := decimal.Zero
	buckets := vatdomain.Buckets{}
	accumulate := func(line vatdomain.LineTaxBreakdown) {
		subtotal = subtotal.Add(line.Subtotal)
		vatAmount = vatAmount.Add(line.VatAmount)
		buckets = buckets.Add(line.Buckets)
	}

	for _, line := range order.Lines {
		rate := s.resolveRate(ctx, r.rates, order.ID, line.ProductID)
		accumulate(r.calculator.CalculateLine(line.LineTotal, rate, customerType))
	}

	// Shipping follows the standard rate; the calculator zeroes it for
	// reverse-charge and export customers.
	if order.ShippingCost.IsPositive() {
		accumulate(r.calculator.CalculateLine(order.ShippingCost, r.rates.Standard(), customerType))
	}

	orderDate := order.CreatedAt.UTC()
	month := int(orderDate.Month())
	buckets = buckets.Round(moneyPlaces)

	var customerVAT *string
	if order.VatNumber != nil {
		if v := strings.TrimSpace(*order.VatNumber); v != "" {
			customerVAT = &v
		}
	}

	return &vatdomain.TaxRecord{
		ID:                s.genID.Generate(),
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		CustomerType:      customerType,
		CustomerCountry:   country,
		CustomerVatNumber: customerVAT,
		Subtotal:          subtotal.Round(moneyPlaces),
		VatAmount:         vatAmount.Round(moneyPlaces),
		TotalAmount:       order.TotalAmount.Round(moneyPlaces),
		StandardVat:       buckets.Standard,
		ReducedVat:        buckets.Reduced,
		SecondReducedVat:  buckets.SecondReduced,
		ZeroVat:           buckets.Zero,
		ExemptAmount:      buckets.Exempt,
		VatNumber:         r.sellerVATNumber,
		InvoiceNumber:     invoicePrefix + order.OrderNumber,
		ReverseCharge:     customerType == vatdomain.CustomerB2BEU,
		OrderDate:         orderDate,
		TaxPeriod:         orderDate.Format(taxPeriodLayout),
		ReportingYear:     orderDate.Year(),
		ReportingQuarter:  (month + 2) / 3,
		ReportingMonth:    month,
		CreatedAt:         s.clock.Now(),
	}, nil
}

// resolveRate never fails: lookup errors, missing categories and rates outside
// the table all fall back to the standard rate.
func (s *Service) resolveRate(ctx context.Context, rates vatdomain.RateTable, orderID, productID snowflake.ID) decimal.Decimal {
	rate, err := s.orders.GetProductCategoryVatRate(ctx, productID)

	var reason string
	switch {
	case err != nil:
		reason = "lookup_error"
	case rate == nil:
		reason = "missing"
	case !rates.Known(*rate):
		reason = "unknown_rate"
	default:
		return *rate
	}

	fields := []zap.Field{
		zap.String("order_id", orderID.String()),
		zap.String("product_id", productID.String()),
		zap.String("reason", reason),
		zap.String("fallback_rate", rates.Standard().String()),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if rate != nil {
		fields = append(fields, zap.String("rate", rate.String()))
	}
	ctxlogger.WithContext(ctx, s.log).Warn("vat rate defaulted to standard", fields...)
	s.metrics.RecordRateFallback(reason)
	return rates.Standard()
}

// RecalculateAllTaxRecords creates records for every completed order lacking
// one. Each order is independent: a failure is logged and recorded, and the
// batch moves on.
func (s *Service) RecalculateAllTaxRecords(ctx context.Context) (*vatdomain.RecalculationResult, error) {
	ctx, runID := correlation.EnsureCorrelationID(ctx)
	ctx, span := tracer.Start(ctx, "vat.RecalculateAllTaxRecords", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()
	log := ctxlogger.WithContext(ctx, s.log).With(zap.String("run_id", runID))

	if s.guard != nil {
		release, ok, err := s.guard.Acquire(ctx)
		if err != nil {
			err = fmt.Errorf("acquire recalculation lock: %w", err)
			endSpan(span, err)
			return nil, err
		}
		if !ok {
			span.SetAttributes(attribute.Bool("lock_held", true))
			return nil, vatdomain.ErrRecalculationInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release recalculation lock", zap.Error(err))
			}
		}()
	}

	ids, err := s.orders.ListCompletedOrderIDs(ctx)
	if err != nil {
		err = fmt.Errorf("list completed orders: %w", err)
		endSpan(span, err)
		return nil, err
	}

	started := s.clock.Now()
	result := &vatdomain.RecalculationResult{
		RunID:    runID,
		Failures: []vatdomain.RecalculationFailure{},
	}
	log.Info("recalculation started", zap.Int("orders", len(ids)))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Warn("recalculation interrupted",
				zap.Int("processed", result.Processed),
				zap.Int("skipped", result.Skipped),
				zap.Error(err),
			)
			endSpan(span, err)
			return result, err
		}

		_, created, err := s.calculateOrderTax(ctx, id)
		switch {
		case err != nil:
			result.Failures = append(result.Failures, vatdomain.RecalculationFailure{
				OrderID: id,
				Error:   err.Error(),
			})
			s.metrics.RecordRecalculation("failed")
			log.Error("recalculate order tax", zap.String("order_id", id.String()), zap.Error(err))
		case !created:
			result.Skipped++
			s.metrics.RecordRecalculation("skipped")
		default:
			result.Processed++
			s.metrics.RecordRecalculation("processed")
		}
	}

	log.Info("recalculation finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("elapsed", s.clock.Now().Sub(started)),
	)
	span.SetAttributes(
		attribute.Int("processed", result.Processed),
		attribute.Int("skipped", result.Skipped),
		attribute.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
