package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/vatledger/internal/order/domain"
	"gorm.io/gorm"
)

const columnCustomerVatNumber = "customer_vat_number"

type repository struct {
	db *gorm.DB

	vatColumnOnce sync.Once
	hasVatColumn  bool
}

func NewRepository(db *gorm.DB) orderdomain.Reader {
	return &repository{db: db}
}

// orderColumns only selects the buyer VAT number when the storefront schema
// has it; otherwise it reads as NULL.
func (r *repository) orderColumns(ctx context.Context) string {
	r.vatColumnOnce.Do(func() {
		r.hasVatColumn = r.db.WithContext(ctx).Migrator().HasColumn("orders", columnCustomerVatNumber)
	})
	vatColumn := "NULL AS " + columnCustomerVatNumber
	if r.hasVatColumn {
		vatColumn = columnCustomerVatNumber
	}
	return "id, order_number, status, total_amount, shipping_cost, billing_country, " + vatColumn + ", created_at"
}

type orderRow struct {
	ID                snowflake.ID
	OrderNumber       string
	Status            string
	TotalAmount       decimal.Decimal
	ShippingCost      decimal.Decimal
	BillingCountry    *string
	CustomerVatNumber *string
	CreatedAt         time.Time
}

type lineRow struct {
	ProductID snowflake.ID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

func (r *repository) GetOrder(ctx context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).Raw(
		"SELECT "+r.orderColumns(ctx)+" FROM orders WHERE id = ?",
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}

	var lines []lineRow
	err = r.db.WithContext(ctx).Raw(
		`SELECT product_id, quantity, unit_price, line_total
		 FROM order_items
		 WHERE order_id = ?
		 ORDER BY id ASC`,
		id,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	order := &orderdomain.Order{
		ID:           row.ID,
		OrderNumber:  row.OrderNumber,
		Status:       orderdomain.Status(strings.ToUpper(strings.TrimSpace(row.Status))),
		TotalAmount:  row.TotalAmount,
		ShippingCost: row.ShippingCost,
		CreatedAt:    row.CreatedAt.UTC(),
		VatNumber:    row.CustomerVatNumber,
		Lines:        make([]orderdomain.Line, 0, len(lines)),
	}
	if row.BillingCountry != nil && strings.TrimSpace(*row.BillingCountry) != "" {
		order.BillingAddress = &orderdomain.Address{Country: strings.TrimSpace(*row.BillingCountry)}
	}
	for _, line := range lines {
		order.Lines = append(order.Lines, orderdomain.Line{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return order, nil
}

func (r *repository) GetProductCategoryVatRate(ctx context.Context, productID snowflake.ID) (*decimal.Decimal, error) {
	var row struct {
		VatRate decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT c.vat_rate
		 FROM products p
		 JOIN categories c ON c.id = p.category_id
		 WHERE p.id = ?
		 LIMIT 1`,
		productID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if !row.VatRate.Valid {
		return nil, nil
	}
	rate := row.VatRate.Decimal
	return &rate, nil
}

func (r *repository) ListCompletedOrderIDs(ctx context.Context) ([]snowflake.ID, error) {
	statuses := make([]string, 0, len(orderdomain.CompletedStatuses))
	for _, status := range orderdomain.CompletedStatuses {
		statuses = append(statuses, string(status))
	}

	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Table("orders").
		Where("status IN ?", statuses).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
