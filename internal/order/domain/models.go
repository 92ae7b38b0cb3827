package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// CompletedStatuses are the statuses that make an order taxable.
var CompletedStatuses = []Status{StatusDelivered, StatusCompleted}

func (s Status) IsCompleted() bool {
	for _, completed := range CompletedStatuses {
		if s == completed {
			return true
		}
	}
	return false
}

type Address struct {
	Country string
}

type Line struct {
	ProductID snowflake.ID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Order is the read model consumed by tax calculation.
type Order struct {
	ID             snowflake.ID
	OrderNumber    string
	Status         Status
	TotalAmount    decimal.Decimal
	ShippingCost   decimal.Decimal
	CreatedAt      time.Time
	BillingAddress *Address
	// VatNumber is the buyer's VAT registration; nothing upstream captures it yet.
	VatNumber *string
	Lines     []Line
}

// Reader exposes orders and product rates owned by the storefront.
type Reader interface {
	// GetOrder returns nil without error when the order does not exist.
	GetOrder(ctx context.Context, id snowflake.ID) (*Order, error)
	// GetProductCategoryVatRate returns nil when the product or its category has no rate.
	GetProductCategoryVatRate(ctx context.Context, productID snowflake.ID) (*decimal.Decimal, error)
	ListCompletedOrderIDs(ctx context.Context) ([]snowflake.ID, error)
}
