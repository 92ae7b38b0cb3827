package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vatledger/internal/clock"
	"github.com/smallbiznis/vatledger/internal/config"
	orderdomain "github.com/smallbiznis/vatledger/internal/order/domain"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	vatrepository "github.com/smallbiznis/vatledger/internal/vat/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeOrders is an in-memory order read model.
type fakeOrders struct {
	mu       sync.Mutex
	orders   map[snowflake.ID]*orderdomain.Order
	rates    map[snowflake.ID]decimal.Decimal
	rateErr  map[snowflake.ID]error
	orderErr map[snowflake.ID]error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders:   map[snowflake.ID]*orderdomain.Order{},
		rates:    map[snowflake.ID]decimal.Decimal{},
		rateErr:  map[snowflake.ID]error{},
		orderErr: map[snowflake.ID]error{},
	}
}

func (f *fakeOrders) add(order *orderdomain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
}

func (f *fakeOrders) GetOrder(_ context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.orderErr[id]; err != nil {
		return nil, err
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrders) GetProductCategoryVatRate(_ context.Context, productID snowflake.ID) (*decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rateErr[productID]; err != nil {
		return nil, err
	}
	rate, ok := f.rates[productID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (f *fakeOrders) ListCompletedOrderIDs(_ context.Context) ([]snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []snowflake.ID
	for id, order := range f.orders {
		if order.Status.IsCompleted() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	orders *fakeOrders
	node   *snowflake.Node
	clock  *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&vatdomain.TaxRecord{}, &vatdomain.TaxReturn{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// One connection serialises writers; shared-cache sqlite fails fast on table locks.
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	orders := newFakeOrders()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{
		Repo:      vatrepository.NewRepository(conn),
		Orders:    orders,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		VATConfig: config.NewStaticVATConfigHolder(config.DefaultVATConfig()),
	}).(*Service)

	return &fixture{svc: svc, db: conn, orders: orders, node: node, clock: clk}
}

// order registers a completed order whose lines each carry the given rate.
func (f *fixture) order(country string, createdAt time.Time, shipping string, lines ...orderLine) *orderdomain.Order {
	order := &orderdomain.Order{
		ID:           f.node.Generate(),
		Status:       orderdomain.StatusCompleted,
		ShippingCost: decimal.RequireFromString(shipping),
		CreatedAt:    createdAt,
	}
	order.OrderNumber = "ORD-" + order.ID.String()
	if country != "" {
		order.BillingAddress = &orderdomain.Address{Country: country}
	}

	total := order.ShippingCost
	for _, line := range lines {
		productID := f.node.Generate()
		if line.rate != "" {
			f.orders.mu.Lock()
			f.orders.rates[productID] = decimal.RequireFromString(line.rate)
			f.orders.mu.Unlock()
		}
		amount := decimal.RequireFromString(line.total)
		order.Lines = append(order.Lines, orderdomain.Line{
			ProductID: productID,
			Quantity:  1,
			UnitPrice: amount,
			LineTotal: amount,
		})
		total = total.Add(amount)
	}
	order.TotalAmount = total
	f.orders.add(order)
	return order
}

type orderLine struct {
	total string
	rate  string
}

var errLookup = errors.New("catalog unavailable")
