package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/vatledger/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var storefrontSchema = []string{
	`CREATE TABLE categories (id INTEGER PRIMARY KEY, name TEXT, vat_rate NUMERIC)`,
	`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, category_id INTEGER)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		order_number TEXT NOT NULL,
		status TEXT NOT NULL,
		total_amount NUMERIC NOT NULL,
		shipping_cost NUMERIC NOT NULL,
		billing_country TEXT,
		customer_vat_number TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		line_total NUMERIC NOT NULL
	)`,
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range storefrontSchema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	conn := setupDB(t)
	repo := NewRepository(conn)
	createdAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	require.NoError(t, conn.Exec(
		`INSERT INTO orders (id, order_number, status, total_amount, shipping_cost, billing_country, customer_vat_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		100, "ORD-100", "delivered", "129.00", "6.00", " DE ", "DE123456789", createdAt,
	).Error)
	require.NoError(t, conn.Exec(
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total) VALUES (?, ?, ?, ?, ?), (?, ?, ?, ?, ?)`,
		100, 7, 2, "50.00", "100.00",
		100, 8, 1, "23.00", "23.00",
	).Error)

	order, err := repo.GetOrder(ctx, snowflake.ID(100))
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "ORD-100", order.OrderNumber)
	assert.Equal(t, orderdomain.StatusDelivered, order.Status)
	assert.True(t, order.Status.IsCompleted())
	assert.True(t, decimal.RequireFromString("6.00").Equal(order.ShippingCost))
	require.NotNil(t, order.BillingAddress)
	assert.Equal(t, "DE", order.BillingAddress.Country)
	require.NotNil(t, order.VatNumber)
	assert.Equal(t, "DE123456789", *order.VatNumber)
	assert.True(t, createdAt.Equal(order.CreatedAt))

	require.Len(t, order.Lines, 2)
	assert.Equal(t, snowflake.ID(7), order.Lines[0].ProductID)
	assert.True(t, decimal.RequireFromString("100.00").Equal(order.Lines[0].LineTotal))
	assert.Equal(t, 1, order.Lines[1].Quantity)
}

func TestGetOrderMissing(t *testing.T) {
	repo := NewRepository(setupDB(t))

	order, err := repo.GetOrder(context.Background(), snowflake.ID(404))
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestGetOrderWithoutBillingCountry(t *testing.T) {
	conn := setupDB(t)
	repo := NewRepository(conn)
	require.NoError(t, conn.Exec(
		`INSERT INTO orders (id, order_number, status, total_amount, shipping_cost, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		1, "ORD-1", "PENDING", "10.00", "0", time.Now().UTC(),
	).Error)

	order, err := repo.GetOrder(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Nil(t, order.BillingAddress)
	assert.Nil(t, order.VatNumber)
	assert.Empty(t, order.Lines)
	assert.False(t, order.Status.IsCompleted())
}

func TestGetProductCategoryVatRate(t *testing.T) {
	ctx := context.Background()
	conn := setupDB(t)
	repo := NewRepository(conn)
	require.NoError(t, conn.Exec(`INSERT INTO categories (id, name, vat_rate) VALUES (1, 'books', 9.0), (2, 'misc', NULL)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO products (id, name, category_id) VALUES (10, 'novel', 1), (11, 'thing', 2), (12, 'orphan', 99)`).Error)

	rate, err := repo.GetProductCategoryVatRate(ctx, snowflake.ID(10))
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, decimal.RequireFromString("9").Equal(*rate))

	for _, productID := range []snowflake.ID{11, 12, 13} {
		rate, err := repo.GetProductCategoryVatRate(ctx, productID)
		require.NoError(t, err)
		assert.Nil(t, rate, "product %d", productID)
	}
}

func TestListCompletedOrderIDs(t *testing.T) {
	conn := setupDB(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()
	for id, status := range map[int]string{3: "COMPLETED", 1: "DELIVERED", 2: "PENDING", 4: "CANCELLED", 5: "COMPLETED"} {
		require.NoError(t, conn.Exec(
			`INSERT INTO orders (id, order_number, status, total_amount, shipping_cost, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, fmt.Sprintf("ORD-%d", id), status, "1.00", "0", now,
		).Error)
	}

	ids, err := repo.ListCompletedOrderIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{1, 3, 5}, ids)
}

func TestGetOrderWithoutVatNumberColumn(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		order_number TEXT NOT NULL,
		status TEXT NOT NULL,
		total_amount NUMERIC NOT NULL,
		shipping_cost NUMERIC NOT NULL,
		billing_country TEXT,
		created_at DATETIME NOT NULL
	)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		line_total NUMERIC NOT NULL
	)`).Error)
	require.NoError(t, conn.Exec(
		`INSERT INTO orders (id, order_number, status, total_amount, shipping_cost, billing_country, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		7, "ORD-7", "COMPLETED", "123.00", "0", "IE", time.Now().UTC(),
	).Error)

	order, err := NewRepository(conn).GetOrder(context.Background(), snowflake.ID(7))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "ORD-7", order.OrderNumber)
	assert.Nil(t, order.VatNumber)
	require.NotNil(t, order.BillingAddress)
	assert.Equal(t, "IE", order.BillingAddress.Country)
}
