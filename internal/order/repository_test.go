package order_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-diner/backend/internal/order"
)

// Интеграционные тесты: нужен пустой тестовый PostgreSQL.
// Если база недоступна, тесты пропускаются, а не падают.
var db *pgxpool.Pool

func TestMain(m *testing.M) {
	host := getenv("TEST_DB_HOST", "localhost")
	port := getenv("TEST_DB_PORT", "5432")
	user := getenv("TEST_DB_USER", "postgres")
	password := getenv("TEST_DB_PASSWORD", "postgres")
	dbname := getenv("TEST_DB_NAME", "digital_diner_test")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err == nil {
		if pingErr := pool.Ping(context.Background()); pingErr != nil {
			pool.Close()
			pool = nil
		}
	}

	if pool != nil {
		db = pool
		if err := applySchema(); err != nil {
			log.Fatalf("Failed to apply test schema: %v", err)
		}
	}

	exitCode := m.Run()

	if db != nil {
		db.Close()
	}

	os.Exit(exitCode)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func applySchema() error {
	schema, err := os.ReadFile("../../migrations/000001_init_schema.up.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(context.Background(), string(schema))
	return err
}

func setup(t *testing.T) order.Repository {
	if db == nil {
		t.Skip("test database is not available")
	}

	truncate := func() {
		_, err := db.Exec(context.Background(), "TRUNCATE TABLE order_items, orders, customers CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}

	truncate()
	t.Cleanup(truncate)

	return order.NewRepository(db)
}

func makeOrder(t *testing.T, repo order.Repository) *order.Order {
	t.Helper()

	created, err := repo.CreateOrder(context.Background(), order.CustomerInput{
		Name:  "Alice",
		Email: "alice@example.com",
		Phone: "555-0101",
	}, &order.Order{
		TotalAmount: 25,
		Status:      order.StatusPending,
		Items: []order.OrderItem{
			{ItemID: "64ff0a1b2c3d4e5f60718293", ItemName: "Burger", Quantity: 2, Price: 10},
			{ItemID: "64ff0a1b2c3d4e5f60718294", ItemName: "Fries", Quantity: 1, Price: 5},
		},
	})
	require.NoError(t, err, "CreateOrder should not return an error")

	return created
}

func currentTotal(t *testing.T, orderID uuid.UUID) float64 {
	t.Helper()

	var total float64
	err := db.QueryRow(context.Background(), "SELECT total_amount FROM orders WHERE id = $1", orderID).Scan(&total)
	require.NoError(t, err)
	return total
}

func itemsTotal(t *testing.T, orderID uuid.UUID) float64 {
	t.Helper()

	var total float64
	err := db.QueryRow(context.Background(),
		"SELECT COALESCE(SUM(price * quantity), 0) FROM order_items WHERE order_id = $1", orderID).Scan(&total)
	require.NoError(t, err)
	return total
}

func TestRepository_CreateOrder(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	assert.Equal(t, 25.0, created.TotalAmount, "total should equal sum of line items")
	assert.Equal(t, order.StatusPending, created.Status)
	assert.Len(t, created.Items, 2)
	assert.Equal(t, "Alice", created.CustomerName)
	assert.Equal(t, "alice@example.com", created.CustomerEmail)
	assert.True(t, created.CustomerID.Valid)

	assert.Equal(t, currentTotal(t, created.ID), itemsTotal(t, created.ID))
}

func TestRepository_CreateOrder_ReusesCustomerByEmail(t *testing.T) {
	repo := setup(t)

	first := makeOrder(t, repo)

	second, err := repo.CreateOrder(context.Background(), order.CustomerInput{
		Name:  "Alice Updated",
		Email: "alice@example.com",
		Phone: "555-0202",
	}, &order.Order{
		TotalAmount: 5,
		Status:      order.StatusPending,
		Items: []order.OrderItem{
			{ItemID: "64ff0a1b2c3d4e5f60718295", ItemName: "Coffee", Quantity: 1, Price: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID.UUID, second.CustomerID.UUID, "same email should resolve to the same customer")
	assert.Equal(t, "Alice Updated", second.CustomerName, "customer name should be refreshed")
	assert.Equal(t, "555-0202", second.CustomerPhone)

	var customerCount int
	err = db.QueryRow(context.Background(), "SELECT COUNT(*) FROM customers").Scan(&customerCount)
	require.NoError(t, err)
	assert.Equal(t, 1, customerCount)
}

func TestRepository_CreateOrder_WithoutEmail(t *testing.T) {
	repo := setup(t)

	created, err := repo.CreateOrder(context.Background(), order.CustomerInput{
		Name: "Walk-in",
	}, &order.Order{
		TotalAmount: 10,
		Status:      order.StatusPending,
		Items: []order.OrderItem{
			{ItemID: "64ff0a1b2c3d4e5f60718293", ItemName: "Burger", Quantity: 1, Price: 10},
		},
	})
	require.NoError(t, err)

	assert.False(t, created.CustomerID.Valid, "order without email should have no customer")
}

func TestRepository_GetOrderByID_Idempotent(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	first, err := repo.GetOrderByID(context.Background(), created.ID)
	require.NoError(t, err)
	second, err := repo.GetOrderByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second, "two reads without writes should return identical data")
}

func TestRepository_GetOrderByID_NotFound(t *testing.T) {
	repo := setup(t)

	_, err := repo.GetOrderByID(context.Background(), uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepository_AddOrderItem(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	item, err := repo.AddOrderItem(context.Background(), created.ID, order.OrderItemInput{
		ItemID:   "64ff0a1b2c3d4e5f60718296",
		ItemName: "Shake",
		Quantity: 4,
		Price:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, item.OrderID)

	assert.Equal(t, 37.0, currentTotal(t, created.ID), "25 + 3*4")
	assert.Equal(t, currentTotal(t, created.ID), itemsTotal(t, created.ID))
}

func TestRepository_AddOrderItem_OrderNotFound(t *testing.T) {
	repo := setup(t)
	makeOrder(t, repo)

	_, err := repo.AddOrderItem(context.Background(), uuid.Must(uuid.NewV4()), order.OrderItemInput{
		ItemID:   "64ff0a1b2c3d4e5f60718296",
		ItemName: "Shake",
		Quantity: 1,
		Price:    3,
	})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepository_UpdateOrderItem(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	var burger order.OrderItem
	for _, it := range created.Items {
		if it.ItemName == "Burger" {
			burger = it
		}
	}
	require.NotEqual(t, uuid.Nil, burger.ID)

	updated, err := repo.UpdateOrderItem(context.Background(), burger.ID, order.OrderItemUpdate{
		Quantity: 3,
		Price:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)

	assert.Equal(t, 35.0, currentTotal(t, created.ID), "total should grow by the exact delta")
	assert.Equal(t, currentTotal(t, created.ID), itemsTotal(t, created.ID))
}

func TestRepository_UpdateOrderItem_NotFound(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)
	before := currentTotal(t, created.ID)

	_, err := repo.UpdateOrderItem(context.Background(), uuid.Must(uuid.NewV4()), order.OrderItemUpdate{
		Quantity: 3,
		Price:    10,
	})
	assert.ErrorIs(t, err, order.ErrOrderItemNotFound)
	assert.Equal(t, before, currentTotal(t, created.ID), "missing item must not change any total")
}

func TestRepository_UpdateOrderItem_RollbackKeepsStateIntact(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	var burger order.OrderItem
	for _, it := range created.Items {
		if it.ItemName == "Burger" {
			burger = it
		}
	}

	// Ломаем кеш вручную, чтобы уменьшение позиции увело итог в минус и
	// CHECK-ограничение откатило транзакцию между обновлением позиции и итога.
	_, err := db.Exec(context.Background(), "UPDATE orders SET total_amount = 0 WHERE id = $1", created.ID)
	require.NoError(t, err)

	_, err = repo.UpdateOrderItem(context.Background(), burger.ID, order.OrderItemUpdate{
		Quantity: 1,
		Price:    1,
	})
	require.Error(t, err, "shrinking the item must fail once the total would go negative")
	assert.NotErrorIs(t, err, order.ErrOrderItemNotFound)

	fetched, err := repo.GetOrderByID(context.Background(), created.ID)
	require.NoError(t, err)
	for _, it := range fetched.Items {
		if it.ID == burger.ID {
			assert.Equal(t, burger.Quantity, it.Quantity, "item row must be unchanged after rollback")
			assert.Equal(t, burger.Price, it.Price)
		}
	}
	assert.Equal(t, 0.0, currentTotal(t, created.ID), "total must be unchanged after rollback")
}

// Конкурирующие мутации одного заказа сериализуются блокировкой строки orders:
// ни одна дельта не должна примениться к устаревшему total_amount.
func TestRepository_ConcurrentItemMutations(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	var burger order.OrderItem
	for _, it := range created.Items {
		if it.ItemName == "Burger" {
			burger = it
		}
	}
	require.NotEqual(t, uuid.Nil, burger.ID)

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.AddOrderItem(context.Background(), created.ID, order.OrderItemInput{
				ItemID:   fmt.Sprintf("64ff0a1b2c3d4e5f607183%02d", n),
				ItemName: fmt.Sprintf("Topping %d", n),
				Quantity: n + 1,
				Price:    1.5,
			})
			errs <- err
		}(i)

		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.UpdateOrderItem(context.Background(), burger.ID, order.OrderItemUpdate{
				Quantity: n + 1,
				Price:    10,
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, itemsTotal(t, created.ID), currentTotal(t, created.ID),
		"cached total must match the line items after concurrent mutations")
}

func TestRepository_GetItemsByOrderID(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	t.Run("existing order", func(t *testing.T) {
		items, err := repo.GetItemsByOrderID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := repo.GetItemsByOrderID(context.Background(), uuid.Must(uuid.NewV4()))
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestRepository_DeleteOrderItem(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	shake, err := repo.AddOrderItem(context.Background(), created.ID, order.OrderItemInput{
		ItemID:   "64ff0a1b2c3d4e5f60718296",
		ItemName: "Shake",
		Quantity: 4,
		Price:    3,
	})
	require.NoError(t, err)
	require.Equal(t, 37.0, currentTotal(t, created.ID))

	err = repo.DeleteOrderItem(context.Background(), shake.ID)
	require.NoError(t, err)

	assert.Equal(t, 25.0, currentTotal(t, created.ID), "total should shrink by the removed line")
	assert.Equal(t, currentTotal(t, created.ID), itemsTotal(t, created.ID))
}

func TestRepository_DeleteOrderItem_NotFound(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)
	before := currentTotal(t, created.ID)

	err := repo.DeleteOrderItem(context.Background(), uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderItemNotFound)
	assert.Equal(t, before, currentTotal(t, created.ID))
}

func TestRepository_DeleteOrder(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)
	itemID := created.Items[0].ID

	err := repo.DeleteOrder(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = repo.GetOrderByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	var itemCount int
	err = db.QueryRow(context.Background(), "SELECT COUNT(*) FROM order_items WHERE id = $1", itemID).Scan(&itemCount)
	require.NoError(t, err)
	assert.Equal(t, 0, itemCount, "items must be unreachable even by direct id")
}

func TestRepository_DeleteOrder_NotFound(t *testing.T) {
	repo := setup(t)
	makeOrder(t, repo)

	err := repo.DeleteOrder(context.Background(), uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepository_UpdateOrderStatus(t *testing.T) {
	repo := setup(t)

	created := makeOrder(t, repo)

	err := repo.UpdateOrderStatus(context.Background(), created.ID, order.StatusProcessing)
	require.NoError(t, err)

	fetched, err := repo.GetOrderByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, fetched.Status)

	err = repo.UpdateOrderStatus(context.Background(), uuid.Must(uuid.NewV4()), order.StatusCompleted)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepository_ListOrders(t *testing.T) {
	repo := setup(t)

	first := makeOrder(t, repo)

	second, err := repo.CreateOrder(context.Background(), order.CustomerInput{
		Name:  "Bob",
		Email: "bob@example.com",
	}, &order.Order{
		TotalAmount: 5,
		Status:      order.StatusPending,
		Items: []order.OrderItem{
			{ItemID: "64ff0a1b2c3d4e5f60718295", ItemName: "Coffee", Quantity: 1, Price: 5},
		},
	})
	require.NoError(t, err)

	orders, err := repo.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// Свежие заказы первыми
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Len(t, orders[1].Items, 2)
	assert.Equal(t, "bob@example.com", orders[0].CustomerEmail)
}
