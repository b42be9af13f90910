package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
)

type Repository interface {
	CreateOrder(ctx context.Context, customer CustomerInput, orderInput *Order) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	AddOrderItem(ctx context.Context, orderID uuid.UUID, input OrderItemInput) (*OrderItem, error)
	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, upd OrderItemUpdate) (*OrderItem, error)
	DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
	GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// withTx выполняет fn внутри одной транзакции. Любой выход — ошибка, panic,
// успешное завершение — гарантированно заканчивается откатом либо коммитом,
// соединение возвращается в пул в любом случае.
func (r *postgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("Panic recovered during transaction, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

// applyTotalDelta — единственное место, где меняется orders.total_amount.
// UPDATE берёт блокировку строки заказа, поэтому конкурирующие мутации позиций
// одного заказа сериализуются и каждая видит уже закоммиченный total.
func applyTotalDelta(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, delta float64) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE orders SET total_amount = total_amount + $1 WHERE id = $2`,
		delta, orderID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update total for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) CreateOrder(ctx context.Context, customer CustomerInput, orderInput *Order) (*Order, error) {
	orderID, genErr := uuid.NewV4()
	if genErr != nil {
		return nil, fmt.Errorf("repository: failed to generate order ID: %w", genErr)
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var customerID uuid.NullUUID

		if customer.Email != "" {
			resolvedID, err := resolveCustomer(ctx, tx, customer)
			if err != nil {
				return err
			}
			customerID = uuid.NullUUID{UUID: resolvedID, Valid: true}
		}

		createdAt := time.Now().UTC()

		queryOrder := `
			INSERT INTO orders (id, customer_id, total_amount, status, pickup_time, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.Exec(ctx, queryOrder,
			orderID,
			customerID,
			orderInput.TotalAmount,
			string(orderInput.Status),
			orderInput.PickupTime,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order: %w", err)
		}

		for i := range orderInput.Items {
			itemInput := &orderInput.Items[i]

			itemID, genErr := uuid.NewV4()
			if genErr != nil {
				return fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			}

			queryItem := `
				INSERT INTO order_items (id, order_id, item_id, item_name, quantity, price, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`
			_, err = tx.Exec(ctx, queryItem,
				itemID,
				orderID,
				itemInput.ItemID,
				itemInput.ItemName,
				itemInput.Quantity,
				itemInput.Price,
				time.Now().UTC(),
			)
			if err != nil {
				return fmt.Errorf("repository: failed to insert order item for order %s: %w", orderID, err)
			}
		}

		return nil
	})
	if err != nil {
		log.Warn().Err(err).Stringer("order_id_attempted", orderID).Msg("Transaction for CreateOrder failed")
		return nil, err
	}

	// Read-after-write: возвращаем заказ вместе с разрешёнными полями покупателя.
	return r.GetOrderByID(ctx, orderID)
}

// resolveCustomer находит покупателя по email и обновляет имя/телефон,
// либо создаёт новую запись.
func resolveCustomer(ctx context.Context, tx pgx.Tx, customer CustomerInput) (uuid.UUID, error) {
	var customerID uuid.UUID

	err := tx.QueryRow(ctx, `SELECT id FROM customers WHERE email = $1`, customer.Email).Scan(&customerID)
	if err == nil {
		_, err = tx.Exec(ctx, `UPDATE customers SET name = $1, phone = $2 WHERE id = $3`,
			customer.Name, customer.Phone, customerID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to refresh customer %s: %w", customerID, err)
		}
		return customerID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("repository: failed to look up customer by email: %w", err)
	}

	customerID, genErr := uuid.NewV4()
	if genErr != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate customer ID: %w", genErr)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO customers (id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		customerID, customer.Name, customer.Email, customer.Phone, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert customer: %w", err)
	}

	return customerID, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT o.id, o.customer_id, o.total_amount, o.status, o.pickup_time, o.created_at,
		       COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, '')
		FROM orders o
		LEFT JOIN customers c ON o.customer_id = c.id
		WHERE o.id = $1
	`

	var order Order
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.TotalAmount,
		&order.Status,
		&order.PickupTime,
		&order.CreatedAt,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	items, err := r.GetItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *postgresRepository) GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	queryItems := `
		SELECT id, order_id, item_id, item_name, quantity, price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, queryItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.ItemName,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", orderID, err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", orderID, err)
	}

	// Пустой список не отличает заказ без позиций от несуществующего заказа
	if len(items) == 0 {
		var exists bool
		err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to check order %s: %w", orderID, err)
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
	}

	return items, nil
}

func (r *postgresRepository) ListOrders(ctx context.Context) ([]Order, error) {
	queryOrders := `
		SELECT o.id, o.customer_id, o.total_amount, o.status, o.pickup_time, o.created_at,
		       COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, '')
		FROM orders o
		LEFT JOIN customers c ON o.customer_id = c.id
		ORDER BY o.created_at DESC
	`

	orderRows, err := r.db.Query(ctx, queryOrders)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var order Order
		err := orderRows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.TotalAmount,
			&order.Status,
			&order.PickupTime,
			&order.CreatedAt,
			&order.CustomerName,
			&order.CustomerEmail,
			&order.CustomerPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		order.Items = make([]OrderItem, 0)
		ordersMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	queryItems := `
		SELECT id, order_id, item_id, item_name, quantity, price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
	`
	itemRows, err := r.db.Query(ctx, queryItems, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		err := itemRows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.ItemName,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}

		if order, ok := ordersMap[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items: %w", err)
	}

	resultOrders := make([]Order, 0, len(ordersMap))
	for _, id := range orderIDs {
		if order, ok := ordersMap[id]; ok {
			resultOrders = append(resultOrders, *order)
		}
	}

	return resultOrders, nil
}

func (r *postgresRepository) AddOrderItem(ctx context.Context, orderID uuid.UUID, input OrderItemInput) (*OrderItem, error) {
	itemID, genErr := uuid.NewV4()
	if genErr != nil {
		return nil, fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
	}

	item := OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		ItemID:    input.ItemID,
		ItemName:  input.ItemName,
		Quantity:  input.Quantity,
		Price:     input.Price,
		CreatedAt: time.Now().UTC(),
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		queryItem := `
			INSERT INTO order_items (id, order_id, item_id, item_name, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, queryItem,
			item.ID,
			item.OrderID,
			item.ItemID,
			item.ItemName,
			item.Quantity,
			item.Price,
			item.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return ErrOrderNotFound
			}
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", orderID, err)
		}

		return applyTotalDelta(ctx, tx, orderID, item.Price*float64(item.Quantity))
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *postgresRepository) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, upd OrderItemUpdate) (*OrderItem, error) {
	var item OrderItem

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		// FOR UPDATE: пока транзакция не завершится, эту позицию никто не изменит
		querySelect := `
			SELECT id, order_id, item_id, item_name, quantity, price, created_at
			FROM order_items
			WHERE id = $1
			FOR UPDATE
		`
		err := tx.QueryRow(ctx, querySelect, itemID).Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.ItemName,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderItemNotFound
			}
			return fmt.Errorf("repository: failed to select order item %s: %w", itemID, err)
		}

		oldTotal := item.Price * float64(item.Quantity)
		newTotal := upd.Price * float64(upd.Quantity)

		_, err = tx.Exec(ctx,
			`UPDATE order_items SET quantity = $1, price = $2 WHERE id = $3`,
			upd.Quantity, upd.Price, itemID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to update order item %s: %w", itemID, err)
		}

		item.Quantity = upd.Quantity
		item.Price = upd.Price

		return applyTotalDelta(ctx, tx, item.OrderID, newTotal-oldTotal)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *postgresRepository) DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var (
			orderID  uuid.UUID
			quantity int
			price    float64
		)

		querySelect := `
			SELECT order_id, quantity, price
			FROM order_items
			WHERE id = $1
			FOR UPDATE
		`
		err := tx.QueryRow(ctx, querySelect, itemID).Scan(&orderID, &quantity, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderItemNotFound
			}
			return fmt.Errorf("repository: failed to select order item %s: %w", itemID, err)
		}

		_, err = tx.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, itemID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete order item %s: %w", itemID, err)
		}

		return applyTotalDelta(ctx, tx, orderID, -price*float64(quantity))
	})
}

func (r *postgresRepository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete items for order %s: %w", orderID, err)
		}

		cmdTag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete order %s: %w", orderID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}

		return nil
	})
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`,
		string(newStatus), orderID,
	)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}

	return nil
}
