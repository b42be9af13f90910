package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) Valid() bool {
	switch os {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ItemID    string    `json:"item_id" db:"item_id"` // ссылка на позицию меню в Mongo
	ItemName  string    `json:"item_name" db:"item_name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"` // Используем float64 для денег, как и в остальных сервисах
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	CustomerID    uuid.NullUUID `json:"customer_id" db:"customer_id"`
	CustomerName  string        `json:"customer_name,omitempty" db:"-"`
	CustomerEmail string        `json:"customer_email,omitempty" db:"-"`
	CustomerPhone string        `json:"customer_phone,omitempty" db:"-"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	Status        OrderStatus   `json:"status" db:"status"`
	PickupTime    *time.Time    `json:"pickup_time,omitempty" db:"pickup_time"`
	Items         []OrderItem   `json:"items" db:"-"` // Не хранится в таблице orders, добирается отдельным запросом
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// CustomerInput — данные покупателя, приходящие вместе с заказом.
// Email необязателен, но служит ключом дедупликации.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

type OrderItemInput struct {
	ItemID   string
	ItemName string
	Quantity int
	Price    float64
}

type OrderItemUpdate struct {
	Quantity int
	Price    float64
}
