package user

import (
	"time"

	"github.com/gofrs/uuid"
)

// User — учётная запись для входа в систему (не путать с покупателем
// из order.Customer, который создаётся при оформлении заказа).
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
