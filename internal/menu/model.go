package menu

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MenuItem — позиция меню из Mongo-коллекции. Заказы ссылаются на неё
// по hex-представлению ID, само меню не участвует в инвариантах заказа.
type MenuItem struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Category    string             `json:"category,omitempty" bson:"category,omitempty"`
	Price       float64            `json:"price" bson:"price"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

type MenuItemInput struct {
	Name        string
	Description string
	Category    string
	Price       float64
	Image       string
}
