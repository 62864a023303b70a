package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem references a product, a plan, or both (a device bundled with a tariff).
type CartItem struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	ProductID    *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	PlanID       *primitive.ObjectID `bson:"planId,omitempty" json:"planId,omitempty"`
	ProductName  string              `bson:"productName,omitempty" json:"productName,omitempty"`
	PlanName     string              `bson:"planName,omitempty" json:"planName,omitempty"`
	ProductPrice float64             `bson:"productPrice" json:"productPrice"`
	PlanPrice    float64             `bson:"planPrice" json:"planPrice"`
	Quantity     int                 `bson:"quantity" json:"quantity"`
	TotalPrice   float64             `bson:"totalPrice" json:"totalPrice"`
	AddedAt      time.Time           `bson:"addedAt" json:"addedAt"`
}

// Cart is owned 1:1 by a user. Subtotal, Tax and Total are derived on every save.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
	Tax       float64            `bson:"tax" json:"tax"`
	Total     float64            `bson:"total" json:"total"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Cart) ItemIndex(itemID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) HasProduct(productID primitive.ObjectID) bool {
	for _, item := range c.Items {
		if item.ProductID != nil && *item.ProductID == productID {
			return true
		}
	}
	return false
}

func (c *Cart) HasPlan(planID primitive.ObjectID) bool {
	for _, item := range c.Items {
		if item.PlanID != nil && *item.PlanID == planID {
			return true
		}
	}
	return false
}
