package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is the gateway session record, upserted by session id.
type Payment struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SessionID string              `bson:"sessionId" json:"sessionId"`
	OrderID   *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	UserID    *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Expected  float64             `bson:"expected" json:"expected"`
	Amount    float64             `bson:"amount" json:"amount"`
	Status    PaymentStatus       `bson:"status" json:"status"`
	Reports   int                 `bson:"reports" json:"reports"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}
