package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken stores only the sha256 of the token handed to the client.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `bson:"userId"`
	TokenHash  string              `bson:"tokenHash"`
	ExpiresAt  time.Time           `bson:"expiresAt"`
	Revoked    bool                `bson:"revoked"`
	CreatedAt  time.Time           `bson:"createdAt"`
	ReplacedBy *primitive.ObjectID `bson:"replacedBy,omitempty"`
}
