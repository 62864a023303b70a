package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CardStatus string

const (
	CardStatusUnassigned CardStatus = "unassigned"
	CardStatusSold       CardStatus = "sold"
	CardStatusActive     CardStatus = "active"
)

// Rank orders statuses so that transitions can only move forward.
func (s CardStatus) Rank() int {
	switch s {
	case CardStatusUnassigned:
		return 0
	case CardStatusSold:
		return 1
	case CardStatusActive:
		return 2
	}
	return -1
}

const (
	CardTypePhysical = "physical"
	CardTypeESIM     = "esim"
)

// Card is a physical SIM or eSIM profile identified by its printed barcode.
type Card struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Barcode     string              `bson:"barcode" json:"barcode"`
	Type        string              `bson:"type" json:"type"`
	Status      CardStatus          `bson:"status" json:"status"`
	Owner       *primitive.ObjectID `bson:"owner,omitempty" json:"owner,omitempty"`
	MSISDN      string              `bson:"msisdn,omitempty" json:"msisdn,omitempty"`
	SoldAt      *time.Time          `bson:"soldAt,omitempty" json:"soldAt,omitempty"`
	ActivatedAt *time.Time          `bson:"activatedAt,omitempty" json:"activatedAt,omitempty"`
	Version     int64               `bson:"version" json:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

func (c *Card) OwnedBy(userID primitive.ObjectID) bool {
	return c.Owner != nil && *c.Owner == userID
}
