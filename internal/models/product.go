package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a handset, router or SIM kit sold in the storefront.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	Category    StringList         `bson:"category" json:"category"`
	Brand       string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ImagePath   string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

const (
	PlanTypePrepaid  = "prepaid"
	PlanTypePostpaid = "postpaid"
)

// Plan is a tariff a SIM can be bought with.
type Plan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Type         string             `bson:"type" json:"type"`
	Price        float64            `bson:"price" json:"price"`
	ValidityDays int                `bson:"validityDays" json:"validityDays"`
	DataGB       float64            `bson:"dataGb" json:"dataGb"`
	Benefits     StringList         `bson:"benefits" json:"benefits"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	IsDeleted    bool               `bson:"isDeleted" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Addon is a top-up pack layered on a plan.
type Addon struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Price        float64            `bson:"price" json:"price"`
	ValidityDays int                `bson:"validityDays" json:"validityDays"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	IsDeleted    bool               `bson:"isDeleted" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
