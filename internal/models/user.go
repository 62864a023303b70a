package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address represents a single address entry for a user.
type Address struct {
	ID        string `bson:"id" json:"id"`
	Title     string `bson:"title" json:"title"`
	Line1     string `bson:"line1" json:"line1"`
	Line2     string `bson:"line2,omitempty" json:"line2,omitempty"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	Pincode   string `bson:"pincode" json:"pincode"`
	IsDefault bool   `bson:"isDefault" json:"isDefault"`
}

const (
	KYCStatusSubmitted = "submitted"
)

// KYC records the last identity document a user uploaded.
type KYC struct {
	DocumentType string    `bson:"documentType" json:"documentType"`
	Path         string    `bson:"path" json:"path"`
	Status       string    `bson:"status" json:"status"`
	SubmittedAt  time.Time `bson:"submittedAt" json:"submittedAt"`
}

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Mobile       string             `bson:"mobile" json:"mobile"`
	Role         string             `bson:"role" json:"role"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Addresses    []Address          `bson:"addresses" json:"addresses"`
	KYC          *KYC               `bson:"kyc,omitempty" json:"kyc,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasAddress reports whether addressID is in the user's address book.
func (u *User) HasAddress(addressID string) bool {
	for _, addr := range u.Addresses {
		if addr.ID == addressID {
			return true
		}
	}
	return false
}
