package models

import "time"

const (
	OTPPurposeLogin          = "login"
	OTPPurposeCardActivation = "card_activation"
)

// OTPChallenge is a short-lived one-time code keyed by (Subject, Purpose).
type OTPChallenge struct {
	Subject   string    `bson:"subject"`
	Purpose   string    `bson:"purpose"`
	Reference string    `bson:"reference,omitempty"`
	CodeHash  string    `bson:"codeHash"`
	Attempts  int       `bson:"attempts"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
