// Package services holds the storefront's business rules. Services depend on
// the small store interfaces below so they can be exercised without MongoDB.
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

type CatalogReader interface {
	ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error)
}

type CartStore interface {
	FindOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
}

type CheckoutStore interface {
	Insert(ctx context.Context, order *models.Checkout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error)
	List(ctx context.Context, f store.CheckoutFilter) ([]models.Checkout, int64, error)
	UpdateState(ctx context.Context, order *models.Checkout) error
	AppendEmiPayment(ctx context.Context, order *models.Checkout, entry models.EmiPayment) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CardStore interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Card, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Card, error)
	InsertMany(ctx context.Context, cards []models.Card) ([]string, error)
	Update(ctx context.Context, card *models.Card) error
}

type PaymentStore interface {
	Open(ctx context.Context, payment *models.Payment) error
	RecordOutcome(ctx context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error)
}

type ChallengeStore interface {
	Put(ctx context.Context, ch *models.OTPChallenge) error
	Get(ctx context.Context, subject, purpose string) (*models.OTPChallenge, error)
	IncrementAttempts(ctx context.Context, subject, purpose string) (int, error)
	Consume(ctx context.Context, subject, purpose, codeHash string, now time.Time) (bool, error)
	Delete(ctx context.Context, subject, purpose string) error
}

// UserReader is the slice of the user store most services need.
type UserReader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type UserStore interface {
	UserReader
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error
	SetKYC(ctx context.Context, id primitive.ObjectID, kyc models.KYC) error
}

type RefreshTokenStore interface {
	Insert(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID primitive.ObjectID
	Admin  bool
}

func (a Actor) canSee(owner primitive.ObjectID) bool {
	return a.Admin || a.UserID == owner
}

// notFound turns store.ErrNotFound into a NotFound error and passes anything else through.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func conflictOnVersion(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrVersionConflict) {
		return apperr.Conflict(format, args...)
	}
	return err
}
