package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"telecomstore/internal/models"
)

// CheckoutFilter is used by the admin listing. Zero values match everything.
type CheckoutFilter struct {
	UserID        *primitive.ObjectID
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	Page          Page
}

type Checkouts struct {
	col *mongo.Collection
}

func NewCheckouts(db *mongo.Database) *Checkouts {
	return &Checkouts{col: db.Collection("checkouts")}
}

func (s *Checkouts) Insert(ctx context.Context, order *models.Checkout) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.col.InsertOne(ctx, order)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (s *Checkouts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Checkout
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *Checkouts) List(ctx context.Context, f CheckoutFilter) ([]models.Checkout, int64, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	return list[models.Checkout](ctx, s.col, filter, sort, f.Page)
}

// UpdateState writes the mutable lifecycle fields guarded by the version the
// caller read. The ledger itself is only ever touched by AppendEmiPayment.
func (s *Checkouts) UpdateState(ctx context.Context, order *models.Checkout) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	order.UpdatedAt = time.Now()
	set := bson.M{
		"status":           order.Status,
		"paymentStatus":    order.PaymentStatus,
		"paymentSessionId": order.PaymentSessionID,
		"updatedAt":        order.UpdatedAt,
	}
	if order.EMI != nil {
		set["emi.upfrontPaid"] = order.EMI.UpfrontPaid
	}
	return s.casUpdate(ctx, order, bson.M{"$set": set, "$inc": bson.M{"version": 1}}, bson.M{})
}

// AppendEmiPayment pushes one ledger entry and stores the new balance in a
// single conditional write: it only matches while the version is unchanged,
// the balance is positive and the schedule has a free slot.
func (s *Checkouts) AppendEmiPayment(ctx context.Context, order *models.Checkout, entry models.EmiPayment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	order.UpdatedAt = time.Now()
	guard := bson.M{
		"paymentMethod":            models.PaymentMethodEMI,
		"emi.remainingAmount":      bson.M{"$gt": 0},
		"paymentStatus":            bson.M{"$ne": models.PaymentStatusPaid},
		"emi.payments.monthNumber": bson.M{"$ne": entry.MonthNumber},
	}
	update := bson.M{
		"$push": bson.M{"emi.payments": entry},
		"$set": bson.M{
			"emi.remainingAmount": order.EMI.RemainingAmount,
			"status":              order.Status,
			"paymentStatus":       order.PaymentStatus,
			"updatedAt":           order.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	return s.casUpdate(ctx, order, update, guard)
}

func (s *Checkouts) casUpdate(ctx context.Context, order *models.Checkout, update, guard bson.M) error {
	filter := bson.M{"_id": order.ID, "version": order.Version}
	for k, v := range guard {
		filter[k] = v
	}
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if exists, _ := s.col.CountDocuments(ctx, bson.M{"_id": order.ID}); exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	order.Version++
	return nil
}

func (s *Checkouts) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
