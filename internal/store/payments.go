package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telecomstore/internal/models"
)

type Payments struct {
	col *mongo.Collection
}

func NewPayments(db *mongo.Database) *Payments {
	return &Payments{col: db.Collection("payments")}
}

// Open records a freshly created gateway session. Re-opening the same session is a no-op.
func (s *Payments) Open(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	payment.CreatedAt, payment.UpdatedAt = now, now
	_, err := s.col.UpdateOne(ctx,
		bson.M{"sessionId": payment.SessionID},
		bson.M{"$setOnInsert": payment},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

// RecordOutcome upserts the gateway's report for sessionID and returns the
// stored record, which carries the order link when the session was opened here.
func (s *Payments) RecordOutcome(ctx context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"amount":    amount,
			"updatedAt": now,
		},
		"$inc":         bson.M{"reports": 1},
		"$setOnInsert": bson.M{"sessionId": sessionID, "expected": 0.0, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var payment models.Payment
	err := s.col.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, update, opts).Decode(&payment)
	if mongo.IsDuplicateKeyError(err) {
		err = s.col.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, update, opts).Decode(&payment)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *Payments) FindBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var payment models.Payment
	if err := s.col.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&payment); err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}
