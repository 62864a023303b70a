package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telecomstore/internal/models"
)

type Carts struct {
	col *mongo.Collection
}

func NewCarts(db *mongo.Database) *Carts {
	return &Carts{col: db.Collection("carts")}
}

// FindOrCreate returns the user's cart, creating an empty one on first use.
func (s *Carts) FindOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	update := bson.M{"$setOnInsert": bson.M{
		"userId":    userID,
		"items":     []models.CartItem{},
		"subtotal":  0.0,
		"tax":       0.0,
		"total":     0.0,
		"version":   int64(0),
		"createdAt": now,
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cart models.Cart
	err := s.col.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race against a concurrent first request; the cart exists now
		err = s.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// Save writes items and totals if nobody saved the cart since it was read.
func (s *Carts) Save(ctx context.Context, cart *models.Cart) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cart.UpdatedAt = time.Now()
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": cart.ID, "version": cart.Version},
		bson.M{
			"$set": bson.M{
				"items":     items,
				"subtotal":  cart.Subtotal,
				"tax":       cart.Tax,
				"total":     cart.Total,
				"updatedAt": cart.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if exists, _ := s.col.CountDocuments(ctx, bson.M{"_id": cart.ID}); exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	cart.Version++
	return nil
}
