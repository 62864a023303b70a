package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetName("email_unique").SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "mobile", Value: 1}},
					Options: options.Index().
						SetName("mobile_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{"mobile": bson.M{"$type": "string"}}),
				},
			},
		},
		{
			collection: "carts",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}},
					Options: options.Index().SetName("userId_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "checkouts",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("userId_createdAt"),
				},
				{
					Keys:    bson.D{{Key: "status", Value: 1}, {Key: "paymentStatus", Value: 1}},
					Options: options.Index().SetName("status_paymentStatus"),
				},
			},
		},
		{
			collection: "cards",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "barcode", Value: 1}},
					Options: options.Index().SetName("barcode_unique").SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "msisdn", Value: 1}},
					Options: options.Index().
						SetName("msisdn_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{"msisdn": bson.M{"$type": "string"}}),
				},
				{
					Keys:    bson.D{{Key: "owner", Value: 1}},
					Options: options.Index().SetName("owner_index"),
				},
			},
		},
		{
			collection: "payments",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "sessionId", Value: 1}},
					Options: options.Index().SetName("sessionId_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "otp_challenges",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "purpose", Value: 1}},
					Options: options.Index().SetName("subject_purpose_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "expiresAt", Value: 1}},
					Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
				},
			},
		},
		{
			collection: "refresh_tokens",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "tokenHash", Value: 1}},
					Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "expiresAt", Value: 1}},
					Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
				},
			},
		},
		{
			collection: "products",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("isActive_createdAt"),
				},
			},
		},
		{
			collection: "plans",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "type", Value: 1}, {Key: "price", Value: 1}},
					Options: options.Index().SetName("type_price"),
				},
			},
		},
	}
}

// EnsureIndexes creates every index the stores rely on. Unique indexes back
// the one-cart-per-user, barcode, msisdn and payment session invariants.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, plan := range indexPlan() {
		names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
		if err != nil {
			log.Error().Err(err).Str("collection", plan.collection).Msg("index creation failed")
			return fmt.Errorf("ensure %s indexes: %w", plan.collection, err)
		}
		log.Debug().Str("collection", plan.collection).Strs("indexes", names).Msg("indexes ensured")
	}
	return nil
}
