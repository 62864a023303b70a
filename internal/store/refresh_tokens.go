package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"telecomstore/internal/models"
)

type RefreshTokens struct {
	col *mongo.Collection
}

func NewRefreshTokens(db *mongo.Database) *RefreshTokens {
	return &RefreshTokens{col: db.Collection("refresh_tokens")}
}

func (s *RefreshTokens) Insert(ctx context.Context, token *models.RefreshToken) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.col.InsertOne(ctx, token)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		token.ID = id
	}
	return nil
}

func (s *RefreshTokens) FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var token models.RefreshToken
	err := s.col.FindOne(ctx, bson.M{"tokenHash": tokenHash, "revoked": false}).Decode(&token)
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// Revoke marks the token revoked only if it still is active, so a refresh
// token can be rotated exactly once.
func (s *RefreshTokens) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replacedBy"] = *replacedBy
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id, "revoked": false}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
