package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telecomstore/internal/models"
)

type OTPChallenges struct {
	col *mongo.Collection
}

func NewOTPChallenges(db *mongo.Database) *OTPChallenges {
	return &OTPChallenges{col: db.Collection("otp_challenges")}
}

func challengeKey(subject, purpose string) bson.M {
	return bson.M{"subject": subject, "purpose": purpose}
}

// Put replaces any outstanding challenge for the same subject and purpose.
func (s *OTPChallenges) Put(ctx context.Context, ch *models.OTPChallenge) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.col.ReplaceOne(ctx, challengeKey(ch.Subject, ch.Purpose), ch, options.Replace().SetUpsert(true))
	return translate(err)
}

func (s *OTPChallenges) Get(ctx context.Context, subject, purpose string) (*models.OTPChallenge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var ch models.OTPChallenge
	if err := s.col.FindOne(ctx, challengeKey(subject, purpose)).Decode(&ch); err != nil {
		return nil, translate(err)
	}
	return &ch, nil
}

// IncrementAttempts returns the attempt count after the increment.
func (s *OTPChallenges) IncrementAttempts(ctx context.Context, subject, purpose string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var ch models.OTPChallenge
	err := s.col.FindOneAndUpdate(ctx,
		challengeKey(subject, purpose),
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ch)
	if err != nil {
		return 0, translate(err)
	}
	return ch.Attempts, nil
}

// Consume deletes the challenge only if the hash matches and it has not
// expired. It reports false when another request consumed it first.
func (s *OTPChallenges) Consume(ctx context.Context, subject, purpose, codeHash string, now time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := challengeKey(subject, purpose)
	filter["codeHash"] = codeHash
	filter["expiresAt"] = bson.M{"$gt": now}

	res, err := s.col.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (s *OTPChallenges) Delete(ctx context.Context, subject, purpose string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.col.DeleteOne(ctx, challengeKey(subject, purpose))
	return err
}
