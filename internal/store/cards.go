package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telecomstore/internal/models"
)

type Cards struct {
	col *mongo.Collection
}

func NewCards(db *mongo.Database) *Cards {
	return &Cards{col: db.Collection("cards")}
}

func (s *Cards) FindByBarcode(ctx context.Context, barcode string) (*models.Card, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var card models.Card
	if err := s.col.FindOne(ctx, bson.M{"barcode": barcode}).Decode(&card); err != nil {
		return nil, translate(err)
	}
	return &card, nil
}

func (s *Cards) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Card, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{"owner": owner}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cards := make([]models.Card, 0)
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// InsertMany inserts cards unordered and reports which barcodes already existed.
func (s *Cards) InsertMany(ctx context.Context, cards []models.Card) ([]string, error) {
	if len(cards) == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, 0, len(cards))
	for _, card := range cards {
		docs = append(docs, card)
	}

	_, err := s.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return nil, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return nil, err
	}
	duplicates := make([]string, 0)
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != 11000 {
			return nil, err
		}
		if writeErr.Index >= 0 && writeErr.Index < len(cards) {
			duplicates = append(duplicates, cards[writeErr.Index].Barcode)
		}
	}
	return duplicates, nil
}

// Update writes the lifecycle fields if the card is still at the version read.
// A second card already holding the msisdn yields ErrDuplicate.
func (s *Cards) Update(ctx context.Context, card *models.Card) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"status": card.Status}
	unset := bson.M{}
	if card.Owner != nil {
		set["owner"] = *card.Owner
	}
	if card.MSISDN != "" {
		set["msisdn"] = card.MSISDN
	} else {
		unset["msisdn"] = ""
	}
	if card.SoldAt != nil {
		set["soldAt"] = *card.SoldAt
	}
	if card.ActivatedAt != nil {
		set["activatedAt"] = *card.ActivatedAt
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": card.ID, "version": card.Version}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if exists, _ := s.col.CountDocuments(ctx, bson.M{"_id": card.ID}); exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	card.Version++
	return nil
}
