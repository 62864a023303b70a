package store

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telecomstore/internal/models"
)

// CatalogFilter narrows product, plan and addon listings.
type CatalogFilter struct {
	Category string
	Type     string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Page     Page
}

type Catalog struct {
	products *mongo.Collection
	plans    *mongo.Collection
	addons   *mongo.Collection
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		products: db.Collection("products"),
		plans:    db.Collection("plans"),
		addons:   db.Collection("addons"),
	}
}

func buildCatalogFilter(f CatalogFilter) bson.M {
	filter := bson.M{
		"isActive":  bson.M{"$ne": false},
		"isDeleted": bson.M{"$ne": true},
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		filter["category"] = bson.M{"$in": []string{category}}
	}
	if planType := strings.TrimSpace(f.Type); planType != "" {
		filter["type"] = planType
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func catalogSort(sort string) bson.D {
	switch strings.TrimSpace(sort) {
	case "price":
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case "-price":
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case "name":
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func list[T any](ctx context.Context, col *mongo.Collection, filter bson.M, sort bson.D, page Page) ([]T, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(page.skip()).SetLimit(page.Limit)
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func findByID[T any](ctx context.Context, col *mongo.Collection, id primitive.ObjectID) (*T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc T
	err := col.FindOne(ctx, bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}}).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *Catalog) ListProducts(ctx context.Context, f CatalogFilter) ([]models.Product, int64, error) {
	f.Type = ""
	return list[models.Product](ctx, s.products, buildCatalogFilter(f), catalogSort(f.Sort), f.Page)
}

func (s *Catalog) ListPlans(ctx context.Context, f CatalogFilter) ([]models.Plan, int64, error) {
	f.Category = ""
	return list[models.Plan](ctx, s.plans, buildCatalogFilter(f), catalogSort(f.Sort), f.Page)
}

func (s *Catalog) ListAddons(ctx context.Context, f CatalogFilter) ([]models.Addon, int64, error) {
	f.Category, f.Type = "", ""
	return list[models.Addon](ctx, s.addons, buildCatalogFilter(f), catalogSort(f.Sort), f.Page)
}

// ProductByID returns inactive products too; callers decide whether they may be sold.
func (s *Catalog) ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return findByID[models.Product](ctx, s.products, id)
}

func (s *Catalog) PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error) {
	return findByID[models.Plan](ctx, s.plans, id)
}

func (s *Catalog) AddonByID(ctx context.Context, id primitive.ObjectID) (*models.Addon, error) {
	return findByID[models.Addon](ctx, s.addons, id)
}
