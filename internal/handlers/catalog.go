package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

// CatalogAPI is the read side of the product, plan and addon collections.
type CatalogAPI interface {
	ListProducts(ctx context.Context, f store.CatalogFilter) ([]models.Product, int64, error)
	ListPlans(ctx context.Context, f store.CatalogFilter) ([]models.Plan, int64, error)
	ListAddons(ctx context.Context, f store.CatalogFilter) ([]models.Addon, int64, error)
	ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error)
	AddonByID(ctx context.Context, id primitive.ObjectID) (*models.Addon, error)
}

var catalogSorts = map[string]bool{"": true, "price": true, "-price": true, "newest": true, "name": true}

func parsePrice(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.Validation("%s must be a non-negative number", field)
	}
	return &v, nil
}

func catalogFilterFromQuery(c *gin.Context) (store.CatalogFilter, error) {
	f := store.CatalogFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}
	if !catalogSorts[f.Sort] {
		return f, apperr.Validation("sort must be one of price, -price, newest or name")
	}

	var err error
	if f.MinPrice, err = parsePrice(c.Query("minPrice"), "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(c.Query("maxPrice"), "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, apperr.Validation("minPrice cannot exceed maxPrice")
	}
	if f.Page, err = pageFromQuery(c); err != nil {
		return f, err
	}
	return f, nil
}

func catalogNotFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return err
}

func GetProducts(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		f, err := catalogFilterFromQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		items, total, err := catalog.ListProducts(c.Request.Context(), f)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, newListResponse(items, total, f.Page))
	}
}

func GetPlans(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /plans"
		defer handlePanic(c, route)

		f, err := catalogFilterFromQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		f.Type = strings.TrimSpace(c.Query("type"))
		if f.Type != "" && f.Type != models.PlanTypePrepaid && f.Type != models.PlanTypePostpaid {
			respondError(c, route, apperr.Validation("type must be prepaid or postpaid"))
			return
		}
		items, total, err := catalog.ListPlans(c.Request.Context(), f)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, newListResponse(items, total, f.Page))
	}
}

func GetAddons(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /addons"
		defer handlePanic(c, route)

		f, err := catalogFilterFromQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		items, total, err := catalog.ListAddons(c.Request.Context(), f)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, newListResponse(items, total, f.Page))
	}
}

func GetProduct(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		product, err := catalog.ProductByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, route, catalogNotFound(err, "product"))
			return
		}
		if !product.IsActive {
			respondError(c, route, apperr.NotFound("product not found"))
			return
		}
		respondOK(c, http.StatusOK, product)
	}
}

func GetPlan(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /plans/:id"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		plan, err := catalog.PlanByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, route, catalogNotFound(err, "plan"))
			return
		}
		if !plan.IsActive {
			respondError(c, route, apperr.NotFound("plan not found"))
			return
		}
		respondOK(c, http.StatusOK, plan)
	}
}

func GetAddon(catalog CatalogAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /addons/:id"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		addon, err := catalog.AddonByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, route, catalogNotFound(err, "addon"))
			return
		}
		if !addon.IsActive {
			respondError(c, route, apperr.NotFound("addon not found"))
			return
		}
		respondOK(c, http.StatusOK, addon)
	}
}
