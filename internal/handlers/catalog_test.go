package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

func TestGetProductsFilter(t *testing.T) {
	svc := &mockCatalog{}
	minPrice := 100.0
	svc.On("ListProducts", mock.Anything, store.CatalogFilter{
		Category: "phones",
		Search:   "pixel",
		Sort:     "-price",
		MinPrice: &minPrice,
		Page:     store.Page{Page: 1, Limit: 5},
	}).Return([]models.Product{{Name: "Pixel"}}, int64(6), nil)

	w, env := serve(t, http.MethodGet, "/products", "/products?category=phones&search=pixel&sort=-price&minPrice=100&page=1&limit=5", nil, primitive.NilObjectID, "", GetProducts(svc))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"totalPages":2`)
	svc.AssertExpectations(t)
}

func TestGetProductsRejectsBadQuery(t *testing.T) {
	svc := &mockCatalog{}
	for target, want := range map[string]string{
		"/products?sort=cheapest":          "sort must be one of price, -price, newest or name",
		"/products?minPrice=abc":           "minPrice must be a non-negative number",
		"/products?minPrice=10&maxPrice=5": "minPrice cannot exceed maxPrice",
		"/products?page=0&limit=10":        "page must be a positive integer",
		"/products?page=1&limit=ten":       "limit must be a positive integer",
	} {
		w, env := serve(t, http.MethodGet, "/products", target, nil, primitive.NilObjectID, "", GetProducts(svc))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, want, env.Error, target)
	}
	svc.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
}

func TestGetPlansType(t *testing.T) {
	svc := &mockCatalog{}
	svc.On("ListPlans", mock.Anything, store.CatalogFilter{Type: "prepaid"}).Return([]models.Plan{}, int64(0), nil)

	w, _ := serve(t, http.MethodGet, "/plans", "/plans?type=prepaid", nil, primitive.NilObjectID, "", GetPlans(svc))
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := serve(t, http.MethodGet, "/plans", "/plans?type=corporate", nil, primitive.NilObjectID, "", GetPlans(svc))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "type must be prepaid or postpaid", env.Error)
	svc.AssertExpectations(t)
}

func TestGetProductHidesMissingAndInactive(t *testing.T) {
	svc := &mockCatalog{}
	missing := primitive.NewObjectID()
	inactive := primitive.NewObjectID()
	active := primitive.NewObjectID()
	svc.On("ProductByID", mock.Anything, missing).Return(nil, store.ErrNotFound)
	svc.On("ProductByID", mock.Anything, inactive).Return(&models.Product{ID: inactive, IsActive: false}, nil)
	svc.On("ProductByID", mock.Anything, active).Return(&models.Product{ID: active, Name: "Router", IsActive: true}, nil)

	for _, id := range []primitive.ObjectID{missing, inactive} {
		w, env := serve(t, http.MethodGet, "/products/:id", "/products/"+id.Hex(), nil, primitive.NilObjectID, "", GetProduct(svc))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "product not found", env.Error)
	}

	w, env := serve(t, http.MethodGet, "/products/:id", "/products/"+active.Hex(), nil, primitive.NilObjectID, "", GetProduct(svc))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Router", decode[models.Product](t, env.Data).Name)
}

func TestGetAddonNotFound(t *testing.T) {
	svc := &mockCatalog{}
	id := primitive.NewObjectID()
	svc.On("AddonByID", mock.Anything, id).Return(nil, store.ErrNotFound)

	w, env := serve(t, http.MethodGet, "/addons/:id", "/addons/"+id.Hex(), nil, primitive.NilObjectID, "", GetAddon(svc))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "addon not found", env.Error)
}
