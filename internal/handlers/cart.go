package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/models"
	"telecomstore/internal/services"
)

type CartAPI interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, in services.AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	PlanID    string `json:"planId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func GetCart(svc CartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		cart, err := svc.Get(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cart)
	}
}

func AddCartItem(svc CartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart"
		defer handlePanic(c, route)

		var req addCartItemRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		productID, err := optionalID("productId", req.ProductID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		planID, err := optionalID("planId", req.PlanID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		cart, err := svc.AddItem(c.Request.Context(), currentUserID(c), services.AddItemInput{
			ProductID: productID,
			PlanID:    planID,
			Quantity:  quantity,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, cart)
	}
}

func UpdateCartItem(svc CartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/:itemId"
		defer handlePanic(c, route)

		itemID, err := pathID(c, "itemId")
		if err != nil {
			respondError(c, route, err)
			return
		}
		var req updateCartItemRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		cart, err := svc.UpdateItem(c.Request.Context(), currentUserID(c), itemID, req.Quantity)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cart)
	}
}

func RemoveCartItem(svc CartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:itemId"
		defer handlePanic(c, route)

		itemID, err := pathID(c, "itemId")
		if err != nil {
			respondError(c, route, err)
			return
		}
		cart, err := svc.RemoveItem(c.Request.Context(), currentUserID(c), itemID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cart)
	}
}

func ClearCart(svc CartAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		cart, err := svc.Clear(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cart)
	}
}
