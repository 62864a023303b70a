package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/models"
	"telecomstore/internal/services"
)

type CardAPI interface {
	CheckoutComplete(ctx context.Context, userID primitive.ObjectID, barcode string) (*models.Card, error)
	RequestOTP(ctx context.Context, userID primitive.ObjectID, barcode string) (*services.OTPDispatch, error)
	Activate(ctx context.Context, userID primitive.ObjectID, barcode, code string) (*models.Card, error)
	ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.Card, error)
	Provision(ctx context.Context, barcodes []string, cardType string) (*services.ProvisionResult, error)
}

type barcodeRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

type activateRequest struct {
	Barcode string `json:"barcode" binding:"required"`
	OTP     string `json:"otp" binding:"required"`
}

type provisionRequest struct {
	Barcodes []string `json:"barcodes" binding:"required,min=1,dive,required"`
	Type     string   `json:"type" binding:"required,oneof=physical esim"`
}

func CardCheckoutComplete(svc CardAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cards/checkout-complete"
		defer handlePanic(c, route)

		var req barcodeRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		card, err := svc.CheckoutComplete(c.Request.Context(), currentUserID(c), req.Barcode)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, card)
	}
}

func CardRequestOTP(svc CardAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cards/request-otp"
		defer handlePanic(c, route)

		var req barcodeRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		dispatch, err := svc.RequestOTP(c.Request.Context(), currentUserID(c), req.Barcode)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, dispatch)
	}
}

func CardActivate(svc CardAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cards/activate"
		defer handlePanic(c, route)

		var req activateRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		card, err := svc.Activate(c.Request.Context(), currentUserID(c), req.Barcode, req.OTP)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, card)
	}
}

func MyCards(svc CardAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cards/mine"
		defer handlePanic(c, route)

		cards, err := svc.ListMine(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cards)
	}
}

func ProvisionCards(svc CardAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/cards"
		defer handlePanic(c, route)

		var req provisionRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		result, err := svc.Provision(c.Request.Context(), req.Barcodes, req.Type)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, result)
	}
}
