package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/gateway"
	"telecomstore/internal/models"
	"telecomstore/internal/services"
	"telecomstore/internal/store"
)

type CheckoutAPI interface {
	Create(ctx context.Context, userID primitive.ObjectID, in services.CreateOrderInput) (*models.Checkout, error)
	Get(ctx context.Context, actor services.Actor, id primitive.ObjectID) (*models.Checkout, error)
	ListMine(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Checkout, int64, error)
	ListAll(ctx context.Context, f store.CheckoutFilter) ([]models.Checkout, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddEmiPayment(ctx context.Context, actor services.Actor, orderID primitive.ObjectID, amountPaid float64) (*models.Checkout, error)
	UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus) (*models.Checkout, error)
	UpdatePaymentStatus(ctx context.Context, orderID primitive.ObjectID, status models.PaymentStatus) (*models.Checkout, error)
}

type PaymentAPI interface {
	StartPayment(ctx context.Context, userID, orderID primitive.ObjectID) (gateway.Session, error)
	ReportOutcome(ctx context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error)
}

type createOrderItemRequest struct {
	ProductID string `json:"productId"`
	PlanID    string `json:"planId"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items             []createOrderItemRequest `json:"items" binding:"dive"`
	FromCart          bool                     `json:"fromCart"`
	PaymentMethod     string                   `json:"paymentMethod" binding:"required"`
	EmiMonths         int                      `json:"emiMonths"`
	ShippingAddressID string                   `json:"shippingAddressId" binding:"required"`
}

type emiPaymentRequest struct {
	AmountPaid *float64 `json:"amountPaid" binding:"required"`
}

func (r createOrderRequest) input() (services.CreateOrderInput, error) {
	in := services.CreateOrderInput{
		FromCart:          r.FromCart,
		PaymentMethod:     models.PaymentMethod(r.PaymentMethod),
		EmiMonths:         r.EmiMonths,
		ShippingAddressID: r.ShippingAddressID,
	}
	if r.FromCart && len(r.Items) > 0 {
		return in, apperr.Validation("items must be empty when fromCart is set")
	}
	for _, it := range r.Items {
		productID, err := optionalID("productId", it.ProductID)
		if err != nil {
			return in, err
		}
		planID, err := optionalID("planId", it.PlanID)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, services.OrderItemInput{ProductID: productID, PlanID: planID, Quantity: it.Quantity})
	}
	return in, nil
}

func CreateOrder(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		in, err := req.input()
		if err != nil {
			respondError(c, route, err)
			return
		}
		order, err := svc.Create(c.Request.Context(), currentUserID(c), in)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, order)
	}
}

func GetMyOrders(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout"
		defer handlePanic(c, route)

		page, err := pageFromQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		orders, total, err := svc.ListMine(c.Request.Context(), currentUserID(c), page)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, newListResponse(orders, total, page))
	}
}

func GetOrder(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/:id"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		order, err := svc.Get(c.Request.Context(), currentActor(c), id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}

func AddEmiPayment(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/:id/emi-payment"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		var req emiPaymentRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		order, err := svc.AddEmiPayment(c.Request.Context(), currentActor(c), id, *req.AmountPaid)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}

func StartPayment(svc PaymentAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/:id/pay"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		session, err := svc.StartPayment(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, session)
	}
}
