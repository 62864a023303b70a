package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

func AdminListOrders(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/checkouts"
		defer handlePanic(c, route)

		page, err := pageFromQuery(c)
		if err != nil {
			respondError(c, route, err)
			return
		}
		f := store.CheckoutFilter{
			Status:        models.OrderStatus(strings.TrimSpace(c.Query("status"))),
			PaymentStatus: models.PaymentStatus(strings.TrimSpace(c.Query("paymentStatus"))),
			Page:          page,
		}
		if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
			userID, err := optionalID("userId", raw)
			if err != nil {
				respondError(c, route, err)
				return
			}
			f.UserID = userID
		}

		orders, total, err := svc.ListAll(c.Request.Context(), f)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, newListResponse(orders, total, page))
	}
}

func DeleteOrder(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/checkouts/:id"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"deleted": true})
	}
}

func UpdateOrderStatus(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /checkout/:id/order-status"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		var req orderStatusRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		status := models.OrderStatus(strings.TrimSpace(req.Status))
		if !status.Valid() {
			respondError(c, route, apperr.Validation("status is invalid"))
			return
		}
		order, err := svc.UpdateStatus(c.Request.Context(), id, status)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}

func UpdatePaymentStatus(svc CheckoutAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /checkout/:id/payment-status"
		defer handlePanic(c, route)

		id, err := pathID(c, "id")
		if err != nil {
			respondError(c, route, err)
			return
		}
		var req paymentStatusRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		status := models.PaymentStatus(strings.TrimSpace(req.PaymentStatus))
		if !status.Valid() {
			respondError(c, route, apperr.Validation("paymentStatus is invalid"))
			return
		}
		order, err := svc.UpdatePaymentStatus(c.Request.Context(), id, status)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}
