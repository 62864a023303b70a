package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

type webhookRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	Status    string   `json:"status" binding:"required"`
	Amount    *float64 `json:"amount" binding:"required"`
}

// PaymentWebhook records a gateway outcome. The gateway retries on non-2xx,
// so reports for unknown sessions still answer 200.
func PaymentWebhook(svc PaymentAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/webhook"
		defer handlePanic(c, route)

		var req webhookRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, route, err)
			return
		}
		status := models.PaymentStatus(strings.TrimSpace(req.Status))
		if !status.Valid() {
			respondError(c, route, apperr.Validation("status is invalid"))
			return
		}
		if *req.Amount < 0 {
			respondError(c, route, apperr.Validation("amount cannot be negative"))
			return
		}

		payment, err := svc.ReportOutcome(c.Request.Context(), strings.TrimSpace(req.SessionID), status, *req.Amount)
		if err != nil {
			respondError(c, route, err)
			return
		}
		log.Info().Str("route", route).Str("session_id", payment.SessionID).Str("status", string(payment.Status)).Msg("payment outcome recorded")
		respondOK(c, http.StatusOK, payment)
	}
}

// PaymentLookup reads a recorded gateway session.
type PaymentLookup interface {
	FindBySession(ctx context.Context, sessionID string) (*models.Payment, error)
}

// PaymentRedirect is where the gateway sends the shopper back. It reports what
// the webhook has recorded so far; it never changes the order.
func PaymentRedirect(payments PaymentLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payments/redirect"
		defer handlePanic(c, route)

		session := strings.TrimSpace(c.Query("session"))
		if session == "" {
			respondError(c, route, apperr.Validation("session is required"))
			return
		}
		payment, err := payments.FindBySession(c.Request.Context(), session)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = apperr.NotFound("payment session not found")
			}
			respondError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"sessionId": payment.SessionID, "status": payment.Status})
	}
}
