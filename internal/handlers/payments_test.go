package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

func TestPaymentWebhook(t *testing.T) {
	svc := &mockPayments{}
	svc.On("ReportOutcome", mock.Anything, "sbx_1", models.PaymentStatusPaid, 600.0).
		Return(&models.Payment{SessionID: "sbx_1", Status: models.PaymentStatusPaid, Amount: 600}, nil)

	body := map[string]any{"sessionId": "sbx_1", "status": "paid", "amount": 600}
	w, env := serve(t, http.MethodPost, "/payments/webhook", "/payments/webhook", body, primitive.NilObjectID, "", PaymentWebhook(svc))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	svc.AssertExpectations(t)
}

func TestPaymentWebhookValidation(t *testing.T) {
	svc := &mockPayments{}

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"unknown status", map[string]any{"sessionId": "s", "status": "settled", "amount": 1}, "status is invalid"},
		{"negative amount", map[string]any{"sessionId": "s", "status": "paid", "amount": -1}, "amount cannot be negative"},
		{"missing amount", map[string]any{"sessionId": "s", "status": "paid"}, "amount is required"},
		{"missing session", map[string]any{"status": "paid", "amount": 1}, "sessionId is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := serve(t, http.MethodPost, "/payments/webhook", "/payments/webhook", tc.body, primitive.NilObjectID, "", PaymentWebhook(svc))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, env.Error)
		})
	}
	svc.AssertNotCalled(t, "ReportOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type mockLookup struct{ mock.Mock }

func (m *mockLookup) FindBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	args := m.Called(ctx, sessionID)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}

func TestPaymentRedirect(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("FindBySession", mock.Anything, "sbx_9").Return(&models.Payment{SessionID: "sbx_9", Status: models.PaymentStatusPending}, nil)
	lookup.On("FindBySession", mock.Anything, "sbx_x").Return(nil, store.ErrNotFound)

	w, env := serve(t, http.MethodGet, "/payments/redirect", "/payments/redirect?session=sbx_9", nil, primitive.NilObjectID, "", PaymentRedirect(lookup))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessionId":"sbx_9","status":"pending"}`, string(env.Data))

	w, env = serve(t, http.MethodGet, "/payments/redirect", "/payments/redirect?session=sbx_x", nil, primitive.NilObjectID, "", PaymentRedirect(lookup))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "payment session not found", env.Error)

	w, _ = serve(t, http.MethodGet, "/payments/redirect", "/payments/redirect", nil, primitive.NilObjectID, "", PaymentRedirect(lookup))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
