package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/gateway"
	"telecomstore/internal/keylock"
	"telecomstore/internal/models"
	"telecomstore/internal/money"
	"telecomstore/internal/store"
)

// PaymentService hands orders to the gateway and reconciles its reports.
type PaymentService struct {
	orders   CheckoutStore
	payments PaymentStore
	users    UserReader
	gateway  gateway.Gateway
	locks    *keylock.Locker
	currency string
}

func NewPaymentService(orders CheckoutStore, payments PaymentStore, users UserReader, gw gateway.Gateway, locks *keylock.Locker, currency string) *PaymentService {
	return &PaymentService{
		orders:   orders,
		payments: payments,
		users:    users,
		gateway:  gw,
		locks:    locks,
		currency: currency,
	}
}

// StartPayment opens a gateway session for the amount currently due on the order.
func (s *PaymentService) StartPayment(ctx context.Context, userID, orderID primitive.ObjectID) (gateway.Session, error) {
	defer s.locks.Lock(orderKey(orderID))()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return gateway.Session{}, notFound(err, "order not found")
	}
	if order.UserID != userID {
		return gateway.Session{}, apperr.Forbidden("order belongs to another user")
	}
	if order.PaymentMethod == models.PaymentMethodCOD {
		return gateway.Session{}, apperr.Validation("cash on delivery orders are paid on delivery")
	}
	if order.Status != models.OrderStatusPending || order.PaymentStatus == models.PaymentStatusPaid {
		return gateway.Session{}, apperr.Conflict("order is not awaiting payment")
	}
	if order.IsEMI() && order.EMI.UpfrontPaid {
		return gateway.Session{}, apperr.Conflict("upfront payment has already been received")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return gateway.Session{}, notFound(err, "user not found")
	}

	amount := order.AmountDue()
	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		OrderRef:    order.ID.Hex(),
		Amount:      amount,
		Currency:    s.currency,
		Description: "Order " + order.ID.Hex(),
		Customer:    gateway.Customer{Name: user.Name, Email: user.Email, Mobile: user.Mobile},
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID.Hex()).Msg("gateway session failed")
		return gateway.Session{}, apperr.Unavailable("payment gateway is unavailable, please try again")
	}

	if err := s.payments.Open(ctx, &models.Payment{
		SessionID: session.ID,
		OrderID:   &order.ID,
		UserID:    &userID,
		Expected:  amount,
		Status:    models.PaymentStatusPending,
	}); err != nil {
		return gateway.Session{}, err
	}

	order.PaymentSessionID = session.ID
	if err := s.orders.UpdateState(ctx, order); err != nil {
		return gateway.Session{}, conflictOnVersion(notFound(err, "order not found"), "order was updated concurrently, please retry")
	}

	log.Info().Str("order_id", order.ID.Hex()).Str("session_id", session.ID).Float64("amount", amount).Msg("payment session opened")
	return session, nil
}

// ReportOutcome records a gateway report and moves the linked order forward.
// Reports may repeat; applying the same one twice changes nothing.
func (s *PaymentService) ReportOutcome(ctx context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Validation("sessionId is required")
	}
	if !status.Valid() {
		return nil, apperr.Validation("status is invalid")
	}
	if amount < 0 {
		return nil, apperr.Validation("amount cannot be negative")
	}
	amount = money.Round2(amount)

	payment, err := s.payments.RecordOutcome(ctx, sessionID, status, amount)
	if err != nil {
		return nil, err
	}
	if payment.OrderID == nil {
		log.Warn().Str("session_id", sessionID).Str("status", string(status)).Msg("payment report for unknown session")
		return payment, nil
	}

	orderID := *payment.OrderID
	defer s.locks.Lock(orderKey(orderID))()

	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn().Str("session_id", sessionID).Str("order_id", orderID.Hex()).Msg("payment report for deleted order")
		return payment, nil
	}
	if err != nil {
		return nil, err
	}

	if !applyOutcome(order, payment, status, amount) {
		return payment, nil
	}
	if err := s.orders.UpdateState(ctx, order); err != nil {
		return nil, conflictOnVersion(err, "order was updated concurrently, please retry")
	}

	log.Info().
		Str("order_id", orderID.Hex()).
		Str("session_id", sessionID).
		Str("status", string(order.Status)).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("payment reconciled")
	return payment, nil
}

// applyOutcome mutates order for a gateway report and reports whether anything changed.
func applyOutcome(order *models.Checkout, payment *models.Payment, status models.PaymentStatus, amount float64) bool {
	switch status {
	case models.PaymentStatusPaid:
		if money.Cmp(amount, payment.Expected) < 0 {
			log.Warn().
				Str("order_id", order.ID.Hex()).
				Float64("expected", payment.Expected).
				Float64("amount", amount).
				Msg("gateway reported an underpayment")
			return false
		}
		if order.IsEMI() {
			if order.EMI.UpfrontPaid {
				return false
			}
			order.EMI.UpfrontPaid = true
		} else {
			if order.PaymentStatus == models.PaymentStatusPaid {
				return false
			}
			order.PaymentStatus = models.PaymentStatusPaid
		}
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusProcessing
		}
		return true
	case models.PaymentStatusFailed:
		if order.IsEMI() || order.PaymentStatus != models.PaymentStatusPending {
			return false
		}
		order.PaymentStatus = models.PaymentStatusFailed
		return true
	default:
		return false
	}
}
