package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
)

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusCompleted:  {models.OrderStatusRefunded},
}

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending: {models.PaymentStatusPaid, models.PaymentStatusFailed},
	models.PaymentStatusFailed:  {models.PaymentStatusPending, models.PaymentStatusPaid},
}

func allowed[T comparable](table map[T][]T, from, to T) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus is the admin override for the order status. Setting the
// current status again is a no-op.
func (s *CheckoutService) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus) (*models.Checkout, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status is invalid")
	}

	defer s.locks.Lock(orderKey(orderID))()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.Status == status {
		return order, nil
	}
	if order.IsEMI() && order.Status == models.OrderStatusCompleted && order.EMI.RemainingAmount <= 0 {
		return nil, apperr.Conflict("fully paid EMI orders are final")
	}
	if !allowed(orderTransitions, order.Status, status) {
		return nil, apperr.Conflict("cannot move order from %s to %s", order.Status, status)
	}
	if status == models.OrderStatusCompleted && order.IsEMI() && order.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperr.Conflict("EMI order cannot be completed before it is fully paid")
	}

	from := order.Status
	order.Status = status
	if err := s.orders.UpdateState(ctx, order); err != nil {
		return nil, conflictOnVersion(notFound(err, "order not found"), "order was updated concurrently, please retry")
	}
	log.Info().Str("order_id", orderID.Hex()).Str("from", string(from)).Str("to", string(status)).Msg("order status updated")
	return order, nil
}

func (s *CheckoutService) UpdatePaymentStatus(ctx context.Context, orderID primitive.ObjectID, status models.PaymentStatus) (*models.Checkout, error) {
	if !status.Valid() {
		return nil, apperr.Validation("paymentStatus is invalid")
	}

	defer s.locks.Lock(orderKey(orderID))()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.PaymentStatus == status {
		return order, nil
	}
	if !allowed(paymentTransitions, order.PaymentStatus, status) {
		return nil, apperr.Conflict("cannot move payment from %s to %s", order.PaymentStatus, status)
	}
	if status == models.PaymentStatusPaid && order.IsEMI() && order.EMI.RemainingAmount > 0 {
		return nil, apperr.Conflict("EMI order still has %s outstanding", formatAmount(order.EMI.RemainingAmount))
	}

	from := order.PaymentStatus
	order.PaymentStatus = status
	if err := s.orders.UpdateState(ctx, order); err != nil {
		return nil, conflictOnVersion(notFound(err, "order not found"), "order was updated concurrently, please retry")
	}
	log.Info().Str("order_id", orderID.Hex()).Str("from", string(from)).Str("to", string(status)).Msg("payment status updated")
	return order, nil
}
