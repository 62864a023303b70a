package services

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
	"telecomstore/internal/money"
)

// AddEmiPayment records the next installment on an EMI order. Checks run
// before any write, and the write itself only lands if the order is still
// at the version that was checked.
func (s *CheckoutService) AddEmiPayment(ctx context.Context, actor Actor, orderID primitive.ObjectID, amountPaid float64) (*models.Checkout, error) {
	defer s.locks.Lock(orderKey(orderID))()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if !actor.canSee(order.UserID) {
		return nil, apperr.Forbidden("order belongs to another user")
	}

	entry, err := nextInstallment(order, amountPaid)
	if err != nil {
		return nil, err
	}
	entry.PaidAt = s.now()

	emi := order.EMI
	emi.RemainingAmount = money.Round2(money.Max0(money.Sub(emi.RemainingAmount, entry.AmountPaid)))
	emi.Payments = append(emi.Payments, entry)
	if money.IsZero(emi.RemainingAmount) {
		emi.RemainingAmount = 0
		order.PaymentStatus = models.PaymentStatusPaid
		order.Status = models.OrderStatusCompleted
	}

	if err := s.orders.AppendEmiPayment(ctx, order, entry); err != nil {
		return nil, conflictOnVersion(notFound(err, "order not found"), "order was updated concurrently, please retry")
	}

	log.Info().
		Str("order_id", order.ID.Hex()).
		Int("month", entry.MonthNumber).
		Float64("amount", entry.AmountPaid).
		Float64("remaining", emi.RemainingAmount).
		Msg("emi installment recorded")
	return order, nil
}

// nextInstallment validates amountPaid against the order's schedule and
// returns the ledger entry it would become.
func nextInstallment(order *models.Checkout, amountPaid float64) (models.EmiPayment, error) {
	if !order.IsEMI() {
		return models.EmiPayment{}, apperr.Validation("installments can only be paid on EMI orders")
	}
	emi := order.EMI

	if emi.RemainingAmount <= 0 || order.PaymentStatus == models.PaymentStatusPaid {
		return models.EmiPayment{}, apperr.Conflict("order is already fully paid")
	}
	if len(emi.Payments) >= emi.Months {
		return models.EmiPayment{}, apperr.Conflict("all %d installments have already been paid", emi.Months)
	}
	if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusRefunded {
		return models.EmiPayment{}, apperr.Conflict("order is %s", order.Status)
	}

	month := len(emi.Payments) + 1
	ceiling := emi.PerMonth
	if month == emi.Months {
		ceiling = emi.RemainingAmount
	}

	amount := money.Round2(amountPaid)
	if amount <= 0 {
		return models.EmiPayment{}, apperr.Validation("amountPaid must be greater than zero")
	}
	if money.Cmp(amount, ceiling) > 0 {
		return models.EmiPayment{}, apperr.Validation("amount exceeds this installment: maximum %s this month", formatAmount(ceiling))
	}

	return models.EmiPayment{MonthNumber: month, AmountPaid: amount}, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(money.Round2(v), 'f', -1, 64)
}
