package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/keylock"
	"telecomstore/internal/models"
	"telecomstore/internal/money"
	"telecomstore/internal/store"
)

const (
	CheckoutTaxRate = 0.12
	UpfrontShare    = 0.5
)

// EmiMonthOptions are the installment schedules on offer.
var EmiMonthOptions = []int{3, 6, 9, 12}

func validEmiMonths(months int) bool {
	for _, m := range EmiMonthOptions {
		if m == months {
			return true
		}
	}
	return false
}

// OrderItemInput references exactly one of a product or a plan.
type OrderItemInput struct {
	ProductID *primitive.ObjectID
	PlanID    *primitive.ObjectID
	Quantity  int
}

type CreateOrderInput struct {
	Items             []OrderItemInput
	FromCart          bool
	PaymentMethod     models.PaymentMethod
	EmiMonths         int
	ShippingAddressID string
}

// CartClearer empties a user's cart once an order is placed.
type CartClearer interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	RemoveLines(ctx context.Context, userID primitive.ObjectID, lineIDs []primitive.ObjectID) (*models.Cart, error)
}

type CheckoutService struct {
	orders  CheckoutStore
	catalog CatalogReader
	users   UserReader
	carts   CartClearer
	locks   *keylock.Locker
	now     func() time.Time
}

func NewCheckoutService(orders CheckoutStore, catalog CatalogReader, users UserReader, carts CartClearer, locks *keylock.Locker) *CheckoutService {
	return &CheckoutService{
		orders:  orders,
		catalog: catalog,
		users:   users,
		carts:   carts,
		locks:   locks,
		now:     time.Now,
	}
}

func orderKey(id primitive.ObjectID) string {
	return "order:" + id.Hex()
}

// Create prices the items from the catalog and stores a new order.
func (s *CheckoutService) Create(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Checkout, error) {
	if !in.PaymentMethod.Valid() {
		return nil, apperr.Validation("paymentMethod is invalid")
	}
	if in.PaymentMethod == models.PaymentMethodEMI && !validEmiMonths(in.EmiMonths) {
		return nil, apperr.Validation("emiMonths must be one of 3, 6, 9 or 12")
	}
	if in.ShippingAddressID == "" {
		return nil, apperr.Validation("shippingAddressId is required")
	}

	var cartLines []primitive.ObjectID
	if in.FromCart {
		items, lines, err := s.cartItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		in.Items, cartLines = items, lines
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	if !user.HasAddress(in.ShippingAddressID) {
		return nil, apperr.NotFound("shipping address not found")
	}

	items := make([]models.CheckoutItem, 0, len(in.Items))
	for _, it := range in.Items {
		item, err := s.priceItem(ctx, it)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	now := s.now()
	order := &models.Checkout{
		UserID:            userID,
		Items:             items,
		PaymentMethod:     in.PaymentMethod,
		ShippingAddressID: in.ShippingAddressID,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	applyTotals(order)

	switch in.PaymentMethod {
	case models.PaymentMethodEMI:
		plan := NewEmiPlan(order.Total, in.EmiMonths)
		if plan.RemainingAmount <= 0 || plan.PerMonth <= 0 {
			return nil, apperr.Validation("order total %s is too small to pay in %d installments", formatAmount(order.Total), in.EmiMonths)
		}
		order.EMI = plan
	case models.PaymentMethodFull:
		order.Status = models.OrderStatusCompleted
		order.PaymentStatus = models.PaymentStatusPaid
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}
	log.Info().
		Str("order_id", order.ID.Hex()).
		Str("user_id", userID.Hex()).
		Str("payment_method", string(order.PaymentMethod)).
		Float64("total", order.Total).
		Msg("order created")

	s.clearCart(ctx, userID, cartLines)
	return order, nil
}

// clearCart empties the cart after an order. For a cart checkout only the
// ordered lines go, so a line added meanwhile stays in the cart.
func (s *CheckoutService) clearCart(ctx context.Context, userID primitive.ObjectID, lines []primitive.ObjectID) {
	var err error
	if lines != nil {
		_, err = s.carts.RemoveLines(ctx, userID, lines)
	} else {
		_, err = s.carts.Clear(ctx, userID)
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.Hex()).Msg("order placed but cart was not cleared")
	}
}

// cartItems expands the caller's cart into order lines and returns the ids
// of the cart lines it read. A bundle line becomes one product line and one
// plan line with the same quantity.
func (s *CheckoutService) cartItems(ctx context.Context, userID primitive.ObjectID) ([]OrderItemInput, []primitive.ObjectID, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(cart.Items) == 0 {
		return nil, nil, apperr.Validation("cart is empty")
	}

	items := make([]OrderItemInput, 0, len(cart.Items))
	lines := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, line := range cart.Items {
		lines = append(lines, line.ID)
		if line.ProductID != nil {
			items = append(items, OrderItemInput{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		if line.PlanID != nil {
			items = append(items, OrderItemInput{PlanID: line.PlanID, Quantity: line.Quantity})
		}
	}
	return items, lines, nil
}

func (s *CheckoutService) priceItem(ctx context.Context, in OrderItemInput) (models.CheckoutItem, error) {
	if (in.ProductID == nil) == (in.PlanID == nil) {
		return models.CheckoutItem{}, apperr.Validation("each item needs exactly one of productId or planId")
	}
	if in.Quantity < 1 {
		return models.CheckoutItem{}, apperr.Validation("quantity must be at least 1")
	}

	item := models.CheckoutItem{ProductID: in.ProductID, PlanID: in.PlanID, Quantity: in.Quantity}
	if in.ProductID != nil {
		product, err := s.catalog.ProductByID(ctx, *in.ProductID)
		if err != nil {
			return item, notFound(err, "product %s not found", in.ProductID.Hex())
		}
		if !product.IsActive {
			return item, apperr.Validation("product %s is not available", product.Name)
		}
		item.Name, item.UnitPrice = product.Name, money.Round2(product.Price)
	} else {
		plan, err := s.catalog.PlanByID(ctx, *in.PlanID)
		if err != nil {
			return item, notFound(err, "plan %s not found", in.PlanID.Hex())
		}
		if !plan.IsActive {
			return item, apperr.Validation("plan %s is not available", plan.Name)
		}
		item.Name, item.UnitPrice = plan.Name, money.Round2(plan.Price)
	}
	item.TotalPrice = money.Mul(item.UnitPrice, item.Quantity)
	return item, nil
}

func applyTotals(order *models.Checkout) {
	totals := make([]float64, 0, len(order.Items))
	for _, item := range order.Items {
		totals = append(totals, item.TotalPrice)
	}
	order.Subtotal = money.Sum(totals...)
	order.Tax = money.Percent(order.Subtotal, CheckoutTaxRate)
	order.Total = money.Add(order.Subtotal, order.Tax)
}

// NewEmiPlan computes the installment schedule for total over months.
func NewEmiPlan(total float64, months int) *models.EmiPlan {
	upfront := money.Percent(total, UpfrontShare)
	remaining := money.Sub(total, upfront)
	return &models.EmiPlan{
		Months:          months,
		UpfrontPayment:  upfront,
		RemainingAmount: remaining,
		PerMonth:        money.Div(remaining, months),
		Payments:        []models.EmiPayment{},
	}
}

func (s *CheckoutService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Checkout, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if !actor.canSee(order.UserID) {
		return nil, apperr.Forbidden("order belongs to another user")
	}
	return order, nil
}

func (s *CheckoutService) ListMine(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Checkout, int64, error) {
	return s.orders.List(ctx, store.CheckoutFilter{UserID: &userID, Page: page})
}

func (s *CheckoutService) ListAll(ctx context.Context, f store.CheckoutFilter) ([]models.Checkout, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("status is invalid")
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, 0, apperr.Validation("paymentStatus is invalid")
	}
	return s.orders.List(ctx, f)
}

func (s *CheckoutService) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer s.locks.Lock(orderKey(id))()

	if err := s.orders.Delete(ctx, id); err != nil {
		return notFound(err, "order not found")
	}
	log.Info().Str("order_id", id.Hex()).Msg("order deleted")
	return nil
}
