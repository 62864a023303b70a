package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/keylock"
	"telecomstore/internal/models"
	"telecomstore/internal/money"
)

// CartTaxRate is applied to the cart subtotal.
const CartTaxRate = 0.18

type AddItemInput struct {
	ProductID *primitive.ObjectID
	PlanID    *primitive.ObjectID
	Quantity  int
}

type CartService struct {
	carts   CartStore
	catalog CatalogReader
	locks   *keylock.Locker
	now     func() time.Time
}

func NewCartService(carts CartStore, catalog CatalogReader, locks *keylock.Locker) *CartService {
	return &CartService{carts: carts, catalog: catalog, locks: locks, now: time.Now}
}

func cartKey(userID primitive.ObjectID) string {
	return "cart:" + userID.Hex()
}

func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	return s.carts.FindOrCreate(ctx, userID)
}

// AddItem appends a line. A product or plan already somewhere in the cart is
// rejected; quantities change through UpdateItem.
func (s *CartService) AddItem(ctx context.Context, userID primitive.ObjectID, in AddItemInput) (*models.Cart, error) {
	if in.ProductID == nil && in.PlanID == nil {
		return nil, apperr.Validation("productId or planId is required")
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	defer s.locks.Lock(cartKey(userID))()

	cart, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.ProductID != nil && cart.HasProduct(*in.ProductID) {
		return nil, apperr.Conflict("product is already in your cart")
	}
	if in.PlanID != nil && cart.HasPlan(*in.PlanID) {
		return nil, apperr.Conflict("plan is already in your cart")
	}

	item := models.CartItem{
		ID:        primitive.NewObjectID(),
		ProductID: in.ProductID,
		PlanID:    in.PlanID,
		Quantity:  in.Quantity,
		AddedAt:   s.now(),
	}
	if err := s.price(ctx, &item); err != nil {
		return nil, err
	}

	cart.Items = append(cart.Items, item)
	return s.save(ctx, cart)
}

// UpdateItem sets a line's quantity and re-prices it from the current catalog.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	defer s.locks.Lock(cartKey(userID))()

	cart, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.ItemIndex(itemID)
	if idx < 0 {
		return nil, apperr.NotFound("cart item not found")
	}

	item := cart.Items[idx]
	item.Quantity = quantity
	if err := s.price(ctx, &item); err != nil {
		return nil, err
	}
	cart.Items[idx] = item
	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (*models.Cart, error) {
	defer s.locks.Lock(cartKey(userID))()

	cart, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.ItemIndex(itemID)
	if idx < 0 {
		return nil, apperr.NotFound("cart item not found")
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.save(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	defer s.locks.Lock(cartKey(userID))()

	cart, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return cart, nil
	}
	cart.Items = []models.CartItem{}
	return s.save(ctx, cart)
}

// RemoveLines drops the given lines. Ids no longer in the cart are ignored.
func (s *CartService) RemoveLines(ctx context.Context, userID primitive.ObjectID, lineIDs []primitive.ObjectID) (*models.Cart, error) {
	defer s.locks.Lock(cartKey(userID))()

	cart, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	drop := make(map[primitive.ObjectID]bool, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = true
	}
	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(cart.Items) {
		return cart, nil
	}
	cart.Items = kept
	return s.save(ctx, cart)
}

// price fills names and prices on item from the catalog.
func (s *CartService) price(ctx context.Context, item *models.CartItem) error {
	item.ProductPrice, item.PlanPrice = 0, 0

	if item.ProductID != nil {
		product, err := s.catalog.ProductByID(ctx, *item.ProductID)
		if err != nil {
			return notFound(err, "product not found")
		}
		if !product.IsActive {
			return apperr.Validation("product %s is not available", product.Name)
		}
		item.ProductName = product.Name
		item.ProductPrice = money.Round2(product.Price)
	}
	if item.PlanID != nil {
		plan, err := s.catalog.PlanByID(ctx, *item.PlanID)
		if err != nil {
			return notFound(err, "plan not found")
		}
		if !plan.IsActive {
			return apperr.Validation("plan %s is not available", plan.Name)
		}
		item.PlanName = plan.Name
		item.PlanPrice = money.Round2(plan.Price)
	}

	item.TotalPrice = money.Mul(money.Add(item.ProductPrice, item.PlanPrice), item.Quantity)
	return nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	RecalculateCart(cart)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, conflictOnVersion(err, "cart was modified concurrently, please retry")
	}
	return cart, nil
}

// RecalculateCart derives subtotal, tax and total from the item totals.
func RecalculateCart(cart *models.Cart) {
	totals := make([]float64, 0, len(cart.Items))
	for _, item := range cart.Items {
		totals = append(totals, item.TotalPrice)
	}
	cart.Subtotal = money.Sum(totals...)
	cart.Tax = money.Percent(cart.Subtotal, CartTaxRate)
	cart.Total = money.Add(cart.Subtotal, cart.Tax)
}
