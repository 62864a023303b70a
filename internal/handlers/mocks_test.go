package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/gateway"
	"telecomstore/internal/middleware"
	"telecomstore/internal/models"
	"telecomstore/internal/services"
	"telecomstore/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// serve mounts h behind a stub auth step and runs one request against it.
func serve(t *testing.T, method, pattern, target string, body any, userID primitive.ObjectID, role string, h gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := gin.New()
	r.Handle(method, pattern, func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}, h)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type mockCart struct{ mock.Mock }

func (m *mockCart) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *mockCart) AddItem(ctx context.Context, userID primitive.ObjectID, in services.AddItemInput) (*models.Cart, error) {
	args := m.Called(ctx, userID, in)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *mockCart) UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (*models.Cart, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *mockCart) RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (*models.Cart, error) {
	args := m.Called(ctx, userID, itemID)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *mockCart) Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) Create(ctx context.Context, userID primitive.ObjectID, in services.CreateOrderInput) (*models.Checkout, error) {
	args := m.Called(ctx, userID, in)
	order, _ := args.Get(0).(*models.Checkout)
	return order, args.Error(1)
}

func (m *mockCheckout) Get(ctx context.Context, actor services.Actor, id primitive.ObjectID) (*models.Checkout, error) {
	args := m.Called(ctx, actor, id)
	order, _ := args.Get(0).(*models.Checkout)
	return order, args.Error(1)
}

func (m *mockCheckout) ListMine(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Checkout, int64, error) {
	args := m.Called(ctx, userID, page)
	orders, _ := args.Get(0).([]models.Checkout)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockCheckout) ListAll(ctx context.Context, f store.CheckoutFilter) ([]models.Checkout, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]models.Checkout)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockCheckout) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCheckout) AddEmiPayment(ctx context.Context, actor services.Actor, orderID primitive.ObjectID, amountPaid float64) (*models.Checkout, error) {
	args := m.Called(ctx, actor, orderID, amountPaid)
	order, _ := args.Get(0).(*models.Checkout)
	return order, args.Error(1)
}

func (m *mockCheckout) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus) (*models.Checkout, error) {
	args := m.Called(ctx, orderID, status)
	order, _ := args.Get(0).(*models.Checkout)
	return order, args.Error(1)
}

func (m *mockCheckout) UpdatePaymentStatus(ctx context.Context, orderID primitive.ObjectID, status models.PaymentStatus) (*models.Checkout, error) {
	args := m.Called(ctx, orderID, status)
	order, _ := args.Get(0).(*models.Checkout)
	return order, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) StartPayment(ctx context.Context, userID, orderID primitive.ObjectID) (gateway.Session, error) {
	args := m.Called(ctx, userID, orderID)
	return args.Get(0).(gateway.Session), args.Error(1)
}

func (m *mockPayments) ReportOutcome(ctx context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error) {
	args := m.Called(ctx, sessionID, status, amount)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}

type mockCards struct{ mock.Mock }

func (m *mockCards) CheckoutComplete(ctx context.Context, userID primitive.ObjectID, barcode string) (*models.Card, error) {
	args := m.Called(ctx, userID, barcode)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCards) RequestOTP(ctx context.Context, userID primitive.ObjectID, barcode string) (*services.OTPDispatch, error) {
	args := m.Called(ctx, userID, barcode)
	dispatch, _ := args.Get(0).(*services.OTPDispatch)
	return dispatch, args.Error(1)
}

func (m *mockCards) Activate(ctx context.Context, userID primitive.ObjectID, barcode, code string) (*models.Card, error) {
	args := m.Called(ctx, userID, barcode, code)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCards) ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.Card, error) {
	args := m.Called(ctx, userID)
	cards, _ := args.Get(0).([]models.Card)
	return cards, args.Error(1)
}

func (m *mockCards) Provision(ctx context.Context, barcodes []string, cardType string) (*services.ProvisionResult, error) {
	args := m.Called(ctx, barcodes, cardType)
	result, _ := args.Get(0).(*services.ProvisionResult)
	return result, args.Error(1)
}

type mockProfile struct{ mock.Mock }

func (m *mockProfile) Addresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	args := m.Called(ctx, userID)
	addresses, _ := args.Get(0).([]models.Address)
	return addresses, args.Error(1)
}

func (m *mockProfile) AddAddress(ctx context.Context, userID primitive.ObjectID, in services.AddressInput) (*models.Address, error) {
	args := m.Called(ctx, userID, in)
	address, _ := args.Get(0).(*models.Address)
	return address, args.Error(1)
}

func (m *mockProfile) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in services.AddressInput) (*models.Address, error) {
	args := m.Called(ctx, userID, addressID, in)
	address, _ := args.Get(0).(*models.Address)
	return address, args.Error(1)
}

func (m *mockProfile) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error {
	return m.Called(ctx, userID, addressID).Error(0)
}

func (m *mockProfile) SubmitKYC(ctx context.Context, userID primitive.ObjectID, documentType, path string) (*models.KYC, string, error) {
	args := m.Called(ctx, userID, documentType, path)
	kyc, _ := args.Get(0).(*models.KYC)
	return kyc, args.String(1), args.Error(2)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListProducts(ctx context.Context, f store.CatalogFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]models.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockCatalog) ListPlans(ctx context.Context, f store.CatalogFilter) ([]models.Plan, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]models.Plan)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockCatalog) ListAddons(ctx context.Context, f store.CatalogFilter) ([]models.Addon, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]models.Addon)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockCatalog) ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockCatalog) PlanByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error) {
	args := m.Called(ctx, id)
	plan, _ := args.Get(0).(*models.Plan)
	return plan, args.Error(1)
}

func (m *mockCatalog) AddonByID(ctx context.Context, id primitive.ObjectID) (*models.Addon, error) {
	args := m.Called(ctx, id)
	addon, _ := args.Get(0).(*models.Addon)
	return addon, args.Error(1)
}
