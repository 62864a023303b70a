package services

import (
	"context"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/gateway"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

type fakeCatalog struct {
	products map[primitive.ObjectID]*models.Product
	plans    map[primitive.ObjectID]*models.Plan
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[primitive.ObjectID]*models.Product{},
		plans:    map[primitive.ObjectID]*models.Plan{},
	}
}

func (f *fakeCatalog) addProduct(name string, price float64, active bool) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.products[id] = &models.Product{ID: id, Name: name, Price: price, IsActive: active}
	return id
}

func (f *fakeCatalog) addPlan(name string, price float64, active bool) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.plans[id] = &models.Plan{ID: id, Name: name, Price: price, IsActive: active}
	return id
}

func (f *fakeCatalog) ProductByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) PlanByID(_ context.Context, id primitive.ObjectID) (*models.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeCarts struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]models.Cart
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[primitive.ObjectID]models.Cart{}}
}

func copyCart(c models.Cart) *models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c
}

func (f *fakeCarts) FindOrCreate(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		c = models.Cart{ID: primitive.NewObjectID(), UserID: userID, Items: []models.CartItem{}}
		f.carts[userID] = c
	}
	return copyCart(c), nil
}

func (f *fakeCarts) Save(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.carts[cart.UserID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != cart.Version {
		return store.ErrVersionConflict
	}
	cart.Version++
	f.carts[cart.UserID] = *copyCart(*cart)
	return nil
}

type fakeCheckouts struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]models.Checkout
	// beforeWrite runs inside conditional writes, before the version check.
	beforeWrite func(stored *models.Checkout)
}

func newFakeCheckouts() *fakeCheckouts {
	return &fakeCheckouts{orders: map[primitive.ObjectID]models.Checkout{}}
}

func copyOrder(o models.Checkout) *models.Checkout {
	o.Items = append([]models.CheckoutItem{}, o.Items...)
	if o.EMI != nil {
		emi := *o.EMI
		emi.Payments = append([]models.EmiPayment{}, o.EMI.Payments...)
		o.EMI = &emi
	}
	return &o
}

func (f *fakeCheckouts) seed(o models.Checkout) *models.Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	f.orders[o.ID] = *copyOrder(o)
	return copyOrder(o)
}

func (f *fakeCheckouts) get(id primitive.ObjectID) *models.Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil
	}
	return copyOrder(o)
}

func (f *fakeCheckouts) Insert(_ context.Context, order *models.Checkout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = primitive.NewObjectID()
	f.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (f *fakeCheckouts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	if o := f.get(id); o != nil {
		return o, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCheckouts) List(_ context.Context, filter store.CheckoutFilter) ([]models.Checkout, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Checkout, 0)
	for _, o := range f.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, int64(len(out)), nil
}

func (f *fakeCheckouts) write(order *models.Checkout, guard func(stored models.Checkout) bool, apply func(stored *models.Checkout)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.orders[order.ID]
	if !ok {
		return store.ErrNotFound
	}
	if f.beforeWrite != nil {
		f.beforeWrite(&stored)
		f.orders[order.ID] = stored
	}
	if stored.Version != order.Version || (guard != nil && !guard(stored)) {
		return store.ErrVersionConflict
	}
	apply(&stored)
	stored.Version++
	order.Version++
	f.orders[order.ID] = stored
	return nil
}

func (f *fakeCheckouts) UpdateState(_ context.Context, order *models.Checkout) error {
	return f.write(order, nil, func(stored *models.Checkout) {
		stored.Status = order.Status
		stored.PaymentStatus = order.PaymentStatus
		stored.PaymentSessionID = order.PaymentSessionID
		if stored.EMI != nil && order.EMI != nil {
			stored.EMI.UpfrontPaid = order.EMI.UpfrontPaid
		}
	})
}

func (f *fakeCheckouts) AppendEmiPayment(_ context.Context, order *models.Checkout, entry models.EmiPayment) error {
	guard := func(stored models.Checkout) bool {
		if stored.PaymentMethod != models.PaymentMethodEMI || stored.EMI == nil {
			return false
		}
		if stored.EMI.RemainingAmount <= 0 || stored.PaymentStatus == models.PaymentStatusPaid {
			return false
		}
		for _, p := range stored.EMI.Payments {
			if p.MonthNumber == entry.MonthNumber {
				return false
			}
		}
		return true
	}
	return f.write(order, guard, func(stored *models.Checkout) {
		stored.EMI.Payments = append(stored.EMI.Payments, entry)
		stored.EMI.RemainingAmount = order.EMI.RemainingAmount
		stored.Status = order.Status
		stored.PaymentStatus = order.PaymentStatus
	})
}

func (f *fakeCheckouts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

type fakeCards struct {
	mu    sync.Mutex
	cards map[string]models.Card
}

func newFakeCards(barcodes ...string) *fakeCards {
	f := &fakeCards{cards: map[string]models.Card{}}
	for _, b := range barcodes {
		f.cards[b] = models.Card{ID: primitive.NewObjectID(), Barcode: b, Type: models.CardTypePhysical, Status: models.CardStatusUnassigned}
	}
	return f
}

// get returns a copy of the stored card.
func (f *fakeCards) get(barcode string) *models.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cards[barcode]
	return &c
}

func (f *fakeCards) FindByBarcode(_ context.Context, barcode string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCards) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Card, 0)
	for _, c := range f.cards {
		if c.OwnedBy(owner) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCards) InsertMany(_ context.Context, cards []models.Card) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dups := make([]string, 0)
	for _, c := range cards {
		if _, ok := f.cards[c.Barcode]; ok {
			dups = append(dups, c.Barcode)
			continue
		}
		c.ID = primitive.NewObjectID()
		f.cards[c.Barcode] = c
	}
	return dups, nil
}

func (f *fakeCards) Update(_ context.Context, card *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.cards[card.Barcode]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != card.Version {
		return store.ErrVersionConflict
	}
	if card.MSISDN != "" {
		for b, other := range f.cards {
			if b != card.Barcode && other.MSISDN == card.MSISDN {
				return store.ErrDuplicate
			}
		}
	}
	card.Version++
	f.cards[card.Barcode] = *card
	return nil
}

type fakePayments struct {
	mu       sync.Mutex
	sessions map[string]models.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{sessions: map[string]models.Payment{}}
}

func (f *fakePayments) Open(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[p.SessionID]; !ok {
		f.sessions[p.SessionID] = *p
	}
	return nil
}

func (f *fakePayments) RecordOutcome(_ context.Context, sessionID string, status models.PaymentStatus, amount float64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.sessions[sessionID]
	p.SessionID = sessionID
	p.Status = status
	p.Amount = amount
	p.Reports++
	f.sessions[sessionID] = p
	return &p, nil
}

type challengeKey struct{ subject, purpose string }

type fakeChallenges struct {
	mu         sync.Mutex
	challenges map[challengeKey]models.OTPChallenge
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{challenges: map[challengeKey]models.OTPChallenge{}}
}

func (f *fakeChallenges) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.challenges)
}

func (f *fakeChallenges) Put(_ context.Context, ch *models.OTPChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[challengeKey{ch.Subject, ch.Purpose}] = *ch
	return nil
}

func (f *fakeChallenges) Get(_ context.Context, subject, purpose string) (*models.OTPChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.challenges[challengeKey{subject, purpose}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ch, nil
}

func (f *fakeChallenges) IncrementAttempts(_ context.Context, subject, purpose string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := challengeKey{subject, purpose}
	ch, ok := f.challenges[k]
	if !ok {
		return 0, store.ErrNotFound
	}
	ch.Attempts++
	f.challenges[k] = ch
	return ch.Attempts, nil
}

func (f *fakeChallenges) Consume(_ context.Context, subject, purpose, codeHash string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := challengeKey{subject, purpose}
	ch, ok := f.challenges[k]
	if !ok || ch.CodeHash != codeHash || !now.Before(ch.ExpiresAt) {
		return false, nil
	}
	delete(f.challenges, k)
	return true, nil
}

func (f *fakeChallenges) Delete(_ context.Context, subject, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.challenges, challengeKey{subject, purpose})
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[primitive.ObjectID]models.User{}}
}

func (f *fakeUsers) add(u models.User) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) find(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			u.Addresses = append([]models.Address{}, u.Addresses...)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByMobile(_ context.Context, mobile string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Mobile != "" && u.Mobile == mobile })
}

func (f *fakeUsers) Insert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email || (user.Mobile != "" && u.Mobile == user.Mobile) {
			return store.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) update(id primitive.ObjectID, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	f.users[id] = u
	return nil
}

func (f *fakeUsers) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address) error {
	return f.update(id, func(u *models.User) { u.Addresses = append([]models.Address{}, addresses...) })
}

func (f *fakeUsers) SetKYC(_ context.Context, id primitive.ObjectID, kyc models.KYC) error {
	return f.update(id, func(u *models.User) { u.KYC = &kyc })
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[primitive.ObjectID]models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[primitive.ObjectID]models.RefreshToken{}}
}

func (f *fakeTokens) Insert(_ context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = primitive.NewObjectID()
	f.tokens[t.ID] = *t
	return nil
}

func (f *fakeTokens) FindActive(_ context.Context, hash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == hash && !t.Revoked {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeTokens) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	if !ok || t.Revoked {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.ReplacedBy = replacedBy
	f.tokens[id] = t
	return nil
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// fakeSender keeps the last message per mobile.
type fakeSender struct {
	mu   sync.Mutex
	last map[string]string
	err  error
}

func newFakeSender() *fakeSender {
	return &fakeSender{last: map[string]string{}}
}

func (f *fakeSender) Send(_ context.Context, mobile, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.last[mobile] = message
	return nil
}

func (f *fakeSender) code(mobile string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := codePattern.FindStringSubmatch(f.last[mobile])
	if m == nil {
		return ""
	}
	return m[1]
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []gateway.SessionRequest
	err      error
}

func (f *fakeGateway) CreateSession(_ context.Context, req gateway.SessionRequest) (gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gateway.Session{}, f.err
	}
	f.requests = append(f.requests, req)
	id := "sess_" + primitive.NewObjectID().Hex()
	return gateway.Session{ID: id, RedirectURL: "https://pay.test/" + id}, nil
}

// fixedClock is a settable clock for expiry tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func oid(id primitive.ObjectID) *primitive.ObjectID { return &id }
