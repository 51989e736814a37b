package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mateabags/storefront/internal/cache"
	"github.com/mateabags/storefront/internal/cart"
	"github.com/mateabags/storefront/internal/catalog"
	"github.com/mateabags/storefront/internal/config"
	"github.com/mateabags/storefront/internal/coupon"
	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
	"github.com/mateabags/storefront/internal/services"
	"github.com/mateabags/storefront/internal/session"
)

// testEnv wires Handlers against in-memory providers and fakes so every
// endpoint can be exercised without Postgres or Stripe.
type testEnv struct {
	handlers *Handlers
	cache    cache.Provider
	orders   *fakeOrderStore
	payments *fakePaymentStore
	events   *fakeEventStore
	pipeline *fakeCheckoutPipeline
	coupons  *fakeCouponStore
	waitlist *fakeWaitlistStore
	admin    *fakeAdminStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create cache provider: %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		BaseURL:             "http://localhost:8080",
		Port:                "8080",
		DefaultCurrency:     "EUR",
		PaymentMode:         config.PaymentModeSimulate,
		StripeWebhookSecret: "whsec_test_secret",
	}

	shopCatalog := testCatalog()
	sessionManager := session.NewManager(session.NewMemoryStore(), false)
	cartStore := cart.NewStore(cacheProvider)

	orders := newFakeOrderStore()
	payments := newFakePaymentStore()
	events := &fakeEventStore{}
	coupons := &fakeCouponStore{coupons: map[string]*models.Coupon{}}
	pipeline := newFakeCheckoutPipeline()
	waitlist := &fakeWaitlistStore{seen: map[string]bool{}}
	admin := newFakeAdminStore()

	checkoutService := services.NewCheckoutService(services.CheckoutConfig{
		Catalog:   shopCatalog,
		Customers: pipeline.customers,
		Addresses: pipeline.addresses,
		Orders:    pipeline.orders,
		Payments:  pipeline.payments,
		Coupons:   coupons,
		BaseURL:   cfg.BaseURL,
		Currency:  cfg.DefaultCurrency,
		Simulate:  true,
		Logger:    logger,
	})

	eventService := services.NewStripeEventService(nil, nil, nil, logger)

	env := &testEnv{
		cache:    cacheProvider,
		orders:   orders,
		payments: payments,
		events:   events,
		pipeline: pipeline,
		coupons:  coupons,
		waitlist: waitlist,
		admin:    admin,
	}
	env.handlers = &Handlers{
		config:          cfg,
		cacheProvider:   cacheProvider,
		sessionManager:  sessionManager,
		catalog:         shopCatalog,
		cartStore:       cartStore,
		couponValidator: coupon.NewValidator(coupons),
		checkoutService: checkoutService,
		orderStore:      orders,
		paymentStore:    payments,
		eventStore:      events,
		stripeRouter:    NewStripeEventRouter(eventService, logger),
		authService:     services.NewAdminAuthService("", "", ""),
		adminService:    services.NewAdminOrderService(admin, nil, logger),
		waitlistService: services.NewWaitlistService(waitlist, nil, time.Time{}, logger),
		logger:          logger,
	}
	return env
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Shop: catalog.ShopConfig{
			Name:          "Mateabags",
			Currency:      "EUR",
			FlatRateCents: 500,
		},
		Products: []catalog.Product{
			{ID: "mate-classic", SKU: "MB-CLASSIC", Title: "Mateabag Classic", UnitPriceCents: 4500, Active: true, Stock: 10},
			{ID: "mate-mini", SKU: "MB-MINI", Title: "Mateabag Mini", UnitPriceCents: 2500, Active: true, Stock: 5},
			{ID: "mate-limited", SKU: "MB-LIMITED", Title: "Mateabag Limited Edition", UnitPriceCents: 9900, Active: false},
		},
	}
}

// newSessionRequest builds a request carrying a fresh session cookie and
// returns the session alongside it.
func (e *testEnv) newSessionRequest(t *testing.T, method, target string, body io.Reader) (*http.Request, *session.Data) {
	t.Helper()

	rec := httptest.NewRecorder()
	sess, err := e.handlers.sessionManager.CreateSession(context.Background(), rec)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(method, target, body)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req, sess
}

func (e *testEnv) seedCart(t *testing.T, cartID string, state cart.State) {
	t.Helper()
	if err := e.handlers.cartStore.Save(context.Background(), cartID, state); err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
}

type testEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
	Success bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got error: %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("unexpected status: got=%d want=%d (body: %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected error envelope")
	}
	if env.Error == nil || env.Error.Code != code {
		t.Fatalf("unexpected error code: got=%+v want=%s", env.Error, code)
	}
}

// fakeOrderStore backs the handlers' direct order reads and cancellation.
type fakeOrderStore struct {
	orders    map[uuid.UUID]*models.Order
	items     map[uuid.UUID][]models.OrderItem
	cancelErr error
	// raceStatus simulates a webhook winning against Cancel: the failed
	// cancel leaves the order in this status.
	raceStatus models.OrderStatus
	cancelled  []uuid.UUID
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: map[uuid.UUID]*models.Order{},
		items:  map[uuid.UUID][]models.OrderItem{},
	}
}

func (f *fakeOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetDetails(_ context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &models.OrderDetails{Order: *order, Items: f.items[orderID]}, nil
}

func (f *fakeOrderStore) Cancel(_ context.Context, orderID uuid.UUID) error {
	if f.cancelErr != nil {
		if order, ok := f.orders[orderID]; ok && f.raceStatus != "" {
			order.Status = f.raceStatus
		}
		return f.cancelErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	if order.Status != models.StatusPending {
		return db.ErrInvalidStatusTransition
	}
	order.Status = models.StatusCancelled
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

type fakePaymentStore struct {
	byOrder   map[uuid.UUID]*models.Payment
	cancelled []uuid.UUID
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{byOrder: map[uuid.UUID]*models.Payment{}}
}

func (f *fakePaymentStore) GetByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	payment, ok := f.byOrder[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePaymentStore) MarkCancelled(_ context.Context, paymentID uuid.UUID) error {
	for _, payment := range f.byOrder {
		if payment.ID == paymentID {
			payment.Status = models.PaymentCancelled
			f.cancelled = append(f.cancelled, paymentID)
			return nil
		}
	}
	return db.ErrNotFound
}

type fakeEventStore struct {
	insertErr error
	inserted  []string
	processed []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeEventStore) Insert(_ context.Context, stripeEventID, _ string, _ []byte) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, stripeEventID)
	return uuid.New(), nil
}

func (f *fakeEventStore) MarkProcessed(_ context.Context, eventID uuid.UUID, _, _ uuid.UUID) error {
	f.processed = append(f.processed, eventID)
	return nil
}

func (f *fakeEventStore) MarkFailed(_ context.Context, eventID uuid.UUID) error {
	f.failed = append(f.failed, eventID)
	return nil
}

// fakeCheckoutPipeline bundles the stores the checkout service writes to.
type fakeCheckoutPipeline struct {
	customers *fakeCustomerStore
	addresses *fakeAddressStore
	orders    *fakeCheckoutOrders
	payments  *fakeCheckoutPayments
}

func newFakeCheckoutPipeline() *fakeCheckoutPipeline {
	return &fakeCheckoutPipeline{
		customers: &fakeCustomerStore{byEmail: map[string]*models.Customer{}},
		addresses: &fakeAddressStore{},
		orders:    &fakeCheckoutOrders{},
		payments:  &fakeCheckoutPayments{},
	}
}

type fakeCustomerStore struct {
	byEmail map[string]*models.Customer
}

func (f *fakeCustomerStore) GetByEmail(_ context.Context, email string) (*models.Customer, error) {
	customer, ok := f.byEmail[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	return customer, nil
}

func (f *fakeCustomerStore) Create(_ context.Context, customer *models.Customer) error {
	customer.ID = uuid.New()
	f.byEmail[customer.Email] = customer
	return nil
}

type fakeAddressStore struct {
	created []*models.Address
}

func (f *fakeAddressStore) Create(_ context.Context, address *models.Address) error {
	address.ID = uuid.New()
	f.created = append(f.created, address)
	return nil
}

type fakeCheckoutOrders struct {
	created []*models.Order
	items   [][]models.OrderItem
	paid    []uuid.UUID
}

func (f *fakeCheckoutOrders) CreateWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	order.ID = uuid.New()
	f.created = append(f.created, order)
	f.items = append(f.items, items)
	return nil
}

func (f *fakeCheckoutOrders) MarkPaid(_ context.Context, orderID uuid.UUID) error {
	f.paid = append(f.paid, orderID)
	return nil
}

type fakeCheckoutPayments struct {
	created   []*models.Payment
	succeeded []uuid.UUID
}

func (f *fakeCheckoutPayments) Create(_ context.Context, payment *models.Payment) error {
	payment.ID = uuid.New()
	f.created = append(f.created, payment)
	return nil
}

func (f *fakeCheckoutPayments) MarkSucceeded(_ context.Context, paymentID uuid.UUID, _, _, _, _ string) error {
	f.succeeded = append(f.succeeded, paymentID)
	return nil
}

type fakeCouponStore struct {
	coupons     map[string]*models.Coupon
	lookupErr   error
	incremented []uuid.UUID
	redemptions int
}

func (f *fakeCouponStore) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	c, ok := f.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (f *fakeCouponStore) IncrementUsage(_ context.Context, couponID uuid.UUID) error {
	f.incremented = append(f.incremented, couponID)
	return nil
}

func (f *fakeCouponStore) RecordRedemption(_ context.Context, _, _ uuid.UUID, _ int) error {
	f.redemptions++
	return nil
}

type fakeWaitlistStore struct {
	seen   map[string]bool
	addErr error
}

func (f *fakeWaitlistStore) Add(_ context.Context, email string) (bool, error) {
	if f.addErr != nil {
		return false, f.addErr
	}
	if f.seen[email] {
		return false, nil
	}
	f.seen[email] = true
	return true, nil
}

func (f *fakeWaitlistStore) Count(_ context.Context) (int, error) {
	return len(f.seen), nil
}

type fakeAdminStore struct {
	orders        map[uuid.UUID]*models.Order
	listErr       error
	transitionErr error
	shipped       []uuid.UUID
	delivered     []uuid.UUID
	processing    []uuid.UUID
	cancelled     []uuid.UUID
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeAdminStore) ListRecent(_ context.Context, limit int) ([]*models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	orders := make([]*models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		orders = append(orders, order)
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *fakeAdminStore) ListByStatus(_ context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var orders []*models.Order
	for _, order := range f.orders {
		if order.Status == status {
			orders = append(orders, order)
		}
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *fakeAdminStore) GetDetails(_ context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &models.OrderDetails{Order: *order}, nil
}

func (f *fakeAdminStore) Summarize(_ context.Context) (*db.SalesSummary, error) {
	summary := &db.SalesSummary{
		TotalOrders:    len(f.orders),
		OrdersByStatus: map[string]int{},
	}
	for _, order := range f.orders {
		summary.OrdersByStatus[string(order.Status)]++
	}
	return summary, nil
}

func (f *fakeAdminStore) MarkProcessing(_ context.Context, orderID uuid.UUID) error {
	return f.transition(orderID, &f.processing, models.StatusProcessing)
}

func (f *fakeAdminStore) MarkShipped(_ context.Context, orderID uuid.UUID) error {
	return f.transition(orderID, &f.shipped, models.StatusShipped)
}

func (f *fakeAdminStore) MarkDelivered(_ context.Context, orderID uuid.UUID) error {
	return f.transition(orderID, &f.delivered, models.StatusDelivered)
}

func (f *fakeAdminStore) Cancel(_ context.Context, orderID uuid.UUID) error {
	return f.transition(orderID, &f.cancelled, models.StatusCancelled)
}

func (f *fakeAdminStore) transition(orderID uuid.UUID, record *[]uuid.UUID, to models.OrderStatus) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	order.Status = to
	*record = append(*record, orderID)
	return nil
}
