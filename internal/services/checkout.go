package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/mateabags/storefront/internal/cart"
	"github.com/mateabags/storefront/internal/catalog"
	"github.com/mateabags/storefront/internal/coupon"
	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/models"
	"github.com/mateabags/storefront/internal/stripe"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrCouponRejected     = errors.New("coupon rejected")
)

type checkoutCustomerStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
}

type checkoutAddressStore interface {
	Create(ctx context.Context, address *models.Address) error
}

type checkoutOrderStore interface {
	CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
}

type checkoutPaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	MarkSucceeded(ctx context.Context, paymentID uuid.UUID, chargeID, methodType, cardBrand, cardLast4 string) error
}

type checkoutCouponStore interface {
	coupon.Source
	IncrementUsage(ctx context.Context, couponID uuid.UUID) error
	RecordRedemption(ctx context.Context, orderID, couponID uuid.UUID, discountCents int) error
}

type checkoutSessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

// CheckoutService turns a cart into a pending order with a payment session.
type CheckoutService struct {
	catalog       *catalog.Catalog
	customers     checkoutCustomerStore
	addresses     checkoutAddressStore
	orders        checkoutOrderStore
	payments      checkoutPaymentStore
	coupons       checkoutCouponStore
	validator     *coupon.Validator
	sessions      checkoutSessionCreator
	baseURL       string
	currency      string
	paymentWindow time.Duration
	simulate      bool
	logger        *slog.Logger
	now           func() time.Time
}

type CheckoutConfig struct {
	Catalog       *catalog.Catalog
	Customers     checkoutCustomerStore
	Addresses     checkoutAddressStore
	Orders        checkoutOrderStore
	Payments      checkoutPaymentStore
	Coupons       checkoutCouponStore
	Sessions      checkoutSessionCreator
	BaseURL       string
	Currency      string
	PaymentWindow time.Duration
	Simulate      bool
	Logger        *slog.Logger
}

func NewCheckoutService(cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		catalog:       cfg.Catalog,
		customers:     cfg.Customers,
		addresses:     cfg.Addresses,
		orders:        cfg.Orders,
		payments:      cfg.Payments,
		coupons:       cfg.Coupons,
		validator:     coupon.NewValidator(cfg.Coupons),
		sessions:      cfg.Sessions,
		baseURL:       cfg.BaseURL,
		currency:      cfg.Currency,
		paymentWindow: cfg.PaymentWindow,
		simulate:      cfg.Simulate,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

type CustomerInput struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

type AddressInput struct {
	RecipientName string `json:"recipient_name"`
	Line1         string `json:"line1" validate:"required"`
	Line2         string `json:"line2"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state"`
	Postcode      string `json:"postcode" validate:"required"`
	Country       string `json:"country" validate:"required"`
}

type SubmitInput struct {
	Cart        cart.State
	Customer    CustomerInput
	Address     AddressInput
	Note        string
	IsGift      bool
	GiftMessage string
}

type SubmitResult struct {
	Order       *models.Order
	Payment     *models.Payment
	RedirectURL string
	Simulated   bool
}

// Submit runs the order assembly pipeline. Prices, shipping, and the coupon
// are all re-derived server-side from the catalog and the coupon store; the
// client-held cart only names products and quantities.
func (s *CheckoutService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	logger := logging.FromContext(ctx, s.logger)

	if input.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items, subtotalCents, err := s.buildItems(input)
	if err != nil {
		return nil, err
	}

	couponResult, discountCents, redeemedCoupon, err := s.revalidateCoupon(ctx, input.Cart.CouponCode, subtotalCents)
	if err != nil {
		return nil, err
	}

	customer, err := s.findOrCreateCustomer(ctx, input.Customer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	address := &models.Address{
		CustomerID:    customer.ID,
		Kind:          models.AddressShipping,
		RecipientName: input.Address.RecipientName,
		Line1:         input.Address.Line1,
		Line2:         input.Address.Line2,
		City:          input.Address.City,
		State:         input.Address.State,
		Postcode:      input.Address.Postcode,
		Country:       input.Address.Country,
	}
	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	shippingCents := s.catalog.ShippingCents()
	totalCents := subtotalCents - discountCents + shippingCents
	if totalCents < 0 {
		totalCents = 0
	}

	order := &models.Order{
		CustomerID:        customer.ID,
		ShippingAddressID: address.ID,
		SubtotalCents:     subtotalCents,
		DiscountCents:     discountCents,
		ShippingCents:     shippingCents,
		TotalCents:        totalCents,
		Currency:          s.currency,
		Status:            models.StatusPending,
		Note:              input.Note,
		PaymentDeadline:   s.now().Add(s.paymentWindow),
	}
	if err := s.orders.CreateWithItems(ctx, order, items); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if redeemedCoupon != nil {
		// Bookkeeping failures are logged, not fatal: the order stands and the
		// discount was already applied to its totals.
		if err := s.coupons.IncrementUsage(ctx, redeemedCoupon.ID); err != nil {
			logger.Warn("failed to increment coupon usage", "coupon", redeemedCoupon.Code, "order_id", order.ID, "error", err)
		}
		if err := s.coupons.RecordRedemption(ctx, order.ID, redeemedCoupon.ID, couponResult.DiscountCents); err != nil {
			logger.Warn("failed to record coupon redemption", "coupon", redeemedCoupon.Code, "order_id", order.ID, "error", err)
		}
	}

	if s.simulate {
		return s.submitSimulated(ctx, order)
	}

	sessionURL, payment, err := s.createPaymentSession(ctx, order, items, customer.Email, discountCents, shippingCents)
	if err != nil {
		return nil, err
	}

	logger.Info("order submitted", "order_id", order.ID, "total_cents", order.TotalCents, "items", len(items))
	return &SubmitResult{
		Order:       order,
		Payment:     payment,
		RedirectURL: sessionURL,
	}, nil
}

// buildItems snapshots the cart against the catalog. The catalog price wins
// over whatever the cart recorded when the product was added.
func (s *CheckoutService) buildItems(input SubmitInput) ([]models.OrderItem, int, error) {
	items := make([]models.OrderItem, 0, len(input.Cart.Lines))
	subtotal := 0
	for _, line := range input.Cart.Lines {
		product := s.catalog.FindProduct(line.ProductID)
		if product == nil || !product.Active {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}

		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if quantity > cart.MaxLineQuantity {
			quantity = cart.MaxLineQuantity
		}

		item := models.OrderItem{
			ProductID:   product.ID,
			Title:       product.Title,
			SKU:         product.SKU,
			Quantity:    quantity,
			UnitCents:   product.UnitPriceCents,
			TotalCents:  product.UnitPriceCents * quantity,
			IsGift:      input.IsGift,
			GiftMessage: input.GiftMessage,
		}
		subtotal += item.TotalCents
		items = append(items, item)
	}
	return items, subtotal, nil
}

func (s *CheckoutService) revalidateCoupon(ctx context.Context, code string, subtotalCents int) (coupon.Result, int, *models.Coupon, error) {
	result, err := s.validator.Validate(ctx, code, subtotalCents)
	if err != nil {
		return result, 0, nil, fmt.Errorf("coupon validation failed: %w", err)
	}
	if !result.Valid {
		return result, 0, nil, fmt.Errorf("%w: %s", ErrCouponRejected, result.Message)
	}
	if result.Code == "" {
		return result, 0, nil, nil
	}

	c, err := s.coupons.GetByCode(ctx, result.Code)
	if err != nil {
		return result, 0, nil, fmt.Errorf("coupon lookup failed: %w", err)
	}
	return result, result.DiscountCents, c, nil
}

func (s *CheckoutService) findOrCreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, input.Email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	customer = &models.Customer{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CheckoutService) createPaymentSession(ctx context.Context, order *models.Order, items []models.OrderItem, customerEmail string, discountCents, shippingCents int) (string, *models.Payment, error) {
	lineItems := make([]stripe.LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, stripe.LineItem{
			Name:      item.Title,
			UnitCents: int64(item.UnitCents),
			Quantity:  int64(item.Quantity),
		})
	}

	sess, err := s.sessions.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		OrderID:       order.ID,
		Currency:      s.currency,
		LineItems:     lineItems,
		DiscountCents: int64(discountCents),
		ShippingCents: int64(shippingCents),
		CustomerEmail: customerEmail,
		SuccessURL:    s.returnURL("/checkout/success", order.ID),
		CancelURL:     s.returnURL("/checkout/cancel", order.ID),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	payment := &models.Payment{
		OrderID:                 order.ID,
		AmountCents:             order.TotalCents,
		Currency:                order.Currency,
		Status:                  models.PaymentPending,
		StripeCheckoutSessionID: sess.ID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return "", nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	return sess.URL, payment, nil
}

// submitSimulated flips the order straight to paid. Used in development when
// no payment provider is configured.
func (s *CheckoutService) submitSimulated(ctx context.Context, order *models.Order) (*SubmitResult, error) {
	payment := &models.Payment{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		Status:      models.PaymentPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}
	if err := s.payments.MarkSucceeded(ctx, payment.ID, "", "simulated", "", ""); err != nil {
		return nil, fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	if err := s.orders.MarkPaid(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = models.StatusPaid
	payment.Status = models.PaymentSucceeded

	return &SubmitResult{
		Order:       order,
		Payment:     payment,
		RedirectURL: s.returnURL("/checkout/success", order.ID),
		Simulated:   true,
	}, nil
}

func (s *CheckoutService) returnURL(path string, orderID uuid.UUID) string {
	return fmt.Sprintf("%s%s?order_id=%s", s.baseURL, path, url.QueryEscape(orderID.String()))
}
