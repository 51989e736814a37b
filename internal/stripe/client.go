// Package stripe wraps the hosted Checkout Session flow.
package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// Client handles checkout session creation against the Stripe API.
type Client struct {
	client *stripe.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		client: stripe.NewClient(secretKey),
	}
}

// LineItem is one cart line priced inline. The catalog is the price source,
// never a Stripe Price object, so the session always reflects the cart.
type LineItem struct {
	Name      string
	UnitCents int64
	Quantity  int64
}

// CheckoutSessionParams holds parameters for creating a checkout session.
type CheckoutSessionParams struct {
	OrderID       uuid.UUID
	Currency      string
	LineItems     []LineItem
	DiscountCents int64
	ShippingCents int64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CreateCheckoutSession creates a hosted payment session for an order. The
// order ID rides in both Metadata and ClientReferenceID so every webhook
// event can be correlated back even if one of the two is missing.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if len(params.LineItems) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitCents),
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		LineItems:          lineItems,
		ShippingOptions: []*stripe.CheckoutSessionCreateShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionCreateShippingOptionShippingRateDataParams{
					DisplayName: stripe.String("Flat rate shipping"),
					Type:        stripe.String(string(stripe.ShippingRateTypeFixedAmount)),
					FixedAmount: &stripe.CheckoutSessionCreateShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(params.ShippingCents),
						Currency: stripe.String(params.Currency),
					},
				},
			},
		},
		ClientReferenceID: stripe.String(params.OrderID.String()),
		CustomerEmail:     stripe.String(params.CustomerEmail),
		Metadata: map[string]string{
			"order_id": params.OrderID.String(),
		},
	}

	if params.CustomerEmail == "" {
		sessionParams.CustomerEmail = nil
	}

	if params.DiscountCents > 0 {
		coupon, err := c.client.V1Coupons.Create(ctx, &stripe.CouponCreateParams{
			AmountOff: stripe.Int64(params.DiscountCents),
			Currency:  stripe.String(params.Currency),
			Duration:  stripe.String(string(stripe.CouponDurationOnce)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create discount coupon: %w", err)
		}
		sessionParams.Discounts = []*stripe.CheckoutSessionCreateDiscountParams{
			{Coupon: stripe.String(coupon.ID)},
		}
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}
