package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mateabags/storefront/internal/email"
	"github.com/mateabags/storefront/internal/models"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, details *models.OrderDetails) error
	SendOrderShipped(ctx context.Context, details *models.OrderDetails) error
	SendOrderDelivered(ctx context.Context, details *models.OrderDetails) error
}

// StorefrontEmailSender renders order emails against a single shop identity.
type StorefrontEmailSender struct {
	provider email.Provider
	shopName string
	shopURL  string
}

func NewStorefrontEmailSender(provider email.Provider, shopName, shopURL string) *StorefrontEmailSender {
	return &StorefrontEmailSender{
		provider: provider,
		shopName: shopName,
		shopURL:  shopURL,
	}
}

func (s *StorefrontEmailSender) SendOrderConfirmation(ctx context.Context, details *models.OrderDetails) error {
	info, err := s.buildOrderInfo(details)
	if err != nil {
		return err
	}
	return email.SendOrderConfirmation(ctx, s.provider, info)
}

func (s *StorefrontEmailSender) SendOrderShipped(ctx context.Context, details *models.OrderDetails) error {
	info, err := s.buildOrderInfo(details)
	if err != nil {
		return err
	}
	return email.SendOrderShipped(ctx, s.provider, info)
}

func (s *StorefrontEmailSender) SendOrderDelivered(ctx context.Context, details *models.OrderDetails) error {
	info, err := s.buildOrderInfo(details)
	if err != nil {
		return err
	}
	return email.SendOrderDelivered(ctx, s.provider, info)
}

func (s *StorefrontEmailSender) buildOrderInfo(details *models.OrderDetails) (*email.OrderInfo, error) {
	if details == nil {
		return nil, fmt.Errorf("order details are required")
	}
	if details.Customer == nil || details.Customer.Email == "" {
		return nil, fmt.Errorf("order %s has no customer email", details.Order.ID)
	}

	order := details.Order
	info := &email.OrderInfo{
		OrderNumber:     shortOrderNumber(order.ID.String()),
		CustomerName:    details.Customer.Name,
		CustomerEmail:   details.Customer.Email,
		ShopName:        s.shopName,
		ShopURL:         s.shopURL,
		OrderDate:       order.CreatedAt.Format("January 2, 2006"),
		Subtotal:        FormatCents(order.SubtotalCents, order.Currency),
		Shipping:        FormatCents(order.ShippingCents, order.Currency),
		Total:           FormatCents(order.TotalCents, order.Currency),
		ShippingAddress: formatAddress(details.Customer, details.Address),
	}
	if order.DiscountCents > 0 {
		info.Discount = FormatCents(order.DiscountCents, order.Currency)
	}

	for _, item := range details.Items {
		info.Items = append(info.Items, email.OrderItem{
			Name:        item.Title,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   FormatCents(item.UnitCents, order.Currency),
			TotalPrice:  FormatCents(item.TotalCents, order.Currency),
			GiftMessage: item.GiftMessage,
		})
	}

	return info, nil
}

// shortOrderNumber is the human-facing order reference: the first UUID block,
// upper-cased.
func shortOrderNumber(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return "#" + strings.ToUpper(id)
}

func formatAddress(customer *models.Customer, address *models.Address) string {
	if address == nil {
		return ""
	}

	name := address.RecipientName
	if name == "" && customer != nil {
		name = customer.Name
	}

	lines := make([]string, 0, 5)
	if name != "" {
		lines = append(lines, name)
	}
	lines = append(lines, address.Line1)
	if address.Line2 != "" {
		lines = append(lines, address.Line2)
	}
	cityLine := address.City
	if address.State != "" {
		cityLine += ", " + address.State
	}
	if address.Postcode != "" {
		cityLine += " " + address.Postcode
	}
	lines = append(lines, cityLine, address.Country)
	return strings.Join(lines, "\n")
}

// FormatCents renders an integer cent amount for humans.
func FormatCents(cents int, currency string) string {
	symbol := currency + " "
	switch strings.ToUpper(currency) {
	case "EUR":
		symbol = "€"
	case "USD":
		symbol = "$"
	}
	negative := ""
	if cents < 0 {
		negative = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%d.%02d", negative, symbol, cents/100, cents%100)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *models.OrderDetails) error {
	return nil
}

func (noopOrderEmailSender) SendOrderShipped(context.Context, *models.OrderDetails) error {
	return nil
}

func (noopOrderEmailSender) SendOrderDelivered(context.Context, *models.OrderDetails) error {
	return nil
}
