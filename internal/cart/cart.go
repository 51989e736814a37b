// Package cart implements the cart aggregate and its pricing rules.
package cart

import "github.com/mateabags/storefront/internal/catalog"

// MaxLineQuantity caps the quantity of any single line.
const MaxLineQuantity = 99

// Line is a cart entry. UnitCents is a snapshot of the catalog price taken
// when the product was added; it is not re-read on later mutations.
type Line struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	SKU       string `json:"sku,omitempty"`
	UnitCents int    `json:"unit_cents"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// State is the whole cart. Every mutator returns a recomputed copy so the
// invariant TotalCents == max(0, Subtotal-Discount+Shipping) holds after
// every operation; callers never adjust totals by hand.
type State struct {
	Lines         []Line `json:"lines"`
	SubtotalCents int    `json:"subtotal_cents"`
	DiscountCents int    `json:"discount_cents"`
	ShippingCents int    `json:"shipping_cents"`
	TotalCents    int    `json:"total_cents"`
	CouponCode    string `json:"coupon_code,omitempty"`
	LineCount     int    `json:"line_count"`
}

// Empty returns the initial cart state.
func Empty() State {
	return State{Lines: []Line{}}
}

// AddLine merges the product into the cart. An existing line for the same
// product gets its quantity incremented; quantities clamp at MaxLineQuantity.
func AddLine(s State, product catalog.Product, quantity int, image string) State {
	if quantity < 1 {
		quantity = 1
	}

	lines := cloneLines(s.Lines)
	merged := false
	for i := range lines {
		if lines[i].ProductID == product.ID {
			lines[i].Quantity = clampQuantity(lines[i].Quantity + quantity)
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, Line{
			ProductID: product.ID,
			Title:     product.Title,
			SKU:       product.SKU,
			UnitCents: product.UnitPriceCents,
			Quantity:  clampQuantity(quantity),
			Image:     image,
		})
	}

	return recompute(s, lines)
}

// RemoveLine drops the product's line. Removing an absent product is a no-op.
func RemoveLine(s State, productID string) State {
	lines := make([]Line, 0, len(s.Lines))
	for _, line := range s.Lines {
		if line.ProductID != productID {
			lines = append(lines, line)
		}
	}
	return recompute(s, lines)
}

// SetQuantity replaces a line's quantity. A quantity of zero or less is
// equivalent to RemoveLine.
func SetQuantity(s State, productID string, quantity int) State {
	if quantity <= 0 {
		return RemoveLine(s, productID)
	}

	lines := cloneLines(s.Lines)
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = clampQuantity(quantity)
			break
		}
	}
	return recompute(s, lines)
}

// ApplyDiscount records a validated coupon discount against the cart.
func ApplyDiscount(s State, discountCents int, couponCode string) State {
	if discountCents < 0 {
		discountCents = 0
	}
	s.DiscountCents = discountCents
	s.CouponCode = couponCode
	s.TotalCents = total(s)
	return s
}

// RemoveDiscount clears any applied coupon.
func RemoveDiscount(s State) State {
	s.DiscountCents = 0
	s.CouponCode = ""
	s.TotalCents = total(s)
	return s
}

// SetShipping records the shipping cost.
func SetShipping(s State, shippingCents int) State {
	if shippingCents < 0 {
		shippingCents = 0
	}
	s.ShippingCents = shippingCents
	s.TotalCents = total(s)
	return s
}

// Clear empties the cart, dropping lines, discount, and shipping.
func Clear(s State) State {
	return Empty()
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

func recompute(s State, lines []Line) State {
	subtotal := 0
	count := 0
	for _, line := range lines {
		subtotal += line.UnitCents * line.Quantity
		count += line.Quantity
	}

	next := State{
		Lines:         lines,
		SubtotalCents: subtotal,
		DiscountCents: s.DiscountCents,
		ShippingCents: s.ShippingCents,
		CouponCode:    s.CouponCode,
		LineCount:     count,
	}
	next.TotalCents = total(next)
	return next
}

func total(s State) int {
	t := s.SubtotalCents - s.DiscountCents + s.ShippingCents
	if t < 0 {
		return 0
	}
	return t
}

func clampQuantity(q int) int {
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

func cloneLines(lines []Line) []Line {
	cloned := make([]Line, len(lines))
	copy(cloned, lines)
	return cloned
}
