package handlers

import (
	"net/http"

	"github.com/mateabags/storefront/internal/catalog"
)

type shopView struct {
	Name          string `json:"name"`
	Currency      string `json:"currency"`
	ShippingCents int    `json:"shipping_cents"`
}

type productView struct {
	ID             string `json:"id"`
	SKU            string `json:"sku,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Image          string `json:"image,omitempty"`
	Stock          int    `json:"stock,omitempty"`
}

// ListProducts serves the sale page data: the shop header plus every active
// product.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	active := h.catalog.ActiveProducts()
	products := make([]productView, 0, len(active))
	for _, p := range active {
		products = append(products, productViewFrom(p))
	}

	h.respondData(w, r.Context(), http.StatusOK, map[string]any{
		"shop": shopView{
			Name:          h.catalog.Shop.Name,
			Currency:      h.catalog.Shop.Currency,
			ShippingCents: h.catalog.ShippingCents(),
		},
		"products": products,
	})
}

func productViewFrom(p catalog.Product) productView {
	return productView{
		ID:             p.ID,
		SKU:            p.SKU,
		Title:          p.Title,
		Description:    p.Description,
		UnitPriceCents: p.UnitPriceCents,
		Image:          p.Image,
		Stock:          p.Stock,
	}
}
