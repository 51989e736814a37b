package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListProducts_ReturnsShopAndActiveProducts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	env.handlers.ListProducts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Shop     shopView      `json:"shop"`
		Products []productView `json:"products"`
	}
	decodeData(t, rec, &resp)

	if resp.Shop.Name != "Mateabags" || resp.Shop.Currency != "EUR" || resp.Shop.ShippingCents != 500 {
		t.Fatalf("unexpected shop view: %+v", resp.Shop)
	}

	// The inactive limited edition is not offered.
	if len(resp.Products) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(resp.Products))
	}
	for _, product := range resp.Products {
		if product.ID == "mate-limited" {
			t.Fatal("inactive product leaked into the listing")
		}
		if product.UnitPriceCents <= 0 {
			t.Fatalf("product missing price: %+v", product)
		}
	}
}
