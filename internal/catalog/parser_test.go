package catalog

import (
	"testing"
)

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid catalog",
			yaml: `
shop:
  name: "Mateabags"
  currency: "EUR"
  shipping_flat_rate_cents: 500
products:
  - id: "mate-classic"
    sku: "MB-CLASSIC"
    title: "Mateabag Classic"
    description: "The original handmade mate carrier bag."
    unit_price_cents: 4500
    active: true
    stock: 25
  - id: "mate-limited"
    title: "Mateabag Limited Edition"
    unit_price_cents: 9900
    active: false
`,
			wantErr: false,
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: yaml: content:",
			wantErr: true,
		},
	}

	parser := NewParser()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			catalog, err := parser.Parse([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if catalog.Shop.Name != "Mateabags" {
				t.Errorf("expected shop name 'Mateabags', got %q", catalog.Shop.Name)
			}
			if catalog.Shop.FlatRateCents != 500 {
				t.Errorf("expected flat rate 500, got %d", catalog.Shop.FlatRateCents)
			}
			if len(catalog.Products) != 2 {
				t.Fatalf("expected 2 products, got %d", len(catalog.Products))
			}
			if catalog.Products[0].UnitPriceCents != 4500 {
				t.Errorf("expected unit price 4500, got %d", catalog.Products[0].UnitPriceCents)
			}
		})
	}
}

func TestCatalog_FindProduct(t *testing.T) {
	t.Parallel()

	c := &Catalog{Products: []Product{
		{ID: "mate-classic", Title: "Classic"},
		{ID: "mate-mini", Title: "Mini"},
	}}

	if got := c.FindProduct("mate-mini"); got == nil || got.Title != "Mini" {
		t.Fatalf("unexpected product: %+v", got)
	}
	if got := c.FindProduct("missing"); got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}

func TestCatalog_ActiveProducts(t *testing.T) {
	t.Parallel()

	c := &Catalog{Products: []Product{
		{ID: "a", Active: true},
		{ID: "b", Active: false},
		{ID: "c", Active: true},
	}}

	active := c.ActiveProducts()
	if len(active) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(active))
	}
	for _, product := range active {
		if !product.Active {
			t.Fatalf("inactive product in active listing: %+v", product)
		}
	}
}
