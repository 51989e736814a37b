package catalog

import (
	"fmt"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(c *Catalog) error {
	if strings.TrimSpace(c.Shop.Name) == "" {
		return fmt.Errorf("shop name is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(c.Shop.Currency))
	if currency != "EUR" && currency != "USD" {
		return fmt.Errorf("unsupported currency: %s", c.Shop.Currency)
	}

	if c.Shop.FlatRateCents < 0 {
		return fmt.Errorf("shipping flat rate must not be negative")
	}

	if len(c.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	ids := make(map[string]bool)
	for i, product := range c.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}
		if ids[product.ID] {
			return fmt.Errorf("duplicate product id: %s", product.ID)
		}
		ids[product.ID] = true
	}

	return nil
}

func (v *Validator) validateProduct(p *Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product title is required")
	}
	if p.UnitPriceCents <= 0 {
		return fmt.Errorf("unit price must be positive")
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative")
	}
	return nil
}
