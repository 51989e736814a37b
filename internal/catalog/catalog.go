package catalog

// Package catalog provides products.yaml parsing and lookup for the sale page.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Shop     ShopConfig `yaml:"shop"`
	Products []Product  `yaml:"products"`
}

type ShopConfig struct {
	Name          string `yaml:"name"`
	Currency      string `yaml:"currency"`
	FlatRateCents int    `yaml:"shipping_flat_rate_cents"`
}

type Product struct {
	ID             string `yaml:"id"`
	SKU            string `yaml:"sku"`
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	UnitPriceCents int    `yaml:"unit_price_cents"`
	Image          string `yaml:"image"`
	Active         bool   `yaml:"active"`
	Stock          int    `yaml:"stock"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &c, nil
}

func (p *Parser) ParseFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return p.Parse(content)
}

// FindProduct returns the product with the given ID, or nil.
func (c *Catalog) FindProduct(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i]
		}
	}
	return nil
}

// ActiveProducts returns the products currently offered for sale.
func (c *Catalog) ActiveProducts() []Product {
	active := make([]Product, 0, len(c.Products))
	for _, product := range c.Products {
		if product.Active {
			active = append(active, product)
		}
	}
	return active
}

// ShippingCents is the flat shipping rate. Zero means shipping is included
// in the product price.
func (c *Catalog) ShippingCents() int {
	return c.Shop.FlatRateCents
}
