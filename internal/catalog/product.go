// Package catalog holds the read-only product catalog and the filter/sort/paginate engine over it.
package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry. The state layer never mutates products.
type Product struct {
	ID            string          `json:"id"            validate:"required,max=64"`
	Name          string          `json:"name"          validate:"required,min=2,max=100"`
	Description   string          `json:"description"   validate:"max=2000"`
	Price         decimal.Decimal `json:"price"         validate:"gte=0"`
	Images        []string        `json:"images"        validate:"dive,url"`
	Category      string          `json:"category"      validate:"required"`
	Tags          []string        `json:"tags"          validate:"dive,required"`
	Rating        float64         `json:"rating"        validate:"gte=0,lte=5"`
	ReviewCount   int             `json:"reviews"       validate:"gte=0"`
	DownloadCount int             `json:"downloadCount" validate:"gte=0"`
	Featured      bool            `json:"featured"`
	Stock         int             `json:"stock"         validate:"gte=0"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Image returns the first image reference, or an empty string.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// HasTag reports whether the product carries tag exactly.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Catalog is an immutable, ordered product list with an id index.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a Catalog. Later duplicates of an id are dropped.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Products returns the catalog in its original order. The slice must not be modified.
func (c *Catalog) Products() []Product {
	return c.products
}

// FindByID returns the product with the given id.
// Returns ErrProductNotFound if no product exists with the given ID.
func (c *Catalog) FindByID(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
