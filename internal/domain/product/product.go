package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Quantity is the
// units currently in stock.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Category string
	Images   []string
}

// FirstImage returns the product's primary catalog image, or an empty string
// when the product has none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Repository defines read operations for the product catalog. Stock
// decrements happen inside the checkout transaction and are owned by the
// order repository.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
