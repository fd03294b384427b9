package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart         = errors.New("cannot create an order with an empty cart")
	ErrDirectLineDetails = errors.New("direct line items require a product name and price")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrNotFound          = errors.New("order not found")
	ErrStockConflict     = errors.New("stock changed concurrently")
	ErrCouponUseConflict = errors.New("coupon uses exhausted concurrently")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	Ref string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.Ref)
}

// ProductNotFoundError indicates a requested catalog product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a catalog line requested more units than
// are available.
type InsufficientStockError struct {
	ProductID string
	Name      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s", e.Name)
}
