package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the persisted order aggregate: delivery contact header, pricing
// summary and line items. DiscountAmount and ShippingCost are always
// non-negative; an order has at least one line at creation.
type Order struct {
	ID             string
	UserID         string
	ClientName     string
	City           string
	Address        string
	Phone          string
	Status         Status
	Deleted        bool
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	CouponID       string
	CouponCode     string
	Lines          []Line
	CreatedAt      time.Time
}

// Line is an order line with its pricing snapshotted at order time. A line
// either references a catalog product (ProductID set) or is a direct line
// carrying its own denormalized name and price.
type Line struct {
	ID           string
	ProductID    string
	ProductName  string
	UnitPrice    decimal.Decimal
	Quantity     int
	VariantLabel string
	ImageURL     string
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// TotalQuantity returns the total unit count over all lines.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}

// Total returns subtotal minus discount plus shipping, floored at zero.
func (o *Order) Total() decimal.Decimal {
	total := o.Subtotal().Sub(o.DiscountAmount).Add(o.ShippingCost)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// NetTotal returns the merchandise total after discount, excluding shipping.
// The reward generator compares this against the high-value threshold.
func (o *Order) NetTotal() decimal.Decimal {
	net := o.Subtotal().Sub(o.DiscountAmount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// Repository defines persistence for orders.
//
// Create persists the order header and all lines as one transaction that
// also decrements stock for every catalog-backed line and, when CouponID is
// set, increments the coupon usage counter. Both mutations are conditional
// updates: losing the race on the last unit of stock or the last coupon use
// rolls back the whole checkout with ErrStockConflict or ErrUsageConflict.
//
// Transition atomically moves the order to next under a row lock, applying
// the ValidateTransition rules. changed is false when next equals the
// current status (an idempotent retry). Transitioning into StatusCanceled
// restores the stock decremented at checkout in the same transaction.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, deleted bool) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Transition(ctx context.Context, id string, next Status) (o *Order, changed bool, err error)
	SetDeleted(ctx context.Context, id string, deleted bool) error
	PurgeAll(ctx context.Context) error
}
