package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFixedAmount subtracts a fixed monetary amount from the order.
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	// DiscountPercentage applies a percentage discount to the applicable
	// portion of the cart.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFreeShipping zeroes the order's shipping cost. The discount
	// amount itself is zero.
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is past its expiry timestamp.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its
	// allowed uses.
	ErrUsageLimitReached = errors.New("coupon has reached its usage limit")
	// ErrMinimumNotMet is returned when the cart subtotal is below the
	// coupon's minimum purchase amount.
	ErrMinimumNotMet = errors.New("order total does not meet the coupon minimum purchase amount")
	// ErrFirstTimeOnly is returned when a first-time-customer coupon is used
	// by a buyer with prior orders.
	ErrFirstTimeOnly = errors.New("coupon is for first-time customers only")
	// ErrNotApplicable is returned when none of the cart's items fall in the
	// coupon's product or category restriction sets.
	ErrNotApplicable = errors.New("coupon is not valid for the items in the cart")
)

// IsInvalid reports whether err is one of the coupon validity failures, as
// opposed to a missing coupon or an infrastructure error.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.Is(err, ErrMinimumNotMet) ||
		errors.Is(err, ErrFirstTimeOnly) ||
		errors.Is(err, ErrNotApplicable)
}

// Coupon is a discount voucher. A zero UsageLimit means unlimited uses. A
// non-positive MinPurchase means no minimum. Empty restriction sets mean the
// coupon applies to the whole cart. A non-empty UserID scopes the coupon to
// one buyer (reward coupons).
type Coupon struct {
	ID                   string
	Code                 string
	Name                 string
	Type                 DiscountType
	Value                decimal.Decimal
	ExpiresAt            time.Time
	UsageLimit           int
	TimesUsed            int
	MinPurchase          decimal.Decimal
	FirstTimeOnly        bool
	ApplicableProducts   []string
	ApplicableCategories []string
	UserID               string
}

// NormalizeExpiry widens a date-only expiry (midnight) to the end of that
// day, so a coupon "valid until June 1st" still works on June 1st.
func (c *Coupon) NormalizeExpiry() {
	if c.ExpiresAt.Hour() == 0 && c.ExpiresAt.Minute() == 0 {
		c.ExpiresAt = time.Date(
			c.ExpiresAt.Year(), c.ExpiresAt.Month(), c.ExpiresAt.Day(),
			23, 59, 59, 0, c.ExpiresAt.Location(),
		)
	}
}

// Repository provides coupon lookup and creation. Usage counting is not here:
// the increment is a conditional update owned by the checkout transaction.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
}
