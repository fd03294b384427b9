package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item is a cart line as seen by the evaluator. ProductID is empty for
// direct line items, which never match product or category restrictions.
type Item struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Evaluation is the outcome of applying a valid coupon to a cart.
type Evaluation struct {
	Discount     decimal.Decimal
	FreeShipping bool
}

// Evaluate validates c against the cart and computes the discount. Checks run
// in a fixed order and the first failure wins: expiry, usage limit, minimum
// purchase, first-time-only, applicability. The discount is computed over the
// applicable subset of the cart only.
func Evaluate(c *Coupon, items []Item, buyerHasPriorOrders bool, now time.Time) (Evaluation, error) {
	if now.After(c.ExpiresAt) {
		return Evaluation{}, ErrExpired
	}
	if c.UsageLimit > 0 && c.TimesUsed >= c.UsageLimit {
		return Evaluation{}, ErrUsageLimitReached
	}
	if c.MinPurchase.IsPositive() && Subtotal(items).LessThan(c.MinPurchase) {
		return Evaluation{}, ErrMinimumNotMet
	}
	if c.FirstTimeOnly && buyerHasPriorOrders {
		return Evaluation{}, ErrFirstTimeOnly
	}
	if !applicable(c, items) {
		return Evaluation{}, ErrNotApplicable
	}

	switch c.Type {
	case DiscountFixedAmount:
		return Evaluation{Discount: c.Value.Round(2)}, nil
	case DiscountPercentage:
		base := applicableSubtotal(c, items)
		return Evaluation{Discount: base.Mul(c.Value).Div(hundred).Round(2)}, nil
	case DiscountFreeShipping:
		return Evaluation{Discount: decimal.Zero, FreeShipping: true}, nil
	default:
		return Evaluation{}, errors.Errorf("unsupported discount type: %q", c.Type)
	}
}

// ValidatePreview runs the cart-independent validity checks: existence is the
// caller's concern, then expiry and usage limit. Minimum purchase and
// applicability need a cart and are skipped.
func ValidatePreview(c *Coupon, now time.Time) error {
	if now.After(c.ExpiresAt) {
		return ErrExpired
	}
	if c.UsageLimit > 0 && c.TimesUsed >= c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// restricted reports whether c limits applicability by product or category.
func restricted(c *Coupon) bool {
	return len(c.ApplicableProducts) > 0 || len(c.ApplicableCategories) > 0
}

// applicable reports whether the coupon may be used against the cart: always
// when unrestricted, otherwise when at least one catalog-backed item matches
// a restriction set.
func applicable(c *Coupon, items []Item) bool {
	if !restricted(c) {
		return true
	}
	for _, it := range items {
		if matches(c, it) {
			return true
		}
	}
	return false
}

// applicableSubtotal returns the subtotal of the items the coupon applies to:
// the whole cart when unrestricted, else only the matching lines.
func applicableSubtotal(c *Coupon, items []Item) decimal.Decimal {
	if !restricted(c) {
		return Subtotal(items)
	}
	sum := decimal.Zero
	for _, it := range items {
		if matches(c, it) {
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return sum
}

func matches(c *Coupon, it Item) bool {
	if it.ProductID == "" {
		return false
	}
	for _, id := range c.ApplicableProducts {
		if id == it.ProductID {
			return true
		}
	}
	if it.Category == "" {
		return false
	}
	for _, cat := range c.ApplicableCategories {
		if cat == it.Category {
			return true
		}
	}
	return false
}
