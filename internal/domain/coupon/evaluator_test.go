package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func validCoupon(typ DiscountType, value string) *Coupon {
	return &Coupon{
		ID:        "c1",
		Code:      "TEST",
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		ExpiresAt: testNow.Add(24 * time.Hour),
	}
}

func cartItem(productID, category, price string, qty int) Item {
	return Item{
		ProductID: productID,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestEvaluate_Expired(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.ExpiresAt = testNow.Add(-time.Minute)

	_, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrExpired)
}

func TestEvaluate_ExpiryWinsOverOtherFailures(t *testing.T) {
	// An expired coupon that has also exhausted its uses reports expiry:
	// checks run in a fixed order and the first failure wins.
	c := validCoupon(DiscountPercentage, "10")
	c.ExpiresAt = testNow.Add(-time.Minute)
	c.UsageLimit = 1
	c.TimesUsed = 1

	_, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrExpired)
}

func TestEvaluate_UsageLimitReached(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.UsageLimit = 5
	c.TimesUsed = 5

	_, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestEvaluate_ZeroUsageLimitIsUnlimited(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.TimesUsed = 10000

	_, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.NoError(t, err)
}

func TestEvaluate_MinimumNotMet(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.MinPurchase = decimal.RequireFromString("100.00")

	_, err := Evaluate(c, []Item{cartItem("p1", "", "99.99", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrMinimumNotMet)
}

func TestEvaluate_MinimumMetExactly(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.MinPurchase = decimal.RequireFromString("100.00")

	_, err := Evaluate(c, []Item{cartItem("p1", "", "50.00", 2)}, false, testNow)
	require.NoError(t, err)
}

func TestEvaluate_FirstTimeOnly(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.FirstTimeOnly = true

	_, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, true, testNow)
	require.ErrorIs(t, err, ErrFirstTimeOnly)

	_, err = Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.NoError(t, err)
}

func TestEvaluate_NotApplicable(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.ApplicableCategories = []string{"beauty"}

	_, err := Evaluate(c, []Item{cartItem("p1", "home", "10.00", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrNotApplicable)
}

func TestEvaluate_DirectItemsNeverMatchRestrictions(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.ApplicableProducts = []string{"p1"}

	// A direct line has no product identity, so a restricted coupon cannot
	// attach to it even if the cart is otherwise non-empty.
	_, err := Evaluate(c, []Item{cartItem("", "", "10.00", 1)}, false, testNow)
	require.ErrorIs(t, err, ErrNotApplicable)
}

func TestEvaluate_FixedAmount(t *testing.T) {
	c := validCoupon(DiscountFixedAmount, "15.00")

	eval, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.NoError(t, err)
	// The fixed amount is not capped at the subtotal; the order total is
	// floored at zero downstream.
	assert.True(t, decimal.RequireFromString("15.00").Equal(eval.Discount))
	assert.False(t, eval.FreeShipping)
}

func TestEvaluate_PercentageWholeCart(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")

	eval, err := Evaluate(c, []Item{
		cartItem("p1", "", "30.00", 2),
		cartItem("p2", "", "40.00", 1),
	}, false, testNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(eval.Discount))
}

func TestEvaluate_PercentageOnApplicableSubsetOnly(t *testing.T) {
	c := validCoupon(DiscountPercentage, "20")
	c.ApplicableCategories = []string{"beauty"}

	eval, err := Evaluate(c, []Item{
		cartItem("p1", "beauty", "100.00", 1),
		cartItem("p2", "home", "900.00", 1),
	}, false, testNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(eval.Discount))
}

func TestEvaluate_ProductRestrictionMatches(t *testing.T) {
	c := validCoupon(DiscountPercentage, "50")
	c.ApplicableProducts = []string{"p2"}

	eval, err := Evaluate(c, []Item{
		cartItem("p1", "home", "80.00", 1),
		cartItem("p2", "home", "20.00", 2),
	}, false, testNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(eval.Discount))
}

func TestEvaluate_FreeShipping(t *testing.T) {
	c := validCoupon(DiscountFreeShipping, "0")

	eval, err := Evaluate(c, []Item{cartItem("p1", "", "10.00", 1)}, false, testNow)
	require.NoError(t, err)
	assert.True(t, eval.Discount.IsZero())
	assert.True(t, eval.FreeShipping)
}

func TestEvaluate_RoundsToCents(t *testing.T) {
	c := validCoupon(DiscountPercentage, "15")

	eval, err := Evaluate(c, []Item{cartItem("p1", "", "33.33", 1)}, false, testNow)
	require.NoError(t, err)
	// 33.33 * 15% = 4.9995, rounded to 5.00.
	assert.True(t, decimal.RequireFromString("5.00").Equal(eval.Discount))
}

func TestValidatePreview(t *testing.T) {
	c := validCoupon(DiscountPercentage, "10")
	c.MinPurchase = decimal.RequireFromString("1000.00")
	c.FirstTimeOnly = true

	// Cart-dependent checks are skipped in preview.
	require.NoError(t, ValidatePreview(c, testNow))

	c.ExpiresAt = testNow.Add(-time.Minute)
	require.ErrorIs(t, ValidatePreview(c, testNow), ErrExpired)

	c.ExpiresAt = testNow.Add(time.Minute)
	c.UsageLimit = 1
	c.TimesUsed = 1
	require.ErrorIs(t, ValidatePreview(c, testNow), ErrUsageLimitReached)
}

func TestNormalizeExpiry(t *testing.T) {
	c := &Coupon{ExpiresAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	c.NormalizeExpiry()
	assert.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC), c.ExpiresAt)

	// A timestamped expiry is left alone.
	ts := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	c = &Coupon{ExpiresAt: ts}
	c.NormalizeExpiry()
	assert.Equal(t, ts, c.ExpiresAt)
}

func TestIsInvalid(t *testing.T) {
	assert.True(t, IsInvalid(ErrExpired))
	assert.True(t, IsInvalid(ErrNotApplicable))
	assert.False(t, IsInvalid(ErrNotFound))
	assert.False(t, IsInvalid(nil))
}
