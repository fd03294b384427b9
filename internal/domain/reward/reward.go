// Package reward mints follow-up coupons when an order is delivered: a
// loyalty-cycle reward every Nth delivered order, or a high-value reward for
// large orders. At most one coupon is minted per delivered order.
package reward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soukly/storefront/internal/domain/coupon"
	"github.com/soukly/storefront/internal/domain/settings"
	"github.com/soukly/storefront/internal/domain/user"
)

// Validity window of a minted reward coupon.
const validity = 30 * 24 * time.Hour

// Generator evaluates the reward rules using the settings provider and the
// buyer's order history.
type Generator struct {
	settings *settings.Provider
	users    user.Directory
	coupons  coupon.Repository
	now      func() time.Time
}

// NewGenerator creates a reward Generator.
func NewGenerator(sp *settings.Provider, users user.Directory, coupons coupon.Repository) *Generator {
	return &Generator{
		settings: sp,
		users:    users,
		coupons:  coupons,
		now:      time.Now,
	}
}

// OnDelivered runs the reward decision for a just-delivered order. The
// caller must have persisted the DELIVERED status first: the loyalty check
// counts delivered orders inclusive of this one. Guests and other accounts
// without a credential never earn rewards. Decision order, first match wins:
// loyalty cycle, then high-value threshold, then nothing.
func (g *Generator) OnDelivered(ctx context.Context, orderID, buyerID string, netTotal decimal.Decimal) (*coupon.Coupon, error) {
	buyer, err := g.users.GetByID(ctx, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "get buyer")
	}
	if !buyer.HasCredential() {
		return nil, nil
	}

	delivered, err := g.users.CountDeliveredOrders(ctx, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "count delivered orders")
	}

	cycle := g.settings.Int(ctx, settings.KeyLoyaltyOrderCount, settings.DefaultLoyaltyOrderCount)
	if cycle > 0 && delivered > 0 && delivered%cycle == 0 {
		percent := g.settings.Decimal(ctx, settings.KeyLoyaltyDiscountPercent, settings.DefaultLoyaltyDiscountPercent)
		return g.mint(ctx, "LOYALTY", orderID, buyerID, percent)
	}

	threshold := g.settings.Decimal(ctx, settings.KeyHighValueThreshold, settings.DefaultHighValueThreshold)
	if netTotal.GreaterThan(threshold) {
		percent := g.settings.Decimal(ctx, settings.KeyHighValueDiscountPercent, settings.DefaultHighValueDiscountPercent)
		return g.mint(ctx, "NEXT", orderID, buyerID, percent)
	}

	return nil, nil
}

// mint creates and persists a single-use percentage coupon scoped to the
// buyer, valid for 30 days, code prefixed with the order it rewards.
func (g *Generator) mint(ctx context.Context, kind, orderID, buyerID string, percent decimal.Decimal) (*coupon.Coupon, error) {
	c := &coupon.Coupon{
		ID:         uuid.New().String(),
		Code:       rewardCode(kind, orderID),
		Name:       kind + " reward",
		Type:       coupon.DiscountPercentage,
		Value:      percent,
		ExpiresAt:  g.now().Add(validity),
		UsageLimit: 1,
		UserID:     buyerID,
	}
	if err := g.coupons.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create reward coupon")
	}
	return c, nil
}

// rewardCode builds "<KIND>-<orderID>-<suffix>". The order-specific prefix
// makes the coupon discoverable by prefix scan; the random suffix keeps the
// code unguessable.
func rewardCode(kind, orderID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", kind, orderID, suffix)
}
