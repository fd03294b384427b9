package order

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/soukly/storefront/internal/domain/coupon"
)

// RewardIssuer decides whether a just-delivered order earns a follow-up
// coupon, and mints it. Returns nil when the order earns nothing.
type RewardIssuer interface {
	OnDelivered(ctx context.Context, orderID, buyerID string, netTotal decimal.Decimal) (*coupon.Coupon, error)
}

// Lifecycle owns order status transitions. The transition into DELIVERED is
// the single trigger for reward evaluation: the status write commits first,
// then the reward generator runs against the already-persisted state, so the
// delivered order is visible to its own order-count query.
type Lifecycle struct {
	orders  Repository
	rewards RewardIssuer
}

// NewLifecycle creates the lifecycle manager.
func NewLifecycle(orders Repository, rewards RewardIssuer) *Lifecycle {
	return &Lifecycle{orders: orders, rewards: rewards}
}

// UpdateStatus moves the order to next. Repeating the order's current status
// is an idempotent no-op that never re-triggers reward issuance. Reward
// generation failures are logged and do not fail the update: the persisted
// delivered state is the invariant worth keeping.
func (m *Lifecycle) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	o, changed, err := m.orders.Transition(ctx, id, next)
	if err != nil {
		return nil, err
	}

	if changed && next == StatusDelivered {
		lg := zctx.From(ctx)
		c, err := m.rewards.OnDelivered(ctx, o.ID, o.UserID, o.NetTotal())
		switch {
		case err != nil:
			lg.Error("Reward coupon generation failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		case c != nil:
			lg.Info("Reward coupon minted",
				zap.String("order_id", o.ID),
				zap.String("coupon_code", c.Code),
			)
		}
	}

	return o, nil
}
