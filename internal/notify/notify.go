// Package notify delivers order confirmation notifications. Email delivery
// itself is an external collaborator; the in-tree sender records the
// confirmation in the log so operations can trace it.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/soukly/storefront/internal/domain/order"
)

var _ order.ConfirmationSender = (*LogSender)(nil)

// LogSender is a best-effort confirmation sender that only logs.
type LogSender struct{}

// NewLogSender returns a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the order confirmation.
func (s *LogSender) Send(ctx context.Context, o *order.Order) error {
	zctx.From(ctx).Info("Order confirmation",
		zap.String("order_id", o.ID),
		zap.String("client", o.ClientName),
		zap.String("phone", o.Phone),
		zap.String("total", o.Total().String()),
	)
	return nil
}
