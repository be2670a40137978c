package handlers

import (
	"context"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/orders"
)

// OrderLoader looks up orders.
type OrderLoader interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

// Order runs deferred bookkeeping for placed orders.
type Order struct {
	Orders OrderLoader
	Log    *zap.Logger
}

// Handle loads the order, failing with orders.ErrNotFound if it is missing.
func (h *Order) Handle(ctx context.Context, p jobs.OrderProcess) error {
	order, err := h.Orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	h.Log.Info("Order processed",
		zap.String("order.id", order.ID),
		zap.String("order.status", order.Status),
		zap.String("order.payment_status", order.PaymentStatus))
	return nil
}
