package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

const orderSaveTimeout = 5 * time.Second

// CheckoutWorker persists queued orders and hands them to the kitchen.
type CheckoutWorker struct {
	id        int
	orders    port.OrderRepository
	carts     port.CartRepository
	publisher port.OrderPublisher
	logger    *zap.Logger
}

func NewCheckoutWorker(id int, orders port.OrderRepository, carts port.CartRepository, publisher port.OrderPublisher, logger *zap.Logger) *CheckoutWorker {
	return &CheckoutWorker{
		id:        id,
		orders:    orders,
		carts:     carts,
		publisher: publisher,
		logger:    logger.With(zap.Int("worker", id)),
	}
}

// Run drains the queue until it is closed.
func (w *CheckoutWorker) Run(queue <-chan domain.Order) {
	for order := range queue {
		w.handle(order)
	}
}

func (w *CheckoutWorker) handle(order domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), orderSaveTimeout)
	defer cancel()

	if err := w.orders.CreateOrder(ctx, order); err != nil {
		w.logger.Error("failed to save order", zap.String("order_id", order.ID), zap.Error(err))

		// Rollback: put the ordered lines back into the cart
		if rollbackErr := w.carts.RestoreItems(ctx, order.UserID, orderLineItems(order)); rollbackErr != nil {
			w.logger.Error("CRITICAL cart rollback failed",
				zap.String("order_id", order.ID), zap.Error(rollbackErr))
		} else {
			w.logger.Warn("restored cart after failed order", zap.String("order_id", order.ID))
		}
		return
	}
	w.logger.Info("saved order", zap.String("order_id", order.ID))

	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishOrder(ctx, order); err != nil {
		w.logger.Error("failed to notify kitchen", zap.String("order_id", order.ID), zap.Error(err))
	}
}
