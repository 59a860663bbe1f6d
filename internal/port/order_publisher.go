package port

import (
	"context"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

type OrderPublisher interface {
	// PublishOrder notifies the kitchen about a persisted order
	PublishOrder(ctx context.Context, order domain.Order) error
}
