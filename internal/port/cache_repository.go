package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency forgets a key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

// CartRepository stores each user's cart lines.
type CartRepository interface {
	// GetCart returns the cart lines in the order they were first added
	GetCart(ctx context.Context, userID string) ([]domain.CartLineItem, error)

	// AddItem adds quantity to a line, creating it if needed, and records the current price
	AddItem(ctx context.Context, userID, itemID string, quantity int, price decimal.Decimal) error

	// SetQuantity overwrites a line's quantity; a quantity <= 0 removes the line
	SetQuantity(ctx context.Context, userID, itemID string, quantity int) error

	// RemoveItems deletes the given lines
	RemoveItems(ctx context.Context, userID string, itemIDs ...string) error

	// TakeItems atomically removes the given lines and returns what they held.
	// Lines already gone are skipped
	TakeItems(ctx context.Context, userID string, itemIDs ...string) ([]domain.CartLineItem, error)

	// RestoreItems puts lines back after a failed checkout
	RestoreItems(ctx context.Context, userID string, items []domain.CartLineItem) error

	ClearCart(ctx context.Context, userID string) error
}
