package port

import (
	"context"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

type MenuRepository interface {
	// GetMenuSnapshot returns entries for the ids that exist on the menu; unknown ids are omitted
	GetMenuSnapshot(ctx context.Context, itemIDs []string) (domain.MenuSnapshot, error)

	GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error)
}

type OrderRepository interface {
	// CreateOrder persists an order and its lines in one transaction
	CreateOrder(ctx context.Context, order domain.Order) error
}

type ContactRepository interface {
	ListMessages(ctx context.Context) ([]domain.ContactMessage, error)
	ListMessagesByUser(ctx context.Context, userID string) ([]domain.ContactMessage, error)

	// GetMessage returns nil when the message does not exist
	GetMessage(ctx context.Context, id string) (*domain.ContactMessage, error)

	CreateMessage(ctx context.Context, msg domain.ContactMessage) error

	// AppendEntry adds a discussion entry and sets the message status in one transaction
	AppendEntry(ctx context.Context, messageID string, entry domain.DiscussionEntry, status domain.MessageStatus) error

	// MarkEntriesRead flips the given entries from new to read
	MarkEntriesRead(ctx context.Context, messageID string, entryIDs ...string) error

	UpdateStatus(ctx context.Context, messageID string, status domain.MessageStatus) error
}
