package handler

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

// memoryStore backs every repository port so handlers can be exercised
// end to end without Redis or MySQL.
type memoryStore struct {
	mu       sync.Mutex
	carts    map[string][]domain.CartLineItem
	menu     map[string]domain.MenuItem
	keys     map[string]bool
	orders   []domain.Order
	messages map[string]*domain.ContactMessage
	order    []string
}

func newMemoryStore(menu ...domain.MenuItem) *memoryStore {
	s := &memoryStore{
		carts:    make(map[string][]domain.CartLineItem),
		menu:     make(map[string]domain.MenuItem),
		keys:     make(map[string]bool),
		messages: make(map[string]*domain.ContactMessage),
	}
	for _, item := range menu {
		s.menu[item.ID] = item
	}
	return s
}

func (s *memoryStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryStore) ReleaseIdempotency(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryStore) GetCart(ctx context.Context, userID string) ([]domain.CartLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLineItem(nil), s.carts[userID]...), nil
}

func (s *memoryStore) AddItem(ctx context.Context, userID, itemID string, quantity int, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.carts[userID] {
		if item.ID == itemID {
			s.carts[userID][i].Quantity += quantity
			s.carts[userID][i].LastKnownPrice = price
			return nil
		}
	}
	s.carts[userID] = append(s.carts[userID], domain.CartLineItem{ID: itemID, Quantity: quantity, LastKnownPrice: price})
	return nil
}

func (s *memoryStore) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.carts[userID] {
		if item.ID != itemID {
			continue
		}
		if quantity <= 0 {
			s.carts[userID] = append(s.carts[userID][:i], s.carts[userID][i+1:]...)
		} else {
			s.carts[userID][i].Quantity = quantity
		}
		return nil
	}
	return port.ErrNotFound
}

func (s *memoryStore) RemoveItems(ctx context.Context, userID string, itemIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := []domain.CartLineItem{}
	for _, item := range s.carts[userID] {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	s.carts[userID] = kept
	return nil
}

func (s *memoryStore) TakeItems(ctx context.Context, userID string, itemIDs ...string) ([]domain.CartLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	taken := []domain.CartLineItem{}
	kept := []domain.CartLineItem{}
	for _, item := range s.carts[userID] {
		if want[item.ID] {
			taken = append(taken, item)
		} else {
			kept = append(kept, item)
		}
	}
	s.carts[userID] = kept
	return taken, nil
}

func (s *memoryStore) RestoreItems(ctx context.Context, userID string, items []domain.CartLineItem) error {
	for _, item := range items {
		s.AddItem(ctx, userID, item.ID, item.Quantity, item.LastKnownPrice)
	}
	return nil
}

func (s *memoryStore) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

func (s *memoryStore) GetMenuSnapshot(ctx context.Context, itemIDs []string) (domain.MenuSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := domain.MenuSnapshot{}
	for _, id := range itemIDs {
		if item, ok := s.menu[id]; ok {
			snapshot[id] = item.Entry()
		}
	}
	return snapshot, nil
}

func (s *memoryStore) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.menu[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *memoryStore) CreateOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	return nil
}

func copyMessage(msg *domain.ContactMessage) domain.ContactMessage {
	out := *msg
	out.Discussion = append([]domain.DiscussionEntry{}, msg.Discussion...)
	return out
}

func (s *memoryStore) ListMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	return s.ListMessagesByUser(ctx, "")
}

// An empty userID lists every message.
func (s *memoryStore) ListMessagesByUser(ctx context.Context, userID string) ([]domain.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ContactMessage{}
	for _, id := range s.order {
		if userID == "" || s.messages[id].UserID == userID {
			out = append(out, copyMessage(s.messages[id]))
		}
	}
	return out, nil
}

func (s *memoryStore) GetMessage(ctx context.Context, id string) (*domain.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	out := copyMessage(msg)
	return &out, nil
}

func (s *memoryStore) CreateMessage(ctx context.Context, msg domain.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyMessage(&msg)
	s.messages[msg.ID] = &stored
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *memoryStore) AppendEntry(ctx context.Context, messageID string, entry domain.DiscussionEntry, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return port.ErrNotFound
	}
	if msg.Status == domain.MessageStatusClosed {
		return port.ErrMessageClosed
	}
	msg.Discussion = append(msg.Discussion, entry)
	msg.Status = status
	return nil
}

func (s *memoryStore) MarkEntriesRead(ctx context.Context, messageID string, entryIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return port.ErrNotFound
	}
	for i := range msg.Discussion {
		for _, id := range entryIDs {
			if msg.Discussion[i].ID == id {
				msg.Discussion[i].Status = domain.EntryStatusRead
			}
		}
	}
	return nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, messageID string, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return port.ErrNotFound
	}
	msg.Status = status
	return nil
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error {
	return p.err
}
