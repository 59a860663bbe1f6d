package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	released       []string
	err            error
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	m.released = append(m.released, key)
	return nil
}

// Mock CartRepository
type mockCartRepo struct {
	carts      map[string][]domain.CartLineItem
	restored   []domain.CartLineItem
	restoreErr error
	takeErr    error
	mu         sync.Mutex
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string][]domain.CartLineItem)}
}

func (m *mockCartRepo) GetCart(ctx context.Context, userID string) ([]domain.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartLineItem(nil), m.carts[userID]...), nil
}

func (m *mockCartRepo) AddItem(ctx context.Context, userID, itemID string, quantity int, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(userID, domain.CartLineItem{ID: itemID, Quantity: quantity, LastKnownPrice: price})
	return nil
}

func (m *mockCartRepo) addLocked(userID string, item domain.CartLineItem) {
	for i, existing := range m.carts[userID] {
		if existing.ID == item.ID {
			m.carts[userID][i].Quantity += item.Quantity
			m.carts[userID][i].LastKnownPrice = item.LastKnownPrice
			return
		}
	}
	m.carts[userID] = append(m.carts[userID], item)
}

func (m *mockCartRepo) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.carts[userID] {
		if existing.ID != itemID {
			continue
		}
		if quantity <= 0 {
			m.carts[userID] = append(m.carts[userID][:i], m.carts[userID][i+1:]...)
		} else {
			m.carts[userID][i].Quantity = quantity
		}
		return nil
	}
	return port.ErrNotFound
}

func (m *mockCartRepo) RemoveItems(ctx context.Context, userID string, itemIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := []domain.CartLineItem{}
	for _, item := range m.carts[userID] {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	m.carts[userID] = kept
	return nil
}

func (m *mockCartRepo) TakeItems(ctx context.Context, userID string, itemIDs ...string) ([]domain.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.takeErr != nil {
		return nil, m.takeErr
	}
	want := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	taken := []domain.CartLineItem{}
	kept := []domain.CartLineItem{}
	for _, item := range m.carts[userID] {
		if want[item.ID] {
			taken = append(taken, item)
		} else {
			kept = append(kept, item)
		}
	}
	m.carts[userID] = kept
	return taken, nil
}

func (m *mockCartRepo) RestoreItems(ctx context.Context, userID string, items []domain.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restoreErr != nil {
		return m.restoreErr
	}
	m.restored = append(m.restored, items...)
	for _, item := range items {
		m.addLocked(userID, item)
	}
	return nil
}

func (m *mockCartRepo) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// Mock MenuRepository
type mockMenuRepo struct {
	items map[string]domain.MenuItem
	err   error
}

func (m *mockMenuRepo) GetMenuSnapshot(ctx context.Context, itemIDs []string) (domain.MenuSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	snapshot := domain.MenuSnapshot{}
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok {
			snapshot[id] = item.Entry()
		}
	}
	return snapshot, nil
}

func (m *mockMenuRepo) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	orders []domain.Order
	err    error
	mu     sync.Mutex
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, order)
	return nil
}

// Mock OrderPublisher
type mockPublisher struct {
	published []string
	err       error
	mu        sync.Mutex
}

func (m *mockPublisher) PublishOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, order.ID)
	return nil
}

// Mock ContactRepository
type mockContactRepo struct {
	messages  map[string]*domain.ContactMessage
	order     []string
	appendErr error
	mu        sync.Mutex
}

func newMockContactRepo(messages ...domain.ContactMessage) *mockContactRepo {
	m := &mockContactRepo{messages: make(map[string]*domain.ContactMessage)}
	for _, msg := range messages {
		m.CreateMessage(context.Background(), msg)
	}
	return m
}

func cloneMessage(msg *domain.ContactMessage) domain.ContactMessage {
	out := *msg
	if msg.Discussion != nil {
		out.Discussion = append([]domain.DiscussionEntry(nil), msg.Discussion...)
	}
	return out
}

func (m *mockContactRepo) ListMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ContactMessage{}
	for _, id := range m.order {
		out = append(out, cloneMessage(m.messages[id]))
	}
	return out, nil
}

func (m *mockContactRepo) ListMessagesByUser(ctx context.Context, userID string) ([]domain.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ContactMessage{}
	for _, id := range m.order {
		if m.messages[id].UserID == userID {
			out = append(out, cloneMessage(m.messages[id]))
		}
	}
	return out, nil
}

func (m *mockContactRepo) GetMessage(ctx context.Context, id string) (*domain.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	out := cloneMessage(msg)
	return &out, nil
}

func (m *mockContactRepo) CreateMessage(ctx context.Context, msg domain.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.ID]; ok {
		return errors.New("duplicate id")
	}
	stored := cloneMessage(&msg)
	m.messages[msg.ID] = &stored
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *mockContactRepo) AppendEntry(ctx context.Context, messageID string, entry domain.DiscussionEntry, status domain.MessageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	msg, ok := m.messages[messageID]
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

func (m *mockContactRepo) MarkEntriesRead(ctx context.Context, messageID string, entryIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return port.ErrNotFound
	}
	markEntriesRead(msg, entryIDs)
	return nil
}

func (m *mockContactRepo) UpdateStatus(ctx context.Context, messageID string, status domain.MessageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return port.ErrNotFound
	}
	msg.Status = status
	return nil
}

func (m *mockContactRepo) stored(id string) domain.ContactMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMessage(m.messages[id])
}
