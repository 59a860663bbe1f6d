package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNothingAvailable = errors.New("no available items in cart")
	ErrItemUnavailable  = errors.New("item unavailable")
	ErrInvalidQuantity  = errors.New("invalid quantity")
)

// CartView is the reconciled, presentable state of a cart.
type CartView struct {
	Items          []domain.EnrichedCartItem
	Partition      domain.CartPartition
	Totals         domain.CartTotals
	HasUnavailable bool
}

// Reconcile runs the full derivation over a cart and a menu snapshot.
func Reconcile(items []domain.CartLineItem, menu domain.MenuLookup) CartView {
	enriched := Enrich(items, menu)
	return CartView{
		Items:          enriched,
		Partition:      Partition(enriched),
		Totals:         Totals(enriched),
		HasUnavailable: HasUnavailableItems(enriched),
	}
}

type CartService struct {
	carts      port.CartRepository
	menu       port.MenuRepository
	cache      port.CacheRepository
	logger     *zap.Logger
	orderQueue chan domain.Order
}

func NewCartService(carts port.CartRepository, menu port.MenuRepository, cache port.CacheRepository, logger *zap.Logger, queueSize int) *CartService {
	return &CartService{
		carts:      carts,
		menu:       menu,
		cache:      cache,
		logger:     logger,
		orderQueue: make(chan domain.Order, queueSize),
	}
}

func (s *CartService) View(ctx context.Context, userID string) (CartView, error) {
	items, snapshot, err := s.load(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return Reconcile(items, snapshot), nil
}

// load reads the cart and the menu entries for the ids in it.
func (s *CartService) load(ctx context.Context, userID string) ([]domain.CartLineItem, domain.MenuSnapshot, error) {
	items, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart: %w", err)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	snapshot, err := s.menu.GetMenuSnapshot(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load menu snapshot: %w", err)
	}
	return items, snapshot, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	item, err := s.menu.GetMenuItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load menu item: %w", err)
	}
	if item == nil || !item.Entry().Purchasable() {
		return ErrItemUnavailable
	}

	if err := s.carts.AddItem(ctx, userID, itemID, quantity, item.Price); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetQuantity overwrites a line's quantity. Zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if err := s.carts.SetQuantity(ctx, userID, itemID, quantity); err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := s.carts.RemoveItems(ctx, userID, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// RemoveUnavailable drops every line that can no longer be purchased and
// returns the reconciled cart afterwards.
func (s *CartService) RemoveUnavailable(ctx context.Context, userID string) (CartView, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	if !view.HasUnavailable {
		return view, nil
	}

	ids := make([]string, len(view.Partition.Unavailable))
	for i, item := range view.Partition.Unavailable {
		ids[i] = item.ID
	}
	if err := s.carts.RemoveItems(ctx, userID, ids...); err != nil {
		return CartView{}, fmt.Errorf("remove unavailable items: %w", err)
	}

	return s.View(ctx, userID)
}

// Checkout turns the available part of the cart into a pending order and
// queues it for persistence. Unavailable lines stay in the cart. The request
// id is released again when no order was queued, so a retry can succeed.
func (s *CartService) Checkout(ctx context.Context, userID, requestID string) (domain.Order, error) {
	idempotencyKey := fmt.Sprintf("checkout:%s:%s", userID, requestID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.Order{}, ErrDuplicateRequest
	}

	order, err := s.placeOrder(ctx, userID)
	if err != nil {
		releaseIdempotency(ctx, s.cache, s.logger, idempotencyKey)
		return domain.Order{}, err
	}

	s.logger.Info("checkout queued",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int("items", order.ItemCount()),
		zap.String("total", order.Total.StringFixed(2)))

	return order, nil
}

// placeOrder claims the available lines atomically, so two checkouts of the
// same cart never order the same line twice.
func (s *CartService) placeOrder(ctx context.Context, userID string) (domain.Order, error) {
	items, snapshot, err := s.load(ctx, userID)
	if err != nil {
		return domain.Order{}, err
	}
	view := Reconcile(items, snapshot)
	if len(view.Items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	if len(view.Partition.Available) == 0 {
		return domain.Order{}, ErrNothingAvailable
	}

	ids := make([]string, len(view.Partition.Available))
	for i, item := range view.Partition.Available {
		ids[i] = item.ID
	}
	taken, err := s.carts.TakeItems(ctx, userID, ids...)
	if err != nil {
		return domain.Order{}, fmt.Errorf("take ordered items: %w", err)
	}

	// Quantities come from the claimed lines, not the earlier read.
	claimed := Reconcile(taken, snapshot)
	if len(claimed.Partition.Available) == 0 {
		return domain.Order{}, ErrNothingAvailable
	}

	now := time.Now()
	order := domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Lines:     make([]domain.OrderLine, 0, len(claimed.Partition.Available)),
		Total:     claimed.Totals.TotalPriceAvailable,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range claimed.Partition.Available {
		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:    item.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.CurrentPrice,
			LineTotal: item.LineTotal,
		})
	}

	select {
	case s.orderQueue <- order:
		return order, nil
	case <-ctx.Done():
		if restoreErr := s.carts.RestoreItems(context.WithoutCancel(ctx), userID, taken); restoreErr != nil {
			s.logger.Error("restore cart after cancelled checkout",
				zap.String("order_id", order.ID), zap.Error(restoreErr))
		}
		return domain.Order{}, ctx.Err()
	}
}

// releaseIdempotency forgets a request id whose work did not complete.
func releaseIdempotency(ctx context.Context, cache port.CacheRepository, logger *zap.Logger, key string) {
	if err := cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *CartService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *CartService) Close() {
	close(s.orderQueue)
}

func orderLineItems(order domain.Order) []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(order.Lines))
	for i, line := range order.Lines {
		out[i] = domain.CartLineItem{ID: line.ItemID, Quantity: line.Quantity, LastKnownPrice: line.UnitPrice}
	}
	return out
}
