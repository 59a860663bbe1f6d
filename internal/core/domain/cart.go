package domain

import "github.com/shopspring/decimal"

// CartLineItem is one menu item id plus quantity as stored in a cart.
type CartLineItem struct {
	ID             string
	Quantity       int
	LastKnownPrice decimal.Decimal // price captured when the item was added
}

// MenuEntry is what the menu currently says about an item.
type MenuEntry struct {
	ID          string
	Price       decimal.Decimal
	IsAvailable bool
	Exists      bool
}

// Purchasable reports whether the entry can be ordered right now.
// IsAvailable is meaningless for entries that no longer exist.
func (e MenuEntry) Purchasable() bool {
	return e.Exists && e.IsAvailable
}

// MenuLookup resolves menu entries by item id.
type MenuLookup interface {
	Lookup(id string) (MenuEntry, bool)
}

// MenuSnapshot is a point-in-time copy of the menu keyed by item id.
type MenuSnapshot map[string]MenuEntry

func (s MenuSnapshot) Lookup(id string) (MenuEntry, bool) {
	entry, ok := s[id]
	return entry, ok
}

type EnrichedCartItem struct {
	ID           string
	Quantity     int
	CurrentPrice decimal.Decimal
	IsAvailable  bool
	StillExists  bool
	LineTotal    decimal.Decimal // zero unless the item is purchasable
}

func (i EnrichedCartItem) Purchasable() bool {
	return i.IsAvailable && i.StillExists
}

type CartPartition struct {
	Available   []EnrichedCartItem
	Unavailable []EnrichedCartItem
}

type CartTotals struct {
	TotalItemsAll       int
	TotalPriceAll       decimal.Decimal
	TotalItemsAvailable int
	TotalPriceAvailable decimal.Decimal
}
