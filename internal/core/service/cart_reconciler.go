package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

// Enrich resolves every cart line against the menu. Lines whose menu entry is
// gone keep their last known price and are marked as no longer existing; no
// line is ever dropped so the user can still remove it.
func Enrich(items []domain.CartLineItem, menu domain.MenuLookup) []domain.EnrichedCartItem {
	enriched := make([]domain.EnrichedCartItem, 0, len(items))
	for _, item := range items {
		out := domain.EnrichedCartItem{
			ID:           item.ID,
			Quantity:     item.Quantity,
			CurrentPrice: item.LastKnownPrice,
			LineTotal:    decimal.Zero,
		}

		if entry, ok := lookup(menu, item.ID); ok && entry.Exists {
			out.StillExists = true
			out.IsAvailable = entry.IsAvailable
			out.CurrentPrice = entry.Price
		}

		if out.Purchasable() {
			out.LineTotal = out.CurrentPrice.Mul(decimal.NewFromInt(int64(out.Quantity)))
		}
		enriched = append(enriched, out)
	}
	return enriched
}

func lookup(menu domain.MenuLookup, id string) (domain.MenuEntry, bool) {
	if menu == nil {
		return domain.MenuEntry{}, false
	}
	return menu.Lookup(id)
}

// Partition splits enriched items into purchasable and unpurchasable lines,
// keeping input order within each half.
func Partition(enriched []domain.EnrichedCartItem) domain.CartPartition {
	p := domain.CartPartition{
		Available:   []domain.EnrichedCartItem{},
		Unavailable: []domain.EnrichedCartItem{},
	}
	for _, item := range enriched {
		if item.Purchasable() {
			p.Available = append(p.Available, item)
		} else {
			p.Unavailable = append(p.Unavailable, item)
		}
	}
	return p
}

// Totals computes the "original" totals over every line and the payable
// totals over available lines. Unavailable lines count toward TotalItemsAll
// but contribute nothing to either price.
func Totals(enriched []domain.EnrichedCartItem) domain.CartTotals {
	t := domain.CartTotals{
		TotalPriceAll:       decimal.Zero,
		TotalPriceAvailable: decimal.Zero,
	}
	for _, item := range enriched {
		t.TotalItemsAll += item.Quantity
		if !item.Purchasable() {
			continue
		}
		t.TotalPriceAll = t.TotalPriceAll.Add(item.LineTotal)
		t.TotalItemsAvailable += item.Quantity
		t.TotalPriceAvailable = t.TotalPriceAvailable.Add(item.LineTotal)
	}
	return t
}

func HasUnavailableItems(enriched []domain.EnrichedCartItem) bool {
	for _, item := range enriched {
		if !item.Purchasable() {
			return true
		}
	}
	return false
}
