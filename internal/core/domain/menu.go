package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          string
	Name        string
	Category    string
	Price       decimal.Decimal
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entry converts a stored menu item into the shape used for cart reconciliation.
func (m MenuItem) Entry() MenuEntry {
	return MenuEntry{
		ID:          m.ID,
		Price:       m.Price,
		IsAvailable: m.IsAvailable,
		Exists:      true,
	}
}
