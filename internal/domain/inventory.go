package domain

import (
	"time"

	"github.com/google/uuid"
)

// Inventory is one row per (branch, item). Quantity never goes negative;
// the READY transition is the only path that deducts it.
type Inventory struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	BranchID    uuid.UUID `json:"branch_id"`
	ItemID      uuid.UUID `json:"item_id"`
	Quantity    int       `json:"quantity"`
	SafetyStock int       `json:"safety_stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LowStock flags the row for operational attention. It does not block sales.
func (inv Inventory) LowStock() bool {
	return inv.Quantity <= inv.SafetyStock
}
