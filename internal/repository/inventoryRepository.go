package repository

import (
	"context"
	"errors"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InventoryRepo interface {
	Get(ctx context.Context, branchID, itemID uuid.UUID) (*domain.Inventory, error)
	SetStock(ctx context.Context, branchID, itemID uuid.UUID, quantity, safetyStock int) (*domain.Inventory, error)
	ListLowStock(ctx context.Context, branchID uuid.UUID) ([]domain.Inventory, error)
}

type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(p *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: p}
}

const inventoryColumns = `inventory_id, branch_id, item_id, quantity, safety_stock, updated_at`

func scanInventory(row pgx.Row) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(&inv.InventoryID, &inv.BranchID, &inv.ItemID,
		&inv.Quantity, &inv.SafetyStock, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (p *InventoryRepository) Get(ctx context.Context, branchID, itemID uuid.UUID) (*domain.Inventory, error) {
	return scanInventory(p.pool.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM alo.inventory WHERE branch_id = $1 AND item_id = $2`,
		branchID, itemID))
}

// SetStock is the branch-management restock path. Order flow never calls it;
// deduction happens only inside the READY transition.
func (p *InventoryRepository) SetStock(ctx context.Context, branchID, itemID uuid.UUID, quantity, safetyStock int) (*domain.Inventory, error) {
	return scanInventory(p.pool.QueryRow(ctx,
		`INSERT INTO alo.inventory (inventory_id, branch_id, item_id, quantity, safety_stock)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (branch_id, item_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, safety_stock = EXCLUDED.safety_stock, updated_at = now()
		 RETURNING `+inventoryColumns,
		uuid.New(), branchID, itemID, quantity, safetyStock))
}

func (p *InventoryRepository) ListLowStock(ctx context.Context, branchID uuid.UUID) ([]domain.Inventory, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+inventoryColumns+` FROM alo.inventory
		 WHERE branch_id = $1 AND quantity <= safety_stock ORDER BY quantity`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
