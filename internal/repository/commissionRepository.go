package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommissionRepo interface {
	Create(ctx context.Context, c *domain.Commission) error
	Update(ctx context.Context, c *domain.Commission) error
	Deactivate(ctx context.Context, id int64) error
	GetById(ctx context.Context, id int64) (*domain.Commission, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Commission, error)
	ListEffective(ctx context.Context, branchID uuid.UUID, asOf time.Time) ([]domain.Commission, error)
}

type CommissionRepository struct {
	pool *pgxpool.Pool
}

func NewCommissionRepository(p *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: p}
}

const commissionColumns = `commission_id, branch_id, commission_type, commission_value,
	effective_from, effective_to, note, is_active, created_at, updated_at`

func scanCommission(row pgx.Row) (*domain.Commission, error) {
	var c domain.Commission
	err := row.Scan(&c.CommissionID, &c.BranchID, &c.Type, &c.Value,
		&c.EffectiveFrom, &c.EffectiveTo, &c.Note, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// lockBranchActive takes row locks on the branch's active commission rows and
// returns them. Every write path goes through this, so overlap checking and
// deactivate-then-insert serialize per branch.
func lockBranchActive(ctx context.Context, tx pgx.Tx, branchID uuid.UUID) ([]domain.Commission, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+commissionColumns+` FROM alo.branch_commissions
		 WHERE branch_id = $1 AND is_active FOR UPDATE`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create inserts a new active commission after rejecting overlaps against
// existing active windows, and soft-deactivates every previously active row
// for the branch. Old rows stay queryable for historical accounting.
func (p *CommissionRepository) Create(ctx context.Context, c *domain.Commission) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback(ctx)
		}
	}()

	active, err := lockBranchActive(ctx, tx, c.BranchID)
	if err != nil {
		return err
	}
	for _, existing := range active {
		if existing.OverlapsWindow(c.EffectiveFrom, c.EffectiveTo) {
			return fmt.Errorf("%w: window overlaps active commission %d",
				domain.ErrValidation, existing.CommissionID)
		}
	}

	if _, err = tx.Exec(ctx,
		`UPDATE alo.branch_commissions SET is_active = false, updated_at = now()
		 WHERE branch_id = $1 AND is_active`, c.BranchID); err != nil {
		return err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO alo.branch_commissions
			(branch_id, commission_type, commission_value, effective_from, effective_to, note, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, true)
		 RETURNING commission_id, created_at, updated_at`,
		c.BranchID, c.Type, c.Value, c.EffectiveFrom, c.EffectiveTo, c.Note).
		Scan(&c.CommissionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return err
	}
	c.IsActive = true

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func (p *CommissionRepository) Update(ctx context.Context, c *domain.Commission) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback(ctx)
		}
	}()

	active, err := lockBranchActive(ctx, tx, c.BranchID)
	if err != nil {
		return err
	}
	if c.IsActive {
		for _, existing := range active {
			if existing.CommissionID == c.CommissionID {
				continue
			}
			if existing.OverlapsWindow(c.EffectiveFrom, c.EffectiveTo) {
				return fmt.Errorf("%w: window overlaps active commission %d",
					domain.ErrValidation, existing.CommissionID)
			}
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE alo.branch_commissions
		 SET commission_type = $1, commission_value = $2, effective_from = $3,
		     effective_to = $4, note = $5, is_active = $6, updated_at = now()
		 WHERE commission_id = $7`,
		c.Type, c.Value, c.EffectiveFrom, c.EffectiveTo, c.Note, c.IsActive, c.CommissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func (p *CommissionRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE alo.branch_commissions SET is_active = false, updated_at = now()
		 WHERE commission_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *CommissionRepository) GetById(ctx context.Context, id int64) (*domain.Commission, error) {
	return scanCommission(p.pool.QueryRow(ctx,
		`SELECT `+commissionColumns+` FROM alo.branch_commissions WHERE commission_id = $1`, id))
}

func (p *CommissionRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]domain.Commission, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+commissionColumns+` FROM alo.branch_commissions
		 WHERE branch_id = $1 ORDER BY effective_from DESC, commission_id DESC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListEffective returns the active rows whose window contains asOf, newest
// first. Under the single-active-window invariant this is zero or one rows;
// anything else is dirty data the resolver has to cope with.
func (p *CommissionRepository) ListEffective(ctx context.Context, branchID uuid.UUID, asOf time.Time) ([]domain.Commission, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+commissionColumns+` FROM alo.branch_commissions
		 WHERE branch_id = $1 AND is_active
		   AND effective_from <= $2
		   AND (effective_to IS NULL OR effective_to > $2)
		 ORDER BY created_at DESC, commission_id DESC`,
		branchID, domain.DateOf(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
