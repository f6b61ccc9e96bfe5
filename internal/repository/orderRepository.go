package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo interface {
	GetOrderById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, note string) error
	MarkReady(ctx context.Context, id uuid.UUID) error
	GetCourier(ctx context.Context, id uuid.UUID) (*domain.Courier, error)
	AssignCourier(ctx context.Context, orderID, courierID uuid.UUID, advanceTo *domain.OrderStatus) error
	ListOrdersBetween(ctx context.Context, from, to time.Time, branchID *uuid.UUID) ([]domain.Order, error)
	ListItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]domain.OrderItem, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error)
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

const orderColumns = `order_id, user_id, branch_id, shipping_address, discount, shipping_fee,
	total_amount, payment_method, payment_status, status, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.OrderID, &o.UserID, &o.BranchID, &o.ShippingAddress, &o.Discount, &o.ShippingFee,
		&o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (p *OrderRepository) GetOrderById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(p.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM alo.orders WHERE order_id = $1`, id))
	if err != nil {
		return nil, err
	}

	items, err := p.ListItemsByOrders(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// UpdateStatus is a compare-and-set on the current status plus a history row,
// in one transaction. A concurrent transition that already moved the order
// away from `from` makes this a no-match and the caller sees ErrNotFound on
// a missing order or an InvalidTransitionError re-read from current state.
func (p *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, note string) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE alo.orders SET status = $1, updated_at = now() WHERE order_id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current domain.OrderStatus
		err = tx.QueryRow(ctx, `SELECT status FROM alo.orders WHERE order_id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return &domain.InvalidTransitionError{OrderID: id, From: current, To: to}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO alo.order_status_history (order_id, status, notes) VALUES ($1, $2, $3)`,
		id, to, note)
	if err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

// MarkReady moves the order into READY and deducts every line from the
// branch inventory, all-or-nothing. Inventory rows are locked in item-id
// order so two competing orders cannot both take the last unit. Re-entering
// READY is a no-op: the stock was already taken exactly once.
func (p *OrderRepository) MarkReady(ctx context.Context, id uuid.UUID) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback(ctx)
		}
	}()

	var branchID uuid.UUID
	var status domain.OrderStatus
	err = tx.QueryRow(ctx,
		`SELECT branch_id, status FROM alo.orders WHERE order_id = $1 FOR UPDATE`, id).
		Scan(&branchID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if status == domain.StatusReady {
		return nil
	}
	if !status.CanTransitionTo(domain.StatusReady) {
		return &domain.InvalidTransitionError{OrderID: id, From: status, To: domain.StatusReady}
	}

	rows, err := tx.Query(ctx,
		`SELECT item_id, item_name, quantity FROM alo.order_items WHERE order_id = $1`, id)
	if err != nil {
		return err
	}
	type line struct {
		itemID   uuid.UUID
		itemName string
		qty      int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err = rows.Scan(&l.itemID, &l.itemName, &l.qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	// Deterministic lock order across concurrent transitions.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].itemID.String() < lines[j].itemID.String()
	})

	for _, l := range lines {
		var available int
		err = tx.QueryRow(ctx,
			`SELECT quantity FROM alo.inventory WHERE branch_id = $1 AND item_id = $2 FOR UPDATE`,
			branchID, l.itemID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.InsufficientInventoryError{
				BranchID: branchID, ItemID: l.itemID, ItemName: l.itemName,
				Available: 0, Requested: l.qty,
			}
		}
		if err != nil {
			return err
		}
		if available < l.qty {
			return &domain.InsufficientInventoryError{
				BranchID: branchID, ItemID: l.itemID, ItemName: l.itemName,
				Available: available, Requested: l.qty,
			}
		}
	}

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(
			`UPDATE alo.inventory SET quantity = quantity - $1, updated_at = now()
			 WHERE branch_id = $2 AND item_id = $3`,
			l.qty, branchID, l.itemID)
	}
	batch.Queue(`UPDATE alo.orders SET status = $1, updated_at = now() WHERE order_id = $2`,
		domain.StatusReady, id)
	batch.Queue(`INSERT INTO alo.order_status_history (order_id, status, notes) VALUES ($1, $2, $3)`,
		id, domain.StatusReady, "inventory deducted")
	br := tx.SendBatch(ctx, batch)
	if err = br.Close(); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func (p *OrderRepository) GetCourier(ctx context.Context, id uuid.UUID) (*domain.Courier, error) {
	var c domain.Courier
	err := p.pool.QueryRow(ctx,
		`SELECT courier_id, branch_id, full_name, phone, is_active FROM alo.couriers WHERE courier_id = $1`, id).
		Scan(&c.CourierID, &c.BranchID, &c.FullName, &c.Phone, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *OrderRepository) AssignCourier(ctx context.Context, orderID, courierID uuid.UUID, advanceTo *domain.OrderStatus) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO alo.order_couriers (order_id, courier_id) VALUES ($1, $2)
		 ON CONFLICT (order_id, courier_id) DO NOTHING`,
		orderID, courierID)
	if err != nil {
		return err
	}

	if advanceTo != nil {
		_, err = tx.Exec(ctx,
			`UPDATE alo.orders SET status = $1, updated_at = now() WHERE order_id = $2`,
			*advanceTo, orderID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO alo.order_status_history (order_id, status, notes) VALUES ($1, $2, $3)`,
			orderID, *advanceTo, "courier assigned")
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func (p *OrderRepository) ListOrdersBetween(ctx context.Context, from, to time.Time, branchID *uuid.UUID) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM alo.orders WHERE updated_at >= $1 AND updated_at <= $2`
	args := []any{from, to}
	if branchID != nil {
		q += ` AND branch_id = $3`
		args = append(args, *branchID)
	}
	q += ` ORDER BY updated_at`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (p *OrderRepository) ListItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx,
		`SELECT order_item_id, order_id, item_id, item_name, quantity, unit_price, line_total
		 FROM alo.order_items WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.OrderID, &it.ItemID, &it.ItemName,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (p *OrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, order_id, status, notes, created_at
		 FROM alo.order_status_history WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderStatusHistory
	for rows.Next() {
		var h domain.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
