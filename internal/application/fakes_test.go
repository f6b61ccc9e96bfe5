package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/alotrabong/branch-orders-service/internal/logger"
	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type invKey struct {
	branch uuid.UUID
	item   uuid.UUID
}

// fakeOrderRepo mirrors the transactional semantics of the Postgres
// repository under a single mutex: check-and-deduct is atomic, compare-and-
// set status updates, history appended on every change.
type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	inventory map[invKey]*domain.Inventory
	couriers  map[uuid.UUID]*domain.Courier
	history   []domain.OrderStatusHistory
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    make(map[uuid.UUID]*domain.Order),
		inventory: make(map[invKey]*domain.Inventory),
		couriers:  make(map[uuid.UUID]*domain.Courier),
	}
}

func (f *fakeOrderRepo) putOrder(o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	f.orders[o.OrderID] = &cp
}

func (f *fakeOrderRepo) putStock(branchID, itemID uuid.UUID, qty, safety int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory[invKey{branchID, itemID}] = &domain.Inventory{
		InventoryID: uuid.New(), BranchID: branchID, ItemID: itemID,
		Quantity: qty, SafetyStock: safety,
	}
}

func (f *fakeOrderRepo) stock(branchID, itemID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.inventory[invKey{branchID, itemID}]
	if !ok {
		return -1
	}
	return inv.Quantity
}

func (f *fakeOrderRepo) GetOrderById(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return &domain.InvalidTransitionError{OrderID: id, From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	f.history = append(f.history, domain.OrderStatusHistory{OrderID: id, Status: to, Notes: note, CreatedAt: o.UpdatedAt})
	return nil
}

func (f *fakeOrderRepo) MarkReady(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status == domain.StatusReady {
		return nil
	}
	if !o.Status.CanTransitionTo(domain.StatusReady) {
		return &domain.InvalidTransitionError{OrderID: id, From: o.Status, To: domain.StatusReady}
	}
	for _, it := range o.Items {
		inv, ok := f.inventory[invKey{o.BranchID, it.ItemID}]
		if !ok || inv.Quantity < it.Quantity {
			avail := 0
			if ok {
				avail = inv.Quantity
			}
			return &domain.InsufficientInventoryError{
				BranchID: o.BranchID, ItemID: it.ItemID, ItemName: it.ItemName,
				Available: avail, Requested: it.Quantity,
			}
		}
	}
	for _, it := range o.Items {
		f.inventory[invKey{o.BranchID, it.ItemID}].Quantity -= it.Quantity
	}
	o.Status = domain.StatusReady
	o.UpdatedAt = time.Now()
	f.history = append(f.history, domain.OrderStatusHistory{OrderID: id, Status: domain.StatusReady, Notes: "inventory deducted", CreatedAt: o.UpdatedAt})
	return nil
}

func (f *fakeOrderRepo) GetCourier(_ context.Context, id uuid.UUID) (*domain.Courier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.couriers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeOrderRepo) AssignCourier(_ context.Context, orderID, courierID uuid.UUID, advanceTo *domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := f.couriers[courierID]; !ok {
		return domain.ErrNotFound
	}
	if advanceTo != nil {
		o.Status = *advanceTo
		o.UpdatedAt = time.Now()
		f.history = append(f.history, domain.OrderStatusHistory{OrderID: orderID, Status: *advanceTo, Notes: "courier assigned", CreatedAt: o.UpdatedAt})
	}
	return nil
}

func (f *fakeOrderRepo) ListOrdersBetween(_ context.Context, from, to time.Time, branchID *uuid.UUID) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.UpdatedAt.Before(from) || o.UpdatedAt.After(to) {
			continue
		}
		if branchID != nil && o.BranchID != *branchID {
			continue
		}
		cp := *o
		cp.Items = append([]domain.OrderItem(nil), o.Items...)
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeOrderRepo) ListItemsByOrders(_ context.Context, orderIDs []uuid.UUID) ([]domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OrderItem
	for _, id := range orderIDs {
		if o, ok := f.orders[id]; ok {
			out = append(out, o.Items...)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListHistory(_ context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OrderStatusHistory
	for _, h := range f.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

// fakeCommissionRepo enforces the same single-active-window invariant as the
// Postgres repository, serialized by its mutex.
type fakeCommissionRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*domain.Commission
}

func newFakeCommissionRepo() *fakeCommissionRepo {
	return &fakeCommissionRepo{nextID: 1}
}

func (f *fakeCommissionRepo) Create(_ context.Context, c *domain.Commission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.BranchID != c.BranchID || !existing.IsActive {
			continue
		}
		if existing.OverlapsWindow(c.EffectiveFrom, c.EffectiveTo) {
			return fmt.Errorf("%w: window overlaps active commission %d", domain.ErrValidation, existing.CommissionID)
		}
	}
	for _, existing := range f.rows {
		if existing.BranchID == c.BranchID {
			existing.IsActive = false
		}
	}
	c.CommissionID = f.nextID
	f.nextID++
	c.IsActive = true
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeCommissionRepo) Update(_ context.Context, c *domain.Commission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.BranchID != c.BranchID || !existing.IsActive || existing.CommissionID == c.CommissionID {
			continue
		}
		if c.IsActive && existing.OverlapsWindow(c.EffectiveFrom, c.EffectiveTo) {
			return fmt.Errorf("%w: window overlaps active commission %d", domain.ErrValidation, existing.CommissionID)
		}
	}
	for i, existing := range f.rows {
		if existing.CommissionID == c.CommissionID {
			cp := *c
			cp.UpdatedAt = time.Now()
			f.rows[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeCommissionRepo) Deactivate(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.CommissionID == id {
			c.IsActive = false
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeCommissionRepo) GetById(_ context.Context, id int64) (*domain.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.CommissionID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCommissionRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]domain.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Commission
	for _, c := range f.rows {
		if c.BranchID == branchID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCommissionRepo) ListEffective(_ context.Context, branchID uuid.UUID, asOf time.Time) ([]domain.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Commission
	// newest first, as the SQL orders by created_at desc
	for i := len(f.rows) - 1; i >= 0; i-- {
		c := f.rows[i]
		if c.BranchID == branchID && c.IsActive && c.EffectiveOn(asOf) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// forceActive flips a row active without the overlap guard, to simulate the
// dirty historical data the resolver has to tolerate.
func (f *fakeCommissionRepo) forceActive(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.CommissionID == id {
			c.IsActive = true
		}
	}
}
