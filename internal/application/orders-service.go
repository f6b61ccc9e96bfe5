package application

import (
	"context"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/alotrabong/branch-orders-service/internal/logger"
	"github.com/alotrabong/branch-orders-service/internal/repository"
	"github.com/google/uuid"
)

// Caller is the authenticated principal, resolved upstream. BranchID is set
// only for branch staff.
type Caller struct {
	UserID   uuid.UUID
	BranchID uuid.UUID
	IsAdmin  bool
}

func (c Caller) mayAccess(o *domain.Order) bool {
	if c.IsAdmin {
		return true
	}
	if c.UserID != uuid.Nil && c.UserID == o.UserID {
		return true
	}
	return c.BranchID != uuid.Nil && c.BranchID == o.BranchID
}

// StatusEvent is published after every successful status change.
type StatusEvent struct {
	OrderID   uuid.UUID          `json:"order_id"`
	BranchID  uuid.UUID          `json:"branch_id"`
	Status    domain.OrderStatus `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	OccuredAt time.Time          `json:"occured_at"`
}

type StatusEventPublisher interface {
	PublishStatusChange(ctx context.Context, ev StatusEvent) error
}

type OrdersService struct {
	repo   repository.OrderRepo
	events StatusEventPublisher
}

func NewOrdersService(r repository.OrderRepo, ev StatusEventPublisher) *OrdersService {
	return &OrdersService{repo: r, events: ev}
}

func (s *OrdersService) GetOrder(ctx context.Context, caller Caller, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.mayAccess(o) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (s *OrdersService) GetHistory(ctx context.Context, caller Caller, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, caller, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, orderID)
}

// Advance moves the order along the status graph. The transition into READY
// is the one with teeth: stock for every line is checked and deducted in one
// transaction, and a repeat READY request deducts nothing.
func (s *OrdersService) Advance(ctx context.Context, caller Caller, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	o, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.mayAccess(o) {
		return nil, domain.ErrForbidden
	}

	if target == domain.StatusReady {
		// MarkReady re-validates under the row lock and is a no-op when the
		// order is already READY.
		if err := s.repo.MarkReady(ctx, orderID); err != nil {
			return nil, err
		}
	} else {
		if !o.Status.CanTransitionTo(target) {
			return nil, &domain.InvalidTransitionError{OrderID: orderID, From: o.Status, To: target}
		}
		if err := s.repo.UpdateStatus(ctx, orderID, o.Status, target, "status updated"); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, "")
	return updated, nil
}

// Cancel is customer-initiated and only accepted while the kitchen has not
// started plating: PENDING, CONFIRMED, PREPARING. Stock is deducted at READY,
// so a successful cancellation never needs a restock.
func (s *OrdersService) Cancel(ctx context.Context, caller Caller, orderID uuid.UUID, reason string) (*domain.Order, error) {
	o, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.mayAccess(o) {
		return nil, domain.ErrForbidden
	}
	if !o.Status.Cancellable() {
		return nil, &domain.InvalidTransitionError{OrderID: orderID, From: o.Status, To: domain.StatusCancelled}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, o.Status, domain.StatusCancelled, reason); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated, reason)
	return updated, nil
}

// AssignCourier links a courier of the order's branch to the order. A
// PENDING order is confirmed by the assignment, a READY one goes out for
// delivery; any other status stays where it is.
func (s *OrdersService) AssignCourier(ctx context.Context, caller Caller, orderID, courierID uuid.UUID) (*domain.Order, error) {
	o, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.mayAccess(o) {
		return nil, domain.ErrForbidden
	}

	courier, err := s.repo.GetCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if courier.BranchID != o.BranchID {
		return nil, domain.ErrNotFound
	}
	if !courier.IsActive {
		return nil, domain.ErrValidation
	}

	var advanceTo *domain.OrderStatus
	if next, ok := o.Status.AdvanceOnAssignment(); ok {
		advanceTo = &next
	}

	if err := s.repo.AssignCourier(ctx, orderID, courierID, advanceTo); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetOrderById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if advanceTo != nil {
		s.publish(ctx, updated, "courier assigned")
	}
	return updated, nil
}

// publish is best-effort; a dead broker must not fail the transition.
func (s *OrdersService) publish(ctx context.Context, o *domain.Order, reason string) {
	if s.events == nil {
		return
	}
	ev := StatusEvent{
		OrderID:   o.OrderID,
		BranchID:  o.BranchID,
		Status:    o.Status,
		Reason:    reason,
		OccuredAt: time.Now().UTC(),
	}
	if err := s.events.PublishStatusChange(ctx, ev); err != nil {
		logger.Warn("status event publish failed", "order_id", o.OrderID, "err", err)
	}
}
