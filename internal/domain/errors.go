package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
)

// InvalidTransitionError rejects a status change the graph does not allow.
type InvalidTransitionError struct {
	OrderID uuid.UUID
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}

// InsufficientInventoryError carries the shortfall so a branch manager can
// act on it. The triggering transition leaves both order and stock untouched.
type InsufficientInventoryError struct {
	BranchID  uuid.UUID
	ItemID    uuid.UUID
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for item %s (%s): available %d, requested %d",
		e.ItemName, e.ItemID, e.Available, e.Requested)
}

func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

func IsInsufficientInventory(err error) bool {
	var ii *InsufficientInventoryError
	return errors.As(err, &ii)
}
