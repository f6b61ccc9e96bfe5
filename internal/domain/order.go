package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusPreparing  OrderStatus = "PREPARING"
	StatusReady      OrderStatus = "READY"
	StatusDelivering OrderStatus = "DELIVERING"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusReceived   OrderStatus = "RECEIVED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCOD   PaymentMethod = "COD"
	MethodVNPay PaymentMethod = "VNPAY"
	MethodMomo  PaymentMethod = "MOMO"
)

type Order struct {
	OrderID         uuid.UUID       `json:"order_id"`
	UserID          uuid.UUID       `json:"user_id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	ShippingAddress string          `json:"shipping_address"`
	Discount        decimal.Decimal `json:"discount"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Status          OrderStatus     `json:"status"`
	Notes           string          `json:"notes"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem keeps a snapshot of the catalog item at checkout time. Later
// catalog edits must never change historical order lines.
type OrderItem struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// LineRevenue prefers the persisted line total and falls back to
// unit_price * quantity when it was never written.
func (i OrderItem) LineRevenue() decimal.Decimal {
	if !i.LineTotal.IsZero() {
		return i.LineTotal
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderStatusHistory struct {
	ID        int64       `json:"id"`
	OrderID   uuid.UUID   `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
}

// Courier belongs to exactly one branch.
type Courier struct {
	CourierID uuid.UUID `json:"courier_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
}

// transitions is the full status graph. A target is reachable only when it is
// listed for the current status; terminal statuses have no entries.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusReady, StatusCancelled},
	StatusReady:      {StatusDelivering},
	StatusDelivering: {StatusDelivered},
	StatusDelivered:  {StatusReceived, StatusRefunded},
	StatusReceived:   {StatusRefunded},
}

// courierAdvance maps the order's current status to the status it moves to
// when a courier is assigned. Statuses not listed are left untouched;
// assignment never regresses an order.
var courierAdvance = map[OrderStatus]OrderStatus{
	StatusPending: StatusConfirmed,
	StatusReady:   StatusDelivering,
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Cancellable reports whether a customer cancellation is still accepted.
// Once the kitchen marks the order READY the food is made and stock is
// already deducted, so cancellation closes at PREPARING.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing:
		return true
	}
	return false
}

// AdvanceOnAssignment returns the status an order moves to when a courier is
// assigned, and whether it moves at all.
func (s OrderStatus) AdvanceOnAssignment() (OrderStatus, bool) {
	next, ok := courierAdvance[s]
	return next, ok
}
