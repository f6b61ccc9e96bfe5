package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReady, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusReady, StatusDelivering, true},
		{StatusReady, StatusReady, false},
		{StatusReady, StatusCancelled, false},
		{StatusDelivering, StatusDelivered, true},
		{StatusDelivering, StatusCancelled, false},
		{StatusDelivered, StatusReceived, true},
		{StatusDelivered, StatusRefunded, true},
		{StatusReceived, StatusRefunded, true},
		{StatusCancelled, StatusPending, false},
		{StatusRefunded, StatusDelivered, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusReceived.IsTerminal()) // refund still possible
	assert.False(t, StatusPending.IsTerminal())
}

func TestCancellable(t *testing.T) {
	cancellable := []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing}
	for _, s := range cancellable {
		assert.True(t, s.Cancellable(), "%s", s)
	}
	blocked := []OrderStatus{StatusReady, StatusDelivering, StatusDelivered, StatusReceived, StatusCancelled, StatusRefunded}
	for _, s := range blocked {
		assert.False(t, s.Cancellable(), "%s", s)
	}
}

func TestAdvanceOnAssignment(t *testing.T) {
	next, ok := StatusPending.AdvanceOnAssignment()
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, next)

	next, ok = StatusReady.AdvanceOnAssignment()
	assert.True(t, ok)
	assert.Equal(t, StatusDelivering, next)

	// Assignment must never regress or touch any other status.
	for _, s := range []OrderStatus{StatusConfirmed, StatusPreparing, StatusDelivering, StatusDelivered, StatusCancelled} {
		_, ok := s.AdvanceOnAssignment()
		assert.False(t, ok, "%s", s)
	}
}

func TestLineRevenue(t *testing.T) {
	persisted := OrderItem{
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("10.00"),
		LineTotal: decimal.RequireFromString("25.00"), // persisted override wins
	}
	assert.True(t, persisted.LineRevenue().Equal(decimal.RequireFromString("25.00")))

	fallback := OrderItem{
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("10.50"),
	}
	assert.True(t, fallback.LineRevenue().Equal(decimal.RequireFromString("31.50")))
}
