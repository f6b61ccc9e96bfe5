package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Revenue reports are derived values, recomputed on demand from orders plus
// commission history. They are never persisted.

type BranchRevenue struct {
	BranchID      uuid.UUID       `json:"branch_id"`
	OrderCount    int64           `json:"order_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PlatformShare decimal.Decimal `json:"platform_share"`
	BranchIncome  decimal.Decimal `json:"branch_income"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

type DateRevenue struct {
	Bucket        string          `json:"bucket"` // YYYY-MM-DD or YYYY-MM
	OrderCount    int64           `json:"order_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

type ItemRevenue struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ItemName     string          `json:"item_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type RevenueSummary struct {
	OrderCount    int64           `json:"order_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PlatformShare decimal.Decimal `json:"platform_share"`
	BranchIncome  decimal.Decimal `json:"branch_income"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

type PaymentBreakdown struct {
	OnlineOrders  int64           `json:"online_orders"`
	CODOrders     int64           `json:"cod_orders"`
	OnlineRevenue decimal.Decimal `json:"online_revenue"`
	CODRevenue    decimal.Decimal `json:"cod_revenue"`
}

// CancellationStats is computed over every order in the range, not just the
// delivered ones the revenue views work from.
type CancellationStats struct {
	TotalOrders     int64           `json:"total_orders"`
	CancelledOrders int64           `json:"cancelled_orders"`
	RefundedOrders  int64           `json:"refunded_orders"`
	// CancellationRate is a percentage, half-up to 4 decimal places.
	CancellationRate decimal.Decimal `json:"cancellation_rate"`
}
