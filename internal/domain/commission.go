package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionPercent CommissionType = "PERCENT"
	CommissionFixed   CommissionType = "FIXED"
)

// Commission is the platform's cut for one branch over one effective window.
// Rows are deactivated when superseded, never deleted: past-order accounting
// re-reads the row that was effective back then.
type Commission struct {
	CommissionID  int64           `json:"commission_id"`
	BranchID      uuid.UUID       `json:"branch_id"`
	Type          CommissionType  `json:"commission_type"`
	Value         decimal.Decimal `json:"commission_value"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	Note          string          `json:"note,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// ComputeShare returns the platform's cut of an order total. A nil
// commission means the branch keeps everything; a FIXED cut is capped at
// the order total.
func ComputeShare(orderTotal decimal.Decimal, c *Commission) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	switch c.Type {
	case CommissionPercent:
		return orderTotal.Mul(c.Value).Div(hundred).Round(2)
	case CommissionFixed:
		return decimal.Min(c.Value, orderTotal)
	}
	return decimal.Zero
}

// EffectiveOn reports whether asOf falls inside [EffectiveFrom, EffectiveTo).
// A missing EffectiveTo means the window is open-ended.
func (c Commission) EffectiveOn(asOf time.Time) bool {
	day := DateOf(asOf)
	if day.Before(DateOf(c.EffectiveFrom)) {
		return false
	}
	if c.EffectiveTo != nil && !day.Before(DateOf(*c.EffectiveTo)) {
		return false
	}
	return true
}

// OverlapsWindow reports whether [from, to) collides with the commission's
// own window. nil bounds are open-ended.
func (c Commission) OverlapsWindow(from time.Time, to *time.Time) bool {
	existingFrom := DateOf(c.EffectiveFrom)
	newFrom := DateOf(from)

	if c.EffectiveTo != nil && !newFrom.Before(DateOf(*c.EffectiveTo)) {
		return false
	}
	if to != nil && !DateOf(*to).After(existingFrom) {
		return false
	}
	return true
}

// DateOf strips the time-of-day component; commission windows and report
// ranges are calendar dates at local business-day boundaries.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
