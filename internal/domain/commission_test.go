package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestComputeSharePercent(t *testing.T) {
	c := &Commission{Type: CommissionPercent, Value: decimal.RequireFromString("10.00")}
	share := ComputeShare(decimal.NewFromInt(500000), c)
	assert.True(t, share.Equal(decimal.RequireFromString("50000")), "got %s", share)
}

func TestComputeSharePercentRoundsHalfUp(t *testing.T) {
	// 33.33% of 100.01 = 33.333333 -> 33.33; 12.5% of 0.10 = 0.0125 -> 0.01
	c := &Commission{Type: CommissionPercent, Value: decimal.RequireFromString("33.33")}
	assert.Equal(t, "33.33", ComputeShare(decimal.RequireFromString("100.01"), c).String())

	// half exactly: 5% of 0.10 = 0.005 -> 0.01
	c = &Commission{Type: CommissionPercent, Value: decimal.RequireFromString("5")}
	assert.Equal(t, "0.01", ComputeShare(decimal.RequireFromString("0.10"), c).String())
}

func TestComputeShareFixed(t *testing.T) {
	c := &Commission{Type: CommissionFixed, Value: decimal.NewFromInt(20000)}

	share := ComputeShare(decimal.NewFromInt(500000), c)
	assert.True(t, share.Equal(decimal.NewFromInt(20000)))

	// Capped at the order total.
	share = ComputeShare(decimal.NewFromInt(15000), c)
	assert.True(t, share.Equal(decimal.NewFromInt(15000)))
}

func TestComputeShareNoCommission(t *testing.T) {
	share := ComputeShare(decimal.NewFromInt(500000), nil)
	assert.True(t, share.IsZero())
}

func TestEffectiveOn(t *testing.T) {
	c := Commission{
		EffectiveFrom: date(2026, 1, 1),
		EffectiveTo:   datePtr(2026, 2, 1),
	}
	assert.False(t, c.EffectiveOn(date(2025, 12, 31)))
	assert.True(t, c.EffectiveOn(date(2026, 1, 1)))
	assert.True(t, c.EffectiveOn(date(2026, 1, 31)))
	// effective_to is exclusive
	assert.False(t, c.EffectiveOn(date(2026, 2, 1)))

	openEnded := Commission{EffectiveFrom: date(2026, 1, 1)}
	assert.True(t, openEnded.EffectiveOn(date(2030, 6, 15)))
}

func TestOverlapsWindow(t *testing.T) {
	existing := Commission{
		EffectiveFrom: date(2026, 1, 1),
		EffectiveTo:   datePtr(2026, 2, 1),
	}

	// new window entirely after [from, to) — touching the exclusive end is fine
	assert.False(t, existing.OverlapsWindow(date(2026, 2, 1), nil))
	// entirely before
	assert.False(t, existing.OverlapsWindow(date(2025, 11, 1), datePtr(2026, 1, 1)))
	// straddles the start
	assert.True(t, existing.OverlapsWindow(date(2025, 12, 15), datePtr(2026, 1, 15)))
	// contained
	assert.True(t, existing.OverlapsWindow(date(2026, 1, 10), datePtr(2026, 1, 20)))
	// open-ended new window starting inside
	assert.True(t, existing.OverlapsWindow(date(2026, 1, 15), nil))

	openEnded := Commission{EffectiveFrom: date(2026, 3, 1)}
	// anything open-ended collides with a later open-ended window
	assert.True(t, openEnded.OverlapsWindow(date(2026, 6, 1), nil))
	// bounded window ending before the open-ended row starts is fine
	assert.False(t, openEnded.OverlapsWindow(date(2026, 1, 1), datePtr(2026, 3, 1)))
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2026, 5, 10, 17, 45, 3, 0, time.Local)
	assert.Equal(t, date(2026, 5, 10), DateOf(ts))
}
