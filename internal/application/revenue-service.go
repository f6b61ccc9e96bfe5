package application

import (
	"context"
	"sort"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/alotrabong/branch-orders-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// commissionResolver is what the aggregator needs from the commission side:
// the rate effective for a branch on the order's completion date.
type commissionResolver interface {
	Resolve(ctx context.Context, branchID uuid.UUID, asOf time.Time) (*domain.Commission, error)
}

type RevenueService struct {
	orders      repository.OrderRepo
	commissions commissionResolver
}

func NewRevenueService(orders repository.OrderRepo, commissions commissionResolver) *RevenueService {
	return &RevenueService{orders: orders, commissions: commissions}
}

// rangeBounds widens calendar dates to local business-day boundaries:
// [from 00:00:00, to 23:59:59].
func rangeBounds(fromDate, toDate time.Time) (time.Time, time.Time) {
	from := domain.DateOf(fromDate)
	to := domain.DateOf(toDate).Add(24*time.Hour - time.Second)
	return from, to
}

// validOrders is the revenue base: DELIVERED, not refunded.
func (s *RevenueService) validOrders(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID) ([]domain.Order, error) {
	from, to := rangeBounds(fromDate, toDate)
	all, err := s.orders.ListOrdersBetween(ctx, from, to, branchID)
	if err != nil {
		return nil, err
	}
	valid := all[:0:0]
	for _, o := range all {
		if o.Status == domain.StatusDelivered && o.PaymentStatus != domain.PaymentRefunded {
			valid = append(valid, o)
		}
	}
	return valid, nil
}

func avgOf(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

func paginate[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ByBranch folds the commission split into per-branch totals. The rate is
// resolved per order at the order's completion date, so historical rate
// changes are reproduced, not smeared.
func (s *RevenueService) ByBranch(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID, page, size int) ([]domain.BranchRevenue, int, error) {
	valid, err := s.validOrders(ctx, fromDate, toDate, branchID)
	if err != nil {
		return nil, 0, err
	}

	byBranch := make(map[uuid.UUID][]domain.Order)
	for _, o := range valid {
		byBranch[o.BranchID] = append(byBranch[o.BranchID], o)
	}

	reports := make([]domain.BranchRevenue, 0, len(byBranch))
	for id, orders := range byBranch {
		r := domain.BranchRevenue{
			BranchID:      id,
			OrderCount:    int64(len(orders)),
			TotalRevenue:  decimal.Zero,
			PlatformShare: decimal.Zero,
			BranchIncome:  decimal.Zero,
		}
		for _, o := range orders {
			c, err := s.commissions.Resolve(ctx, id, o.UpdatedAt)
			if err != nil {
				return nil, 0, err
			}
			share := domain.ComputeShare(o.TotalAmount, c)
			r.TotalRevenue = r.TotalRevenue.Add(o.TotalAmount)
			r.PlatformShare = r.PlatformShare.Add(share)
			r.BranchIncome = r.BranchIncome.Add(o.TotalAmount.Sub(share))
		}
		r.AvgOrderValue = avgOf(r.TotalRevenue, len(orders))
		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].TotalRevenue.Equal(reports[j].TotalRevenue) {
			return reports[i].TotalRevenue.GreaterThan(reports[j].TotalRevenue)
		}
		return reports[i].BranchID.String() < reports[j].BranchID.String()
	})

	return paginate(reports, page, size), len(reports), nil
}

// ByDate buckets valid orders by calendar day or month.
func (s *RevenueService) ByDate(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID, monthly bool) ([]domain.DateRevenue, error) {
	valid, err := s.validOrders(ctx, fromDate, toDate, branchID)
	if err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	if monthly {
		layout = "2006-01"
	}

	buckets := make(map[string][]domain.Order)
	for _, o := range valid {
		key := o.UpdatedAt.Format(layout)
		buckets[key] = append(buckets[key], o)
	}

	reports := make([]domain.DateRevenue, 0, len(buckets))
	for key, orders := range buckets {
		total := decimal.Zero
		for _, o := range orders {
			total = total.Add(o.TotalAmount)
		}
		reports = append(reports, domain.DateRevenue{
			Bucket:        key,
			OrderCount:    int64(len(orders)),
			TotalRevenue:  total,
			AvgOrderValue: avgOf(total, len(orders)),
		})
	}

	// Lexicographic order of the bucket keys is chronological order.
	sort.Slice(reports, func(i, j int) bool { return reports[i].Bucket < reports[j].Bucket })
	return reports, nil
}

// ByItem explodes valid orders into line items and ranks items by revenue.
// Item names come from the line snapshots, never from the live catalog.
func (s *RevenueService) ByItem(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID, page, size int) ([]domain.ItemRevenue, int, error) {
	valid, err := s.validOrders(ctx, fromDate, toDate, branchID)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(valid))
	for _, o := range valid {
		ids = append(ids, o.OrderID)
	}
	items, err := s.orders.ListItemsByOrders(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	byItem := make(map[uuid.UUID]*domain.ItemRevenue)
	for _, it := range items {
		r, ok := byItem[it.ItemID]
		if !ok {
			r = &domain.ItemRevenue{ItemID: it.ItemID, ItemName: it.ItemName, Revenue: decimal.Zero}
			byItem[it.ItemID] = r
		}
		r.QuantitySold += int64(it.Quantity)
		r.Revenue = r.Revenue.Add(it.LineRevenue())
	}

	reports := make([]domain.ItemRevenue, 0, len(byItem))
	for _, r := range byItem {
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Revenue.Equal(reports[j].Revenue) {
			return reports[i].Revenue.GreaterThan(reports[j].Revenue)
		}
		return reports[i].ItemID.String() < reports[j].ItemID.String()
	})

	return paginate(reports, page, size), len(reports), nil
}

// Summary is a single pass over the valid-order set.
func (s *RevenueService) Summary(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID) (*domain.RevenueSummary, error) {
	valid, err := s.validOrders(ctx, fromDate, toDate, branchID)
	if err != nil {
		return nil, err
	}

	sum := &domain.RevenueSummary{
		OrderCount:    int64(len(valid)),
		TotalRevenue:  decimal.Zero,
		PlatformShare: decimal.Zero,
		BranchIncome:  decimal.Zero,
	}
	for _, o := range valid {
		c, err := s.commissions.Resolve(ctx, o.BranchID, o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		share := domain.ComputeShare(o.TotalAmount, c)
		sum.TotalRevenue = sum.TotalRevenue.Add(o.TotalAmount)
		sum.PlatformShare = sum.PlatformShare.Add(share)
		sum.BranchIncome = sum.BranchIncome.Add(o.TotalAmount.Sub(share))
	}
	sum.AvgOrderValue = avgOf(sum.TotalRevenue, len(valid))
	return sum, nil
}

// PaymentMethods splits the valid-order set into online vs cash-on-delivery.
func (s *RevenueService) PaymentMethods(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID) (*domain.PaymentBreakdown, error) {
	valid, err := s.validOrders(ctx, fromDate, toDate, branchID)
	if err != nil {
		return nil, err
	}

	b := &domain.PaymentBreakdown{OnlineRevenue: decimal.Zero, CODRevenue: decimal.Zero}
	for _, o := range valid {
		if o.PaymentMethod == domain.MethodCOD {
			b.CODOrders++
			b.CODRevenue = b.CODRevenue.Add(o.TotalAmount)
		} else {
			b.OnlineOrders++
			b.OnlineRevenue = b.OnlineRevenue.Add(o.TotalAmount)
		}
	}
	return b, nil
}

// Cancellations works over every order in the range, cancelled and refunded
// included; the validity filter would hide exactly the orders it counts.
func (s *RevenueService) Cancellations(ctx context.Context, fromDate, toDate time.Time, branchID *uuid.UUID) (*domain.CancellationStats, error) {
	from, to := rangeBounds(fromDate, toDate)
	all, err := s.orders.ListOrdersBetween(ctx, from, to, branchID)
	if err != nil {
		return nil, err
	}

	stats := &domain.CancellationStats{
		TotalOrders:      int64(len(all)),
		CancellationRate: decimal.Zero,
	}
	for _, o := range all {
		switch o.Status {
		case domain.StatusCancelled:
			stats.CancelledOrders++
		case domain.StatusRefunded:
			stats.RefundedOrders++
		}
	}
	if stats.TotalOrders > 0 {
		stats.CancellationRate = decimal.NewFromInt(stats.CancelledOrders).
			Div(decimal.NewFromInt(stats.TotalOrders)).
			Round(4).
			Mul(hundredPct)
	}
	return stats, nil
}

var hundredPct = decimal.NewFromInt(100)
