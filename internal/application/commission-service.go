package application

import (
	"context"
	"fmt"
	"time"

	"github.com/alotrabong/branch-orders-service/internal/domain"
	"github.com/alotrabong/branch-orders-service/internal/logger"
	"github.com/alotrabong/branch-orders-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionInput struct {
	BranchID      uuid.UUID
	Type          domain.CommissionType
	Value         decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Note          string
}

type CommissionsService struct {
	repo repository.CommissionRepo
}

func NewCommissionsService(r repository.CommissionRepo) *CommissionsService {
	return &CommissionsService{repo: r}
}

func validateInput(in CommissionInput) error {
	if in.BranchID == uuid.Nil {
		return fmt.Errorf("%w: branch id is required", domain.ErrValidation)
	}
	if in.Type != domain.CommissionPercent && in.Type != domain.CommissionFixed {
		return fmt.Errorf("%w: unknown commission type %q", domain.ErrValidation, in.Type)
	}
	if !in.Value.IsPositive() {
		return fmt.Errorf("%w: commission value must be positive", domain.ErrValidation)
	}
	if in.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: effective_from is required", domain.ErrValidation)
	}
	if in.EffectiveTo != nil && !in.EffectiveTo.After(in.EffectiveFrom) {
		return fmt.Errorf("%w: effective_to must be after effective_from", domain.ErrValidation)
	}
	return nil
}

// Create rejects overlapping windows and supersedes the branch's previously
// active commissions; the repository serializes that against concurrent
// writers so no two windows end up active together.
func (s *CommissionsService) Create(ctx context.Context, in CommissionInput) (*domain.Commission, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c := &domain.Commission{
		BranchID:      in.BranchID,
		Type:          in.Type,
		Value:         in.Value,
		EffectiveFrom: domain.DateOf(in.EffectiveFrom),
		Note:          in.Note,
	}
	if in.EffectiveTo != nil {
		to := domain.DateOf(*in.EffectiveTo)
		c.EffectiveTo = &to
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("commission created", "commission_id", c.CommissionID, "branch_id", c.BranchID)
	return c, nil
}

func (s *CommissionsService) Update(ctx context.Context, id int64, in CommissionInput) (*domain.Commission, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c, err := s.repo.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	c.BranchID = in.BranchID
	c.Type = in.Type
	c.Value = in.Value
	c.EffectiveFrom = domain.DateOf(in.EffectiveFrom)
	c.EffectiveTo = nil
	if in.EffectiveTo != nil {
		to := domain.DateOf(*in.EffectiveTo)
		c.EffectiveTo = &to
	}
	c.Note = in.Note
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommissionsService) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *CommissionsService) History(ctx context.Context, branchID uuid.UUID) ([]domain.Commission, error) {
	return s.repo.ListByBranch(ctx, branchID)
}

// Active returns the commission in effect today, or ErrNotFound.
func (s *CommissionsService) Active(ctx context.Context, branchID uuid.UUID) (*domain.Commission, error) {
	c, err := s.Resolve(ctx, branchID, time.Now())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// Resolve finds the commission effective for the branch on asOf. Zero rows
// is a legitimate outcome (branch keeps everything). More than one row means
// the write-time invariant was violated at some point; the newest row wins
// and the anomaly is logged rather than failing the caller.
func (s *CommissionsService) Resolve(ctx context.Context, branchID uuid.UUID, asOf time.Time) (*domain.Commission, error) {
	rows, err := s.repo.ListEffective(ctx, branchID, asOf)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		logger.Warn("multiple effective commissions, using newest",
			"branch_id", branchID, "as_of", domain.DateOf(asOf), "count", len(rows))
	}
	return &rows[0], nil
}

// ResolveShare is the per-order split used by revenue reporting.
func (s *CommissionsService) ResolveShare(ctx context.Context, branchID uuid.UUID, asOf time.Time, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	c, err := s.Resolve(ctx, branchID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ComputeShare(orderTotal, c), nil
}
