package sweeper

import (
	"context"
	"errors"
	"log/slog"

	domain "nftcredit-backend/internal/domain/loan"
	loanuc "nftcredit-backend/internal/usecase/loan"
)

// Engine is the subset of the loan engine the sweeper drives.
type Engine interface {
	SetDefaulted(ctx context.Context, loanID uint64) (*loanuc.LoanDTO, error)
	SetLiquidation(ctx context.Context, loanID uint64) (*loanuc.LoanDTO, error)
	LockRest(ctx context.Context, loanID uint64) (*loanuc.LoanDTO, error)
}

// Result counts what one pass changed.
type Result struct {
	Defaulted   int
	Liquidation int
	RestLocked  int
	Failed      int
}

func (r Result) Total() int { return r.Defaulted + r.Liquidation + r.RestLocked }

// Usecase advances loans whose time gates have passed. Every step is also
// callable by anyone through the engine; the sweeper only saves them the trouble.
type Usecase struct {
	loans     domain.Repository
	engine    Engine
	batchSize int
	logger    *slog.Logger
}

func NewUsecase(loans domain.Repository, engine Engine, batchSize int) *Usecase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Usecase{loans: loans, engine: engine, batchSize: batchSize, logger: slog.Default()}
}

func (u *Usecase) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	u.logger = l.With("component", "sweeper")
}

// Run performs one pass over every active, defaulted and post-liquidation
// loan, a page of batchSize ids at a time.
func (u *Usecase) Run(ctx context.Context) (Result, error) {
	var res Result
	steps := []struct {
		status domain.Status
		apply  func(context.Context, uint64) (*loanuc.LoanDTO, error)
		count  *int
	}{
		{domain.StatusActive, u.engine.SetDefaulted, &res.Defaulted},
		{domain.StatusDefaulted, u.engine.SetLiquidation, &res.Liquidation},
		{domain.StatusPostLiquidation, u.engine.LockRest, &res.RestLocked},
	}
	for _, s := range steps {
		var after uint64
		for {
			ids, err := u.loans.ListByStatus(ctx, s.status, after, u.batchSize)
			if err != nil {
				return res, err
			}
			for _, id := range ids {
				if err := ctx.Err(); err != nil {
					return res, err
				}
				_, err := s.apply(ctx, id)
				switch {
				case err == nil:
					*s.count++
				case skippable(err):
				default:
					res.Failed++
					u.logger.Warn("sweep step failed", "loan_id", id, "status", s.status, "error", err)
				}
			}
			if len(ids) < u.batchSize {
				break
			}
			after = ids[len(ids)-1]
		}
	}
	if res.Total() > 0 || res.Failed > 0 {
		u.logger.Info("sweep finished",
			"defaulted", res.Defaulted,
			"liquidation", res.Liquidation,
			"rest_locked", res.RestLocked,
			"failed", res.Failed)
	}
	return res, nil
}

// skippable reports errors that only mean the loan is not due yet.
func skippable(err error) bool {
	return errors.Is(err, domain.ErrNotOverdue) ||
		errors.Is(err, domain.ErrClaimWindowOpen) ||
		errors.Is(err, domain.ErrInvalidStatus)
}
