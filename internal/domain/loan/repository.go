package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate locks the loan row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	// ListByStatus returns up to limit ids of loans in status with id > afterID,
	// ascending. Pass the last id of a page to get the next one.
	ListByStatus(ctx context.Context, status Status, afterID uint64, limit int) ([]uint64, error)

	AddInstallment(ctx context.Context, in *Installment) error
	ListInstallments(ctx context.Context, loanID uint64) ([]Installment, error)

	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
}

// Schedule groups the time parameters of the engine.
type Schedule struct {
	TenorPeriod   time.Duration
	GracePeriod   time.Duration
	LateTolerance time.Duration
	ClaimWindow   time.Duration
}
