package loanmock

import (
	"context"

	domain "nftcredit-backend/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes are no-ops.
type Repo struct {
	CreateFn           func(ctx context.Context, l *domain.Loan) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Loan, error)
	SaveFn             func(ctx context.Context, l *domain.Loan) error
	ListByStatusFn     func(ctx context.Context, status domain.Status, afterID uint64, limit int) ([]uint64, error)
	AddInstallmentFn   func(ctx context.Context, in *domain.Installment) error
	ListInstallmentsFn func(ctx context.Context, loanID uint64) ([]domain.Installment, error)
	GetSettingsFn      func(ctx context.Context) (*domain.Settings, error)
	SaveSettingsFn     func(ctx context.Context, s *domain.Settings) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListByStatus(ctx context.Context, status domain.Status, afterID uint64, limit int) ([]uint64, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status, afterID, limit)
	}
	return nil, nil
}

func (m *Repo) AddInstallment(ctx context.Context, in *domain.Installment) error {
	if m.AddInstallmentFn != nil {
		return m.AddInstallmentFn(ctx, in)
	}
	return nil
}

func (m *Repo) ListInstallments(ctx context.Context, loanID uint64) ([]domain.Installment, error) {
	if m.ListInstallmentsFn != nil {
		return m.ListInstallmentsFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) GetSettings(ctx context.Context) (*domain.Settings, error) {
	if m.GetSettingsFn != nil {
		return m.GetSettingsFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveSettings(ctx context.Context, s *domain.Settings) error {
	if m.SaveSettingsFn != nil {
		return m.SaveSettingsFn(ctx, s)
	}
	return nil
}
