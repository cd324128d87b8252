package uowmock

import (
	"context"
	"errors"

	"nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Unfilled function fields return errUnimplemented.
type UoW struct {
	WithinTxFn         func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn     func(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error
	WithinMultisigTxFn func(ctx context.Context, txID uint64, fn func(r uow.Repos, tx *multisig.Transaction) error) error
}

func New() *UoW { return &UoW{} }

func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}

func (m *UoW) WithWithinLoanTx(fn func(context.Context, uint64, func(uow.Repos, *loan.Loan) error) error) *UoW {
	m.WithinLoanTxFn = fn
	return m
}

func (m *UoW) WithWithinMultisigTx(fn func(context.Context, uint64, func(uow.Repos, *multisig.Transaction) error) error) *UoW {
	m.WithinMultisigTxFn = fn
	return m
}

// Passthrough runs every body against repos without a real transaction.
// Locked rows are fetched with the repositories' GetByIDForUpdate.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		WithinLoanTxFn: func(ctx context.Context, id uint64, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := repos.Loans.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
		WithinMultisigTxFn: func(ctx context.Context, id uint64, fn func(uow.Repos, *multisig.Transaction) error) error {
			tx, err := repos.Multisig.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			return fn(repos, tx)
		},
	}
}

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinMultisigTx(ctx context.Context, txID uint64, fn func(r uow.Repos, tx *multisig.Transaction) error) error {
	if m.WithinMultisigTxFn != nil {
		return m.WithinMultisigTxFn(ctx, txID, fn)
	}
	return errUnimplemented
}
