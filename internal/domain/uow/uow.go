package uow

import (
	"context"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/ledger"
	"nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
)

type Repos struct {
	Loans    loan.Repository
	Multisig multisig.Repository
	Vault    ledger.Vault
	Events   event.Store
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
	// lock multisig transaction first, then pass it in
	WithinMultisigTx(ctx context.Context, txID uint64, fn func(r Repos, tx *multisig.Transaction) error) error
}
