package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/ledger"
	"nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:    &LoanRepository{db: tx},
		Multisig: &MultisigRepository{db: tx},
		Vault:    &VaultRepository{db: tx},
		Events:   &EventRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loan.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinMultisigTx(ctx context.Context, txID uint64, fn func(r uow.Repos, t *multisig.Transaction) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		t, err := r.Multisig.GetByIDForUpdate(ctx, txID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return multisig.ErrTxNotFound
		}
		if err != nil {
			return err
		}
		return fn(r, t)
	})
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&loan.Loan{},
		&loan.CollateralItem{},
		&loan.Installment{},
		&loan.Settings{},
		&multisig.Transaction{},
		&multisig.Confirmation{},
		&ledger.Balance{},
		&ledger.Holding{},
		&event.Event{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
