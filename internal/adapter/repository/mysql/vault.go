package mysql

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftcredit-backend/internal/domain/ledger"
	"nftcredit-backend/pkg/money"
)

// VaultRepository keeps balances and NFT holdings in two tables. It must be
// bound to a transaction when used for transfers.
type VaultRepository struct{ db *gorm.DB }

func NewVaultRepository(db *gorm.DB) *VaultRepository { return &VaultRepository{db: db} }

func (r *VaultRepository) BalanceOf(ctx context.Context, account, currency common.Address) (money.Amount, error) {
	b, err := r.lockBalance(ctx, account, currency)
	if err != nil {
		return money.Zero(), err
	}
	return b.Amount, nil
}

func (r *VaultRepository) Credit(ctx context.Context, account, currency common.Address, amount money.Amount) error {
	b, err := r.lockBalance(ctx, account, currency)
	if err != nil {
		return err
	}
	if b.Amount, err = b.Amount.Add(amount); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *VaultRepository) Transfer(ctx context.Context, from, to, currency common.Address, amount money.Amount) error {
	if amount.IsZero() || from == to {
		return nil
	}
	src, err := r.lockBalance(ctx, from, currency)
	if err != nil {
		return err
	}
	if src.Amount.LessThan(amount) {
		return ledger.ErrInsufficientBalance
	}
	src.Amount = src.Amount.SaturatingSub(amount)
	if err := r.db.WithContext(ctx).Save(src).Error; err != nil {
		return err
	}
	return r.Credit(ctx, to, currency, amount)
}

// lockBalance returns the locked row, or an unsaved zero row when the account has none.
func (r *VaultRepository) lockBalance(ctx context.Context, account, currency common.Address) (*ledger.Balance, error) {
	var b ledger.Balance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ? AND currency = ?", account, currency).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ledger.Balance{Account: account, Currency: currency}, nil
	}
	return &b, err
}

func (r *VaultRepository) HoldingOf(ctx context.Context, account, contract common.Address, tokenID money.Amount) (uint64, error) {
	h, err := r.lockHolding(ctx, account, contract, tokenID)
	if err != nil {
		return 0, err
	}
	return h.Quantity, nil
}

func (r *VaultRepository) MintNFT(ctx context.Context, to common.Address, tok ledger.Token) error {
	h, err := r.lockHolding(ctx, to, tok.Contract, tok.ID)
	if err != nil {
		return err
	}
	h.Quantity += tok.Quantity
	return r.db.WithContext(ctx).Save(h).Error
}

func (r *VaultRepository) TransferNFT(ctx context.Context, from, to common.Address, tok ledger.Token) error {
	src, err := r.lockHolding(ctx, from, tok.Contract, tok.ID)
	if err != nil {
		return err
	}
	if tok.Quantity == 0 || src.Quantity < tok.Quantity {
		return ledger.ErrNFTNotHeld
	}
	src.Quantity -= tok.Quantity
	if src.Quantity == 0 {
		err = r.db.WithContext(ctx).Delete(src).Error
	} else {
		err = r.db.WithContext(ctx).Save(src).Error
	}
	if err != nil {
		return err
	}
	return r.MintNFT(ctx, to, tok)
}

func (r *VaultRepository) lockHolding(ctx context.Context, account, contract common.Address, tokenID money.Amount) (*ledger.Holding, error) {
	var h ledger.Holding
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ? AND token_contract = ? AND token_id = ?", account, contract, tokenID.String()).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ledger.Holding{Account: account, TokenContract: contract, TokenID: tokenID.String()}, nil
	}
	return &h, err
}
