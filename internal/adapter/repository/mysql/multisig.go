package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftcredit-backend/internal/domain/multisig"
)

type MultisigRepository struct{ db *gorm.DB }

func NewMultisigRepository(db *gorm.DB) *MultisigRepository { return &MultisigRepository{db: db} }

func (r *MultisigRepository) Create(ctx context.Context, tx *multisig.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *MultisigRepository) Save(ctx context.Context, tx *multisig.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

func (r *MultisigRepository) GetByID(ctx context.Context, id uint64) (*multisig.Transaction, error) {
	var out multisig.Transaction
	res := r.db.WithContext(ctx).First(&out, id)
	return &out, res.Error
}

func (r *MultisigRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*multisig.Transaction, error) {
	var out multisig.Transaction
	res := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, id)
	return &out, res.Error
}

func (r *MultisigRepository) GetConfirmation(ctx context.Context, txID uint64, owner common.Address) (*multisig.Confirmation, error) {
	var out multisig.Confirmation
	res := r.db.WithContext(ctx).
		Where("tx_id = ? AND owner = ?", txID, owner).
		First(&out)
	return &out, res.Error
}

func (r *MultisigRepository) SaveConfirmation(ctx context.Context, c *multisig.Confirmation) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *MultisigRepository) CountConfirmations(ctx context.Context, txID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&multisig.Confirmation{}).
		Where("tx_id = ? AND confirmed = ?", txID, true).
		Count(&n)
	return n, res.Error
}
