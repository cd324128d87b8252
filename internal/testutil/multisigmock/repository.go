package multisigmock

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	domain "nftcredit-backend/internal/domain/multisig"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies multisig.Repository.
type Repo struct {
	CreateFn             func(ctx context.Context, tx *domain.Transaction) error
	GetByIDFn            func(ctx context.Context, id uint64) (*domain.Transaction, error)
	GetByIDForUpdateFn   func(ctx context.Context, id uint64) (*domain.Transaction, error)
	SaveFn               func(ctx context.Context, tx *domain.Transaction) error
	GetConfirmationFn    func(ctx context.Context, txID uint64, owner common.Address) (*domain.Confirmation, error)
	SaveConfirmationFn   func(ctx context.Context, c *domain.Confirmation) error
	CountConfirmationsFn func(ctx context.Context, txID uint64) (int64, error)
}

func (m *Repo) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, tx)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Transaction, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, tx *domain.Transaction) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, tx)
	}
	return nil
}

func (m *Repo) GetConfirmation(ctx context.Context, txID uint64, owner common.Address) (*domain.Confirmation, error) {
	if m.GetConfirmationFn != nil {
		return m.GetConfirmationFn(ctx, txID, owner)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveConfirmation(ctx context.Context, c *domain.Confirmation) error {
	if m.SaveConfirmationFn != nil {
		return m.SaveConfirmationFn(ctx, c)
	}
	return nil
}

func (m *Repo) CountConfirmations(ctx context.Context, txID uint64) (int64, error) {
	if m.CountConfirmationsFn != nil {
		return m.CountConfirmationsFn(ctx, txID)
	}
	return 0, nil
}
