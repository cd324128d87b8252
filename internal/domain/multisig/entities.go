package multisig

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/pkg/money"
)

type Transaction struct {
	ID         uint64         `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	Submitter  common.Address `gorm:"column:submitter;size:20" json:"submitter"`
	Target     string         `gorm:"column:target;size:64;not null" json:"target"`
	Value      money.Amount   `gorm:"column:value;type:varchar(80)" json:"value"`
	Kind       string         `gorm:"column:kind;size:32;not null" json:"kind"`
	Payload    []byte         `gorm:"column:payload" json:"payload"`
	Executed   bool           `gorm:"column:executed;not null;default:false" json:"executed"`
	ExecutedAt *time.Time     `gorm:"column:executed_at" json:"executed_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "multisig_transactions" }

// Confirmation is the per-owner toggle; Confirmed=false means withdrawn.
type Confirmation struct {
	TxID      uint64         `gorm:"primaryKey;column:tx_id"`
	Owner     common.Address `gorm:"primaryKey;column:owner;size:20"`
	Confirmed bool           `gorm:"column:confirmed;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Confirmation) TableName() string { return "multisig_confirmations" }

type Reason string

func (r Reason) Error() string { return string(r) }

const (
	ErrNotOwner         Reason = "not owner"
	ErrTxNotFound       Reason = "tx does not exist"
	ErrAlreadyExecuted  Reason = "tx already executed"
	ErrAlreadyConfirmed Reason = "tx already confirmed"
	ErrNotConfirmed     Reason = "tx not confirmed"
	ErrCannotExecute    Reason = "cannot execute tx"
	ErrUnknownTarget    Reason = "unknown target"
	ErrInvalidCommand   Reason = "invalid command"
)

type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uint64) (*Transaction, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Transaction, error)
	Save(ctx context.Context, tx *Transaction) error
	GetConfirmation(ctx context.Context, txID uint64, owner common.Address) (*Confirmation, error)
	SaveConfirmation(ctx context.Context, c *Confirmation) error
	CountConfirmations(ctx context.Context, txID uint64) (int64, error)
}
