package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/pkg/money"
)

// Balance is one account's holding of one fungible currency.
type Balance struct {
	Account   common.Address `gorm:"primaryKey;column:account;size:20"`
	Currency  common.Address `gorm:"primaryKey;column:currency;size:20"`
	Amount    money.Amount   `gorm:"column:amount;type:varchar(80)"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Balance) TableName() string { return "ledger_balances" }

// Holding is one account's position in one NFT. Unique tokens always have Quantity 1.
type Holding struct {
	Account       common.Address `gorm:"primaryKey;column:account;size:20"`
	TokenContract common.Address `gorm:"primaryKey;column:token_contract;size:20"`
	TokenID       string         `gorm:"primaryKey;column:token_id;size:80"`
	Quantity      uint64         `gorm:"column:quantity;not null"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (Holding) TableName() string { return "nft_holdings" }

type Reason string

func (r Reason) Error() string { return string(r) }

const (
	ErrInsufficientBalance Reason = "insufficient balance"
	ErrNFTNotHeld          Reason = "nft not held"
)

// Token identifies the NFT position moved by TransferNFT.
type Token struct {
	Contract common.Address
	ID       money.Amount
	Quantity uint64
}

// Vault moves currency and NFTs between accounts. Every call participates in
// the caller's transaction.
type Vault interface {
	BalanceOf(ctx context.Context, account, currency common.Address) (money.Amount, error)
	Credit(ctx context.Context, account, currency common.Address, amount money.Amount) error
	Transfer(ctx context.Context, from, to, currency common.Address, amount money.Amount) error
	HoldingOf(ctx context.Context, account common.Address, contract common.Address, tokenID money.Amount) (uint64, error)
	MintNFT(ctx context.Context, to common.Address, tok Token) error
	TransferNFT(ctx context.Context, from, to common.Address, tok Token) error
}
