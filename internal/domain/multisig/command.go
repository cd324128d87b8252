package multisig

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/pkg/money"
)

// Command kinds. The set is closed: a transaction can only carry one of these.
const (
	KindApproveLoan     = "approve_loan"
	KindRelayCollateral = "relay_collateral"
	KindPostLiquidation = "post_liquidation"
	KindSetSettings     = "set_settings"
	KindDeposit         = "deposit"
	KindDepositNFT      = "deposit_nft"
)

// Command is a privileged call the gateway may forward to its target.
type Command interface {
	Kind() string
	Validate() error
}

type ApproveLoan struct {
	LoanID uint64         `json:"loan_id"`
	Amount money.Amount   `json:"amount"`
	Agent  common.Address `json:"agent"`
}

func (ApproveLoan) Kind() string { return KindApproveLoan }

func (c ApproveLoan) Validate() error {
	if c.LoanID == 0 || c.Amount.IsZero() || c.Agent == (common.Address{}) {
		return ErrInvalidCommand
	}
	return nil
}

type RelayCollateral struct {
	LoanID  uint64         `json:"loan_id"`
	Agent   common.Address `json:"agent"`
	Success bool           `json:"success"`
}

func (RelayCollateral) Kind() string { return KindRelayCollateral }

func (c RelayCollateral) Validate() error {
	if c.LoanID == 0 || c.Agent == (common.Address{}) {
		return ErrInvalidCommand
	}
	return nil
}

type PostLiquidation struct {
	LoanID     uint64         `json:"loan_id"`
	SoldAmount money.Amount   `json:"sold_amount"`
	SalesAgent common.Address `json:"sales_agent"`
}

func (PostLiquidation) Kind() string { return KindPostLiquidation }

func (c PostLiquidation) Validate() error {
	if c.LoanID == 0 || c.SoldAmount.IsZero() || c.SalesAgent == (common.Address{}) {
		return ErrInvalidCommand
	}
	return nil
}

type SetSettings struct {
	FeeTo        common.Address `json:"fee_to"`
	FeeCurrency  common.Address `json:"fee_currency"`
	LateFee      money.Amount   `json:"late_fee"`
	PenaltyFee   money.Amount   `json:"penalty_fee"`
	SalesManager common.Address `json:"sales_manager"`
}

func (SetSettings) Kind() string { return KindSetSettings }

func (c SetSettings) Validate() error {
	if c.FeeTo == (common.Address{}) || c.SalesManager == (common.Address{}) {
		return ErrInvalidCommand
	}
	return nil
}

// Deposit credits currency that arrived off-ledger to account.
type Deposit struct {
	Account  common.Address `json:"account"`
	Currency common.Address `json:"currency"`
	Amount   money.Amount   `json:"amount"`
}

func (Deposit) Kind() string { return KindDeposit }

func (c Deposit) Validate() error {
	if c.Account == (common.Address{}) || c.Currency == (common.Address{}) || c.Amount.IsZero() {
		return ErrInvalidCommand
	}
	return nil
}

// DepositNFT records an NFT bridged into the ledger for account.
type DepositNFT struct {
	Account  common.Address `json:"account"`
	Contract common.Address `json:"contract"`
	TokenID  money.Amount   `json:"token_id"`
	Quantity uint64         `json:"quantity"`
}

func (DepositNFT) Kind() string { return KindDepositNFT }

func (c DepositNFT) Validate() error {
	if c.Account == (common.Address{}) || c.Contract == (common.Address{}) || c.Quantity == 0 {
		return ErrInvalidCommand
	}
	return nil
}

// Encode validates cmd and returns its kind and JSON payload.
func Encode(cmd Command) (string, []byte, error) {
	if cmd == nil {
		return "", nil, ErrInvalidCommand
	}
	if err := cmd.Validate(); err != nil {
		return "", nil, err
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	return cmd.Kind(), b, nil
}

// Decode rebuilds a validated command from its stored form.
func Decode(kind string, payload []byte) (Command, error) {
	var cmd Command
	switch kind {
	case KindApproveLoan:
		var c ApproveLoan
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	case KindRelayCollateral:
		var c RelayCollateral
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	case KindPostLiquidation:
		var c PostLiquidation
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	case KindSetSettings:
		var c SetSettings
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	case KindDeposit:
		var c Deposit
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	case KindDepositNFT:
		var c DepositNFT
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, ErrInvalidCommand
		}
		cmd = c
	default:
		return nil, ErrInvalidCommand
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Command returns the decoded command carried by the transaction.
func (t *Transaction) Command() (Command, error) { return Decode(t.Kind, t.Payload) }
