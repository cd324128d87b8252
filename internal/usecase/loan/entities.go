package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/pkg/money"
)

type NFTInput struct {
	Contract common.Address  `json:"contract"`
	TokenID  money.Amount    `json:"token_id"`
	Standard domain.Standard `json:"standard"`
	Quantity uint64          `json:"quantity"`
}

type CreateLoanInput struct {
	Borrower   common.Address    `json:"borrower"`
	Rules      domain.Rules      `json:"rules"`
	Currencies domain.Currencies `json:"currencies"`
	NFTs       []NFTInput        `json:"nfts"`
	// Amount is the requested principal; SideCollateral is posted in the collateral currency.
	Amount         money.Amount `json:"amount"`
	SideCollateral money.Amount `json:"side_collateral"`
	Payment        money.Amount `json:"payment"`
}

type PayInstallmentInput struct {
	Caller  common.Address
	LoanID  uint64
	Amount  money.Amount
	Payment money.Amount
}

type LoanDTO struct {
	ID                uint64                  `json:"id"`
	Borrower          common.Address          `json:"borrower"`
	Agent             common.Address          `json:"agent"`
	Rules             domain.Rules            `json:"rules"`
	Currencies        domain.Currencies       `json:"currencies"`
	Collateral        []domain.CollateralItem `json:"collateral"`
	RequestedAmount   money.Amount            `json:"requested_amount"`
	PrincipalAmount   money.Amount            `json:"principal_amount"`
	SideCollateral    money.Amount            `json:"side_collateral_amount"`
	AmountRepaid      money.Amount            `json:"amount_repaid"`
	LatePayments      uint32                  `json:"late_payments"`
	FinalDebt         money.Amount            `json:"final_debt"`
	SoldAmount        money.Amount            `json:"sold_amount"`
	LoanStart         *time.Time              `json:"loan_start,omitempty"`
	PostLiquidationAt *time.Time              `json:"post_liquidation_at,omitempty"`
	Status            domain.Status           `json:"status"`
	StatusCode        int                     `json:"status_code"`
	CreatedAt         time.Time               `json:"created_at"`
}

type DebtDTO struct {
	LoanID              uint64       `json:"loan_id"`
	TotalDebt           money.Amount `json:"total_debt"`
	AmountRepaid        money.Amount `json:"amount_repaid"`
	Outstanding         money.Amount `json:"outstanding"`
	FinalDebtAndPenalty money.Amount `json:"final_debt_and_penalty"`
	PaidInstallments    uint32       `json:"paid_installments"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		ID:                l.ID,
		Borrower:          l.Borrower,
		Agent:             l.Agent,
		Rules:             l.Rules,
		Currencies:        l.Currencies,
		Collateral:        l.Collateral,
		RequestedAmount:   l.RequestedAmount,
		PrincipalAmount:   l.PrincipalAmount,
		SideCollateral:    l.SideCollateral,
		AmountRepaid:      l.AmountRepaid,
		LatePayments:      l.LatePayments,
		FinalDebt:         l.FinalDebt,
		SoldAmount:        l.SoldAmount,
		LoanStart:         l.LoanStart,
		PostLiquidationAt: l.PostLiquidationAt,
		Status:            l.Status,
		StatusCode:        l.Status.Code(),
		CreatedAt:         l.CreatedAt,
	}
}
