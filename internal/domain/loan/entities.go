package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/pkg/money"
)

type Status string

const (
	StatusListed          Status = "listed"
	StatusApproved        Status = "approved"
	StatusActive          Status = "active"
	StatusPaid            Status = "paid"
	StatusWithdrawn       Status = "withdrawn"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
	StatusDefaulted       Status = "defaulted"
	StatusLiquidation     Status = "liquidation"
	StatusPostLiquidation Status = "post_liquidation"
	StatusRestWithdrawn   Status = "rest_withdrawn"
	StatusRestLocked      Status = "rest_locked"
)

// Code is the numeric status used by external indexers; 8 is intentionally unused.
func (s Status) Code() int {
	switch s {
	case StatusListed:
		return 1
	case StatusApproved:
		return 2
	case StatusActive:
		return 3
	case StatusPaid:
		return 4
	case StatusWithdrawn:
		return 5
	case StatusFailed:
		return 6
	case StatusCancelled:
		return 7
	case StatusDefaulted:
		return 9
	case StatusLiquidation:
		return 10
	case StatusPostLiquidation:
		return 11
	case StatusRestWithdrawn:
		return 12
	case StatusRestLocked:
		return 13
	}
	return 0
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusWithdrawn, StatusFailed, StatusCancelled, StatusRestWithdrawn, StatusRestLocked:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusListed:          {StatusApproved, StatusCancelled},
	StatusApproved:        {StatusActive, StatusFailed},
	StatusActive:          {StatusPaid, StatusDefaulted},
	StatusPaid:            {StatusWithdrawn},
	StatusDefaulted:       {StatusLiquidation},
	StatusLiquidation:     {StatusPostLiquidation},
	StatusPostLiquidation: {StatusRestWithdrawn, StatusRestLocked},
}

// CanTransition reports whether from → to is an edge of the loan state graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Rules are fixed at creation.
type Rules struct {
	Tenor       uint32 `gorm:"column:tenor;not null" json:"tenor"`
	LTVBps      uint32 `gorm:"column:ltv_bps;not null" json:"ltv_bps"`
	InterestBps uint32 `gorm:"column:interest_bps;not null" json:"interest_bps"`
}

// MaxInterestBps caps the flat interest rate at 100% of the principal.
const MaxInterestBps = money.BasisPoints

func (r Rules) Valid() bool {
	return r.Tenor >= 1 &&
		r.LTVBps > 0 && r.LTVBps <= money.BasisPoints &&
		r.InterestBps <= MaxInterestBps
}

type Currencies struct {
	FundingCurrency    common.Address `gorm:"column:funding_currency;size:20" json:"funding_currency"`
	CollateralCurrency common.Address `gorm:"column:collateral_currency;size:20" json:"collateral_currency"`
}

type Loan struct {
	ID                uint64           `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	Borrower          common.Address   `gorm:"column:borrower;size:20;index:idx_loans_borrower" json:"borrower"`
	Agent             common.Address   `gorm:"column:agent;size:20" json:"agent"`
	Rules             Rules            `gorm:"embedded" json:"rules"`
	Currencies        Currencies       `gorm:"embedded" json:"currencies"`
	RequestedAmount   money.Amount     `gorm:"column:requested_amount;type:varchar(80)" json:"requested_amount"`
	PrincipalAmount   money.Amount     `gorm:"column:principal_amount;type:varchar(80)" json:"principal_amount"`
	SideCollateral    money.Amount     `gorm:"column:side_collateral_amount;type:varchar(80)" json:"side_collateral_amount"`
	AmountRepaid      money.Amount     `gorm:"column:amount_repaid;type:varchar(80)" json:"amount_repaid"`
	LatePayments      uint32           `gorm:"column:late_payments;not null;default:0" json:"late_payments"`
	PenaltyCharged    bool             `gorm:"column:penalty_charged;not null;default:false" json:"penalty_charged"`
	FinalDebt         money.Amount     `gorm:"column:final_debt;type:varchar(80)" json:"final_debt"`
	SoldAmount        money.Amount     `gorm:"column:sold_amount;type:varchar(80)" json:"sold_amount"`
	LoanStart         *time.Time       `gorm:"column:loan_start" json:"loan_start,omitempty"`
	PostLiquidationAt *time.Time       `gorm:"column:post_liquidation_at" json:"post_liquidation_at,omitempty"`
	Status            Status           `gorm:"column:status;size:24;index:idx_loans_status;not null" json:"status"`
	StatusUpdatedAt   time.Time        `gorm:"column:status_updated_at" json:"status_updated_at"`
	Collateral        []CollateralItem `gorm:"foreignKey:LoanID;references:ID" json:"collateral"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// TotalDebtFor is principal plus flat interest at interestBps.
func TotalDebtFor(principal money.Amount, interestBps uint32) (money.Amount, error) {
	interest, err := principal.Bps(uint64(interestBps))
	if err != nil {
		return money.Amount{}, err
	}
	return principal.Add(interest)
}

// TotalDebt is principal plus flat interest; it never depends on payments.
// Approval rejects principals whose debt overflows.
func (l *Loan) TotalDebt() money.Amount {
	total, _ := TotalDebtFor(l.PrincipalAmount, l.Rules.InterestBps)
	return total
}

// Outstanding is the unpaid part of the total debt.
func (l *Loan) Outstanding() money.Amount {
	return l.TotalDebt().SaturatingSub(l.AmountRepaid)
}

func (l *Loan) FullyRepaid() bool {
	return !l.PrincipalAmount.IsZero() && l.AmountRepaid.Cmp(l.TotalDebt()) >= 0
}

// InstallmentAmount is the scheduled size of every installment but the last,
// which absorbs the remainder of totalDebt/tenor.
func (l *Loan) InstallmentAmount() money.Amount {
	return l.TotalDebt().DivUint64(uint64(l.Rules.Tenor))
}

// CoveredBy is the cumulative repayment that settles installments 1..k.
func (l *Loan) CoveredBy(k uint32) money.Amount {
	if k >= l.Rules.Tenor {
		return l.TotalDebt()
	}
	return l.InstallmentAmount().MulUint64(uint64(k))
}

// PaidInstallments is the number of scheduled installments fully covered so far.
func (l *Loan) PaidInstallments() uint32 {
	total := l.TotalDebt()
	if total.IsZero() || l.Rules.Tenor == 0 {
		return 0
	}
	if l.AmountRepaid.Cmp(total) >= 0 {
		return l.Rules.Tenor
	}
	per := l.InstallmentAmount()
	if per.IsZero() {
		return l.Rules.Tenor - 1
	}
	k := l.AmountRepaid.Quo(per).Uint64()
	if k >= uint64(l.Rules.Tenor) {
		return l.Rules.Tenor - 1
	}
	return uint32(k)
}

// MaturityAt is the end of the last scheduled period.
func (l *Loan) MaturityAt(period time.Duration) time.Time {
	if l.LoanStart == nil {
		return time.Time{}
	}
	return l.LoanStart.Add(time.Duration(l.Rules.Tenor) * period)
}

type Standard string

const (
	StandardUnique   Standard = "erc721"
	StandardFungible Standard = "erc1155"
)

func (s Standard) Valid() bool { return s == StandardUnique || s == StandardFungible }

// CollateralItem is one NFT posted for a loan, in creation order.
type CollateralItem struct {
	ID            uint64         `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	LoanID        uint64         `gorm:"column:loan_id;index;not null" json:"-"`
	Position      int            `gorm:"column:position;not null" json:"position"`
	TokenContract common.Address `gorm:"column:token_contract;size:20" json:"token_contract"`
	TokenID       money.Amount   `gorm:"column:token_id;type:varchar(80)" json:"token_id"`
	Standard      Standard       `gorm:"column:standard;size:8" json:"standard"`
	Quantity      uint64         `gorm:"column:quantity;not null;default:1" json:"quantity"`
}

func (CollateralItem) TableName() string { return "loan_collateral_items" }

// Installment records a single repayment and the billing period it landed in.
type Installment struct {
	ID            uint64       `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	LoanID        uint64       `gorm:"column:loan_id;index;not null" json:"loan_id"`
	Amount        money.Amount `gorm:"column:amount;type:varchar(80)" json:"amount"`
	Period        uint32       `gorm:"column:period;not null" json:"period"`
	InstallmentNo uint32       `gorm:"column:installment_no;not null" json:"installment_no"`
	DueAt         time.Time    `gorm:"column:due_at" json:"due_at"`
	Late          bool         `gorm:"column:late;not null;default:false" json:"late"`
	PaidAt        time.Time    `gorm:"column:paid_at" json:"paid_at"`
}

func (Installment) TableName() string { return "loan_installments" }

// Settings are the fee/sales parameters; a single row with ID 1.
type Settings struct {
	ID           uint64         `gorm:"primaryKey;column:id" json:"-"`
	FeeTo        common.Address `gorm:"column:fee_to;size:20" json:"fee_to"`
	FeeCurrency  common.Address `gorm:"column:fee_currency;size:20" json:"fee_currency"`
	LateFee      money.Amount   `gorm:"column:late_fee;type:varchar(80)" json:"late_fee"`
	PenaltyFee   money.Amount   `gorm:"column:penalty_fee;type:varchar(80)" json:"penalty_fee"`
	SalesManager common.Address `gorm:"column:sales_manager;size:20" json:"sales_manager"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Settings) TableName() string { return "loan_settings" }
