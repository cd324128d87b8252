package loan

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/ledger"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/domain/uow"
	"nftcredit-backend/pkg/money"
)

// Target is the name the gateway registers the engine under.
const Target = "loan-engine"

// Execute applies a gateway-approved command inside the gateway's
// transaction. value is moved from the gateway account into custody before
// the command runs; anything the command does not spend is sent back.
func (u *Usecase) Execute(ctx context.Context, r uow.Repos, from common.Address, value money.Amount, cmd multisig.Command) ([]*event.Event, error) {
	if from != u.cfg.Gateway {
		return nil, domain.ErrNotPrivileged
	}
	if cmd == nil {
		return nil, multisig.ErrInvalidCommand
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := u.now()

	switch c := cmd.(type) {
	case multisig.SetSettings:
		if !value.IsZero() {
			return nil, domain.ErrInvalidAmount
		}
		return u.setSettings(ctx, r, c, now)
	case multisig.Deposit:
		if !value.IsZero() {
			return nil, domain.ErrInvalidAmount
		}
		return u.deposit(ctx, r, c, now)
	case multisig.DepositNFT:
		if !value.IsZero() {
			return nil, domain.ErrInvalidAmount
		}
		return u.depositNFT(ctx, r, c, now)
	}

	loanID, err := commandLoanID(cmd)
	if err != nil {
		return nil, err
	}
	l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	currency := l.Currencies.FundingCurrency
	if err := r.Vault.Transfer(ctx, from, u.cfg.Custody, currency, value); err != nil {
		return nil, err
	}

	var (
		evs   []*event.Event
		spent money.Amount
	)
	switch c := cmd.(type) {
	case multisig.ApproveLoan:
		evs, spent, err = u.approve(ctx, r, l, c, value, now)
	case multisig.RelayCollateral:
		evs, spent, err = u.relay(ctx, r, l, c, value, now)
	case multisig.PostLiquidation:
		evs, spent, err = u.postLiquidation(ctx, r, l, c, value, now)
	default:
		err = multisig.ErrInvalidCommand
	}
	if err != nil {
		return nil, err
	}
	if change := value.SaturatingSub(spent); !change.IsZero() {
		if err := r.Vault.Transfer(ctx, u.cfg.Custody, from, currency, change); err != nil {
			return nil, err
		}
	}
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}
	return evs, nil
}

func commandLoanID(cmd multisig.Command) (uint64, error) {
	switch c := cmd.(type) {
	case multisig.ApproveLoan:
		return c.LoanID, nil
	case multisig.RelayCollateral:
		return c.LoanID, nil
	case multisig.PostLiquidation:
		return c.LoanID, nil
	}
	return 0, multisig.ErrInvalidCommand
}

// approve fixes the principal and advances it to the agent for the purchase.
// The approved amount may be lower than requested, never higher.
func (u *Usecase) approve(ctx context.Context, r uow.Repos, l *domain.Loan, c multisig.ApproveLoan, value money.Amount, now time.Time) ([]*event.Event, money.Amount, error) {
	if l.Status != domain.StatusListed {
		return nil, money.Zero(), domain.ErrInvalidStatus
	}
	if !u.agents.IsAuthorizedAgent(c.Agent) {
		return nil, money.Zero(), domain.ErrInvalidAgent
	}
	if l.RequestedAmount.LessThan(c.Amount) {
		return nil, money.Zero(), domain.ErrInvalidAmount
	}
	if _, err := domain.TotalDebtFor(c.Amount, l.Rules.InterestBps); err != nil {
		return nil, money.Zero(), domain.ErrInvalidAmount
	}
	if value.LessThan(c.Amount) {
		return nil, money.Zero(), domain.ErrInsufficientAmount
	}
	if err := r.Vault.Transfer(ctx, u.cfg.Custody, c.Agent, l.Currencies.FundingCurrency, c.Amount); err != nil {
		return nil, money.Zero(), err
	}
	l.PrincipalAmount = c.Amount
	l.Agent = c.Agent
	if err := transition(l, domain.StatusApproved, now); err != nil {
		return nil, money.Zero(), err
	}
	ev := event.New(event.TypeLoanApproved, now).ForLoan(l.ID).
		With("agent", c.Agent).
		With("amount", c.Amount).
		With("total_debt", l.TotalDebt())
	return []*event.Event{ev}, c.Amount, nil
}

// relay records the outcome of the agent's purchase. On success the NFTs
// enter custody and the tenor starts; on failure the agent's refund and the
// side collateral go back to the borrower.
func (u *Usecase) relay(ctx context.Context, r uow.Repos, l *domain.Loan, c multisig.RelayCollateral, value money.Amount, now time.Time) ([]*event.Event, money.Amount, error) {
	if l.Status != domain.StatusApproved {
		return nil, money.Zero(), domain.ErrInvalidStatus
	}
	if c.Agent != l.Agent {
		return nil, money.Zero(), domain.ErrNotAgent
	}
	if !u.agents.IsAuthorizedAgent(c.Agent) {
		return nil, money.Zero(), domain.ErrInvalidAgent
	}

	if c.Success {
		if err := u.moveCollateral(ctx, r, l, c.Agent, u.cfg.Custody); err != nil {
			return nil, money.Zero(), err
		}
		start := now
		l.LoanStart = &start
		if err := transition(l, domain.StatusActive, now); err != nil {
			return nil, money.Zero(), err
		}
		ev := event.New(event.TypeNFTRelayed, now).ForLoan(l.ID).
			With("agent", c.Agent).
			With("accepted", true)
		return []*event.Event{ev}, money.Zero(), nil
	}

	if value.LessThan(l.PrincipalAmount) {
		return nil, money.Zero(), domain.ErrInsufficientAmount
	}
	if err := r.Vault.Transfer(ctx, u.cfg.Custody, l.Borrower, l.Currencies.FundingCurrency, l.PrincipalAmount); err != nil {
		return nil, money.Zero(), err
	}
	if err := r.Vault.Transfer(ctx, u.cfg.Custody, l.Borrower, l.Currencies.CollateralCurrency, l.SideCollateral); err != nil {
		return nil, money.Zero(), err
	}
	if err := transition(l, domain.StatusFailed, now); err != nil {
		return nil, money.Zero(), err
	}
	ev := event.New(event.TypeNFTRelayed, now).ForLoan(l.ID).
		With("agent", c.Agent).
		With("accepted", false)
	return []*event.Event{ev}, l.PrincipalAmount, nil
}

// postLiquidation books the sale proceeds: the lender is repaid up to the
// frozen final debt, the NFTs leave custody to the sales identity and the
// surplus stays in custody until the borrower claims it.
func (u *Usecase) postLiquidation(ctx context.Context, r uow.Repos, l *domain.Loan, c multisig.PostLiquidation, value money.Amount, now time.Time) ([]*event.Event, money.Amount, error) {
	if l.Status != domain.StatusLiquidation {
		return nil, money.Zero(), domain.ErrInvalidStatus
	}
	settings, err := u.settings(ctx, r)
	if err != nil {
		return nil, money.Zero(), err
	}
	if c.SalesAgent != l.Agent && c.SalesAgent != settings.SalesManager {
		return nil, money.Zero(), domain.ErrNotSalesAgent
	}
	if value.LessThan(c.SoldAmount) {
		return nil, money.Zero(), domain.ErrInsufficientAmount
	}
	if err := r.Vault.Transfer(ctx, u.cfg.Custody, u.cfg.Gateway, l.Currencies.FundingCurrency, money.Min(c.SoldAmount, l.FinalDebt)); err != nil {
		return nil, money.Zero(), err
	}
	if err := u.moveCollateral(ctx, r, l, u.cfg.Custody, c.SalesAgent); err != nil {
		return nil, money.Zero(), err
	}
	l.SoldAmount = c.SoldAmount
	at := now
	l.PostLiquidationAt = &at
	if err := transition(l, domain.StatusPostLiquidation, now); err != nil {
		return nil, money.Zero(), err
	}
	ev := event.New(event.TypeLoanPostLiquidation, now).ForLoan(l.ID).
		With("sold_amount", c.SoldAmount).
		With("final_debt", l.FinalDebt).
		With("sales_agent", c.SalesAgent)
	return []*event.Event{ev}, c.SoldAmount, nil
}

func (u *Usecase) setSettings(ctx context.Context, r uow.Repos, c multisig.SetSettings, now time.Time) ([]*event.Event, error) {
	s := &domain.Settings{
		FeeTo:        c.FeeTo,
		FeeCurrency:  c.FeeCurrency,
		LateFee:      c.LateFee,
		PenaltyFee:   c.PenaltyFee,
		SalesManager: c.SalesManager,
	}
	if err := r.Loans.SaveSettings(ctx, s); err != nil {
		return nil, err
	}
	ev := event.New(event.TypeSettingsUpdate, now).
		With("fee_to", c.FeeTo).
		With("late_fee", c.LateFee).
		With("penalty_fee", c.PenaltyFee).
		With("sales_manager", c.SalesManager)
	return []*event.Event{ev}, nil
}

// deposit books currency that reached the platform outside the ledger.
func (u *Usecase) deposit(ctx context.Context, r uow.Repos, c multisig.Deposit, now time.Time) ([]*event.Event, error) {
	if !u.assets.IsEligibleCollateral(c.Currency) {
		return nil, domain.ErrInvalidCurrency
	}
	if err := r.Vault.Credit(ctx, c.Account, c.Currency, c.Amount); err != nil {
		return nil, err
	}
	ev := event.New(event.TypeDeposit, now).
		With("account", c.Account).
		With("currency", c.Currency).
		With("amount", c.Amount)
	return []*event.Event{ev}, nil
}

func (u *Usecase) depositNFT(ctx context.Context, r uow.Repos, c multisig.DepositNFT, now time.Time) ([]*event.Event, error) {
	tok := ledger.Token{Contract: c.Contract, ID: c.TokenID, Quantity: c.Quantity}
	if err := r.Vault.MintNFT(ctx, c.Account, tok); err != nil {
		return nil, err
	}
	ev := event.New(event.TypeNFTDeposited, now).
		With("account", c.Account).
		With("contract", c.Contract).
		With("token_id", c.TokenID).
		With("quantity", c.Quantity)
	return []*event.Event{ev}, nil
}
