package loan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/ledger"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/registry"
	"nftcredit-backend/internal/domain/uow"
	"nftcredit-backend/pkg/clock"
	"nftcredit-backend/pkg/money"
)

// Config carries the accounts and timing the engine runs with.
type Config struct {
	// Custody is the engine's own ledger account.
	Custody common.Address
	// Gateway is the only account allowed to forward privileged commands. It
	// also acts as the lender treasury.
	Gateway  common.Address
	Schedule domain.Schedule
	// Settings are used until a SetSettings command has been executed.
	Settings domain.Settings
}

type Usecase struct {
	uow       uow.UnitOfWork
	assets    registry.AssetRegistry
	agents    registry.AgentRegistry
	cfg       Config
	clock     clock.Clock
	publisher event.Publisher
	logger    *slog.Logger
}

func NewUsecase(tx uow.UnitOfWork, assets registry.AssetRegistry, agents registry.AgentRegistry, cfg Config) *Usecase {
	return &Usecase{
		uow:    tx,
		assets: assets,
		agents: agents,
		cfg:    cfg,
		clock:  clock.Real{},
		logger: slog.Default(),
	}
}

// SetClock overrides the time source. Tests use clock.Mock.
func (u *Usecase) SetClock(c clock.Clock) {
	if c == nil {
		c = clock.Real{}
	}
	u.clock = c
}

// SetPublisher configures where committed events are sent. Nil disables publishing.
func (u *Usecase) SetPublisher(p event.Publisher) { u.publisher = p }

func (u *Usecase) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	u.logger = l.With("component", "loan_engine")
}

func (u *Usecase) now() time.Time { return u.clock.Now().UTC() }

// Schedule returns the timing parameters; the sweeper uses them to skip loans early.
func (u *Usecase) Schedule() domain.Schedule { return u.cfg.Schedule }

// Create lists a new loan and takes the side collateral into custody. The
// payment is drawn in full and whatever exceeds the side collateral is refunded.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if !in.Rules.Valid() {
		return nil, domain.ErrInvalidRules
	}
	if len(in.NFTs) == 0 {
		return nil, domain.ErrEmptyCollateral
	}
	if in.Amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := domain.TotalDebtFor(in.Amount, in.Rules.InterestBps); err != nil {
		return nil, domain.ErrInvalidAmount
	}
	if in.Payment.LessThan(in.SideCollateral) {
		return nil, domain.ErrInsufficientAmount
	}
	if !u.assets.IsEligibleCollateral(in.Currencies.CollateralCurrency) ||
		!u.assets.IsEligibleCollateral(in.Currencies.FundingCurrency) {
		return nil, domain.ErrInvalidCurrency
	}
	items := make([]domain.CollateralItem, 0, len(in.NFTs))
	for i, n := range in.NFTs {
		item, err := collateralItem(i, n)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	now := u.now()
	l := &domain.Loan{
		Borrower:        in.Borrower,
		Rules:           in.Rules,
		Currencies:      in.Currencies,
		RequestedAmount: in.Amount,
		SideCollateral:  in.SideCollateral,
		Status:          domain.StatusListed,
		StatusUpdatedAt: now,
		Collateral:      items,
	}

	var evs []*event.Event
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.collect(ctx, r, in.Borrower, in.Currencies.CollateralCurrency, in.Payment, in.SideCollateral); err != nil {
			return err
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		evs = append(evs, event.New(event.TypeLoanCreated, now).ForLoan(l.ID).
			With("borrower", l.Borrower).
			With("amount", l.RequestedAmount).
			With("side_collateral", l.SideCollateral).
			With("nfts", len(items)))
		return r.Events.Append(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	u.logger.Info("loan created", "loan_id", l.ID, "borrower", l.Borrower.Hex())
	return toDTO(l), nil
}

func collateralItem(pos int, n NFTInput) (domain.CollateralItem, error) {
	if !n.Standard.Valid() || n.Contract == (common.Address{}) {
		return domain.CollateralItem{}, domain.ErrInvalidCollateral
	}
	qty := n.Quantity
	if qty == 0 {
		qty = 1
	}
	if n.Standard == domain.StandardUnique && qty != 1 {
		return domain.CollateralItem{}, domain.ErrInvalidCollateral
	}
	return domain.CollateralItem{
		Position:      pos,
		TokenContract: n.Contract,
		TokenID:       n.TokenID,
		Standard:      n.Standard,
		Quantity:      qty,
	}, nil
}

// Cancel withdraws a listed loan and returns the side collateral.
func (u *Usecase) Cancel(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Borrower != caller {
			return nil, domain.ErrNotBorrower
		}
		if err := transition(l, domain.StatusCancelled, now); err != nil {
			return nil, err
		}
		if err := r.Vault.Transfer(ctx, u.cfg.Custody, l.Borrower, l.Currencies.CollateralCurrency, l.SideCollateral); err != nil {
			return nil, err
		}
		return []*event.Event{event.New(event.TypeLoanCanceled, now).ForLoan(l.ID).With("borrower", l.Borrower)}, nil
	})
}

// PayInstallment applies a repayment. Reaching the total debt moves the loan
// to Paid and, when no late fee is due, releases the collateral immediately.
func (u *Usecase) PayInstallment(ctx context.Context, in PayInstallmentInput) (*LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Borrower != in.Caller {
			return nil, domain.ErrNotBorrower
		}
		if l.Status != domain.StatusActive {
			return nil, domain.ErrInvalidStatus
		}
		if in.Amount.IsZero() {
			return nil, domain.ErrInvalidAmount
		}
		if in.Payment.LessThan(in.Amount) {
			return nil, domain.ErrInsufficientAmount
		}
		repaid, err := l.AmountRepaid.Add(in.Amount)
		if err != nil || repaid.Cmp(l.TotalDebt()) > 0 {
			return nil, domain.ErrExceedsTotalDebt
		}

		inst := u.installmentFor(l, in.Amount, now)
		if err := u.collect(ctx, r, l.Borrower, l.Currencies.FundingCurrency, in.Payment, in.Amount); err != nil {
			return nil, err
		}
		if err := r.Vault.Transfer(ctx, u.cfg.Custody, u.cfg.Gateway, l.Currencies.FundingCurrency, in.Amount); err != nil {
			return nil, err
		}
		if err := r.Loans.AddInstallment(ctx, inst); err != nil {
			return nil, err
		}
		l.AmountRepaid = repaid
		if inst.Late {
			l.LatePayments++
		}
		evs := []*event.Event{event.New(event.TypeInstallmentPaid, now).ForLoan(l.ID).
			With("amount", in.Amount).
			With("amount_repaid", l.AmountRepaid).
			With("period", inst.Period).
			With("installment_no", inst.InstallmentNo).
			With("late", inst.Late)}

		if !l.FullyRepaid() {
			return evs, nil
		}
		if err := transition(l, domain.StatusPaid, now); err != nil {
			return nil, err
		}
		settings, err := u.settings(ctx, r)
		if err != nil {
			return nil, err
		}
		if u.lateFeeDue(l, settings) {
			return evs, nil
		}
		released, err := u.release(ctx, r, l, settings, now)
		if err != nil {
			return nil, err
		}
		return append(evs, released...), nil
	})
}

// installmentFor works out which period the payment lands in and whether it
// is late for the first installment it contributes to.
func (u *Usecase) installmentFor(l *domain.Loan, amount money.Amount, now time.Time) *domain.Installment {
	period := u.cfg.Schedule.TenorPeriod
	start := *l.LoanStart
	no := l.PaidInstallments() + 1
	if no > l.Rules.Tenor {
		no = l.Rules.Tenor
	}
	due := start.Add(time.Duration(no) * period)
	var idx uint32
	if period > 0 && now.After(start) {
		idx = uint32(now.Sub(start) / period)
	}
	return &domain.Installment{
		LoanID:        l.ID,
		Amount:        amount,
		Period:        idx,
		InstallmentNo: no,
		DueAt:         due,
		Late:          now.After(due.Add(u.cfg.Schedule.LateTolerance)),
		PaidAt:        now,
	}
}

// collect draws payment from payer into custody and sends back everything
// above due.
func (u *Usecase) collect(ctx context.Context, r uow.Repos, payer, currency common.Address, payment, due money.Amount) error {
	if err := r.Vault.Transfer(ctx, payer, u.cfg.Custody, currency, payment); err != nil {
		return err
	}
	if change := payment.SaturatingSub(due); !change.IsZero() {
		return r.Vault.Transfer(ctx, u.cfg.Custody, payer, currency, change)
	}
	return nil
}

func (u *Usecase) lateFeeDue(l *domain.Loan, s *domain.Settings) bool {
	return l.LatePayments > 0 && !l.PenaltyCharged && !s.LateFee.IsZero()
}

// WithdrawNFT releases the collateral of a fully repaid loan, charging the
// late fee once when any installment was late.
func (u *Usecase) WithdrawNFT(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Borrower != caller {
			return nil, domain.ErrNotBorrower
		}
		switch l.Status {
		case domain.StatusActive:
			return nil, domain.ErrStillDebtToPay
		case domain.StatusPaid:
		default:
			return nil, domain.ErrInvalidStatus
		}
		settings, err := u.settings(ctx, r)
		if err != nil {
			return nil, err
		}
		if u.lateFeeDue(l, settings) {
			if err := r.Vault.Transfer(ctx, l.Borrower, settings.FeeTo, settings.FeeCurrency, settings.LateFee); err != nil {
				return nil, err
			}
			l.PenaltyCharged = true
		}
		return u.release(ctx, r, l, settings, now)
	})
}

// release hands every NFT back to the borrower and forfeits the side
// collateral to the fee sink.
func (u *Usecase) release(ctx context.Context, r uow.Repos, l *domain.Loan, s *domain.Settings, now time.Time) ([]*event.Event, error) {
	if err := transition(l, domain.StatusWithdrawn, now); err != nil {
		return nil, err
	}
	if err := u.moveCollateral(ctx, r, l, u.cfg.Custody, l.Borrower); err != nil {
		return nil, err
	}
	if err := r.Vault.Transfer(ctx, u.cfg.Custody, s.FeeTo, l.Currencies.CollateralCurrency, l.SideCollateral); err != nil {
		return nil, err
	}
	ev := event.New(event.TypeNFTWithdrew, now).ForLoan(l.ID).
		With("borrower", l.Borrower).
		With("penalty_charged", l.PenaltyCharged)
	return []*event.Event{ev}, nil
}

// SetDefaulted marks an active loan defaulted once its tenor has elapsed.
func (u *Usecase) SetDefaulted(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Status != domain.StatusActive || l.FullyRepaid() {
			return nil, domain.ErrInvalidStatus
		}
		if now.Before(l.MaturityAt(u.cfg.Schedule.TenorPeriod)) {
			return nil, domain.ErrNotOverdue
		}
		if err := transition(l, domain.StatusDefaulted, now); err != nil {
			return nil, err
		}
		return []*event.Event{event.New(event.TypeLoanDefaulted, now).ForLoan(l.ID).
			With("outstanding", l.Outstanding())}, nil
	})
}

// SetLiquidation freezes the final debt of a defaulted loan after the grace period.
func (u *Usecase) SetLiquidation(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Status != domain.StatusDefaulted {
			return nil, domain.ErrInvalidStatus
		}
		if now.Before(l.MaturityAt(u.cfg.Schedule.TenorPeriod).Add(u.cfg.Schedule.GracePeriod)) {
			return nil, domain.ErrNotOverdue
		}
		settings, err := u.settings(ctx, r)
		if err != nil {
			return nil, err
		}
		final, err := finalDebtAndPenalty(l, settings)
		if err != nil {
			return nil, err
		}
		l.FinalDebt = final
		if err := transition(l, domain.StatusLiquidation, now); err != nil {
			return nil, err
		}
		return []*event.Event{event.New(event.TypeLoanLiquidation, now).ForLoan(l.ID).
			With("final_debt", l.FinalDebt)}, nil
	})
}

func finalDebtAndPenalty(l *domain.Loan, s *domain.Settings) (money.Amount, error) {
	final := l.Outstanding()
	if l.LatePayments == 0 {
		return final, nil
	}
	return final.Add(s.PenaltyFee)
}

// GetBackFund pays the borrower the sale surplus within the claim window.
func (u *Usecase) GetBackFund(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Borrower != caller {
			return nil, domain.ErrNotBorrower
		}
		if l.Status != domain.StatusPostLiquidation {
			return nil, domain.ErrInvalidStatus
		}
		if now.After(l.PostLiquidationAt.Add(u.cfg.Schedule.ClaimWindow)) {
			return nil, domain.ErrClaimWindowClosed
		}
		rest := l.SoldAmount.SaturatingSub(l.FinalDebt)
		if err := r.Vault.Transfer(ctx, u.cfg.Custody, l.Borrower, l.Currencies.FundingCurrency, rest); err != nil {
			return nil, err
		}
		if err := transition(l, domain.StatusRestWithdrawn, now); err != nil {
			return nil, err
		}
		return []*event.Event{event.New(event.TypeRestWithdrew, now).ForLoan(l.ID).
			With("borrower", l.Borrower).
			With("amount", rest)}, nil
	})
}

// LockRest moves an unclaimed surplus to the fee sink once the claim window is over.
func (u *Usecase) LockRest(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	return u.mutate(ctx, loanID, func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error) {
		if l.Status != domain.StatusPostLiquidation {
			return nil, domain.ErrInvalidStatus
		}
		if !now.After(l.PostLiquidationAt.Add(u.cfg.Schedule.ClaimWindow)) {
			return nil, domain.ErrClaimWindowOpen
		}
		settings, err := u.settings(ctx, r)
		if err != nil {
			return nil, err
		}
		rest := l.SoldAmount.SaturatingSub(l.FinalDebt)
		if err := r.Vault.Transfer(ctx, u.cfg.Custody, settings.FeeTo, l.Currencies.FundingCurrency, rest); err != nil {
			return nil, err
		}
		if err := transition(l, domain.StatusRestLocked, now); err != nil {
			return nil, err
		}
		return []*event.Event{event.New(event.TypeRestLocked, now).ForLoan(l.ID).With("amount", rest)}, nil
	})
}

func (u *Usecase) Get(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	var out *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByID(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		out = toDTO(l)
		return nil
	})
	return out, err
}

// Debt reports totalDebt and finalDebtAndPenalty. Once the loan has entered
// liquidation the frozen snapshot is returned.
func (u *Usecase) Debt(ctx context.Context, loanID uint64) (*DebtDTO, error) {
	var out *DebtDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByID(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		final := l.FinalDebt
		switch l.Status {
		case domain.StatusLiquidation, domain.StatusPostLiquidation, domain.StatusRestWithdrawn, domain.StatusRestLocked:
		default:
			settings, err := u.settings(ctx, r)
			if err != nil {
				return err
			}
			if final, err = finalDebtAndPenalty(l, settings); err != nil {
				return err
			}
		}
		out = &DebtDTO{
			LoanID:              l.ID,
			TotalDebt:           l.TotalDebt(),
			AmountRepaid:        l.AmountRepaid,
			Outstanding:         l.Outstanding(),
			FinalDebtAndPenalty: final,
			PaidInstallments:    l.PaidInstallments(),
		}
		return nil
	})
	return out, err
}

func (u *Usecase) Installments(ctx context.Context, loanID uint64) ([]domain.Installment, error) {
	var out []domain.Installment
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Loans.GetByID(ctx, loanID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		var err error
		out, err = r.Loans.ListInstallments(ctx, loanID)
		return err
	})
	return out, err
}

// mutate runs fn against the locked loan, saves it, records the events and
// publishes them after commit.
func (u *Usecase) mutate(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *domain.Loan, now time.Time) ([]*event.Event, error)) (*LoanDTO, error) {
	var (
		out *LoanDTO
		evs []*event.Event
	)
	now := u.now()
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		var err error
		if evs, err = fn(r, l, now); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		out = toDTO(l)
		return r.Events.Append(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return out, nil
}

// transition moves l along an edge of the state graph, or fails with invalid status.
func transition(l *domain.Loan, to domain.Status, now time.Time) error {
	if !domain.CanTransition(l.Status, to) {
		return domain.ErrInvalidStatus
	}
	l.Status = to
	l.StatusUpdatedAt = now
	return nil
}

func (u *Usecase) moveCollateral(ctx context.Context, r uow.Repos, l *domain.Loan, from, to common.Address) error {
	for _, item := range l.Collateral {
		tok := ledger.Token{Contract: item.TokenContract, ID: item.TokenID, Quantity: item.Quantity}
		if err := r.Vault.TransferNFT(ctx, from, to, tok); err != nil {
			return err
		}
	}
	return nil
}

func (u *Usecase) settings(ctx context.Context, r uow.Repos) (*domain.Settings, error) {
	s, err := r.Loans.GetSettings(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := u.cfg.Settings
		return &def, nil
	}
	return s, err
}

func (u *Usecase) publish(ctx context.Context, evs []*event.Event) {
	if u.publisher == nil {
		return
	}
	for _, ev := range evs {
		if err := u.publisher.Publish(ctx, ev); err != nil {
			u.logger.Warn("event publish failed", "type", ev.Type, "event_id", ev.EventID, "error", err)
		}
	}
}
