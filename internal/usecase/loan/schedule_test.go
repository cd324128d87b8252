package loan

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/ledger"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/pkg/money"
)

var fungibleNFT = common.HexToAddress("0x5000000000000000000000000000000000000002")

func (f *fixture) holdingOf(account, contract common.Address, tokenID uint64) uint64 {
	f.t.Helper()
	var out uint64
	f.vault(func(v ledger.Vault) error {
		var err error
		out, err = v.HoldingOf(f.ctx, account, contract, money.New(tokenID))
		return err
	})
	return out
}

// activeLoanWith creates a loan for principal over nfts, approves the full
// amount and relays it; the tenor starts at the current mock time.
func (f *fixture) activeLoanWith(principal money.Amount, nfts []NFTInput) uint64 {
	f.t.Helper()
	side := money.MustParse("100000000000000000")
	dto, err := f.uc.Create(f.ctx, CreateLoanInput{
		Borrower:       borrower,
		Rules:          domain.Rules{Tenor: 6, LTVBps: 2500, InterestBps: 300},
		Currencies:     domain.Currencies{FundingCurrency: eth, CollateralCurrency: eth},
		NFTs:           nfts,
		Amount:         principal,
		SideCollateral: side,
		Payment:        side,
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.privileged(gateway, principal, multisig.ApproveLoan{LoanID: dto.ID, Amount: principal, Agent: agent}))
	require.NoError(f.t, f.privileged(gateway, money.Zero(), multisig.RelayCollateral{LoanID: dto.ID, Agent: agent, Success: true}))
	return dto.ID
}

func TestPayInstallment_NonDivisibleDebtStaysOnTime(t *testing.T) {
	f := newFixture(t)
	id := f.activeLoanWith(money.Ether(1), []NFTInput{{Contract: nftAddr, TokenID: money.New(7), Standard: domain.StandardUnique}})
	start := f.clock.Now()

	// 1.03e18 does not split evenly into six installments
	for k := 1; k <= 5; k++ {
		f.clock.Set(start.Add(time.Duration(k)*period - day))
		require.NoError(t, f.pay(id, "171666666666666666"), "installment %d", k)
	}
	f.clock.Set(start.Add(6*period - day))
	require.NoError(t, f.pay(id, "171666666666666670"))

	insts, err := f.uc.Installments(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, insts, 6)
	for i, in := range insts {
		assert.Equal(t, uint32(i+1), in.InstallmentNo, "payment %d", i+1)
		assert.True(t, start.Add(time.Duration(i+1)*period).Equal(in.DueAt), "payment %d due %s", i+1, in.DueAt)
		assert.False(t, in.Late, "payment %d", i+1)
	}

	dto, err := f.uc.Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, dto.Status)
	assert.Zero(t, dto.LatePayments)
	assert.Equal(t, uint64(1), f.holding(borrower))
}

func TestPayInstallment_FourthPaymentLateness(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		late   bool
	}{
		{"at tolerance boundary", 3 * day, false},
		{"past tolerance", 3*day + time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.activeLoan()
			start := f.clock.Now()

			for k := 1; k <= 3; k++ {
				f.clock.Set(start.Add(time.Duration(k)*period - day))
				require.NoError(t, f.pay(id, "206000000000000000"))
			}
			f.clock.Set(start.Add(4*period + tt.offset))
			require.NoError(t, f.pay(id, "206000000000000000"))

			insts, err := f.uc.Installments(f.ctx, id)
			require.NoError(t, err)
			require.Len(t, insts, 4)
			assert.Equal(t, uint32(4), insts[3].InstallmentNo)
			assert.Equal(t, tt.late, insts[3].Late)

			_, err = f.uc.WithdrawNFT(f.ctx, borrower, id)
			assert.EqualError(t, err, "still debt to pay")

			require.NoError(t, f.pay(id, "412000000000000000"))
			if !tt.late {
				assert.Equal(t, domain.StatusWithdrawn, f.status(id))
				assert.Equal(t, "100000000000000000", f.balance(feeTo).String())
				return
			}
			assert.Equal(t, domain.StatusPaid, f.status(id))
			_, err = f.uc.WithdrawNFT(f.ctx, borrower, id)
			require.NoError(t, err)
			// side collateral plus the late fee, charged once
			assert.Equal(t, "110000000000000000", f.balance(feeTo).String())
			assert.Equal(t, uint64(1), f.holding(borrower))
		})
	}
}

func TestPartialRepaymentThenLiquidation_MultiNFT(t *testing.T) {
	f := newFixture(t)
	f.vault(func(v ledger.Vault) error {
		if err := v.MintNFT(f.ctx, agent, ledger.Token{Contract: nftAddr, ID: money.New(8), Quantity: 1}); err != nil {
			return err
		}
		return v.MintNFT(f.ctx, agent, ledger.Token{Contract: fungibleNFT, ID: money.New(9), Quantity: 5})
	})
	supply := f.supply()
	nfts := []NFTInput{
		{Contract: nftAddr, TokenID: money.New(7), Standard: domain.StandardUnique},
		{Contract: nftAddr, TokenID: money.New(8), Standard: domain.StandardUnique},
		{Contract: fungibleNFT, TokenID: money.New(9), Standard: domain.StandardFungible, Quantity: 5},
	}
	id := f.activeLoanWith(money.MustParse("1200000000000000000"), nfts)
	start := f.clock.Now()
	assert.Equal(t, uint64(1), f.holdingOf(custody, nftAddr, 7))
	assert.Equal(t, uint64(1), f.holdingOf(custody, nftAddr, 8))
	assert.Equal(t, uint64(5), f.holdingOf(custody, fungibleNFT, 9))
	assert.Zero(t, f.holdingOf(agent, fungibleNFT, 9))

	for k := 1; k <= 3; k++ {
		f.clock.Set(start.Add(time.Duration(k)*period - day))
		require.NoError(t, f.pay(id, "206000000000000000"))
	}

	f.clock.Set(start.Add(6*period + 14*day))
	_, err := f.uc.SetDefaulted(f.ctx, id)
	require.NoError(t, err)
	_, err = f.uc.SetLiquidation(f.ctx, id)
	require.NoError(t, err)

	debt, err := f.uc.Debt(f.ctx, id)
	require.NoError(t, err)
	// three unpaid installments of 0.206e18, no penalty
	assert.Equal(t, "618000000000000000", debt.FinalDebtAndPenalty.String())
	assert.Equal(t, uint32(3), debt.PaidInstallments)

	sold := money.Ether(2)
	require.NoError(t, f.privileged(gateway, sold, multisig.PostLiquidation{LoanID: id, SoldAmount: sold, SalesAgent: salesMgr}))
	assert.Equal(t, uint64(1), f.holdingOf(salesMgr, nftAddr, 7))
	assert.Equal(t, uint64(1), f.holdingOf(salesMgr, nftAddr, 8))
	assert.Equal(t, uint64(5), f.holdingOf(salesMgr, fungibleNFT, 9))
	assert.Zero(t, f.holdingOf(custody, fungibleNFT, 9))

	before := f.balance(borrower)
	_, err = f.uc.GetBackFund(f.ctx, borrower, id)
	require.NoError(t, err)
	got, err := f.balance(borrower).Sub(before)
	require.NoError(t, err)
	assert.Equal(t, "1382000000000000000", got.String())
	assert.Equal(t, supply, f.supply())

	f.pub.mu.Lock()
	last := f.pub.events[len(f.pub.events)-1]
	f.pub.mu.Unlock()
	assert.Equal(t, event.TypeRestWithdrew, last.Type)
	assert.Equal(t, "1382000000000000000", last.Attributes["amount"])
}

func TestWithdraw_ReturnsFungibleQuantity(t *testing.T) {
	f := newFixture(t)
	f.vault(func(v ledger.Vault) error {
		return v.MintNFT(f.ctx, agent, ledger.Token{Contract: fungibleNFT, ID: money.New(9), Quantity: 5})
	})
	nfts := []NFTInput{
		{Contract: nftAddr, TokenID: money.New(7), Standard: domain.StandardUnique},
		{Contract: fungibleNFT, TokenID: money.New(9), Standard: domain.StandardFungible, Quantity: 5},
	}
	id := f.activeLoanWith(money.MustParse("1200000000000000000"), nfts)
	require.NoError(t, f.pay(id, "1236000000000000000"))

	assert.Equal(t, domain.StatusWithdrawn, f.status(id))
	assert.Equal(t, uint64(1), f.holdingOf(borrower, nftAddr, 7))
	assert.Equal(t, uint64(5), f.holdingOf(borrower, fungibleNFT, 9))
	assert.Zero(t, f.holdingOf(custody, fungibleNFT, 9))
}

func TestPayment_ExcessIsRefunded(t *testing.T) {
	f := newFixture(t)

	dto, err := f.uc.Create(f.ctx, CreateLoanInput{
		Borrower:       borrower,
		Rules:          domain.Rules{Tenor: 6, LTVBps: 2500, InterestBps: 300},
		Currencies:     domain.Currencies{FundingCurrency: eth, CollateralCurrency: eth},
		NFTs:           []NFTInput{{Contract: nftAddr, TokenID: money.New(7), Standard: domain.StandardUnique}},
		Amount:         money.MustParse("1200000000000000000"),
		SideCollateral: money.MustParse("100000000000000000"),
		Payment:        money.Ether(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "9900000000000000000", f.balance(borrower).String())
	assert.Equal(t, "100000000000000000", f.balance(custody).String())

	principal := money.MustParse("1200000000000000000")
	require.NoError(t, f.privileged(gateway, principal, multisig.ApproveLoan{LoanID: dto.ID, Amount: principal, Agent: agent}))
	require.NoError(t, f.privileged(gateway, money.Zero(), multisig.RelayCollateral{LoanID: dto.ID, Agent: agent, Success: true}))

	gatewayBefore := f.balance(gateway)
	_, err = f.uc.PayInstallment(f.ctx, PayInstallmentInput{Caller: borrower, LoanID: dto.ID, Amount: money.MustParse("206000000000000000"), Payment: money.Ether(1)})
	require.NoError(t, err)
	assert.Equal(t, "9694000000000000000", f.balance(borrower).String())
	assert.Equal(t, "100000000000000000", f.balance(custody).String())
	received, err := f.balance(gateway).Sub(gatewayBefore)
	require.NoError(t, err)
	assert.Equal(t, "206000000000000000", received.String())

	// the whole payment must be available even though only the amount is kept
	_, err = f.uc.PayInstallment(f.ctx, PayInstallmentInput{Caller: borrower, LoanID: dto.ID, Amount: money.New(1), Payment: money.Ether(100)})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, "9694000000000000000", f.balance(borrower).String())
}

func TestApprove_CannotExceedRequestedAmount(t *testing.T) {
	f := newFixture(t)
	dto := f.createLoan()
	tooMuch := money.MustParse("1200000000000000001")

	err := f.privileged(gateway, tooMuch, multisig.ApproveLoan{LoanID: dto.ID, Amount: tooMuch, Agent: agent})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, domain.StatusListed, f.status(dto.ID))

	lower := money.Ether(1)
	require.NoError(t, f.privileged(gateway, lower, multisig.ApproveLoan{LoanID: dto.ID, Amount: lower, Agent: agent}))
	got, err := f.uc.Get(f.ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, lower, got.PrincipalAmount)
}

func TestCreate_RejectsOutOfRangeDebt(t *testing.T) {
	f := newFixture(t)
	base := CreateLoanInput{
		Borrower:       borrower,
		Rules:          domain.Rules{Tenor: 6, LTVBps: 2500, InterestBps: 300},
		Currencies:     domain.Currencies{FundingCurrency: eth, CollateralCurrency: eth},
		NFTs:           []NFTInput{{Contract: nftAddr, TokenID: money.New(7), Standard: domain.StandardUnique}},
		Amount:         money.Ether(1),
		SideCollateral: money.MustParse("100000000000000000"),
		Payment:        money.MustParse("100000000000000000"),
	}

	in := base
	in.Rules.InterestBps = domain.MaxInterestBps + 1
	_, err := f.uc.Create(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidRules)

	in = base
	in.Amount = money.MustParse("115000000000000000000000000000000000000000000000000000000000000000000000000000")
	_, err = f.uc.Create(f.ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, money.Ether(10), f.balance(borrower))
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	newcomer := common.HexToAddress("0x1000000000000000000000000000000000000099")

	require.NoError(t, f.privileged(gateway, money.Zero(), multisig.Deposit{Account: newcomer, Currency: eth, Amount: money.Ether(3)}))
	assert.Equal(t, money.Ether(3), f.balance(newcomer))

	err := f.privileged(gateway, money.Zero(), multisig.Deposit{Account: newcomer, Currency: nftAddr, Amount: money.Ether(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	err = f.privileged(gateway, money.New(1), multisig.Deposit{Account: newcomer, Currency: eth, Amount: money.Ether(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = f.privileged(stranger, money.Zero(), multisig.Deposit{Account: stranger, Currency: eth, Amount: money.Ether(3)})
	assert.ErrorIs(t, err, domain.ErrNotPrivileged)
	assert.True(t, f.balance(stranger).IsZero())

	require.NoError(t, f.privileged(gateway, money.Zero(), multisig.DepositNFT{Account: newcomer, Contract: fungibleNFT, TokenID: money.New(9), Quantity: 4}))
	assert.Equal(t, uint64(4), f.holdingOf(newcomer, fungibleNFT, 9))
}
