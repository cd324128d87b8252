package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"nftcredit-backend/internal/domain/ledger"
	"nftcredit-backend/pkg/money"
)

var testCustody = common.HexToAddress("0x3000000000000000000000000000000000000001")

func TestVault_CreditAndTransfer(t *testing.T) {
	v := NewVaultRepository(openTestDB(t))
	ctx := context.Background()

	if bal, err := v.BalanceOf(ctx, testBorrower, testETH); err != nil || !bal.IsZero() {
		t.Fatalf("unknown account should hold zero, got %s %v", bal, err)
	}
	if err := v.Credit(ctx, testBorrower, testETH, money.New(100)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Credit(ctx, testBorrower, testETH, money.New(50)); err != nil {
		t.Fatalf("Credit again: %v", err)
	}
	if err := v.Transfer(ctx, testBorrower, testCustody, testETH, money.New(120)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	from, _ := v.BalanceOf(ctx, testBorrower, testETH)
	to, _ := v.BalanceOf(ctx, testCustody, testETH)
	if from.String() != "30" || to.String() != "120" {
		t.Fatalf("balances after transfer: from=%s to=%s", from, to)
	}

	if err := v.Transfer(ctx, testBorrower, testCustody, testETH, money.New(31)); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("overdraw => want ErrInsufficientBalance, got %v", err)
	}
	if err := v.Transfer(ctx, testNFT, testCustody, testETH, money.Zero()); err != nil {
		t.Fatalf("zero transfer should be a no-op, got %v", err)
	}
	other, _ := v.BalanceOf(ctx, testBorrower, testNFT)
	if !other.IsZero() {
		t.Fatalf("balances must be per currency, got %s", other)
	}
}

func TestVault_NFTs(t *testing.T) {
	db := openTestDB(t)
	v := NewVaultRepository(db)
	ctx := context.Background()

	unique := ledger.Token{Contract: testNFT, ID: money.New(7), Quantity: 1}
	editions := ledger.Token{Contract: testNFT, ID: money.New(9), Quantity: 5}
	if err := v.MintNFT(ctx, testBorrower, unique); err != nil {
		t.Fatalf("MintNFT: %v", err)
	}
	if err := v.MintNFT(ctx, testBorrower, editions); err != nil {
		t.Fatalf("MintNFT editions: %v", err)
	}

	if err := v.TransferNFT(ctx, testBorrower, testCustody, unique); err != nil {
		t.Fatalf("TransferNFT: %v", err)
	}
	if n, _ := v.HoldingOf(ctx, testBorrower, testNFT, money.New(7)); n != 0 {
		t.Fatalf("sender still holds token: %d", n)
	}
	if n, _ := v.HoldingOf(ctx, testCustody, testNFT, money.New(7)); n != 1 {
		t.Fatalf("receiver holding = %d, want 1", n)
	}
	var rows int64
	db.Model(&ledger.Holding{}).Where("account = ? AND token_id = ?", testBorrower, "7").Count(&rows)
	if rows != 0 {
		t.Fatalf("empty holding row should be removed, found %d", rows)
	}

	part := ledger.Token{Contract: testNFT, ID: money.New(9), Quantity: 2}
	if err := v.TransferNFT(ctx, testBorrower, testCustody, part); err != nil {
		t.Fatalf("partial TransferNFT: %v", err)
	}
	if n, _ := v.HoldingOf(ctx, testBorrower, testNFT, money.New(9)); n != 3 {
		t.Fatalf("sender editions = %d, want 3", n)
	}

	if err := v.TransferNFT(ctx, testBorrower, testCustody, unique); !errors.Is(err, ledger.ErrNFTNotHeld) {
		t.Fatalf("transfer of unheld token => want ErrNFTNotHeld, got %v", err)
	}
	if err := v.TransferNFT(ctx, testBorrower, testCustody, ledger.Token{Contract: testNFT, ID: money.New(9)}); !errors.Is(err, ledger.ErrNFTNotHeld) {
		t.Fatalf("zero quantity => want ErrNFTNotHeld, got %v", err)
	}
}
