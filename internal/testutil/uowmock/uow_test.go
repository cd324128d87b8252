package uowmock

import (
	"context"
	"errors"
	"testing"

	"nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/domain/uow"
	"nftcredit-backend/internal/testutil/loanmock"
	"nftcredit-backend/internal/testutil/multisigmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	txs := &multisigmock.Repo{}
	repos := uow.Repos{Loans: loans, Multisig: txs}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Multisig != txs {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error { return sentinel },
	}
	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Defaults_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinLoanTx(ctx, 1, func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinMultisigTx(ctx, 1, func(uow.Repos, *multisig.Transaction) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinMultisigTx default: want errUnimplemented, got %v", err)
	}
}

func TestPassthrough_LocksRows(t *testing.T) {
	ctx := context.Background()
	want := &loan.Loan{ID: 7}
	wantTx := &multisig.Transaction{ID: 9}
	repos := uow.Repos{
		Loans: &loanmock.Repo{
			GetByIDForUpdateFn: func(_ context.Context, id uint64) (*loan.Loan, error) {
				if id != 7 {
					t.Fatalf("loan id mismatch: %d", id)
				}
				return want, nil
			},
		},
		Multisig: &multisigmock.Repo{
			GetByIDForUpdateFn: func(context.Context, uint64) (*multisig.Transaction, error) { return wantTx, nil },
		},
	}
	m := Passthrough(repos)

	if err := m.WithinLoanTx(ctx, 7, func(_ uow.Repos, l *loan.Loan) error {
		if l != want {
			t.Fatalf("loan not forwarded")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}
	if err := m.WithinMultisigTx(ctx, 9, func(_ uow.Repos, tx *multisig.Transaction) error {
		if tx != wantTx {
			t.Fatalf("tx not forwarded")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinMultisigTx: %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, uint64, func(uow.Repos, *loan.Loan) error) error { return nil }).
		WithWithinMultisigTx(func(context.Context, uint64, func(uow.Repos, *multisig.Transaction) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil || m.WithinMultisigTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}
	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil || m.WithinMultisigTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
