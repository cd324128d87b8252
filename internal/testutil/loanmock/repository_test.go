package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "nftcredit-backend/internal/domain/loan"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: 1}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			called = true
			if gotCtx != ctx {
				t.Fatalf("Create ctx mismatch")
			}
			if got != l {
				t.Fatalf("Create arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// nil func is a no-op
	m = &Repo{}
	if err := m.Create(ctx, l); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByID(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{ID: 2}

	m := &Repo{
		GetByIDFn: func(_ context.Context, id uint64) (*domain.Loan, error) {
			if id != 2 {
				t.Fatalf("GetByID id mismatch: got %d", id)
			}
			return want, nil
		},
	}
	got, err := m.GetByID(ctx, 2)
	if err != nil || got != want {
		t.Fatalf("GetByID: got (%v, %v)", got, err)
	}

	m = &Repo{}
	if _, err := m.GetByID(ctx, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByID default: want context.Canceled, got %v", err)
	}
	if _, err := m.GetByIDForUpdate(ctx, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByIDForUpdate default: want context.Canceled, got %v", err)
	}
}

func TestRepo_ListByStatus(t *testing.T) {
	ctx := context.Background()
	m := &Repo{
		ListByStatusFn: func(_ context.Context, s domain.Status, after uint64, limit int) ([]uint64, error) {
			if s != domain.StatusActive || after != 2 || limit != 10 {
				t.Fatalf("ListByStatus args mismatch: %s %d %d", s, after, limit)
			}
			return []uint64{3, 4}, nil
		},
	}
	ids, err := m.ListByStatus(ctx, domain.StatusActive, 2, 10)
	if err != nil || len(ids) != 2 {
		t.Fatalf("ListByStatus: got (%v, %v)", ids, err)
	}

	m = &Repo{}
	if ids, err := m.ListByStatus(ctx, domain.StatusActive, 0, 10); err != nil || ids != nil {
		t.Fatalf("ListByStatus default: got (%v, %v)", ids, err)
	}
}

func TestRepo_Settings(t *testing.T) {
	ctx := context.Background()
	saved := false
	m := &Repo{
		GetSettingsFn:  func(context.Context) (*domain.Settings, error) { return &domain.Settings{ID: 1}, nil },
		SaveSettingsFn: func(context.Context, *domain.Settings) error { saved = true; return nil },
	}
	s, err := m.GetSettings(ctx)
	if err != nil || s.ID != 1 {
		t.Fatalf("GetSettings: got (%v, %v)", s, err)
	}
	if err := m.SaveSettings(ctx, s); err != nil || !saved {
		t.Fatalf("SaveSettings: err=%v saved=%v", err, saved)
	}
}
