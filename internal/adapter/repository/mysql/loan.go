package mysql

import (
	"context"

	loanDomain "nftcredit-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Create inserts the loan together with its collateral items.
func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.withCollateral(r.db.WithContext(ctx)).First(&out, id)
	return &out, res.Error
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.withCollateral(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&out, id)
	return &out, res.Error
}

func (r *LoanRepository) withCollateral(db *gorm.DB) *gorm.DB {
	return db.Preload("Collateral", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status loanDomain.Status, afterID uint64, limit int) ([]uint64, error) {
	var ids []uint64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("status = ? AND id > ?", status, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids)
	return ids, res.Error
}

func (r *LoanRepository) AddInstallment(ctx context.Context, in *loanDomain.Installment) error {
	return r.db.WithContext(ctx).Create(in).Error
}

func (r *LoanRepository) ListInstallments(ctx context.Context, loanID uint64) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("paid_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) GetSettings(ctx context.Context) (*loanDomain.Settings, error) {
	var out loanDomain.Settings
	res := r.db.WithContext(ctx).First(&out, 1)
	return &out, res.Error
}

func (r *LoanRepository) SaveSettings(ctx context.Context, s *loanDomain.Settings) error {
	s.ID = 1
	return r.db.WithContext(ctx).Save(s).Error
}
