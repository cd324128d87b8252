package mysql

import (
	"context"

	"gorm.io/gorm"

	"nftcredit-backend/internal/domain/event"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Append(ctx context.Context, evs ...*event.Event) error {
	if len(evs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(evs).Error
}

// ListByLoan returns the audit trail of a loan in insertion order.
func (r *EventRepository) ListByLoan(ctx context.Context, loanID uint64) ([]event.Event, error) {
	var out []event.Event
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id ASC").Find(&out)
	return out, res.Error
}
