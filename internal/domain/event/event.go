package event

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nftcredit-backend/pkg/id"
)

const (
	TypeLoanCreated         = "LoanCreated"
	TypeLoanCanceled        = "LoanCanceled"
	TypeLoanApproved        = "LoanApproved"
	TypeNFTRelayed          = "NFTRelayed"
	TypeInstallmentPaid     = "InstallmentPaid"
	TypeNFTWithdrew         = "NFTWithdrew"
	TypeLoanDefaulted       = "LoanDefaulted"
	TypeLoanLiquidation     = "LoanLiquidation"
	TypeLoanPostLiquidation = "LoanPostLiquidation"
	TypeRestWithdrew        = "RestWithdrew"
	TypeRestLocked          = "RestLocked"
	TypeSettingsUpdate      = "SettingsUpdate"
	TypeDeposit             = "Deposit"
	TypeNFTDeposited        = "NFTDeposited"
	TypeSubmitTransaction   = "SubmitTransaction"
	TypeConfirmTransaction  = "ConfirmTransaction"
	TypeRevokeConfirmation  = "RevokeConfirmation"
	TypeExecuteTransaction  = "ExecuteTransaction"
)

// Event is the audit record of a state change. Attributes are flat strings so
// the row is readable without knowing the event type.
type Event struct {
	ID         uint64            `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	EventID    string            `gorm:"column:event_id;type:char(32);uniqueIndex" json:"event_id"`
	Type       string            `gorm:"column:type;size:48;index" json:"type"`
	LoanID     uint64            `gorm:"column:loan_id;index" json:"loan_id,omitempty"`
	TxID       uint64            `gorm:"column:tx_id;index" json:"tx_id,omitempty"`
	Attributes map[string]string `gorm:"column:attributes;type:text;serializer:json" json:"attributes"`
	OccurredAt time.Time         `gorm:"column:occurred_at" json:"occurred_at"`
}

func (Event) TableName() string { return "events" }

// Store appends events inside the current transaction.
type Store interface {
	Append(ctx context.Context, evs ...*Event) error
}

// Publisher ships committed events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
	Close()
}

// New starts an event of the given type.
func New(typ string, at time.Time) *Event {
	return &Event{
		EventID:    id.New(),
		Type:       typ,
		Attributes: map[string]string{},
		OccurredAt: at.UTC(),
	}
}

func (e *Event) ForLoan(loanID uint64) *Event {
	e.LoanID = loanID
	e.Attributes["loan_id"] = strconv.FormatUint(loanID, 10)
	return e
}

func (e *Event) ForTx(txID uint64) *Event {
	e.TxID = txID
	e.Attributes["tx_id"] = strconv.FormatUint(txID, 10)
	return e
}

// With sets an attribute; values are rendered with fmt's %v.
func (e *Event) With(key string, value any) *Event {
	switch v := value.(type) {
	case string:
		e.Attributes[key] = v
	case fmt.Stringer:
		e.Attributes[key] = v.String()
	default:
		e.Attributes[key] = fmt.Sprint(v)
	}
	return e
}
