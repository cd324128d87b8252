package loan

// Reason is a stable failure reason. The text is part of the public contract:
// clients and tests match on it.
type Reason string

func (r Reason) Error() string { return string(r) }

const (
	ErrNotFound           Reason = "loan not found"
	ErrInvalidStatus      Reason = "invalid status"
	ErrInvalidCurrency    Reason = "invalid currency"
	ErrEmptyCollateral    Reason = "empty collateral"
	ErrInvalidCollateral  Reason = "invalid collateral"
	ErrInvalidRules       Reason = "invalid rules"
	ErrInvalidAmount      Reason = "invalid amount"
	ErrInsufficientAmount Reason = "insufficient amount"
	ErrNotBorrower        Reason = "not borrower"
	ErrInvalidAgent       Reason = "invalid agent"
	ErrNotAgent           Reason = "not agent"
	ErrNotSalesAgent      Reason = "not sales agent"
	ErrExceedsTotalDebt   Reason = "exceeds total debt"
	ErrStillDebtToPay     Reason = "still debt to pay"
	ErrNotOverdue         Reason = "not overdue yet"
	ErrClaimWindowClosed  Reason = "claim window closed"
	ErrClaimWindowOpen    Reason = "claim window open"
	ErrNotPrivileged      Reason = "not privileged"
)

// Kind groups reasons for transport mapping.
type Kind int

const (
	KindState Kind = iota
	KindParam
	KindAuth
	KindNotFound
)

func (r Reason) Kind() Kind {
	switch r {
	case ErrNotFound:
		return KindNotFound
	case ErrNotBorrower, ErrNotAgent, ErrNotSalesAgent, ErrInvalidAgent, ErrNotPrivileged:
		return KindAuth
	case ErrInvalidCurrency, ErrEmptyCollateral, ErrInvalidCollateral, ErrInvalidRules, ErrInvalidAmount:
		return KindParam
	}
	return KindState
}
