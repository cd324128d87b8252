package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"nftcredit-backend/internal/domain/event"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/domain/uow"
	"nftcredit-backend/pkg/clock"
	"nftcredit-backend/pkg/money"
)

// Executor is a target the gateway forwards approved commands to. It runs
// inside the gateway's transaction.
type Executor interface {
	Execute(ctx context.Context, r uow.Repos, from common.Address, value money.Amount, cmd multisig.Command) ([]*event.Event, error)
}

// Config fixes the owner set and threshold for the lifetime of the process.
type Config struct {
	// Address is the gateway's ledger account; forwarded value is drawn from it.
	Address   common.Address
	Owners    []common.Address
	Threshold int
}

func (c Config) Validate() error {
	if len(c.Owners) == 0 {
		return errors.New("gateway: no owners")
	}
	if c.Threshold <= 0 || c.Threshold > len(c.Owners) {
		return fmt.Errorf("gateway: threshold %d out of range 1..%d", c.Threshold, len(c.Owners))
	}
	seen := make(map[common.Address]struct{}, len(c.Owners))
	for _, o := range c.Owners {
		if o == (common.Address{}) {
			return errors.New("gateway: zero owner address")
		}
		if _, dup := seen[o]; dup {
			return fmt.Errorf("gateway: duplicate owner %s", o.Hex())
		}
		seen[o] = struct{}{}
	}
	return nil
}

type Usecase struct {
	uow       uow.UnitOfWork
	cfg       Config
	owners    map[common.Address]struct{}
	targets   map[string]Executor
	clock     clock.Clock
	publisher event.Publisher
	logger    *slog.Logger
	onExecute func(outcome string)
}

func NewUsecase(tx uow.UnitOfWork, cfg Config) (*Usecase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	owners := make(map[common.Address]struct{}, len(cfg.Owners))
	for _, o := range cfg.Owners {
		owners[o] = struct{}{}
	}
	return &Usecase{
		uow:     tx,
		cfg:     cfg,
		owners:  owners,
		targets: map[string]Executor{},
		clock:   clock.Real{},
		logger:  slog.Default(),
	}, nil
}

// Register makes target reachable by submitted transactions.
func (u *Usecase) Register(target string, ex Executor) { u.targets[target] = ex }

func (u *Usecase) SetClock(c clock.Clock) {
	if c == nil {
		c = clock.Real{}
	}
	u.clock = c
}

func (u *Usecase) SetPublisher(p event.Publisher) { u.publisher = p }

func (u *Usecase) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	u.logger = l.With("component", "multisig_gateway")
}

// OnExecute registers a hook called with "success" or "failure" after each execution attempt.
func (u *Usecase) OnExecute(fn func(outcome string)) { u.onExecute = fn }

func (u *Usecase) IsOwner(a common.Address) bool {
	_, ok := u.owners[a]
	return ok
}

func (u *Usecase) Threshold() int { return u.cfg.Threshold }

// Submit admits a validated command for confirmation.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*TransactionDTO, error) {
	if !u.IsOwner(in.Caller) {
		return nil, multisig.ErrNotOwner
	}
	if _, ok := u.targets[in.Target]; !ok {
		return nil, multisig.ErrUnknownTarget
	}
	kind, payload, err := multisig.Encode(in.Command)
	if err != nil {
		return nil, err
	}
	now := u.clock.Now()
	tx := &multisig.Transaction{
		Submitter: in.Caller,
		Target:    in.Target,
		Value:     in.Value,
		Kind:      kind,
		Payload:   payload,
	}
	var evs []*event.Event
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Multisig.Create(ctx, tx); err != nil {
			return err
		}
		evs = append(evs, event.New(event.TypeSubmitTransaction, now).ForTx(tx.ID).
			With("owner", in.Caller).
			With("target", tx.Target).
			With("value", tx.Value).
			With("kind", tx.Kind))
		return r.Events.Append(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	u.logger.Info("transaction submitted", "tx_id", tx.ID, "kind", kind, "owner", in.Caller.Hex())
	return toDTO(tx, 0, u.cfg.Threshold), nil
}

// Confirm sets the caller's confirmation, or withdraws it when revoke is true.
func (u *Usecase) Confirm(ctx context.Context, caller common.Address, txID uint64, revoke bool) (*TransactionDTO, error) {
	if !u.IsOwner(caller) {
		return nil, multisig.ErrNotOwner
	}
	now := u.clock.Now()
	var (
		out *TransactionDTO
		evs []*event.Event
	)
	err := u.uow.WithinMultisigTx(ctx, txID, func(r uow.Repos, tx *multisig.Transaction) error {
		if tx.Executed {
			return multisig.ErrAlreadyExecuted
		}
		c, err := r.Multisig.GetConfirmation(ctx, txID, caller)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c = &multisig.Confirmation{TxID: txID, Owner: caller}
		case err != nil:
			return err
		}
		if !revoke && c.Confirmed {
			return multisig.ErrAlreadyConfirmed
		}
		if revoke && !c.Confirmed {
			return multisig.ErrNotConfirmed
		}
		c.Confirmed = !revoke
		if err := r.Multisig.SaveConfirmation(ctx, c); err != nil {
			return err
		}
		n, err := r.Multisig.CountConfirmations(ctx, txID)
		if err != nil {
			return err
		}
		typ := event.TypeConfirmTransaction
		if revoke {
			typ = event.TypeRevokeConfirmation
		}
		evs = append(evs, event.New(typ, now).ForTx(txID).With("owner", caller).With("confirmations", n))
		out = toDTO(tx, n, u.cfg.Threshold)
		return r.Events.Append(ctx, evs...)
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, evs)
	return out, nil
}

// Execute forwards a sufficiently confirmed transaction to its target. The
// target's effects, the executed flag and the events commit together; any
// failure leaves the transaction pending and re-executable.
func (u *Usecase) Execute(ctx context.Context, caller common.Address, txID uint64) (*TransactionDTO, error) {
	now := u.clock.Now()
	var (
		out *TransactionDTO
		evs []*event.Event
	)
	err := u.uow.WithinMultisigTx(ctx, txID, func(r uow.Repos, tx *multisig.Transaction) error {
		if tx.Executed {
			return multisig.ErrAlreadyExecuted
		}
		n, err := r.Multisig.CountConfirmations(ctx, txID)
		if err != nil {
			return err
		}
		if n < int64(u.cfg.Threshold) {
			return multisig.ErrCannotExecute
		}
		target, ok := u.targets[tx.Target]
		if !ok {
			return multisig.ErrUnknownTarget
		}
		cmd, err := tx.Command()
		if err != nil {
			return err
		}
		forwarded, err := target.Execute(ctx, r, u.cfg.Address, tx.Value, cmd)
		if err != nil {
			return err
		}
		tx.Executed = true
		at := now
		tx.ExecutedAt = &at
		if err := r.Multisig.Save(ctx, tx); err != nil {
			return err
		}
		evs = append(forwarded, event.New(event.TypeExecuteTransaction, now).ForTx(txID).
			With("caller", caller).
			With("kind", tx.Kind))
		out = toDTO(tx, n, u.cfg.Threshold)
		return r.Events.Append(ctx, evs...)
	})
	if err != nil {
		u.observe("failure")
		u.logger.Warn("transaction execution failed", "tx_id", txID, "error", err)
		return nil, err
	}
	u.observe("success")
	u.publish(ctx, evs)
	u.logger.Info("transaction executed", "tx_id", txID, "caller", caller.Hex())
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, txID uint64) (*TransactionDTO, error) {
	var out *TransactionDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		tx, err := r.Multisig.GetByID(ctx, txID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return multisig.ErrTxNotFound
		}
		if err != nil {
			return err
		}
		n, err := r.Multisig.CountConfirmations(ctx, txID)
		if err != nil {
			return err
		}
		out = toDTO(tx, n, u.cfg.Threshold)
		return nil
	})
	return out, err
}

func (u *Usecase) observe(outcome string) {
	if u.onExecute != nil {
		u.onExecute(outcome)
	}
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
