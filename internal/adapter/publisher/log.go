package publisher

import (
	"context"
	"log/slog"

	"nftcredit-backend/internal/domain/event"
)

// Log writes events to the logger. It stands in when no broker is configured.
type Log struct{ logger *slog.Logger }

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "events")}
}

func (p *Log) Publish(ctx context.Context, ev *event.Event) error {
	p.logger.InfoContext(ctx, "event",
		"event_id", ev.EventID,
		"type", ev.Type,
		"loan_id", ev.LoanID,
		"tx_id", ev.TxID,
		"attributes", ev.Attributes)
	return nil
}

func (p *Log) Close() {}
