package publisher

import (
	"context"
	"errors"

	"nftcredit-backend/internal/domain/event"
)

// Fanout delivers to every publisher and joins their errors.
type Fanout []event.Publisher

func (f Fanout) Publish(ctx context.Context, ev *event.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() {
	for _, p := range f {
		p.Close()
	}
}

// Counted calls observe with the event type after each successful publish.
type Counted struct {
	next    event.Publisher
	observe func(typ string)
}

func NewCounted(next event.Publisher, observe func(typ string)) *Counted {
	return &Counted{next: next, observe: observe}
}

func (c *Counted) Publish(ctx context.Context, ev *event.Event) error {
	if err := c.next.Publish(ctx, ev); err != nil {
		return err
	}
	if c.observe != nil {
		c.observe(ev.Type)
	}
	return nil
}

func (c *Counted) Close() { c.next.Close() }
