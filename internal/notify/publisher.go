package notify

import (
	"context"
	"errors"

	"github.com/duthaho/trello-clone-sub000/internal/events"
)

// LocalPublisher feeds events straight into the in-process dispatcher. It is
// used when no Kafka brokers are configured.
type LocalPublisher struct {
	d *Dispatcher
	h *Handler
}

func NewLocalPublisher(d *Dispatcher, h *Handler) *LocalPublisher {
	return &LocalPublisher{d: d, h: h}
}

func (p *LocalPublisher) Publish(_ context.Context, evs ...events.Event) error {
	var errs []error
	for _, ev := range evs {
		ev := ev
		err := p.d.Enqueue(Job{
			Name: string(ev.Type) + ":" + ev.ID,
			Run:  func(ctx context.Context) error { return p.h.Handle(ctx, ev) },
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op: the dispatcher is closed by its owner.
func (p *LocalPublisher) Close() error { return nil }
