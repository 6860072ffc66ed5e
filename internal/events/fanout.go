package events

import (
	"context"
	"errors"

	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/models"
)

// Fanout delivers each event to every configured publisher. One sink
// failing does not stop delivery to the others; the engine sees a single
// publisher either way.
type Fanout struct {
	sinks []interfaces.EventPublisher
}

func NewFanout(sinks ...interfaces.EventPublisher) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, event models.Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ interfaces.EventPublisher = (*Fanout)(nil)
