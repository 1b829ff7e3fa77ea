// Package changefeed announces that the notice collection changed. Listeners
// react by loading a fresh snapshot, so a change carries no notice body.
package changefeed

import (
	"context"

	"noticeboard/internal/event"
)

type Change = event.NoticeChangedPayload

type Feed interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(handler func(Change))
}

// Local delivers changes to listeners in this process only.
type Local struct {
	bus *event.Bus
}

func NewLocal(bus *event.Bus) *Local {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Local{bus: bus}
}

var _ Feed = (*Local)(nil)

func (l *Local) Publish(_ context.Context, change Change) error {
	l.bus.Publish(event.EventNoticeChanged, change)
	return nil
}

func (l *Local) Subscribe(handler func(Change)) {
	if handler == nil {
		return
	}
	l.bus.Subscribe(event.EventNoticeChanged, func(payload any) {
		if change, ok := payload.(Change); ok {
			handler(change)
		}
	})
}
