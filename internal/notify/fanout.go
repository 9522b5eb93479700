package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

type Notifier interface {
	Notify(ctx context.Context, msg model.Notification) error
}

// Fanout рассылает уведомление во все каналы; сбой одного не мешает остальным
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, msg model.Notification) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop ничего не отправляет
type Noop struct{}

func (Noop) Notify(context.Context, model.Notification) error { return nil }
