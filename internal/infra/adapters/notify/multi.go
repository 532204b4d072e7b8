package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Multi)(nil)

// Multi fans one notification out to several channels. Every channel is
// tried; the joined error reports which ones failed.
type Multi struct {
	channels []adapter.Notifier
}

func NewMulti(channels ...adapter.Notifier) *Multi {
	out := make([]adapter.Notifier, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Multi{channels: out}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Send(ctx context.Context, n adapter.Notification) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
