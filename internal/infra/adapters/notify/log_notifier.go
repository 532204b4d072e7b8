package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier stands in for an unconfigured channel: it logs instead of
// sending, redacting the recipient outside dev.
type LogNotifier struct {
	channel string
	dev     bool
	log     *zerolog.Logger
}

func NewLogNotifier(channel string, dev bool, logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "LogNotifier").Str("channel", channel).Logger()
	return &LogNotifier{channel: channel, dev: dev, log: &l}
}

func (n *LogNotifier) Name() string { return n.channel }

func (n *LogNotifier) Send(ctx context.Context, msg adapter.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().
		Str("to", logging.Redact(msg.To, n.dev)).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("notification")
	return nil
}
