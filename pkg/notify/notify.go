package notify

import (
	"context"

	"github.com/cuemby/curfew/pkg/hostcmd"
	"github.com/cuemby/curfew/pkg/log"
	"github.com/rs/zerolog"
)

// Notifier delivers a plain-text message to the operator. Implementations
// must never let a delivery failure escape: notification is best-effort and
// a broken mail path must not abort a shutdown run.
type Notifier interface {
	Send(ctx context.Context, subject, body string)
}

// MailNotifier sends mail through the host's mail(1) command.
type MailNotifier struct {
	runner hostcmd.Runner
	to     string
	logger zerolog.Logger
}

// NewMailNotifier creates a MailNotifier addressed to the operator.
func NewMailNotifier(runner hostcmd.Runner, to string) *MailNotifier {
	return &MailNotifier{
		runner: runner,
		to:     to,
		logger: log.WithComponent("notify"),
	}
}

// Send delivers one message. Failures are logged and swallowed.
func (n *MailNotifier) Send(ctx context.Context, subject, body string) {
	if _, err := n.runner.RunInput(ctx, body, "mail", "-s", subject, n.to); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("failed to send notification")
		return
	}
	n.logger.Debug().Str("subject", subject).Msg("notification sent")
}
