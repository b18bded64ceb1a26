package crm

import (
	"context"

	"go.uber.org/zap"
)

// Noop is a stand-in client for local development and tests where no CRM
// credentials are configured. It accepts everything and only logs.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a no-op client.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

// Provider returns the platform name.
func (n *Noop) Provider() string { return "none" }

// Register logs the registration and succeeds.
func (n *Noop) Register(_ context.Context, p Participant) error {
	n.logger.Info("crm disabled, skipping registration",
		zap.String("email", normalizeEmail(p.Email)),
		zap.Bool("newsletter_opt_in", p.NewsletterOptIn),
	)
	return nil
}
