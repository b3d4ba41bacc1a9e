package auth

import "context"

// LogMailer is a Mailer that only logs. It is the default so services work
// without an email provider during development.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	return &LogMailer{logger: normalizeLogger(logger)}
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	m.logger.Info("verification email requested", "to", to)
	m.logger.Debug("verification token issued", "to", to, "token", token)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	m.logger.Info("password reset email requested", "to", to)
	m.logger.Debug("password reset token issued", "to", to, "token", token)
	return nil
}
