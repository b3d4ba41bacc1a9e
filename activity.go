package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAuthenticateSuccess   ActivityEventType = "auth.authenticate.success"
	ActivityEventAuthenticateFailure   ActivityEventType = "auth.authenticate.failure"
	ActivityEventRegister              ActivityEventType = "auth.register"
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventRefresh               ActivityEventType = "auth.refresh"
	ActivityEventRefreshFailure        ActivityEventType = "auth.refresh.failure"
	ActivityEventLogout                ActivityEventType = "auth.logout"
	ActivityEventLogoutAll             ActivityEventType = "auth.logout_all"
	ActivityEventSessionEvicted        ActivityEventType = "auth.session.evicted"
	ActivityEventPasswordChanged       ActivityEventType = "auth.password.changed"
	ActivityEventPasswordResetRequest  ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetSuccess  ActivityEventType = "auth.password.reset"
	ActivityEventEmailVerified         ActivityEventType = "auth.email.verified"
	ActivityEventEmailVerificationSent ActivityEventType = "auth.email.verification_sent"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType   ActivityEventType
	PrincipalID string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink fans an event out to every sink, returning the first error
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity is best effort: sink failures are logged and swallowed.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("activity sink failed", "event", event.EventType, "error", err)
	}
}
