package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-authsession/middleware/jwtware"
)

// Middleware exposes Authenticator as router middleware. Failures are returned
// to the app error handler so they render through the single error boundary.
type Middleware struct {
	auth         *Authenticator
	tokenLookup  string
	authScheme   string
	activitySink ActivitySink
	logger       Logger
}

// NewMiddleware creates router middleware backed by auth
func NewMiddleware(auth *Authenticator, cfg Config) *Middleware {
	return &Middleware{
		auth:         auth,
		tokenLookup:  cfg.GetTokenLookup(),
		authScheme:   cfg.GetAuthScheme(),
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

// WithActivitySink configures an ActivitySink for authentication events.
func (m *Middleware) WithActivitySink(sink ActivitySink) *Middleware {
	m.activitySink = normalizeActivitySink(sink)
	return m
}

func (m *Middleware) WithLogger(logger Logger) *Middleware {
	m.logger = normalizeLogger(logger)
	return m
}

// Protect requires a valid access token
func (m *Middleware) Protect() router.MiddlewareFunc {
	return m.Authenticate(ModeRequired)
}

// Optional attaches the principal when a valid token is present
func (m *Middleware) Optional() router.MiddlewareFunc {
	return m.Authenticate(ModeOptional)
}

// AllowExpired lets expired tokens through anonymously, for renewal only routes
func (m *Middleware) AllowExpired() router.MiddlewareFunc {
	return m.Authenticate(ModeAllowExpired)
}

// Authenticate builds the middleware for an arbitrary mode
func (m *Middleware) Authenticate(mode AuthMode) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:  LocalsKey,
		TokenLookup: m.tokenLookup,
		AuthScheme:  m.authScheme,
		Authenticate: func(ctx context.Context, token string) (any, error) {
			actx, err := m.auth.AuthenticateToken(ctx, token, mode)
			if err != nil || actx == nil {
				return nil, err
			}
			return actx, nil
		},
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			return WithAuthContext(ctx, value.(*AuthContext))
		},
		ValidationListeners: []jwtware.ValidationListener{m.recordAttempt},
		ErrorHandler: func(_ router.Context, err error) error {
			return err
		},
	})
}

func (m *Middleware) recordAttempt(c router.Context, value any, err error) {
	metadata := map[string]any{
		"method":     c.Method(),
		"path":       c.Path(),
		"ip":         c.IP(),
		"user_agent": c.Header(fiber.HeaderUserAgent),
	}

	if err != nil {
		richErr := asRichError(err)
		metadata["code"] = richErr.TextCode
		m.logger.Debug("authentication failed", "path", c.Path(), "code", richErr.TextCode)
		recordActivity(c.Context(), m.activitySink, m.logger, ActivityEvent{
			EventType: ActivityEventAuthenticateFailure,
			Metadata:  metadata,
		})
		return
	}

	actx, ok := value.(*AuthContext)
	if !ok {
		return
	}

	recordActivity(c.Context(), m.activitySink, m.logger, ActivityEvent{
		EventType:   ActivityEventAuthenticateSuccess,
		PrincipalID: actx.PrincipalID(),
		Metadata:    metadata,
	})
}
