package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-authsession/middleware/jwtware"
)

// AuthMode selects how a request without a usable access token is treated
type AuthMode struct {
	// Required fails requests that carry no token
	Required bool
	// SkipExpiredCheck lets requests with an expired, otherwise valid, token
	// through anonymously.
	SkipExpiredCheck bool
}

var (
	ModeRequired     = AuthMode{Required: true}
	ModeOptional     = AuthMode{}
	ModeAllowExpired = AuthMode{Required: true, SkipExpiredCheck: true}
)

// PrincipalFinder is the part of the principal store authentication needs
type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (*Principal, error)
}

// Authenticator turns an Authorization header into an AuthContext.
type Authenticator struct {
	verifier            TokenValidator
	principals          PrincipalFinder
	requireVerification bool
	authScheme          string
	logger              Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(verifier TokenValidator, principals PrincipalFinder, cfg Config) *Authenticator {
	return &Authenticator{
		verifier:            verifier,
		principals:          principals,
		requireVerification: cfg.RequireEmailVerification,
		authScheme:          cfg.GetAuthScheme(),
		logger:              defLogger{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	a.logger = normalizeLogger(logger)
	return a
}

// Authenticate resolves the raw Authorization header value. A nil
// AuthContext with a nil error means the request proceeds anonymously.
func (a *Authenticator) Authenticate(ctx context.Context, rawHeader string, mode AuthMode) (*AuthContext, error) {
	return a.AuthenticateToken(ctx, jwtware.ParseScheme(rawHeader, a.authScheme), mode)
}

// AuthenticateToken is Authenticate for an already extracted token
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string, mode AuthMode) (*AuthContext, error) {
	if token == "" {
		if mode.Required {
			return nil, NewMissingTokenError()
		}
		return nil, nil
	}

	result := a.verifier.Verify(ctx, token, PurposeAccess)
	if !result.Valid {
		if result.Reason == ReasonExpired && mode.SkipExpiredCheck {
			return nil, nil
		}
		return nil, result.Err()
	}

	claims, ok := result.Claims.(*AccessClaims)
	if !ok {
		return nil, NewInvalidTokenError(string(ReasonMalformed))
	}

	principal, err := a.principals.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewUnauthorizedError("account no longer exists")
		}
		a.logger.Error("authenticator failed to load principal", "principal_id", claims.PrincipalID, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load principal").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}

	if !principal.Active {
		return nil, NewAccountInactiveError()
	}

	if a.requireVerification && !principal.EmailVerified {
		return nil, NewAccountUnverifiedError()
	}

	return &AuthContext{
		Principal: principal,
		RawToken:  token,
		Claims:    claims,
	}, nil
}
