package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// VerifyReason names why a token was rejected
type VerifyReason string

const (
	ReasonMalformed        VerifyReason = "malformed"
	ReasonInvalidSignature VerifyReason = "invalid_signature"
	ReasonInvalidIssuer    VerifyReason = "invalid_issuer"
	ReasonInvalidAudience  VerifyReason = "invalid_audience"
	ReasonExpired          VerifyReason = "expired"
	ReasonWrongPurpose     VerifyReason = "wrong_purpose"
	ReasonRevoked          VerifyReason = "revoked"
)

// VerifyResult is the outcome of verifying a token. Expected failures are
// reported here and never as errors. Claims are set for valid tokens and for
// expired, wrong purpose or revoked ones whose signature checked out.
type VerifyResult struct {
	Valid    bool
	Claims   TokenClaims
	Reason   VerifyReason
	Expected Purpose
}

// Err maps a failed result to the error kind callers raise
func (r VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	switch r.Reason {
	case ReasonExpired:
		return NewExpiredTokenError()
	case ReasonRevoked:
		return NewRevokedTokenError()
	case ReasonWrongPurpose:
		var actual Purpose
		if r.Claims != nil {
			actual = r.Claims.Purpose()
		}
		return NewPurposeMismatchError(r.Expected, actual)
	default:
		return NewInvalidTokenError(string(r.Reason))
	}
}

// TokenValidator verifies tokens without tying callers to a specific signing
// implementation.
type TokenValidator interface {
	Verify(ctx context.Context, token string, expected Purpose) VerifyResult
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(ctx context.Context, token string, expected Purpose) VerifyResult

// Verify satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Verify(ctx context.Context, token string, expected Purpose) VerifyResult {
	if f == nil {
		return VerifyResult{Reason: ReasonMalformed, Expected: expected}
	}
	return f(ctx, token, expected)
}

// TokenVerifier checks signature, issuer, audience, expiry, purpose and
// revocation, in that order.
type TokenVerifier struct {
	jwks     *keyfunc.JWKS
	parser   *jwt.Parser
	registry RevocationRegistry
	logger   Logger
}

var _ TokenValidator = (*TokenVerifier)(nil)

// NewTokenVerifier builds a verifier for tokens minted with cfg. registry may
// be nil, in which case revocation is not consulted.
func NewTokenVerifier(cfg Config, registry RevocationRegistry, logger Logger) *TokenVerifier {
	hs256 := keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodHS256.Alg()}

	jwks := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		keyIDAccess:  keyfunc.NewGivenCustom(cfg.GetAccessSecret(), hs256),
		keyIDRefresh: keyfunc.NewGivenCustom(cfg.GetRefreshSecret(), hs256),
	})

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.GetIssuer()),
		jwt.WithAudience(cfg.GetAudience()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	return &TokenVerifier{
		jwks:     jwks,
		parser:   parser,
		registry: registry,
		logger:   normalizeLogger(logger),
	}
}

// Verify validates token for the expected purpose
func (v *TokenVerifier) Verify(ctx context.Context, token string, expected Purpose) VerifyResult {
	fail := func(reason VerifyReason, claims TokenClaims) VerifyResult {
		return VerifyResult{Reason: reason, Claims: claims, Expected: expected}
	}

	if strings.TrimSpace(token) == "" {
		return fail(ReasonMalformed, nil)
	}

	wire := &wireClaims{}
	parsed, err := v.parser.ParseWithClaims(token, wire, v.jwks.Keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return fail(ReasonMalformed, nil)
		case errors.Is(err, jwt.ErrTokenUnverifiable), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return fail(ReasonInvalidSignature, nil)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return fail(ReasonInvalidIssuer, nil)
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return fail(ReasonInvalidAudience, nil)
		case errors.Is(err, jwt.ErrTokenExpired):
			claims, ok := wire.narrow()
			if !ok || !kidMatches(parsed, claims.Purpose()) {
				return fail(ReasonMalformed, nil)
			}
			return fail(ReasonExpired, claims)
		default:
			v.logger.Debug("token verifier rejected claims", "error", err)
			return fail(ReasonMalformed, nil)
		}
	}

	claims, ok := wire.narrow()
	if !ok {
		return fail(ReasonMalformed, nil)
	}

	if !kidMatches(parsed, claims.Purpose()) {
		return fail(ReasonInvalidSignature, nil)
	}

	if claims.Purpose() != expected {
		return fail(ReasonWrongPurpose, claims)
	}

	if v.registry != nil {
		revoked, err := v.registry.IsRevoked(ctx, claims.Base().TokenID())
		if err != nil {
			v.logger.Error("token verifier revocation lookup failed", "jti", claims.Base().TokenID(), "error", err)
			return fail(ReasonRevoked, claims)
		}
		if revoked {
			return fail(ReasonRevoked, claims)
		}
	}

	return VerifyResult{Valid: true, Claims: claims, Expected: expected}
}

// kidMatches rejects tokens whose key header does not belong to the claimed
// purpose, e.g. an access payload signed with the refresh secret.
func kidMatches(token *jwt.Token, p Purpose) bool {
	if token == nil {
		return false
	}
	kid, _ := token.Header["kid"].(string)
	return kid == keyIDFor(p)
}
