package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const (
	keyIDAccess  = "access"
	keyIDRefresh = "refresh"
)

// keyIDFor names the secret that signs tokens of purpose p. Reset and
// verification tokens share the access secret and are told apart by their
// purpose claim.
func keyIDFor(p Purpose) string {
	if p == PurposeRefresh {
		return keyIDRefresh
	}
	return keyIDAccess
}

// IssueOptions overrides the defaults used when minting a single token
type IssueOptions struct {
	// TTL overrides the configured lifetime for the purpose. Zero uses the config.
	TTL time.Duration
	// IssuedAt overrides the issuance time. Zero uses the service clock.
	IssuedAt time.Time
}

// IssuedToken is a signed token plus the metadata callers need to track it
type IssuedToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PairOptions controls IssuePair
type PairOptions struct {
	RefreshTTL time.Duration
	IssuedAt   time.Time
}

// TokenPair is the access and refresh token handed to a client
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int64     `json:"expiresIn"`
	TokenType        string    `json:"tokenType"`
	AccessTokenID    string    `json:"-"`
	RefreshTokenID   string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenService signs and decodes bearer tokens for every purpose
type TokenService struct {
	config Config
	keys   map[string][]byte
	logger Logger
	now    func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenService {
	return &TokenService{
		config: cfg,
		keys: map[string][]byte{
			keyIDAccess:  cfg.GetAccessSecret(),
			keyIDRefresh: cfg.GetRefreshSecret(),
		},
		logger: normalizeLogger(logger),
		now:    time.Now,
	}
}

// WithClock replaces the time source, mostly for tests
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue signs a token of the given purpose for subject.
func (s *TokenService) Issue(purpose Purpose, subject ClaimsSubject, opts ...IssueOptions) (IssuedToken, error) {
	var opt IssueOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	if !purpose.IsValid() {
		return IssuedToken{}, goerrors.New("unknown token purpose: "+string(purpose), goerrors.CategoryBadInput).
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}

	if strings.TrimSpace(subject.PrincipalID) == "" {
		return IssuedToken{}, goerrors.New("principal id is required to issue a token", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}

	if purpose.carriesRole() && !subject.Role.IsValid() {
		return IssuedToken{}, goerrors.New("invalid role for token subject: "+string(subject.Role), goerrors.CategoryBadInput).
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}

	issuedAt := opt.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	issuedAt = issuedAt.Truncate(time.Second)

	ttl := opt.TTL
	if ttl <= 0 {
		ttl = s.config.TTLFor(purpose)
	}

	registered := jwt.RegisteredClaims{
		Issuer:    s.config.GetIssuer(),
		Subject:   subject.PrincipalID,
		Audience:  jwt.ClaimStrings{s.config.GetAudience()},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		ID:        NewTokenID(),
	}

	claims := newClaims(purpose, subject, registered)

	kid := keyIDFor(purpose)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(s.keys[kid])
	if err != nil {
		s.logger.Error("token service failed to sign token", "purpose", purpose, "error", err)
		return IssuedToken{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token").
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)
	}

	return IssuedToken{
		Token:     signed,
		ID:        registered.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}

// IssuePair mints an access and a refresh token from the same subject
// snapshot.
func (s *TokenService) IssuePair(subject ClaimsSubject, opts ...PairOptions) (TokenPair, error) {
	var opt PairOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	issuedAt := opt.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}

	access, err := s.Issue(PurposeAccess, subject, IssueOptions{IssuedAt: issuedAt})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.Issue(PurposeRefresh, subject, IssueOptions{IssuedAt: issuedAt, TTL: opt.RefreshTTL})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		ExpiresIn:        int64(access.ExpiresAt.Sub(access.IssuedAt) / time.Second),
		TokenType:        "Bearer",
		AccessTokenID:    access.ID,
		RefreshTokenID:   refresh.ID,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Decode parses a token without verifying its signature or expiry. It is
// meant for diagnostics and must never gate access.
func (s *TokenService) Decode(token string) (TokenClaims, error) {
	wire := &wireClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, wire); err != nil {
		return nil, NewInvalidTokenError(string(ReasonMalformed))
	}

	claims, ok := wire.narrow()
	if !ok {
		return nil, NewInvalidTokenError(string(ReasonMalformed))
	}
	return claims, nil
}
