package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// ForgotPasswordMessage is returned by ForgotPassword whether or not the
// account exists.
const ForgotPasswordMessage = "If an account exists for that email, a password reset link has been sent."

const defaultMailTimeout = 30 * time.Second

// RegisterInput is the payload for Register
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Role, validation.By(validRole)),
	)
}

// LoginInput is the payload for Login
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// LogoutInput is the payload for Logout. RefreshToken and AccessClaims are
// optional; when present they are revoked.
type LogoutInput struct {
	PrincipalID  string
	RefreshToken string
	AccessClaims *AccessClaims
}

// ChangePasswordInput is the payload for ChangePassword
type ChangePasswordInput struct {
	PrincipalID     string        `json:"-"`
	CurrentPassword string        `json:"currentPassword"`
	NewPassword     string        `json:"newPassword"`
	AccessClaims    *AccessClaims `json:"-"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required),
	)
}

// ResetPasswordInput is the payload for ResetPassword
type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Token, validation.Required),
		validation.Field(&in.NewPassword, validation.Required),
	)
}

func validRole(value any) error {
	r, _ := value.(Role)
	if r == "" || r.IsValid() {
		return nil
	}
	return errors.New("must be one of user, moderator or admin")
}

// AuthResult is returned by operations that open a session
type AuthResult struct {
	Principal        *Principal       `json:"user"`
	Tokens           TokenPair        `json:"tokens"`
	PasswordStrength PasswordStrength `json:"passwordStrength,omitempty"`
	RememberMe       bool             `json:"-"`
}

// AuthService orchestrates registration, login, refresh rotation and the
// credential flows on top of the token, session and revocation components.
type AuthService struct {
	config       Config
	store        Store
	tokens       *TokenService
	verifier     TokenValidator
	registry     RevocationRegistry
	hasher       PasswordHasher
	policy       PasswordPolicy
	mailer       Mailer
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time

	deterministicIDs bool
	mailTimeout      time.Duration
	mailWG           sync.WaitGroup

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthService wires the default components for cfg. registry may be
// shared with other verifiers in the process or cluster.
func NewAuthService(cfg Config, store Store, registry RevocationRegistry) *AuthService {
	if registry == nil {
		registry = NewMemoryRevocationRegistry(nil)
	}
	return &AuthService{
		config:       cfg,
		store:        store,
		tokens:       NewTokenService(cfg, nil),
		verifier:     NewTokenVerifier(cfg, registry, nil),
		registry:     registry,
		hasher:       NewHasher(cfg.GetBcryptCost(), cfg.GetHashConcurrency()),
		policy:       DefaultPasswordPolicy(),
		mailer:       NewLogMailer(nil),
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
		mailTimeout:  defaultMailTimeout,
	}
}

func (s *AuthService) WithLogger(logger Logger) *AuthService {
	s.logger = normalizeLogger(logger)
	s.tokens.logger = s.logger
	if v, ok := s.verifier.(*TokenVerifier); ok {
		v.logger = s.logger
	}
	return s
}

func (s *AuthService) WithMailer(mailer Mailer) *AuthService {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *AuthService) WithActivitySink(sink ActivitySink) *AuthService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *AuthService) WithHasher(hasher PasswordHasher) *AuthService {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *AuthService) WithPasswordPolicy(policy PasswordPolicy) *AuthService {
	s.policy = policy
	return s
}

// WithDeterministicIDs derives principal ids from the email with hashid
// instead of random UUIDs.
func (s *AuthService) WithDeterministicIDs(enabled bool) *AuthService {
	s.deterministicIDs = enabled
	return s
}

// WithClock replaces the time source of the service and its token minting
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
		s.tokens.WithClock(now)
	}
	return s
}

func (s *AuthService) WithMailTimeout(d time.Duration) *AuthService {
	if d > 0 {
		s.mailTimeout = d
	}
	return s
}

// Tokens exposes the token codec, e.g. for diagnostics via Decode
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// Verifier exposes the verifier so middleware shares the revocation registry
func (s *AuthService) Verifier() TokenValidator {
	return s.verifier
}

// Wait blocks until in-flight email deliveries finish
func (s *AuthService) Wait() {
	s.mailWG.Wait()
}

// Register creates an active, unverified principal and opens its first session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, NewValidationError("invalid registration payload", err)
	}

	email := NormalizeEmail(in.Email)

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, NewDuplicateAccountError()
	} else if !IsNotFound(err) {
		return nil, s.internal(err, "unable to look up account")
	}

	check := s.policy.Check(in.Password, email)
	if err := check.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = RoleUser
	}

	id, err := s.newPrincipalID(email)
	if err != nil {
		return nil, s.internal(err, "unable to generate principal id")
	}

	principal, err := s.store.Create(ctx, &Principal{
		ID:            id,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Active:        true,
		EmailVerified: false,
	})
	if err != nil {
		return nil, asRichError(err)
	}

	pair, err := s.openSession(ctx, principal, s.config.RefreshTTL())
	if err != nil {
		return nil, err
	}

	s.sendVerification(principal)

	s.record(ctx, ActivityEventRegister, principal.ID, map[string]any{"role": string(role)})

	return &AuthResult{
		Principal:        principal,
		Tokens:           pair,
		PasswordStrength: check.Strength,
	}, nil
}

// Login checks credentials and opens a new session. Unknown accounts and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, NewValidationError("invalid login payload", err)
	}

	email := NormalizeEmail(in.Email)

	principal, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !IsNotFound(err) {
			return nil, s.internal(err, "unable to look up account")
		}
		// keep response timing close to the wrong password path
		_ = s.hasher.Compare(ctx, in.Password, s.timingHash())
		s.record(ctx, ActivityEventLoginFailure, "", map[string]any{"reason": "unknown_account"})
		return nil, NewInvalidCredentialsError()
	}

	if !principal.Active {
		s.record(ctx, ActivityEventLoginFailure, principal.ID, map[string]any{"reason": "inactive"})
		return nil, NewAccountInactiveError()
	}

	if err := s.hasher.Compare(ctx, in.Password, principal.PasswordHash); err != nil {
		if HasTextCode(err, TextCodeInvalidCredentials) {
			s.record(ctx, ActivityEventLoginFailure, principal.ID, map[string]any{"reason": "wrong_password"})
			return nil, NewInvalidCredentialsError()
		}
		return nil, err
	}

	if s.config.RequireEmailVerification && !principal.EmailVerified {
		s.record(ctx, ActivityEventLoginFailure, principal.ID, map[string]any{"reason": "unverified"})
		return nil, NewAccountUnverifiedError()
	}

	ttl := s.config.RefreshTTL()
	if in.RememberMe {
		ttl = s.config.RememberMeTTL()
	}

	pair, err := s.openSession(ctx, principal, ttl)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.TrackLogin(ctx, principal.ID, now); err != nil {
		s.logger.Warn("failed to track login", "principal_id", principal.ID, "error", err)
	} else {
		principal.LastLoginAt = &now
	}

	s.record(ctx, ActivityEventLoginSuccess, principal.ID, map[string]any{"remember_me": in.RememberMe})

	return &AuthResult{
		Principal:  principal,
		Tokens:     pair,
		RememberMe: in.RememberMe,
	}, nil
}

// Refresh rotates a refresh token. The token must verify and must still be
// a live session of its principal, so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, NewMissingTokenError()
	}

	result := s.verifier.Verify(ctx, refreshToken, PurposeRefresh)
	if !result.Valid {
		s.record(ctx, ActivityEventRefreshFailure, claimsPrincipal(result.Claims), map[string]any{"reason": string(result.Reason)})
		return nil, result.Err()
	}

	claims, ok := result.Claims.(*RefreshClaims)
	if !ok {
		return nil, NewInvalidTokenError(string(ReasonMalformed))
	}

	principal, err := s.store.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewUnauthorizedError("account no longer exists")
		}
		return nil, s.internal(err, "unable to load principal")
	}

	if !principal.Active {
		return nil, NewAccountInactiveError()
	}

	// a remember me grant keeps its longer lifetime across rotations
	ttl := claims.Expires().Sub(claims.IssuedAt())
	if ttl <= 0 {
		ttl = s.config.RefreshTTL()
	}

	now := s.now()
	pair, err := s.tokens.IssuePair(principal.Subject(), PairOptions{RefreshTTL: ttl, IssuedAt: now})
	if err != nil {
		return nil, err
	}

	next := NewSessionEntry(pair.RefreshToken, pair.RefreshTokenID, pair.RefreshExpiresAt, now)
	evicted, err := s.store.RotateSession(ctx, principal.ID, HashRefreshToken(refreshToken), next)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.record(ctx, ActivityEventRefreshFailure, principal.ID, map[string]any{"reason": "session_not_found"})
			return nil, NewInvalidTokenError("session_not_found")
		}
		return nil, asRichError(err)
	}

	s.revoke(ctx, RevocationEntryFromClaims(claims, now))
	s.revokeSessions(ctx, principal.ID, evicted, true)

	s.record(ctx, ActivityEventRefresh, principal.ID, nil)

	return &AuthResult{
		Principal:  principal,
		Tokens:     pair,
		RememberMe: ttl > s.config.RefreshTTL(),
	}, nil
}

// Logout ends one session. It is idempotent: an unknown or already removed
// refresh token is not an error.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) error {
	if in.PrincipalID == "" {
		return NewUnauthorizedError("")
	}

	now := s.now()

	if in.RefreshToken != "" {
		if _, err := s.store.RemoveSession(ctx, in.PrincipalID, HashRefreshToken(in.RefreshToken)); err != nil && !IsNotFound(err) {
			return asRichError(err)
		}

		result := s.verifier.Verify(ctx, in.RefreshToken, PurposeRefresh)
		if result.Claims != nil && result.Claims.Base().PrincipalID == in.PrincipalID && result.Reason != ReasonExpired {
			s.revoke(ctx, RevocationEntryFromClaims(result.Claims, now))
		}
	}

	if in.AccessClaims != nil && in.AccessClaims.PrincipalID == in.PrincipalID {
		s.revoke(ctx, RevocationEntryFromClaims(in.AccessClaims, now))
	}

	s.record(ctx, ActivityEventLogout, in.PrincipalID, nil)
	return nil
}

// LogoutAll revokes every session of principalID.
func (s *AuthService) LogoutAll(ctx context.Context, principalID string, access *AccessClaims) error {
	if principalID == "" {
		return NewUnauthorizedError("")
	}

	cleared, err := s.store.ClearSessions(ctx, principalID)
	if err != nil {
		return asRichError(err)
	}

	s.revokeSessions(ctx, principalID, cleared, false)
	if access != nil && access.PrincipalID == principalID {
		s.revoke(ctx, RevocationEntryFromClaims(access, s.now()))
	}

	s.record(ctx, ActivityEventLogoutAll, principalID, map[string]any{"sessions": len(cleared)})
	return nil
}

// ChangePassword replaces the password and ends every session in one step.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) (PasswordStrength, error) {
	if err := in.Validate(); err != nil {
		return "", NewValidationError("invalid change password payload", err)
	}

	principal, err := s.store.FindByID(ctx, in.PrincipalID)
	if err != nil {
		if IsNotFound(err) {
			return "", NewUnauthorizedError("account no longer exists")
		}
		return "", s.internal(err, "unable to load principal")
	}

	if err := s.hasher.Compare(ctx, in.CurrentPassword, principal.PasswordHash); err != nil {
		if HasTextCode(err, TextCodeInvalidCredentials) {
			return "", NewInvalidCredentialsError()
		}
		return "", err
	}

	if in.NewPassword == in.CurrentPassword {
		return "", NewPasswordPolicyError([]string{"new password must differ from the current password"})
	}

	check := s.policy.Check(in.NewPassword, principal.Email)
	if err := check.Err(); err != nil {
		return "", err
	}

	if err := s.replacePassword(ctx, principal.ID, in.NewPassword); err != nil {
		return "", err
	}

	if in.AccessClaims != nil && in.AccessClaims.PrincipalID == principal.ID {
		s.revoke(ctx, RevocationEntryFromClaims(in.AccessClaims, s.now()))
	}

	s.record(ctx, ActivityEventPasswordChanged, principal.ID, nil)
	return check.Strength, nil
}

// ForgotPassword always returns ForgotPasswordMessage. A reset token is
// mailed only when an active account matches.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return "", NewValidationError("invalid forgot password payload", validation.Errors{"email": err})
	}

	principal, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !IsNotFound(err) {
			s.logger.Error("forgot password lookup failed", "error", err)
		}
		return ForgotPasswordMessage, nil
	}

	if !principal.Active {
		return ForgotPasswordMessage, nil
	}

	issued, err := s.tokens.Issue(PurposePasswordReset, principal.Subject())
	if err != nil {
		s.logger.Error("failed to issue password reset token", "principal_id", principal.ID, "error", err)
		return ForgotPasswordMessage, nil
	}

	to := principal.Email
	s.dispatchMail("password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, to, issued.Token)
	})

	s.record(ctx, ActivityEventPasswordResetRequest, principal.ID, nil)
	return ForgotPasswordMessage, nil
}

// ResetPassword consumes a reset token, replaces the password and ends every
// session. The reset token is revoked so it cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (PasswordStrength, error) {
	if err := in.Validate(); err != nil {
		return "", NewValidationError("invalid reset password payload", err)
	}

	result := s.verifier.Verify(ctx, in.Token, PurposePasswordReset)
	if !result.Valid {
		return "", result.Err()
	}
	claims := result.Claims

	principal, err := s.store.FindByID(ctx, claims.Base().PrincipalID)
	if err != nil {
		if IsNotFound(err) {
			return "", NewInvalidTokenError("unknown_principal")
		}
		return "", s.internal(err, "unable to load principal")
	}

	if !principal.Active {
		return "", NewAccountInactiveError()
	}

	check := s.policy.Check(in.NewPassword, principal.Email)
	if err := check.Err(); err != nil {
		return "", err
	}

	// claim the token before writing so concurrent resets with it cannot both land
	claimed, err := s.registry.Claim(ctx, RevocationEntryFromClaims(claims, s.now()))
	if err != nil {
		return "", s.internal(err, "unable to consume reset token")
	}
	if !claimed {
		return "", NewRevokedTokenError()
	}

	if err := s.replacePassword(ctx, principal.ID, in.NewPassword); err != nil {
		return "", err
	}

	s.record(ctx, ActivityEventPasswordResetSuccess, principal.ID, nil)
	return check.Strength, nil
}

// VerifyEmail marks the principal verified. Repeating it with a still valid
// token succeeds without changing anything; changed reports the first call.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (principal *Principal, changed bool, err error) {
	if token == "" {
		return nil, false, NewMissingTokenError()
	}

	result := s.verifier.Verify(ctx, token, PurposeEmailVerification)
	if !result.Valid {
		return nil, false, result.Err()
	}

	principalID := result.Claims.Base().PrincipalID

	changed, err = s.store.MarkEmailVerified(ctx, principalID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, NewInvalidTokenError("unknown_principal")
		}
		return nil, false, s.internal(err, "unable to verify email")
	}

	principal, err = s.store.FindByID(ctx, principalID)
	if err != nil {
		return nil, false, s.internal(err, "unable to load principal")
	}

	if changed {
		s.record(ctx, ActivityEventEmailVerified, principalID, nil)
	}
	return principal, changed, nil
}

// ResendVerification mails a new verification token to an unverified principal
func (s *AuthService) ResendVerification(ctx context.Context, principalID string) error {
	principal, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		if IsNotFound(err) {
			return NewUnauthorizedError("account no longer exists")
		}
		return s.internal(err, "unable to load principal")
	}

	if principal.EmailVerified {
		return nil
	}

	s.sendVerification(principal)
	return nil
}

// Me returns the principal behind an authenticated request
func (s *AuthService) Me(ctx context.Context, principalID string) (*Principal, error) {
	principal, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewUnauthorizedError("account no longer exists")
		}
		return nil, s.internal(err, "unable to load principal")
	}
	return principal, nil
}

// Sessions lists the unexpired sessions of principalID, oldest first
func (s *AuthService) Sessions(ctx context.Context, principalID string) ([]SessionEntry, error) {
	entries, err := s.store.ListSessions(ctx, principalID)
	if err != nil {
		return nil, asRichError(err)
	}

	now := s.now()
	live := make([]SessionEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsExpired(now) {
			live = append(live, e)
		}
	}
	return live, nil
}

func (s *AuthService) openSession(ctx context.Context, principal *Principal, refreshTTL time.Duration) (TokenPair, error) {
	now := s.now()

	pair, err := s.tokens.IssuePair(principal.Subject(), PairOptions{RefreshTTL: refreshTTL, IssuedAt: now})
	if err != nil {
		return TokenPair{}, err
	}

	entry := NewSessionEntry(pair.RefreshToken, pair.RefreshTokenID, pair.RefreshExpiresAt, now)
	evicted, err := s.store.AddSession(ctx, principal.ID, entry)
	if err != nil {
		return TokenPair{}, asRichError(err)
	}

	s.revokeSessions(ctx, principal.ID, evicted, true)
	return pair, nil
}

func (s *AuthService) replacePassword(ctx context.Context, principalID, password string) error {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return err
	}

	cleared, err := s.store.ReplacePassword(ctx, principalID, hash)
	if err != nil {
		return asRichError(err)
	}

	s.revokeSessions(ctx, principalID, cleared, false)
	return nil
}

func (s *AuthService) revokeSessions(ctx context.Context, principalID string, entries []SessionEntry, evicted bool) {
	now := s.now()
	for _, e := range entries {
		s.revoke(ctx, RevocationEntryFromSession(principalID, e, now))
		if evicted {
			s.record(ctx, ActivityEventSessionEvicted, principalID, map[string]any{"jti": e.TokenID})
		}
	}
}

// revoke is best effort. Removing the session already blocks refresh, the
// registry entry additionally blocks any other verification path.
func (s *AuthService) revoke(ctx context.Context, entry RevocationEntry) {
	if entry.TokenID == "" {
		return
	}
	if err := s.registry.Revoke(ctx, entry); err != nil {
		s.logger.Error("failed to revoke token", "jti", entry.TokenID, "purpose", entry.Purpose, "error", err)
	}
}

func (s *AuthService) sendVerification(principal *Principal) {
	issued, err := s.tokens.Issue(PurposeEmailVerification, principal.Subject())
	if err != nil {
		s.logger.Error("failed to issue verification token", "principal_id", principal.ID, "error", err)
		return
	}

	to := principal.Email
	s.dispatchMail("email_verification", func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, to, issued.Token)
	})
	s.record(context.Background(), ActivityEventEmailVerificationSent, principal.ID, nil)
}

// dispatchMail sends in the background with its own timeout; failures are
// only logged.
func (s *AuthService) dispatchMail(kind string, send func(ctx context.Context) error) {
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.mailTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Warn("failed to send email", "kind", kind, "error", err)
		}
	}()
}

func (s *AuthService) newPrincipalID(email string) (string, error) {
	if !s.deterministicIDs {
		return NewPrincipalID(), nil
	}
	id, err := hashid.NewUUID(email)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// timingHash is compared against for unknown accounts. It does not use the
// request context so a cancelled request cannot leave it empty, and a failed
// attempt is retried on the next call.
func (s *AuthService) timingHash() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash == "" {
		hash, err := s.hasher.Hash(context.Background(), NewTokenID())
		if err != nil {
			s.logger.Error("failed to compute timing hash", "error", err)
			return ""
		}
		s.dummyHash = hash
	}
	return s.dummyHash
}

func (s *AuthService) record(ctx context.Context, event ActivityEventType, principalID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:   event,
		PrincipalID: principalID,
		Metadata:    metadata,
		OccurredAt:  s.now(),
	})
}

func (s *AuthService) internal(err error, message string) error {
	s.logger.Error(message, "error", err)
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}

func claimsPrincipal(claims TokenClaims) string {
	if claims == nil {
		return ""
	}
	return claims.Base().PrincipalID
}
