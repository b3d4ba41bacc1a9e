package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/goliatone/go-authsession"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testPassword    = "P@ssw0rd1"
	testNewPassword = "N3w-Secure!Key"
)

type captureMailer struct {
	mu           sync.Mutex
	verification map[string][]string
	reset        map[string][]string
	err          error
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		verification: map[string][]string{},
		reset:        map[string][]string{},
	}
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[to] = append(m.verification[to], token)
	return m.err
}

func (m *captureMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[to] = append(m.reset[to], token)
	return m.err
}

func (m *captureMailer) lastVerification(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.verification[to]
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func (m *captureMailer) lastReset(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.reset[to]
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

type serviceFixture struct {
	svc      *auth.AuthService
	store    *auth.MemoryStore
	registry *auth.MemoryRevocationRegistry
	mailer   *captureMailer
	sink     *captureSink
}

func newServiceFixture(t *testing.T, mutate ...func(*auth.Config)) *serviceFixture {
	t.Helper()

	cfg := validConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	require.NoError(t, cfg.Validate())

	f := &serviceFixture{
		store:    auth.NewMemoryStore(cfg.GetMaxSessions()),
		registry: auth.NewMemoryRevocationRegistry(nil),
		mailer:   newCaptureMailer(),
		sink:     &captureSink{},
	}

	f.svc = auth.NewAuthService(cfg, f.store, f.registry).
		WithLogger(auth.NewZapLogger(zaptest.NewLogger(t))).
		WithMailer(f.mailer).
		WithActivitySink(f.sink)

	t.Cleanup(f.svc.Wait)
	return f
}

func (f *serviceFixture) register(t *testing.T, email string) *auth.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), auth.RegisterInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}

func (f *serviceFixture) login(t *testing.T, email, password string) *auth.AuthResult {
	t.Helper()
	res, err := f.svc.Login(context.Background(), auth.LoginInput{Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func (f *serviceFixture) sessions(t *testing.T, principalID string) []auth.SessionEntry {
	t.Helper()
	sessions, err := f.svc.Sessions(context.Background(), principalID)
	require.NoError(t, err)
	return sessions
}

func TestAuthService_Register(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, auth.RegisterInput{Email: "Alice@Example.com", Password: testPassword})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", res.Principal.Email)
	assert.Equal(t, auth.RoleUser, res.Principal.Role)
	assert.True(t, res.Principal.Active)
	assert.False(t, res.Principal.EmailVerified)
	assert.True(t, auth.IsUUID(res.Principal.ID))
	assert.Equal(t, auth.PasswordMedium, res.PasswordStrength)
	assert.Equal(t, "Bearer", res.Tokens.TokenType)
	assert.Equal(t, int64(900), res.Tokens.ExpiresIn)

	verified := f.svc.Verifier().Verify(ctx, res.Tokens.AccessToken, auth.PurposeAccess)
	require.True(t, verified.Valid)
	assert.Equal(t, res.Principal.ID, verified.Claims.Base().PrincipalID)

	assert.Len(t, f.sessions(t, res.Principal.ID), 1)

	f.svc.Wait()
	token := f.mailer.lastVerification("alice@example.com")
	require.NotEmpty(t, token)
	claims, err := f.svc.Tokens().Decode(token)
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeEmailVerification, claims.Purpose())

	assert.Contains(t, f.sink.Types(), auth.ActivityEventRegister)
	assert.Contains(t, f.sink.Types(), auth.ActivityEventEmailVerificationSent)
}

func TestAuthService_RegisterRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "bob@example.com")

	_, err := f.svc.Register(ctx, auth.RegisterInput{Email: "BOB@example.com", Password: testPassword})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeDuplicateAccount))

	_, err = f.svc.Register(ctx, auth.RegisterInput{Email: "not-an-email", Password: testPassword})
	require.Error(t, err)
	fields, ok := goerrors.GetValidationErrors(err)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Field)

	_, err = f.svc.Register(ctx, auth.RegisterInput{Email: "carol@example.com", Password: "password"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy))

	_, err = f.svc.Register(ctx, auth.RegisterInput{Email: "dave@example.com", Password: testPassword, Role: "root"})
	assert.True(t, goerrors.IsValidation(err))
}

func TestAuthService_RegisterWithRole(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Email:    "mod@example.com",
		Password: testPassword,
		Role:     auth.RoleModerator,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, res.Principal.Role)
}

func TestAuthService_DeterministicIDs(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.WithDeterministicIDs(true)

	res := f.register(t, "hash@example.com")

	expected, err := hashid.NewUUID("hash@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected.String(), res.Principal.ID)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "erin@example.com")

	_, wrongPassword := f.svc.Login(ctx, auth.LoginInput{Email: "erin@example.com", Password: "Wr0ng!Passw"})
	_, unknownAccount := f.svc.Login(ctx, auth.LoginInput{Email: "nobody@example.com", Password: "Wr0ng!Passw"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownAccount)
	assert.True(t, auth.HasTextCode(wrongPassword, auth.TextCodeInvalidCredentials))
	assert.True(t, auth.HasTextCode(unknownAccount, auth.TextCodeInvalidCredentials))
	assert.Equal(t, wrongPassword.Error(), unknownAccount.Error())

	assert.Equal(t, 2, f.sink.Count(auth.ActivityEventLoginFailure))
}

func TestAuthService_LoginInactive(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	hash, err := auth.NewHasher(4, 1).Hash(ctx, testPassword)
	require.NoError(t, err)
	_, err = f.store.Create(ctx, &auth.Principal{
		ID:           auth.NewPrincipalID(),
		Email:        "frozen@example.com",
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Active:       false,
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, auth.LoginInput{Email: "frozen@example.com", Password: testPassword})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountInactive))
}

func TestAuthService_LoginRequiresVerification(t *testing.T) {
	f := newServiceFixture(t, func(c *auth.Config) { c.RequireEmailVerification = true })
	ctx := context.Background()
	f.register(t, "gina@example.com")

	_, err := f.svc.Login(ctx, auth.LoginInput{Email: "gina@example.com", Password: testPassword})
	require.True(t, auth.HasTextCode(err, auth.TextCodeAccountUnverified))

	f.svc.Wait()
	_, _, err = f.svc.VerifyEmail(ctx, f.mailer.lastVerification("gina@example.com"))
	require.NoError(t, err)

	res := f.login(t, "gina@example.com", testPassword)
	assert.NotNil(t, res.Principal.LastLoginAt)
}

func TestAuthService_RefreshIsSingleUse(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "hank@example.com")

	rotated, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.Error(t, err)
	assert.True(t, goerrors.IsAuth(err))

	again, err := f.svc.Refresh(ctx, rotated.Tokens.RefreshToken)
	require.NoError(t, err)

	sessions := f.sessions(t, reg.Principal.ID)
	require.Len(t, sessions, 1)
	assert.Equal(t, again.Tokens.RefreshTokenID, sessions[0].TokenID)
}

func TestAuthService_RefreshRejectsOtherPurposes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "ivy@example.com")

	_, err := f.svc.Refresh(ctx, reg.Tokens.AccessToken)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenPurposeMismatch))

	_, err = f.svc.Refresh(ctx, "")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeMissingToken))

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidToken))
}

func TestAuthService_RefreshWithoutSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "jack@example.com")

	// a validly signed refresh token that was never stored as a session
	stray, err := f.svc.Tokens().Issue(auth.PurposeRefresh, reg.Principal.Subject())
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, stray.Token)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidToken))
	assert.Contains(t, f.sink.Types(), auth.ActivityEventRefreshFailure)
}

func TestAuthService_ConcurrentRefreshOneWins(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "kate@example.com")

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Len(t, f.sessions(t, reg.Principal.ID), 1)
}

func TestAuthService_SessionCapEvictsOldest(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "liam@example.com")
	require.NoError(t, f.svc.LogoutAll(ctx, reg.Principal.ID, nil))

	var logins []*auth.AuthResult
	for i := 0; i < 6; i++ {
		logins = append(logins, f.login(t, "liam@example.com", testPassword))
	}

	sessions := f.sessions(t, reg.Principal.ID)
	require.Len(t, sessions, auth.DefaultMaxSessions)
	assert.Equal(t, logins[1].Tokens.RefreshTokenID, sessions[0].TokenID)
	assert.Equal(t, logins[5].Tokens.RefreshTokenID, sessions[4].TokenID)

	revoked, err := f.registry.IsRevoked(ctx, logins[0].Tokens.RefreshTokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.svc.Refresh(ctx, logins[0].Tokens.RefreshToken)
	assert.Error(t, err)

	_, err = f.svc.Refresh(ctx, logins[1].Tokens.RefreshToken)
	assert.NoError(t, err)

	assert.Equal(t, 1, f.sink.Count(auth.ActivityEventSessionEvicted))
}

func TestAuthService_Logout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "mia@example.com")
	other := f.login(t, "mia@example.com", testPassword)

	access := f.svc.Verifier().Verify(ctx, reg.Tokens.AccessToken, auth.PurposeAccess)
	require.True(t, access.Valid)

	err := f.svc.Logout(ctx, auth.LogoutInput{
		PrincipalID:  reg.Principal.ID,
		RefreshToken: reg.Tokens.RefreshToken,
		AccessClaims: access.Claims.(*auth.AccessClaims),
	})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.Error(t, err)

	res := f.svc.Verifier().Verify(ctx, reg.Tokens.AccessToken, auth.PurposeAccess)
	assert.Equal(t, auth.ReasonRevoked, res.Reason)

	sessions := f.sessions(t, reg.Principal.ID)
	require.Len(t, sessions, 1)
	assert.Equal(t, other.Tokens.RefreshTokenID, sessions[0].TokenID)

	err = f.svc.Logout(ctx, auth.LogoutInput{PrincipalID: reg.Principal.ID, RefreshToken: reg.Tokens.RefreshToken})
	assert.NoError(t, err, "logout is idempotent")

	err = f.svc.Logout(ctx, auth.LogoutInput{})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnauthorized))
}

func TestAuthService_LogoutIgnoresForeignTokens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "nora@example.com")
	bob := f.register(t, "oscar@example.com")

	err := f.svc.Logout(ctx, auth.LogoutInput{PrincipalID: alice.Principal.ID, RefreshToken: bob.Tokens.RefreshToken})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, bob.Tokens.RefreshToken)
	assert.NoError(t, err, "another principal's session is untouched")
}

func TestAuthService_LogoutAll(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "pia@example.com")
	second := f.login(t, "pia@example.com", testPassword)

	require.NoError(t, f.svc.LogoutAll(ctx, reg.Principal.ID, nil))

	assert.Empty(t, f.sessions(t, reg.Principal.ID))
	for _, token := range []string{reg.Tokens.RefreshToken, second.Tokens.RefreshToken} {
		_, err := f.svc.Refresh(ctx, token)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenRevoked))
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "quinn@example.com")
	second := f.login(t, "quinn@example.com", testPassword)

	_, err := f.svc.ChangePassword(ctx, auth.ChangePasswordInput{
		PrincipalID:     reg.Principal.ID,
		CurrentPassword: "Wr0ng!Passw",
		NewPassword:     testNewPassword,
	})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))

	_, err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{
		PrincipalID:     reg.Principal.ID,
		CurrentPassword: testPassword,
		NewPassword:     testPassword,
	})
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy))

	strength, err := f.svc.ChangePassword(ctx, auth.ChangePasswordInput{
		PrincipalID:     reg.Principal.ID,
		CurrentPassword: testPassword,
		NewPassword:     testNewPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.PasswordStrong, strength)

	for _, token := range []string{reg.Tokens.RefreshToken, second.Tokens.RefreshToken} {
		_, err := f.svc.Refresh(ctx, token)
		assert.Error(t, err, "sessions opened with the old password are gone")
	}

	_, err = f.svc.Login(ctx, auth.LoginInput{Email: "quinn@example.com", Password: testPassword})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))

	f.login(t, "quinn@example.com", testNewPassword)
	assert.Contains(t, f.sink.Types(), auth.ActivityEventPasswordChanged)
}

func TestAuthService_ForgotPasswordIsGeneric(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "rosa@example.com")

	known, err := f.svc.ForgotPassword(ctx, "rosa@example.com")
	require.NoError(t, err)
	unknown, err := f.svc.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)

	assert.Equal(t, auth.ForgotPasswordMessage, known)
	assert.Equal(t, known, unknown)

	f.svc.Wait()
	assert.NotEmpty(t, f.mailer.lastReset("rosa@example.com"))
	assert.Empty(t, f.mailer.lastReset("ghost@example.com"))

	_, err = f.svc.ForgotPassword(ctx, "nope")
	assert.True(t, goerrors.IsValidation(err))
}

func TestAuthService_ResetPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "sam@example.com")

	_, err := f.svc.ForgotPassword(ctx, "sam@example.com")
	require.NoError(t, err)
	f.svc.Wait()
	token := f.mailer.lastReset("sam@example.com")
	require.NotEmpty(t, token)

	_, err = f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: reg.Tokens.AccessToken, NewPassword: testNewPassword})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenPurposeMismatch))

	_, err = f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: token, NewPassword: "short"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy))

	strength, err := f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: token, NewPassword: testNewPassword})
	require.NoError(t, err)
	assert.Equal(t, auth.PasswordStrong, strength)

	_, err = f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: token, NewPassword: "An0ther!Secret"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenRevoked), "reset tokens work once")

	assert.Empty(t, f.sessions(t, reg.Principal.ID))
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.Error(t, err)

	f.login(t, "sam@example.com", testNewPassword)
}

func TestAuthService_ResetPasswordExpiredToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "tara@example.com")

	expired, err := f.svc.Tokens().Issue(auth.PurposePasswordReset, reg.Principal.Subject(), auth.IssueOptions{
		IssuedAt: time.Now().Add(-2 * time.Hour),
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: expired.Token, NewPassword: testNewPassword})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenExpired))
}

func TestAuthService_VerifyEmailIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "uma@example.com")

	f.svc.Wait()
	token := f.mailer.lastVerification("uma@example.com")
	require.NotEmpty(t, token)

	principal, changed, err := f.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, principal.EmailVerified)

	principal, changed, err = f.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, principal.EmailVerified)

	assert.Equal(t, 1, f.sink.Count(auth.ActivityEventEmailVerified))

	_, _, err = f.svc.VerifyEmail(ctx, reg.Tokens.RefreshToken)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenPurposeMismatch))

	_, _, err = f.svc.VerifyEmail(ctx, "")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeMissingToken))
}

func TestAuthService_ResendVerification(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "vera@example.com")

	require.NoError(t, f.svc.ResendVerification(ctx, reg.Principal.ID))
	f.svc.Wait()

	f.mailer.mu.Lock()
	sent := len(f.mailer.verification["vera@example.com"])
	f.mailer.mu.Unlock()
	assert.Equal(t, 2, sent)

	err := f.svc.ResendVerification(ctx, "missing")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnauthorized))
}

func TestAuthService_RememberMe(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "will@example.com")

	res, err := f.svc.Login(ctx, auth.LoginInput{Email: "will@example.com", Password: testPassword, RememberMe: true})
	require.NoError(t, err)
	assert.True(t, res.RememberMe)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), res.Tokens.RefreshExpiresAt, 5*time.Second)

	rotated, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, rotated.RememberMe)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), rotated.Tokens.RefreshExpiresAt, 5*time.Second)

	plain := f.login(t, "will@example.com", testPassword)
	assert.False(t, plain.RememberMe)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), plain.Tokens.RefreshExpiresAt, 5*time.Second)
}

func TestAuthService_MailFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(t)
	f.mailer.err = errors.New("smtp down")

	res := f.register(t, "xena@example.com")
	assert.NotEmpty(t, res.Tokens.AccessToken)

	msg, err := f.svc.ForgotPassword(context.Background(), "xena@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.ForgotPasswordMessage, msg)
}

func TestAuthService_Me(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	reg := f.register(t, "yara@example.com")

	me, err := f.svc.Me(ctx, reg.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, "yara@example.com", me.Email)

	_, err = f.svc.Me(ctx, "missing")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUnauthorized))
}

func TestAuthService_ConcurrentResetOneWins(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, "rita@example.com")

	_, err := f.svc.ForgotPassword(ctx, "rita@example.com")
	require.NoError(t, err)
	f.svc.Wait()
	token := f.mailer.lastReset("rita@example.com")
	require.NotEmpty(t, token)

	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		reused atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ResetPassword(ctx, auth.ResetPasswordInput{Token: token, NewPassword: testNewPassword})
			switch {
			case err == nil:
				wins.Add(1)
			case auth.HasTextCode(err, auth.TextCodeTokenRevoked):
				reused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), reused.Load())
	assert.Equal(t, 1, f.sink.Count(auth.ActivityEventPasswordResetSuccess))
}

func TestAuthService_PasswordsOverBcryptLimit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	long := strings.Repeat("Kq7!", 20)
	require.Greater(t, len(long), auth.MaxPasswordBytes)

	_, err := f.svc.Register(ctx, auth.RegisterInput{Email: "long@example.com", Password: long})
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy), "got %v", err)

	reg := f.register(t, "short@example.com")
	_, err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{
		PrincipalID:     reg.Principal.ID,
		CurrentPassword: testPassword,
		NewPassword:     long,
	})
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy), "got %v", err)

	// a custom policy without a cap still cannot push bcrypt past its limit
	f.svc.WithPasswordPolicy(auth.PasswordPolicy{MinLength: 1})
	_, err = f.svc.Register(ctx, auth.RegisterInput{Email: "custom@example.com", Password: long})
	assert.True(t, auth.HasTextCode(err, auth.TextCodePasswordPolicy), "got %v", err)
}

type recordingHasher struct {
	auth.PasswordHasher
	mu       sync.Mutex
	compared []string
}

func (h *recordingHasher) Compare(ctx context.Context, password, hash string) error {
	h.mu.Lock()
	h.compared = append(h.compared, hash)
	h.mu.Unlock()
	return h.PasswordHasher.Compare(ctx, password, hash)
}

func TestAuthService_UnknownAccountTimingHashSurvivesCancellation(t *testing.T) {
	f := newServiceFixture(t)
	hasher := &recordingHasher{PasswordHasher: auth.NewHasher(4, 1)}
	f.svc.WithHasher(hasher)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Login(cancelled, auth.LoginInput{Email: "ghost@example.com", Password: "Wr0ng!Passw"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))

	_, err = f.svc.Login(context.Background(), auth.LoginInput{Email: "ghost@example.com", Password: "Wr0ng!Passw"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))

	hasher.mu.Lock()
	defer hasher.mu.Unlock()
	require.Len(t, hasher.compared, 2)
	for _, hash := range hasher.compared {
		assert.NotEmpty(t, hash)
	}
	assert.Equal(t, hasher.compared[0], hasher.compared[1])
}
