package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose discriminates the four token kinds
type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeRefresh           Purpose = "refresh"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

// IsValid reports whether p is a known purpose
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposePasswordReset, PurposeEmailVerification:
		return true
	default:
		return false
	}
}

// carriesRole reports whether claims of this purpose embed the principal role
func (p Purpose) carriesRole() bool {
	return p == PurposeAccess || p == PurposeRefresh
}

// ClaimsSubject is the principal snapshot tokens are minted from.
type ClaimsSubject struct {
	PrincipalID string
	Email       string
	Role        Role
}

// TokenClaims is the closed set of claim shapes. The only implementations
// are AccessClaims, RefreshClaims, ResetClaims and VerificationClaims.
type TokenClaims interface {
	jwt.Claims
	Purpose() Purpose
	Base() *BaseClaims
	sealed()
}

// BaseClaims holds the fields shared by every purpose
type BaseClaims struct {
	jwt.RegisteredClaims
	PrincipalID string  `json:"pid"`
	Email       string  `json:"email"`
	Kind        Purpose `json:"purpose"`
}

// Base returns the shared claim fields
func (c *BaseClaims) Base() *BaseClaims { return c }

// Purpose returns the purpose discriminator
func (c *BaseClaims) Purpose() Purpose { return c.Kind }

// TokenID returns the jti claim
func (c *BaseClaims) TokenID() string { return c.RegisteredClaims.ID }

// Expires returns the expiration time
func (c *BaseClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *BaseClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func (c *BaseClaims) sealed() {}

type AccessClaims struct {
	BaseClaims
	Role Role `json:"role"`
}

type RefreshClaims struct {
	BaseClaims
	Role Role `json:"role"`
}

type ResetClaims struct {
	BaseClaims
}

type VerificationClaims struct {
	BaseClaims
}

var (
	_ TokenClaims = (*AccessClaims)(nil)
	_ TokenClaims = (*RefreshClaims)(nil)
	_ TokenClaims = (*ResetClaims)(nil)
	_ TokenClaims = (*VerificationClaims)(nil)
)

// wireClaims is the superset shape used to parse any token before it is
// narrowed into one of the tagged claim types.
type wireClaims struct {
	jwt.RegisteredClaims
	PrincipalID string  `json:"pid"`
	Email       string  `json:"email"`
	Kind        Purpose `json:"purpose"`
	Role        Role    `json:"role,omitempty"`
}

// narrow validates the payload shape for its declared purpose. An
// access-shaped payload can never come out as refresh, reset or
// verification claims.
func (w *wireClaims) narrow() (TokenClaims, bool) {
	if w.PrincipalID == "" || w.ID == "" || !w.Kind.IsValid() {
		return nil, false
	}

	if w.Kind.carriesRole() && !w.Role.IsValid() {
		return nil, false
	}

	if !w.Kind.carriesRole() && w.Role != "" {
		return nil, false
	}

	base := BaseClaims{
		RegisteredClaims: w.RegisteredClaims,
		PrincipalID:      w.PrincipalID,
		Email:            w.Email,
		Kind:             w.Kind,
	}

	switch w.Kind {
	case PurposeAccess:
		return &AccessClaims{BaseClaims: base, Role: w.Role}, true
	case PurposeRefresh:
		return &RefreshClaims{BaseClaims: base, Role: w.Role}, true
	case PurposePasswordReset:
		return &ResetClaims{BaseClaims: base}, true
	case PurposeEmailVerification:
		return &VerificationClaims{BaseClaims: base}, true
	}

	return nil, false
}

func newClaims(purpose Purpose, subject ClaimsSubject, registered jwt.RegisteredClaims) TokenClaims {
	base := BaseClaims{
		RegisteredClaims: registered,
		PrincipalID:      subject.PrincipalID,
		Email:            subject.Email,
		Kind:             purpose,
	}

	switch purpose {
	case PurposeAccess:
		return &AccessClaims{BaseClaims: base, Role: subject.Role}
	case PurposeRefresh:
		return &RefreshClaims{BaseClaims: base, Role: subject.Role}
	case PurposePasswordReset:
		return &ResetClaims{BaseClaims: base}
	case PurposeEmailVerification:
		return &VerificationClaims{BaseClaims: base}
	}

	return nil
}
