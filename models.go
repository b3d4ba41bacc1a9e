package auth

import (
	"strings"
	"time"
)

// DefaultMaxSessions is the number of concurrent refresh grants a principal
// may hold before the oldest one is evicted.
const DefaultMaxSessions = 5

// Principal is the authenticated account
type Principal struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Role          Role           `json:"role"`
	Active        bool           `json:"active"`
	EmailVerified bool           `json:"email_verified"`
	Sessions      []SessionEntry `json:"-"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Subject returns the claims snapshot used to mint tokens for p.
func (p *Principal) Subject() ClaimsSubject {
	return ClaimsSubject{
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        p.Role,
	}
}

// Clone returns a deep copy so callers never share the session slice with a store.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	if p.Sessions != nil {
		c.Sessions = append([]SessionEntry(nil), p.Sessions...)
	}
	if p.LastLoginAt != nil {
		at := *p.LastLoginAt
		c.LastLoginAt = &at
	}
	return &c
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
