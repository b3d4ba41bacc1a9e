package repository

import (
	"time"

	auth "github.com/goliatone/go-authsession"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PrincipalModel is the Bun model for accounts. Version is bumped by every
// session mutation so concurrent writers for one principal serialize on the
// row.
type PrincipalModel struct {
	bun.BaseModel `bun:"table:principals"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,notnull,unique"`
	PasswordHash  string     `bun:"password_hash,notnull"`
	Role          string     `bun:"role,notnull"`
	Active        bool       `bun:"active,notnull"`
	EmailVerified bool       `bun:"email_verified,notnull"`
	Version       int64      `bun:"version,notnull"`
	LastLoginAt   *time.Time `bun:"last_login_at"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull"`
}

// SessionModel is one live refresh grant. The autoincrement id gives the
// insertion order used for eviction.
type SessionModel struct {
	bun.BaseModel `bun:"table:principal_sessions"`

	ID          int64     `bun:"id,pk,autoincrement"`
	PrincipalID uuid.UUID `bun:"principal_id,notnull,type:uuid"`
	TokenID     string    `bun:"token_id,notnull"`
	TokenHash   string    `bun:"token_hash,notnull"`
	ExpiresAt   time.Time `bun:"expires_at,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// RevocationModel is one revoked token id. A NULL expires_at never expires.
type RevocationModel struct {
	bun.BaseModel `bun:"table:token_revocations"`

	TokenID     string     `bun:"token_id,pk"`
	PrincipalID string     `bun:"principal_id"`
	Purpose     string     `bun:"purpose,notnull"`
	RevokedAt   time.Time  `bun:"revoked_at,notnull"`
	ExpiresAt   *time.Time `bun:"expires_at"`
}

// dbTime normalizes times before they reach the database so stored values
// compare consistently across dialects.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func principalToModel(p *auth.Principal) (*PrincipalModel, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, auth.NewValidationError("principal id must be a UUID", err)
	}

	m := &PrincipalModel{
		ID:            id,
		Email:         auth.NormalizeEmail(p.Email),
		PasswordHash:  p.PasswordHash,
		Role:          string(p.Role),
		Active:        p.Active,
		EmailVerified: p.EmailVerified,
		CreatedAt:     dbTime(p.CreatedAt),
		UpdatedAt:     dbTime(p.UpdatedAt),
	}
	if p.LastLoginAt != nil {
		at := dbTime(*p.LastLoginAt)
		m.LastLoginAt = &at
	}
	return m, nil
}

func modelToPrincipal(m *PrincipalModel, sessions []SessionModel) *auth.Principal {
	p := &auth.Principal{
		ID:            m.ID.String(),
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Role:          auth.Role(m.Role),
		Active:        m.Active,
		EmailVerified: m.EmailVerified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.LastLoginAt != nil {
		at := *m.LastLoginAt
		p.LastLoginAt = &at
	}
	if len(sessions) > 0 {
		p.Sessions = sessionEntries(sessions)
	}
	return p
}

func sessionToModel(principalID uuid.UUID, e auth.SessionEntry) *SessionModel {
	return &SessionModel{
		PrincipalID: principalID,
		TokenID:     e.TokenID,
		TokenHash:   e.TokenHash,
		ExpiresAt:   dbTime(e.ExpiresAt),
		CreatedAt:   dbTime(e.CreatedAt),
	}
}

func (m SessionModel) entry() auth.SessionEntry {
	return auth.SessionEntry{
		TokenID:   m.TokenID,
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func sessionEntries(rows []SessionModel) []auth.SessionEntry {
	if len(rows) == 0 {
		return nil
	}
	out := make([]auth.SessionEntry, len(rows))
	for i, row := range rows {
		out[i] = row.entry()
	}
	return out
}
