package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationEntry records a token invalidated before its natural expiry
type RevocationEntry struct {
	TokenID     string    `json:"token_id"`
	PrincipalID string    `json:"principal_id"`
	Purpose     Purpose   `json:"purpose"`
	RevokedAt   time.Time `json:"revoked_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RevocationRegistry is a TTL aware set of revoked token ids. An entry only
// needs to live until the token would have expired anyway.
type RevocationRegistry interface {
	Revoke(ctx context.Context, entry RevocationEntry) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Claim revokes entry only if it is not revoked yet and reports whether
	// this call did it. Single use tokens are consumed through Claim.
	Claim(ctx context.Context, entry RevocationEntry) (bool, error)
}

// RevocationEntryFromClaims builds the entry that revokes the token claims
// were decoded from.
func RevocationEntryFromClaims(claims TokenClaims, now time.Time) RevocationEntry {
	base := claims.Base()
	return RevocationEntry{
		TokenID:     base.TokenID(),
		PrincipalID: base.PrincipalID,
		Purpose:     base.Purpose(),
		RevokedAt:   now,
		ExpiresAt:   base.Expires(),
	}
}

// RevocationEntryFromSession builds the entry that revokes a stored refresh grant
func RevocationEntryFromSession(principalID string, session SessionEntry, now time.Time) RevocationEntry {
	return RevocationEntry{
		TokenID:     session.TokenID,
		PrincipalID: principalID,
		Purpose:     PurposeRefresh,
		RevokedAt:   now,
		ExpiresAt:   session.ExpiresAt,
	}
}

// MemoryRevocationRegistry keeps revocations in process. It does not survive
// restarts and is not shared across instances; use the Redis or database
// registries for that.
type MemoryRevocationRegistry struct {
	mu      sync.RWMutex
	entries map[string]RevocationEntry
	now     func() time.Time
	logger  Logger
}

var _ RevocationRegistry = (*MemoryRevocationRegistry)(nil)

// NewMemoryRevocationRegistry creates an empty registry
func NewMemoryRevocationRegistry(logger Logger) *MemoryRevocationRegistry {
	return &MemoryRevocationRegistry{
		entries: make(map[string]RevocationEntry),
		now:     time.Now,
		logger:  normalizeLogger(logger),
	}
}

// WithClock replaces the time source, mostly for tests
func (r *MemoryRevocationRegistry) WithClock(now func() time.Time) *MemoryRevocationRegistry {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *MemoryRevocationRegistry) Revoke(_ context.Context, entry RevocationEntry) error {
	if entry.TokenID == "" {
		return NewValidationError("token id is required to revoke a token", nil)
	}

	now := r.now()
	if !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt) {
		return nil
	}
	if entry.RevokedAt.IsZero() {
		entry.RevokedAt = now
	}

	r.mu.Lock()
	r.entries[entry.TokenID] = entry
	r.mu.Unlock()
	return nil
}

func (r *MemoryRevocationRegistry) Claim(_ context.Context, entry RevocationEntry) (bool, error) {
	if entry.TokenID == "" {
		return false, NewValidationError("token id is required to revoke a token", nil)
	}

	now := r.now()
	if !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt) {
		return false, nil
	}
	if entry.RevokedAt.IsZero() {
		entry.RevokedAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.entries[entry.TokenID]; ok {
		if current.ExpiresAt.IsZero() || now.Before(current.ExpiresAt) {
			return false, nil
		}
	}
	r.entries[entry.TokenID] = entry
	return true, nil
}

func (r *MemoryRevocationRegistry) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	entry, ok := r.entries[tokenID]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !entry.ExpiresAt.IsZero() && !r.now().Before(entry.ExpiresAt) {
		return false, nil
	}
	return true, nil
}

// Len returns the number of entries currently held, expired or not
func (r *MemoryRevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Purge drops entries whose token has expired and returns how many were removed
func (r *MemoryRevocationRegistry) Purge() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		if !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// StartJanitor purges expired entries every interval until ctx is done.
func (r *MemoryRevocationRegistry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Purge(); n > 0 {
					r.logger.Debug("revocation registry purged expired entries", "count", n)
				}
			}
		}
	}()
}
