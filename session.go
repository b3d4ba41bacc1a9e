package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SessionEntry is one live refresh grant, roughly one logged in device.
// Only the hash of the refresh token is kept.
type SessionEntry struct {
	TokenID   string    `json:"token_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the grant is past its natural expiry at now
func (e SessionEntry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// NewSessionEntry builds the entry stored for a freshly minted refresh token
func NewSessionEntry(refreshToken, tokenID string, expiresAt, now time.Time) SessionEntry {
	return SessionEntry{
		TokenID:   tokenID,
		TokenHash: HashRefreshToken(refreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
}

// HashRefreshToken returns the hex encoded SHA-256 of token
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// appendSession adds entry at the tail, evicting from the head until the
// list holds at most max entries.
func appendSession(list []SessionEntry, entry SessionEntry, max int) ([]SessionEntry, []SessionEntry) {
	if max <= 0 {
		max = DefaultMaxSessions
	}

	var evicted []SessionEntry
	for len(list) >= max {
		evicted = append(evicted, list[0])
		list = list[1:]
	}

	out := make([]SessionEntry, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, entry)
	return out, evicted
}

// removeSession drops the entry matching tokenHash
func removeSession(list []SessionEntry, tokenHash string) ([]SessionEntry, SessionEntry, bool) {
	for i, e := range list {
		if e.TokenHash != tokenHash {
			continue
		}
		out := make([]SessionEntry, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		return out, e, true
	}
	return list, SessionEntry{}, false
}

// rotateSession consumes oldHash, which must be present and unexpired, and
// appends next.
func rotateSession(list []SessionEntry, oldHash string, next SessionEntry, max int, now time.Time) ([]SessionEntry, []SessionEntry, error) {
	remaining, old, found := removeSession(list, oldHash)
	if !found || old.IsExpired(now) {
		return list, nil, ErrSessionNotFound
	}
	out, evicted := appendSession(remaining, next, max)
	return out, evicted, nil
}
