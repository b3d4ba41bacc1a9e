package auth

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewTokenID returns a lexicographically sortable token identifier (jti).
func NewTokenID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewPrincipalID returns a random principal identifier
func NewPrincipalID() string {
	return uuid.NewString()
}

// IsUUID reports whether id parses as a UUID
func IsUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
