package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// PrincipalStore is the persistent store for account records.
type PrincipalStore interface {
	// Create persists a new principal. Returns ErrDuplicateAccount when the
	// email is already registered.
	Create(ctx context.Context, principal *Principal) (*Principal, error)
	// FindByID returns ErrPrincipalNotFound when there is no match.
	FindByID(ctx context.Context, id string) (*Principal, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	// MarkEmailVerified reports whether the flag was flipped by this call.
	MarkEmailVerified(ctx context.Context, id string) (bool, error)
	TrackLogin(ctx context.Context, id string, at time.Time) error
	// ReplacePassword stores the new hash and clears every session as a
	// single unit, returning the cleared entries.
	ReplacePassword(ctx context.Context, id, passwordHash string) ([]SessionEntry, error)
}

// SessionStore holds the live refresh grants of each principal. Every
// mutation is linearizable per principal.
type SessionStore interface {
	// AddSession appends the entry, evicting the oldest entries first so the
	// list never exceeds the configured cap.
	AddSession(ctx context.Context, principalID string, entry SessionEntry) (evicted []SessionEntry, err error)
	// RemoveSession removes the entry matching tokenHash.
	RemoveSession(ctx context.Context, principalID, tokenHash string) (bool, error)
	// RotateSession consumes oldHash and adds next in one step. It returns
	// ErrSessionNotFound when oldHash is not a live session.
	RotateSession(ctx context.Context, principalID, oldHash string, next SessionEntry) (evicted []SessionEntry, err error)
	ClearSessions(ctx context.Context, principalID string) ([]SessionEntry, error)
	ListSessions(ctx context.Context, principalID string) ([]SessionEntry, error)
}

// Store is what AuthService needs from persistence.
type Store interface {
	PrincipalStore
	SessionStore
}

// Mailer delivers verification and reset tokens. Delivery is best effort.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Println(formatLine("[ERR] AUTH ", format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Println(formatLine("[WRN] AUTH ", format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Println(formatLine("[INF] AUTH ", format, args...))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Println(formatLine("[DBG] AUTH ", format, args...))
}

func formatLine(prefix, msg string, args ...any) string {
	line := prefix + msg
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		line += fmt.Sprintf(" %v", args[len(args)-1])
	}
	return line
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
