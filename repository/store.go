package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	auth "github.com/goliatone/go-authsession"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is a Bun backed auth.Store. Every session mutation runs in one
// transaction that first bumps the principal's version, so writers for the
// same principal are serialized by the database.
type Store struct {
	db          *bun.DB
	principals  repository.Repository[*PrincipalModel]
	maxSessions int
	now         func() time.Time
}

var (
	_ auth.Store                    = (*Store)(nil)
	_ repository.TransactionManager = (*Store)(nil)
)

type StoreOption func(*Store)

// WithMaxSessions sets the per principal session cap
func WithMaxSessions(max int) StoreOption {
	return func(s *Store) {
		if max > 0 {
			s.maxSessions = max
		}
	}
}

// WithStoreClock overrides the clock used for timestamps and expiry checks
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:          db,
		principals:  NewPrincipalsRepository(db),
		maxSessions: auth.DefaultMaxSessions,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewPrincipalsRepository returns the generic repository for principals.
// Identifier lookups match on email.
func NewPrincipalsRepository(db *bun.DB) repository.Repository[*PrincipalModel] {
	return repository.NewRepository[*PrincipalModel](db, repository.ModelHandlers[*PrincipalModel]{
		NewRecord: func() *PrincipalModel { return &PrincipalModel{} },
		GetID: func(p *PrincipalModel) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *PrincipalModel, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
}

func (s *Store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s *Store) Create(ctx context.Context, principal *auth.Principal) (*auth.Principal, error) {
	if principal == nil || principal.ID == "" {
		return nil, auth.NewValidationError("principal id is required", nil)
	}

	record, err := principalToModel(principal)
	if err != nil {
		return nil, err
	}

	if _, err := s.principals.GetByIdentifier(ctx, record.Email); err == nil {
		return nil, auth.NewDuplicateAccountError()
	} else if !isNotFound(err) {
		return nil, storeError(err, "failed to look up principal")
	}

	now := dbTime(s.now())
	if principal.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version = 0

	created, err := s.principals.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.NewDuplicateAccountError()
		}
		return nil, storeError(err, "failed to create principal")
	}

	return modelToPrincipal(created, nil), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*auth.Principal, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, auth.ErrPrincipalNotFound
	}

	record, err := s.principals.GetByID(ctx, pid.String())
	if err != nil {
		if isNotFound(err) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, storeError(err, "failed to load principal")
	}

	return s.withSessions(ctx, record)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	record, err := s.principals.GetByIdentifier(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, storeError(err, "failed to load principal")
	}

	return s.withSessions(ctx, record)
}

func (s *Store) withSessions(ctx context.Context, record *PrincipalModel) (*auth.Principal, error) {
	rows, err := selectSessions(ctx, s.db, record.ID)
	if err != nil {
		return nil, storeError(err, "failed to load sessions")
	}
	return modelToPrincipal(record, rows), nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := s.withPrincipal(ctx, id, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		res, err := tx.NewUpdate().
			Model((*PrincipalModel)(nil)).
			Set("email_verified = ?", true).
			Where("id = ?", pid).
			Where("email_verified = ?", false).
			Exec(ctx)
		if err != nil {
			return storeError(err, "failed to mark email verified")
		}
		changed = affected(res) > 0
		return nil
	})
	return changed, err
}

func (s *Store) TrackLogin(ctx context.Context, id string, at time.Time) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return auth.ErrPrincipalNotFound
	}

	res, err := s.db.NewUpdate().
		Model((*PrincipalModel)(nil)).
		Set("last_login_at = ?", dbTime(at)).
		Set("updated_at = ?", dbTime(s.now())).
		Where("id = ?", pid).
		Exec(ctx)
	if err != nil {
		return storeError(err, "failed to track login")
	}
	if affected(res) == 0 {
		return auth.ErrPrincipalNotFound
	}
	return nil
}

func (s *Store) ReplacePassword(ctx context.Context, id, passwordHash string) ([]auth.SessionEntry, error) {
	var cleared []auth.SessionEntry
	err := s.withPrincipal(ctx, id, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		entries, err := clearSessions(ctx, tx, pid)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*PrincipalModel)(nil)).
			Set("password_hash = ?", passwordHash).
			Where("id = ?", pid).
			Exec(ctx)
		if err != nil {
			return storeError(err, "failed to replace password")
		}

		cleared = entries
		return nil
	})
	return cleared, err
}

func (s *Store) AddSession(ctx context.Context, principalID string, entry auth.SessionEntry) ([]auth.SessionEntry, error) {
	var evicted []auth.SessionEntry
	err := s.withPrincipal(ctx, principalID, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		rows, err := selectSessions(ctx, tx, pid)
		if err != nil {
			return storeError(err, "failed to load sessions")
		}
		evicted, err = s.appendSession(ctx, tx, pid, rows, entry)
		return err
	})
	return evicted, err
}

func (s *Store) RemoveSession(ctx context.Context, principalID, tokenHash string) (bool, error) {
	var found bool
	err := s.withPrincipal(ctx, principalID, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		res, err := tx.NewDelete().
			Model((*SessionModel)(nil)).
			Where("principal_id = ?", pid).
			Where("token_hash = ?", tokenHash).
			Exec(ctx)
		if err != nil {
			return storeError(err, "failed to remove session")
		}
		found = affected(res) > 0
		return nil
	})
	return found, err
}

func (s *Store) RotateSession(ctx context.Context, principalID, oldHash string, next auth.SessionEntry) ([]auth.SessionEntry, error) {
	var evicted []auth.SessionEntry
	err := s.withPrincipal(ctx, principalID, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		rows, err := selectSessions(ctx, tx, pid)
		if err != nil {
			return storeError(err, "failed to load sessions")
		}

		idx := -1
		for i, row := range rows {
			if row.TokenHash == oldHash {
				idx = i
				break
			}
		}
		if idx < 0 || rows[idx].entry().IsExpired(s.now()) {
			return auth.ErrSessionNotFound
		}

		if err := deleteSessions(ctx, tx, rows[idx:idx+1]); err != nil {
			return err
		}

		remaining := append(append([]SessionModel(nil), rows[:idx]...), rows[idx+1:]...)
		evicted, err = s.appendSession(ctx, tx, pid, remaining, next)
		return err
	})
	return evicted, err
}

func (s *Store) ClearSessions(ctx context.Context, principalID string) ([]auth.SessionEntry, error) {
	var cleared []auth.SessionEntry
	err := s.withPrincipal(ctx, principalID, func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error {
		entries, err := clearSessions(ctx, tx, pid)
		cleared = entries
		return err
	})
	return cleared, err
}

func (s *Store) ListSessions(ctx context.Context, principalID string) ([]auth.SessionEntry, error) {
	pid, err := uuid.Parse(principalID)
	if err != nil {
		return nil, auth.ErrPrincipalNotFound
	}

	exists, err := s.db.NewSelect().
		Model((*PrincipalModel)(nil)).
		Where("id = ?", pid).
		Exists(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load principal")
	}
	if !exists {
		return nil, auth.ErrPrincipalNotFound
	}

	rows, err := selectSessions(ctx, s.db, pid)
	if err != nil {
		return nil, storeError(err, "failed to load sessions")
	}
	return sessionEntries(rows), nil
}

// withPrincipal runs fn in a transaction holding the principal's row lock
func (s *Store) withPrincipal(ctx context.Context, id string, fn func(ctx context.Context, tx bun.Tx, pid uuid.UUID) error) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return auth.ErrPrincipalNotFound
	}

	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*PrincipalModel)(nil)).
			Set("version = version + 1").
			Set("updated_at = ?", dbTime(s.now())).
			Where("id = ?", pid).
			Exec(ctx)
		if err != nil {
			return storeError(err, "failed to lock principal")
		}
		if affected(res) == 0 {
			return auth.ErrPrincipalNotFound
		}
		return fn(ctx, tx, pid)
	})
}

// appendSession inserts entry after evicting the oldest rows so that at most
// maxSessions remain. rows must be the principal's sessions in insertion
// order.
func (s *Store) appendSession(ctx context.Context, tx bun.IDB, pid uuid.UUID, rows []SessionModel, entry auth.SessionEntry) ([]auth.SessionEntry, error) {
	var evict []SessionModel
	for len(rows) >= s.maxSessions {
		evict = append(evict, rows[0])
		rows = rows[1:]
	}

	if err := deleteSessions(ctx, tx, evict); err != nil {
		return nil, err
	}

	if _, err := tx.NewInsert().Model(sessionToModel(pid, entry)).Exec(ctx); err != nil {
		return nil, storeError(err, "failed to store session")
	}

	return sessionEntries(evict), nil
}

func selectSessions(ctx context.Context, db bun.IDB, pid uuid.UUID) ([]SessionModel, error) {
	var rows []SessionModel
	err := db.NewSelect().
		Model(&rows).
		Where("principal_id = ?", pid).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return rows, nil
}

func deleteSessions(ctx context.Context, db bun.IDB, rows []SessionModel) error {
	if len(rows) == 0 {
		return nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	_, err := db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return storeError(err, "failed to delete sessions")
	}
	return nil
}

func clearSessions(ctx context.Context, db bun.IDB, pid uuid.UUID) ([]auth.SessionEntry, error) {
	rows, err := selectSessions(ctx, db, pid)
	if err != nil {
		return nil, storeError(err, "failed to load sessions")
	}
	if err := deleteSessions(ctx, db, rows); err != nil {
		return nil, err
	}
	return sessionEntries(rows), nil
}

func affected(res sql.Result) int64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

func storeError(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(auth.TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}
