package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	auth "github.com/goliatone/go-authsession"
	"github.com/uptrace/bun"
)

// RevocationStore is an auth.RevocationRegistry on the token_revocations
// table. Expired rows are ignored by lookups and removed by Purge.
type RevocationStore struct {
	db     bun.IDB
	now    func() time.Time
	logger auth.Logger
}

var _ auth.RevocationRegistry = (*RevocationStore)(nil)

func NewRevocationStore(db bun.IDB, logger auth.Logger) *RevocationStore {
	return &RevocationStore{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the clock used for expiry checks
func (r *RevocationStore) WithClock(now func() time.Time) *RevocationStore {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *RevocationStore) Revoke(ctx context.Context, entry auth.RevocationEntry) error {
	record, err := r.record(entry)
	if err != nil || record == nil {
		return err
	}

	_, err = r.db.NewInsert().
		Model(record).
		On("CONFLICT (token_id) DO UPDATE").
		Set("expires_at = EXCLUDED.expires_at").
		Set("revoked_at = EXCLUDED.revoked_at").
		Exec(ctx)
	if err != nil {
		return storeError(err, "failed to store token revocation")
	}
	return nil
}

// Claim inserts the revocation unless a row for the token already exists
func (r *RevocationStore) Claim(ctx context.Context, entry auth.RevocationEntry) (bool, error) {
	record, err := r.record(entry)
	if err != nil || record == nil {
		return false, err
	}

	res, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (token_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, storeError(err, "failed to claim token revocation")
	}
	return affected(res) == 1, nil
}

// record maps entry to a row. It returns nil when the token has already
// expired and needs no entry.
func (r *RevocationStore) record(entry auth.RevocationEntry) (*RevocationModel, error) {
	if entry.TokenID == "" {
		return nil, auth.NewValidationError("token id is required to revoke a token", nil)
	}

	now := r.now()
	record := &RevocationModel{
		TokenID:     entry.TokenID,
		PrincipalID: entry.PrincipalID,
		Purpose:     string(entry.Purpose),
		RevokedAt:   dbTime(entry.RevokedAt),
	}
	if record.RevokedAt.IsZero() {
		record.RevokedAt = dbTime(now)
	}
	if !entry.ExpiresAt.IsZero() {
		if !now.Before(entry.ExpiresAt) {
			return nil, nil
		}
		at := dbTime(entry.ExpiresAt)
		record.ExpiresAt = &at
	}
	return record, nil
}

func (r *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	record := &RevocationModel{}
	err := r.db.NewSelect().
		Model(record).
		Where("token_id = ?", tokenID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, storeError(err, "failed to look up token revocation")
	}

	if record.ExpiresAt != nil && !r.now().Before(*record.ExpiresAt) {
		return false, nil
	}
	return true, nil
}

// Purge deletes every expired revocation and returns how many were removed
func (r *RevocationStore) Purge(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*RevocationModel)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", dbTime(r.now())).
		Exec(ctx)
	if err != nil {
		return 0, storeError(err, "failed to purge token revocations")
	}
	return affected(res), nil
}

// StartJanitor purges expired revocations every interval until ctx is done.
func (r *RevocationStore) StartJanitor(ctx context.Context, interval time.Duration) {
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
				n, err := r.Purge(ctx)
				if err != nil {
					r.log().Error("revocation purge failed", "error", err)
					continue
				}
				if n > 0 {
					r.log().Debug("revocation store purged expired entries", "count", n)
				}
			}
		}
	}()
}

func (r *RevocationStore) log() auth.Logger {
	if r.logger == nil {
		return noopLogger{}
	}
	return r.logger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
