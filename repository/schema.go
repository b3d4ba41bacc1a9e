package repository

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateSchema creates the principals, principal_sessions and
// token_revocations tables with their lookup indexes. It is safe to call on
// an existing schema.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*PrincipalModel)(nil),
		(*SessionModel)(nil),
		(*RevocationModel)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*SessionModel)(nil), "idx_principal_sessions_principal", []string{"principal_id", "token_hash"}},
		{(*RevocationModel)(nil), "idx_token_revocations_expires_at", []string{"expires_at"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}
