package ledger

import (
	"context"
	"fmt"
)

// migrations are applied in order; schema_migrations remembers the last one.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS match_results (
        match_id     BIGINT PRIMARY KEY,
        white_id     TEXT NOT NULL,
        black_id     TEXT NOT NULL,
        outcome      TEXT NOT NULL,
        termination  TEXT NOT NULL,
        winner_id    TEXT NOT NULL DEFAULT '',
        stake_amount BIGINT NOT NULL DEFAULT 0,
        stake_token  TEXT NOT NULL DEFAULT '',
        moves        INTEGER NOT NULL DEFAULT 0,
        final_board  TEXT NOT NULL DEFAULT '',
        recorded_at  BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS match_results_white_idx ON match_results (white_id)`,
	`CREATE INDEX IF NOT EXISTS match_results_black_idx ON match_results (black_id)`,
}

// EnsureSchema applies pending migrations.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var current int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := current; i < len(migrations); i++ {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
