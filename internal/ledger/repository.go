// Package ledger keeps a relational record of finished matches.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vladiouz/on-chain-chess/internal/match"
)

// Result is a finished match as stored in match_results.
type Result struct {
	MatchID     uint64
	White       string
	Black       string
	Outcome     string
	Termination string
	Winner      string
	StakeAmount uint64
	StakeToken  string
	Moves       int
	FinalBoard  string
	RecordedAt  time.Time
}

// Standing is a player's total points across recorded results.
type Standing struct {
	Player string
	Points int64
}

type Repository struct {
	db      *sql.DB
	dialect string
}

// Open picks the driver from dsn: postgres:// URLs use lib/pq, anything
// prefixed sqlite: (or file:, :memory:) uses the embedded sqlite driver.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	driver, source := "postgres", dsn
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		driver, source = "sqlite", strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		driver = "sqlite"
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer; :memory: databases are per-connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	r := NewRepository(db, driver)
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func NewRepository(db *sql.DB, dialect string) *Repository {
	return &Repository{db: db, dialect: dialect}
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *Repository) rebind(q string) string {
	if r.dialect != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// SaveResult upserts the result of a finished match. Ongoing matches are ignored.
func (r *Repository) SaveResult(ctx context.Context, m *match.Match) error {
	if r == nil || r.db == nil || m == nil || !m.State.Terminal() {
		return nil
	}
	q := r.rebind(`INSERT INTO match_results (
        match_id, white_id, black_id, outcome, termination, winner_id,
        stake_amount, stake_token, moves, final_board, recorded_at
      ) VALUES (?,?,?,?,?,?,?,?,?,?,?)
      ON CONFLICT (match_id) DO UPDATE SET
        white_id=EXCLUDED.white_id,
        black_id=EXCLUDED.black_id,
        outcome=EXCLUDED.outcome,
        termination=EXCLUDED.termination,
        winner_id=EXCLUDED.winner_id,
        stake_amount=EXCLUDED.stake_amount,
        stake_token=EXCLUDED.stake_token,
        moves=EXCLUDED.moves,
        final_board=EXCLUDED.final_board,
        recorded_at=EXCLUDED.recorded_at`)

	_, err := r.db.ExecContext(ctx, q,
		int64(m.ID), m.White, m.Black,
		m.State.String(), string(m.Termination), m.Winner,
		int64(m.Stake.Amount), m.Stake.Token, m.Moves,
		encodeBoard(m), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save result %d: %w", m.ID, err)
	}
	return nil
}

// Result loads the recorded result of a match, or sql.ErrNoRows.
func (r *Repository) Result(ctx context.Context, matchID uint64) (*Result, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT match_id, white_id, black_id, outcome, termination,
        winner_id, stake_amount, stake_token, moves, final_board, recorded_at
      FROM match_results WHERE match_id = ?`), int64(matchID))
	return scanResult(row)
}

// RecentByPlayer lists the latest results involving player.
func (r *Repository) RecentByPlayer(ctx context.Context, player string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT match_id, white_id, black_id, outcome, termination,
        winner_id, stake_amount, stake_token, moves, final_board, recorded_at
      FROM match_results WHERE white_id = ? OR black_id = ?
      ORDER BY match_id DESC LIMIT ?`), player, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Standings totals points per player from recorded results, best first.
func (r *Repository) Standings(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.rebind(fmt.Sprintf(`SELECT player, SUM(points) AS total FROM (
        SELECT winner_id AS player, %[1]d AS points FROM match_results WHERE winner_id <> ''
        UNION ALL
        SELECT white_id AS player, %[2]d AS points FROM match_results WHERE outcome = 'draw'
        UNION ALL
        SELECT black_id AS player, %[2]d AS points FROM match_results WHERE outcome = 'draw'
      ) credited GROUP BY player ORDER BY total DESC, player ASC LIMIT ?`, match.WinPoints, match.DrawPoints))
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.Player, &s.Points); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (*Result, error) {
	var (
		res      Result
		id       int64
		amount   int64
		recorded int64
	)
	if err := s.Scan(&id, &res.White, &res.Black, &res.Outcome, &res.Termination,
		&res.Winner, &amount, &res.StakeToken, &res.Moves, &res.FinalBoard, &recorded); err != nil {
		return nil, err
	}
	res.MatchID = uint64(id)
	res.StakeAmount = uint64(amount)
	res.RecordedAt = time.UnixMilli(recorded).UTC()
	return &res, nil
}

// encodeBoard stores the final position as comma-separated cell codes.
func encodeBoard(m *match.Match) string {
	codes := m.Board.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, ",")
}
