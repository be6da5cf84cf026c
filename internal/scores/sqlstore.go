// internal/scores/sqlstore.go
//
// SQLite-backed authoritative score store. Best scores are upserted with
// update-if-greater semantics directly in SQL so a row can never move down,
// even under concurrent writers.

package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Entry is one leaderboard row.
type Entry struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// Store is the authoritative per-player, per-category best-score store.
type Store interface {
	// Best returns the stored best for (playerID, category); 0 if none.
	Best(ctx context.Context, playerID, category string) (int, error)

	// Upsert records score if it is strictly greater than the stored best.
	Upsert(ctx context.Context, playerID, category string, score int) error

	// Top returns the top n players for category, best first.
	Top(ctx context.Context, category string, n int) ([]Entry, error)
}

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore constructs a Store over an opened database. The high_scores
// table must exist (see sql/ migrations).
func NewSQLStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Best(ctx context.Context, playerID, category string) (int, error) {
	var best int
	err := s.db.QueryRowContext(ctx,
		`SELECT best_score FROM high_scores WHERE player_id=? AND category=?`,
		playerID, category,
	).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read best score: %w", err)
	}
	return best, nil
}

func (s *sqlStore) Upsert(ctx context.Context, playerID, category string, score int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_scores (player_id, category, best_score, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(player_id, category) DO UPDATE SET
			best_score=excluded.best_score,
			updated_at=excluded.updated_at
		WHERE excluded.best_score > high_scores.best_score`,
		playerID, category, score, now,
	)
	if err != nil {
		return fmt.Errorf("write best score: %w", err)
	}
	return nil
}

func (s *sqlStore) Top(ctx context.Context, category string, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, best_score
		FROM high_scores
		WHERE category=?
		ORDER BY best_score DESC, updated_at ASC
		LIMIT ?`, category, n,
	)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerID, &e.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
