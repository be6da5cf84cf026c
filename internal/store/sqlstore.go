// internal/store/sqlstore.go
//
// SQLite-backed authoritative GameStore. The full state travels as a JSON
// blob; round and finished are mirrored into columns so stale writes can be
// rejected inside a single UPDATE and ops queries stay cheap.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mfreitag/hilo-server/internal/game"
)

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore constructs a GameStore over an opened database. The
// game_states table must exist (see sql/ migrations).
func NewSQLStore(db *sql.DB) GameStore {
	return &sqlStore{db: db}
}

func (s *sqlStore) Load(ctx context.Context, id string) (*game.State, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM game_states WHERE id=?`, id,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	var st game.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &st, nil
}

// Save upserts the state, refusing to move an unfinished game's round
// backwards. Retried network calls can deliver writes out of order; the
// round guard makes the older one lose.
func (s *sqlStore) Save(ctx context.Context, st *game.State) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", st.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO game_states (id, player_id, category, round, finished, state_json, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			round=excluded.round,
			finished=excluded.finished,
			state_json=excluded.state_json,
			updated_at=excluded.updated_at
		WHERE excluded.round >= game_states.round`,
		st.ID, st.PlayerID, st.Category, st.Round, boolInt(st.Finished), blob, now,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", st.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save game %s: %w", st.ID, err)
	}
	if n == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
