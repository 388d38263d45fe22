// Package archive keeps the history of finished games in SQLite.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/sketchroom/internal/game"
)

// timeLayout has a fixed width so ended_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Match is one finished game.
type Match struct {
	ID          string         `json:"id"`
	RoomID      string         `json:"roomId"`
	TotalRounds int            `json:"totalRounds"`
	EndedAt     time.Time      `json:"endedAt"`
	Rankings    []game.Ranking `json:"rankings"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveMatch stores a finished game and returns its ID.
func (s *Store) SaveMatch(ctx context.Context, res game.GameResult) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, room_id, total_rounds, players, ended_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, res.RoomID, res.TotalRounds, len(res.Rankings), res.EndedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("inserting match: %w", err)
	}

	for _, r := range res.Rankings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_rankings (match_id, rank, user_id, name, score)
			VALUES (?, ?, ?, ?, ?)
		`, id, r.Rank, r.UserID, r.Name, r.Score)
		if err != nil {
			return "", fmt.Errorf("inserting ranking %d: %w", r.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing match: %w", err)
	}
	return id, nil
}

// RecentMatches returns up to limit matches, newest first.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	matches, err := s.listMatches(ctx, limit)
	if err != nil || len(matches) == 0 {
		return matches, err
	}

	index := make(map[string]int, len(matches))
	for i, m := range matches {
		index[m.ID] = i
	}
	if err := s.attachRankings(ctx, matches, index); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Store) listMatches(ctx context.Context, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, total_rounds, ended_at
		FROM matches
		ORDER BY ended_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		var endedAt string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.TotalRounds, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if m.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, fmt.Errorf("parsing ended_at of %s: %w", m.ID, err)
		}
		m.Rankings = []game.Ranking{}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) attachRankings(ctx context.Context, matches []Match, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.match_id, r.rank, r.user_id, r.name, r.score
		FROM match_rankings r
		JOIN (
			SELECT id FROM matches ORDER BY ended_at DESC LIMIT ?
		) m ON m.id = r.match_id
		ORDER BY r.match_id, r.rank
	`, len(matches))
	if err != nil {
		return fmt.Errorf("querying rankings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var matchID string
		var r game.Ranking
		if err := rows.Scan(&matchID, &r.Rank, &r.UserID, &r.Name, &r.Score); err != nil {
			return fmt.Errorf("scanning ranking: %w", err)
		}
		if i, ok := index[matchID]; ok {
			matches[i].Rankings = append(matches[i].Rankings, r)
		}
	}
	return rows.Err()
}

// Ping reports whether the archive database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
