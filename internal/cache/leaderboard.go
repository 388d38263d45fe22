// Package cache mirrors live room standings into Redis for consumers outside
// this process.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/sketchroom/internal/game"
)

const (
	defaultTTL   = 24 * time.Hour
	queueSize    = 256
	writeTimeout = 2 * time.Second
)

// Entry is one mirrored leaderboard line.
type Entry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

type update struct {
	roomID string
	scores []game.ScoreEntry
	drop   bool
}

// Leaderboard is a game.Observer that writes each room's scores to a sorted
// set. Writes happen on the Run goroutine, never on the caller's.
type Leaderboard struct {
	client *redis.Client
	ttl    time.Duration
	queue  chan update
	logger *slog.Logger
}

func NewLeaderboard(client *redis.Client, logger *slog.Logger) *Leaderboard {
	return &Leaderboard{
		client: client,
		ttl:    defaultTTL,
		queue:  make(chan update, queueSize),
		logger: logger,
	}
}

func scoresKey(roomID string) string { return fmt.Sprintf("room:%s:lb", roomID) }
func namesKey(roomID string) string  { return fmt.Sprintf("room:%s:names", roomID) }

func (l *Leaderboard) ScoresUpdated(roomID string, scores []game.ScoreEntry) {
	l.enqueue(update{roomID: roomID, scores: scores})
}

func (l *Leaderboard) RoomClosed(roomID string) {
	l.enqueue(update{roomID: roomID, drop: true})
}

func (l *Leaderboard) GameEnded(game.GameResult) {}

func (l *Leaderboard) enqueue(u update) {
	select {
	case l.queue <- u:
	default:
		l.logger.Warn("leaderboard queue full, dropping update", "room_id", u.roomID)
	}
}

// Run applies queued updates until ctx is done.
func (l *Leaderboard) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-l.queue:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := l.apply(wctx, u); err != nil {
				l.logger.Error("mirroring leaderboard", "room_id", u.roomID, "error", err)
			}
			cancel()
		}
	}
}

func (l *Leaderboard) apply(ctx context.Context, u update) error {
	if u.drop {
		return l.client.Del(ctx, scoresKey(u.roomID), namesKey(u.roomID)).Err()
	}

	members := make([]redis.Z, len(u.scores))
	names := make(map[string]any, len(u.scores))
	for i, s := range u.scores {
		members[i] = redis.Z{Score: float64(s.Score), Member: s.UserID}
		names[s.UserID] = s.Name
	}

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, scoresKey(u.roomID), namesKey(u.roomID))
		if len(members) > 0 {
			pipe.ZAdd(ctx, scoresKey(u.roomID), members...)
			pipe.HSet(ctx, namesKey(u.roomID), names)
			pipe.Expire(ctx, scoresKey(u.roomID), l.ttl)
			pipe.Expire(ctx, namesKey(u.roomID), l.ttl)
		}
		return nil
	})
	return err
}

// Top reads back the highest limit scores of a room.
func (l *Leaderboard) Top(ctx context.Context, roomID string, limit int) ([]Entry, error) {
	results, err := l.client.ZRevRangeWithScores(ctx, scoresKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(results))
	ids := make([]string, len(results))
	for i, z := range results {
		id, _ := z.Member.(string)
		ids[i] = id
		entries[i] = Entry{UserID: id, Score: int(z.Score), Rank: i + 1}
	}
	if len(ids) == 0 {
		return entries, nil
	}

	names, err := l.client.HMGet(ctx, namesKey(roomID), ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		if s, ok := n.(string); ok {
			entries[i].Name = s
		}
	}
	return entries, nil
}

// Ping reports whether Redis is reachable.
func (l *Leaderboard) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
