package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/sketchroom/internal/game"
)

const (
	queueSize   = 128
	saveTimeout = 5 * time.Second
)

// Archiver is a game.Observer that saves finished games in the background.
type Archiver struct {
	store  *Store
	queue  chan game.GameResult
	logger *slog.Logger
}

func NewArchiver(store *Store, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		queue:  make(chan game.GameResult, queueSize),
		logger: logger,
	}
}

// GameEnded queues the result. A full queue drops it.
func (a *Archiver) GameEnded(res game.GameResult) {
	select {
	case a.queue <- res:
	default:
		a.logger.Warn("archive queue full, dropping match", "room_id", res.RoomID)
	}
}

func (a *Archiver) ScoresUpdated(string, []game.ScoreEntry) {}

func (a *Archiver) RoomClosed(string) {}

// Run saves queued games until ctx is done, then drains what is left.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		select {
		case res := <-a.queue:
			a.save(res)
		case <-ctx.Done():
			for {
				select {
				case res := <-a.queue:
					a.save(res)
				default:
					return nil
				}
			}
		}
	}
}

func (a *Archiver) save(res game.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	id, err := a.store.SaveMatch(ctx, res)
	if err != nil {
		a.logger.Error("archiving match", "room_id", res.RoomID, "error", err)
		return
	}
	a.logger.Info("match archived", "room_id", res.RoomID, "match_id", id, "players", len(res.Rankings))
}
