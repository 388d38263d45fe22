package game

import (
	"context"
	"time"
)

// Ticker is the part of *time.Ticker the round timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the ticker driving a room countdown.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the production TickerFactory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type roundTimer struct {
	gen    uint64
	cancel context.CancelFunc
}

// stopTimer cancels the room's countdown. Calling it with no countdown running
// is a no-op.
func (r *Room) stopTimer() bool {
	if r.timer == nil {
		return false
	}
	r.timer.cancel()
	r.timer = nil
	r.remainingTime = 0
	return true
}

// startTimer replaces any running countdown with a fresh one. The caller holds
// the room lock.
func (e *Engine) startTimer(room *Room) {
	room.stopTimer()
	room.remainingTime = e.scoring.RoundTime
	room.correctGuesses = nil

	gen := e.timerGen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	room.timer = &roundTimer{gen: gen, cancel: cancel}

	ticker := e.newTicker(time.Second)
	go e.runTimer(ctx, room.id, gen, ticker)
}

func (e *Engine) runTimer(ctx context.Context, roomID string, gen uint64, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !e.tick(roomID, gen) {
				return
			}
		}
	}
}

// tick advances the countdown for generation gen by one second and reports
// whether it should keep running. A tick for a deleted room or a replaced
// countdown changes nothing.
func (e *Engine) tick(roomID string, gen uint64) bool {
	running := false
	err := e.rooms.With(roomID, func(room *Room) error {
		if room.timer == nil || room.timer.gen != gen {
			return nil
		}
		room.remainingTime--
		e.emit.Broadcast(room.id, EventTimerUpdate, room.remainingTime)
		if room.remainingTime > 0 {
			running = true
			return nil
		}

		room.stopTimer()
		e.logger.Info("round timer expired", "room_id", room.id, "round", room.round)
		e.changeHost(room)
		return nil
	})
	if err != nil {
		e.logger.Debug("dropping tick", "room_id", roomID, "error", err)
	}
	return running
}
