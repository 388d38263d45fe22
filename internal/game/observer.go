package game

import "time"

// Emitter delivers events to connections. Rooms map one-to-one onto emitter
// groups. Implementations must not block: handlers call them with a room lock
// held.
type Emitter interface {
	Join(roomID, connID string)
	Leave(roomID, connID string)
	RoomsOf(connID string) []string
	Broadcast(roomID, event string, payload any)
	BroadcastExcept(roomID, exceptConnID, event string, payload any)
	Send(connID, event string, payload any)
}

// GameResult is handed to observers when a game finishes.
type GameResult struct {
	RoomID      string
	TotalRounds int
	EndedAt     time.Time
	Rankings    []Ranking
}

// Observer receives state changes that outlive a single event. Calls are made
// with the room lock held, so implementations must only enqueue.
type Observer interface {
	ScoresUpdated(roomID string, scores []ScoreEntry)
	GameEnded(result GameResult)
	RoomClosed(roomID string)
}

// Observers fans every call out to each member in order.
type Observers []Observer

func (o Observers) ScoresUpdated(roomID string, scores []ScoreEntry) {
	for _, obs := range o {
		obs.ScoresUpdated(roomID, scores)
	}
}

func (o Observers) GameEnded(result GameResult) {
	for _, obs := range o {
		obs.GameEnded(result)
	}
}

func (o Observers) RoomClosed(roomID string) {
	for _, obs := range o {
		obs.RoomClosed(roomID)
	}
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) ScoresUpdated(string, []ScoreEntry) {}
func (NopObserver) GameEnded(GameResult)               {}
func (NopObserver) RoomClosed(string)                  {}
