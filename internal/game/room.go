package game

import (
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	defaultTotalRounds = 3
	minTotalRounds     = 1
	maxTotalRounds     = 10
)

// Participant is one player entry in a room.
type Participant struct {
	Name         string `json:"name"`
	UserID       string `json:"userId"`
	TransportRef string `json:"socketId"`
	Host         bool   `json:"host"`
	Score        int    `json:"score"`
}

// CorrectGuess records who guessed the word and how long it took them.
type CorrectGuess struct {
	UserID    string `json:"userId"`
	TimeTaken int    `json:"timeTaken"`
}

// ScoreEntry is one line of the updateScores broadcast.
type ScoreEntry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
	Name   string `json:"name"`
}

// Ranking is one line of the final standings. Equal scores keep join order.
type Ranking struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// RoomSummary is a read-only snapshot used by the HTTP listing.
type RoomSummary struct {
	ID             string    `json:"id"`
	Players        int       `json:"players"`
	Host           string    `json:"host"`
	Round          int       `json:"round"`
	TotalRounds    int       `json:"totalRounds"`
	GameInProgress bool      `json:"gameInProgress"`
	RemainingTime  *int      `json:"remainingTime,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Room is one game session. Every field is guarded by mu; code outside the
// registry reaches a room only through Registry.With or Registry.WithOrCreate.
type Room struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	deleted   bool

	users          []*Participant
	round          int
	totalRounds    int
	gameInProgress bool
	gameEnded      bool

	currentWord         string
	wordChoices         []string
	correctGuesses      []CorrectGuess
	firstGuessUserID    string
	guessPositions      []string
	consecutiveGuesses  map[string]int
	lastGuessTimestamps map[string]time.Time

	remainingTime int
	timer         *roundTimer
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		id:                  id,
		createdAt:           now,
		users:               make([]*Participant, 0, 8),
		round:               1,
		totalRounds:         defaultTotalRounds,
		consecutiveGuesses:  make(map[string]int),
		lastGuessTimestamps: make(map[string]time.Time),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// RemovalResult describes what RemoveParticipant did to the room.
type RemovalResult struct {
	Found    bool
	Removed  Participant
	Emptied  bool
	Promoted *Participant
}

// AddOrReconcileParticipant adds a new participant or, when userID is already
// present, only moves it to the new transport reference. The first participant
// of a room is always host, and a second host request is demoted.
func (r *Room) AddOrReconcileParticipant(userID, name string, host bool, transportRef string) (p *Participant, reconnected bool) {
	if existing := r.participant(userID); existing != nil {
		existing.TransportRef = transportRef
		return existing, true
	}

	p = &Participant{
		Name:         name,
		UserID:       userID,
		TransportRef: transportRef,
		Host:         host || len(r.users) == 0,
	}
	if p.Host && r.host() != nil {
		p.Host = false
	}
	r.users = append(r.users, p)
	return p, false
}

// RemoveParticipant removes whoever is connected through transportRef. When
// the host leaves a non-empty room, users[0] is promoted.
func (r *Room) RemoveParticipant(transportRef string) RemovalResult {
	i := slices.IndexFunc(r.users, func(p *Participant) bool { return p.TransportRef == transportRef })
	if i < 0 {
		return RemovalResult{}
	}

	removed := r.users[i]
	r.users = slices.Delete(r.users, i, i+1)
	r.forgetGuesses(removed.UserID)

	res := RemovalResult{Found: true, Removed: *removed}
	if len(r.users) == 0 {
		res.Emptied = true
		return res
	}
	if removed.Host {
		r.users[0].Host = true
		res.Promoted = r.users[0]
	}
	return res
}

func (r *Room) forgetGuesses(userID string) {
	r.correctGuesses = slices.DeleteFunc(r.correctGuesses, func(g CorrectGuess) bool { return g.UserID == userID })
	r.guessPositions = slices.DeleteFunc(r.guessPositions, func(id string) bool { return id == userID })
	if r.firstGuessUserID == userID {
		r.firstGuessUserID = ""
	}
	delete(r.consecutiveGuesses, userID)
}

func (r *Room) participant(userID string) *Participant {
	for _, p := range r.users {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) participantByRef(transportRef string) *Participant {
	for _, p := range r.users {
		if p.TransportRef == transportRef {
			return p
		}
	}
	return nil
}

func (r *Room) hostIndex() int {
	return slices.IndexFunc(r.users, func(p *Participant) bool { return p.Host })
}

func (r *Room) host() *Participant {
	if i := r.hostIndex(); i >= 0 {
		return r.users[i]
	}
	return nil
}

func (r *Room) hasGuessed(userID string) bool {
	return slices.ContainsFunc(r.correctGuesses, func(g CorrectGuess) bool { return g.UserID == userID })
}

// allGuessed reports whether every non-host participant has guessed this
// sub-round. A room with nobody left to guess never counts as finished.
func (r *Room) allGuessed() bool {
	guessers := 0
	for _, p := range r.users {
		if p.Host {
			continue
		}
		guessers++
		if !r.hasGuessed(p.UserID) {
			return false
		}
	}
	return guessers > 0
}

func (r *Room) isWordChoice(word string) bool {
	if len(r.wordChoices) == 0 {
		return true
	}
	return slices.ContainsFunc(r.wordChoices, func(w string) bool { return strings.EqualFold(w, word) })
}

// resetSubRound clears everything scoped to one host's turn.
func (r *Room) resetSubRound() {
	r.currentWord = ""
	r.wordChoices = nil
	r.correctGuesses = nil
	r.firstGuessUserID = ""
	r.guessPositions = nil
}

// resetForNewGame returns the room to a fresh game with the same players.
func (r *Room) resetForNewGame() {
	r.round = 1
	r.gameEnded = false
	r.gameInProgress = false
	r.resetSubRound()
	clear(r.consecutiveGuesses)
	for i, p := range r.users {
		p.Score = 0
		p.Host = i == 0
	}
}

func (r *Room) participants() []Participant {
	out := make([]Participant, len(r.users))
	for i, p := range r.users {
		out[i] = *p
	}
	return out
}

func (r *Room) scores() []ScoreEntry {
	out := make([]ScoreEntry, len(r.users))
	for i, p := range r.users {
		out[i] = ScoreEntry{UserID: p.UserID, Score: p.Score, Name: p.Name}
	}
	return out
}

// rankings sorts by score descending with a stable sort, so ties keep the
// order in which players joined.
func (r *Room) rankings() []Ranking {
	sorted := r.participants()
	slices.SortStableFunc(sorted, func(a, b Participant) int { return b.Score - a.Score })

	out := make([]Ranking, len(sorted))
	for i, p := range sorted {
		out[i] = Ranking{Rank: i + 1, UserID: p.UserID, Name: p.Name, Score: p.Score}
	}
	return out
}

func (r *Room) summary() RoomSummary {
	s := RoomSummary{
		ID:             r.id,
		Players:        len(r.users),
		Round:          r.round,
		TotalRounds:    r.totalRounds,
		GameInProgress: r.gameInProgress,
		CreatedAt:      r.createdAt,
	}
	if h := r.host(); h != nil {
		s.Host = h.Name
	}
	if r.timer != nil {
		remaining := r.remainingTime
		s.RemainingTime = &remaining
	}
	return s
}
