package game

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type delivery struct {
	Event   string
	Payload any
}

// recordingEmitter keeps every delivery per connection.
type recordingEmitter struct {
	mu     sync.Mutex
	groups map[string][]string
	inbox  map[string][]delivery
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{
		groups: make(map[string][]string),
		inbox:  make(map[string][]delivery),
	}
}

func (r *recordingEmitter) Join(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.groups[roomID], connID) {
		r.groups[roomID] = append(r.groups[roomID], connID)
	}
}

func (r *recordingEmitter) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[roomID] = slices.DeleteFunc(r.groups[roomID], func(id string) bool { return id == connID })
}

func (r *recordingEmitter) RoomsOf(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for roomID, members := range r.groups {
		if slices.Contains(members, connID) {
			out = append(out, roomID)
		}
	}
	return out
}

func (r *recordingEmitter) Broadcast(roomID, event string, payload any) {
	r.BroadcastExcept(roomID, "", event, payload)
}

func (r *recordingEmitter) BroadcastExcept(roomID, except, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, connID := range r.groups[roomID] {
		if connID != except {
			r.inbox[connID] = append(r.inbox[connID], delivery{event, payload})
		}
	}
}

func (r *recordingEmitter) Send(connID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbox[connID] = append(r.inbox[connID], delivery{event, payload})
}

// events returns the event names connID received, in order.
func (r *recordingEmitter) events(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.inbox[connID]))
	for _, d := range r.inbox[connID] {
		out = append(out, d.Event)
	}
	return out
}

// last returns the payload of the most recent event named event.
func (r *recordingEmitter) last(t *testing.T, connID, event string) any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.inbox[connID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i].Payload
		}
	}
	t.Fatalf("%s never received %s", connID, event)
	return nil
}

func (r *recordingEmitter) count(connID, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.inbox[connID] {
		if d.Event == event {
			n++
		}
	}
	return n
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.inbox)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeTicker only fires when a test sends on it.
type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.once.Do(func() { close(f.stopped) }) }

type fakeTickers struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeTickers) New(time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

func (f *fakeTickers) latest() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

// fixedWords always offers the same words in the same order.
type fixedWords []string

func (w fixedWords) Pick(n int) []string { return slices.Clone(w[:min(n, len(w))]) }

type recordingObserver struct {
	mu     sync.Mutex
	scores map[string][]ScoreEntry
	games  []GameResult
	closed []string
}

func (o *recordingObserver) ScoresUpdated(roomID string, scores []ScoreEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scores == nil {
		o.scores = make(map[string][]ScoreEntry)
	}
	o.scores[roomID] = scores
}

func (o *recordingObserver) GameEnded(result GameResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.games = append(o.games, result)
}

func (o *recordingObserver) RoomClosed(roomID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = append(o.closed, roomID)
}

type harness struct {
	engine   *Engine
	emitter  *recordingEmitter
	clock    *fakeClock
	tickers  *fakeTickers
	observer *recordingObserver
}

func newHarness(t *testing.T, modify ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		emitter:  newRecordingEmitter(),
		clock:    &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		tickers:  &fakeTickers{},
		observer: &recordingObserver{},
	}
	opts := Options{
		Emitter:   h.emitter,
		Scoring:   DefaultScoring(),
		Words:     fixedWords{"Dog", "Mountain", "New York"},
		Observer:  h.observer,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       h.clock.Now,
		NewTicker: h.tickers.New,
	}
	for _, m := range modify {
		m(&opts)
	}
	h.engine = New(NewRegistry(h.clock.Now), opts)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) send(t *testing.T, connID, event string, data map[string]any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	h.engine.Dispatch(connID, event, raw)
}

func (h *harness) join(t *testing.T, connID, roomID string, userID any, name string, host bool) {
	t.Helper()
	h.send(t, connID, EventUserJoined, map[string]any{
		"name": name, "userId": userID, "roomId": roomID, "host": host,
	})
}

// inspect runs fn under the room lock and fails when the room is gone.
func (h *harness) inspect(t *testing.T, roomID string, fn func(*Room)) {
	t.Helper()
	err := h.engine.rooms.With(roomID, func(r *Room) error {
		fn(r)
		return nil
	})
	require.NoError(t, err)
}

// tickN advances the room countdown n seconds without the timer goroutine.
func (h *harness) tickN(t *testing.T, roomID string, n int) {
	t.Helper()
	var gen uint64
	h.inspect(t, roomID, func(r *Room) {
		require.NotNil(t, r.timer, "no countdown running")
		gen = r.timer.gen
	})
	for range n {
		h.engine.tick(roomID, gen)
	}
}

func seededWords(words []string) *WordList {
	return NewWordList(words, rand.New(rand.NewPCG(1, 2)))
}
