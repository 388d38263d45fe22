package game

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	canvasDrawInterval = 16 * time.Millisecond
	canvasSyncInterval = 100 * time.Millisecond
	wordChoiceCount    = 3
)

// Options configures an Engine. Zero values fall back to production defaults,
// except Emitter which is required.
type Options struct {
	Emitter          Emitter
	Scoring          Scoring
	Words            WordPicker
	Observer         Observer
	Logger           *slog.Logger
	Now              func() time.Time
	NewTicker        TickerFactory
	RequireGuessText bool
}

// Engine applies client events to rooms and broadcasts the outcome.
type Engine struct {
	rooms            *Registry
	emit             Emitter
	scoring          Scoring
	words            WordPicker
	observer         Observer
	logger           *slog.Logger
	now              func() time.Time
	newTicker        TickerFactory
	requireGuessText bool

	timerGen atomic.Uint64

	limitersMu sync.Mutex
	limiters   map[string]*connLimiters
}

// connLimiters throttles canvas relays per connection.
type connLimiters struct {
	draw *rate.Limiter
	sync *rate.Limiter
}

func New(rooms *Registry, opts Options) *Engine {
	e := &Engine{
		rooms:            rooms,
		emit:             opts.Emitter,
		scoring:          opts.Scoring,
		words:            opts.Words,
		observer:         opts.Observer,
		logger:           opts.Logger,
		now:              opts.Now,
		newTicker:        opts.NewTicker,
		requireGuessText: opts.RequireGuessText,
		limiters:         make(map[string]*connLimiters),
	}
	if e.scoring.RoundTime == 0 {
		e.scoring = DefaultScoring()
	}
	if e.words == nil {
		e.words = NewWordList(DefaultWords(), nil)
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newTicker == nil {
		e.newTicker = NewTimeTicker
	}
	return e
}

// Registry returns the rooms this engine drives.
func (e *Engine) Registry() *Registry { return e.rooms }

// Close stops every countdown and drops all rooms.
func (e *Engine) Close() {
	e.rooms.Close()
}

func (e *Engine) limitersFor(connID string) *connLimiters {
	e.limitersMu.Lock()
	defer e.limitersMu.Unlock()
	l, ok := e.limiters[connID]
	if !ok {
		l = &connLimiters{
			draw: rate.NewLimiter(rate.Every(canvasDrawInterval), 1),
			sync: rate.NewLimiter(rate.Every(canvasSyncInterval), 1),
		}
		e.limiters[connID] = l
	}
	return l
}

func (e *Engine) forgetLimiters(connID string) {
	e.limitersMu.Lock()
	delete(e.limiters, connID)
	e.limitersMu.Unlock()
}
