package game

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Registry maps room IDs to live rooms. The registry lock is only ever taken
// after a room lock, never before one.
type Registry struct {
	now   func() time.Time
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		now:   now,
		rooms: make(map[string]*Room),
	}
}

// Get returns the live room for id, if any.
func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	return room, ok
}

// GetOrCreate returns the room for id, creating it when absent.
func (r *Registry) GetOrCreate(id string) *Room {
	if room, ok := r.Get(id); ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := newRoom(id, r.now())
	r.rooms[id] = room
	return room
}

// Remove deletes room from the registry and cancels its countdown. The caller
// must hold the room lock.
func (r *Registry) Remove(room *Room) {
	if room.deleted {
		return
	}
	room.stopTimer()
	room.deleted = true

	r.mu.Lock()
	if r.rooms[room.id] == room {
		delete(r.rooms, room.id)
	}
	r.mu.Unlock()
}

// With runs fn with the room's lock held. It returns ErrNotFound when the room
// does not exist or was deleted while the caller waited for the lock.
func (r *Registry) With(id string, fn func(*Room) error) error {
	room, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("room %q: %w", id, ErrNotFound)
	}
	if ran, err := lockAndRun(room, fn); ran {
		return err
	}
	return fmt.Errorf("room %q: %w", id, ErrNotFound)
}

// WithOrCreate is like With but creates the room when needed, retrying when a
// concurrent leave deleted the room it found.
func (r *Registry) WithOrCreate(id string, fn func(*Room) error) error {
	for {
		if ran, err := lockAndRun(r.GetOrCreate(id), fn); ran {
			return err
		}
	}
}

func lockAndRun(room *Room, fn func(*Room) error) (bool, error) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.deleted {
		return false, nil
	}
	return true, fn(room)
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) snapshot() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Rooms returns a summary of every live room, ordered by ID.
func (r *Registry) Rooms() []RoomSummary {
	out := make([]RoomSummary, 0)
	for _, room := range r.snapshot() {
		room.mu.Lock()
		if !room.deleted {
			out = append(out, room.summary())
		}
		room.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b RoomSummary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Standings returns the current ranking of a live room.
func (r *Registry) Standings(id string) ([]Ranking, error) {
	var out []Ranking
	err := r.With(id, func(room *Room) error {
		out = room.rankings()
		return nil
	})
	return out, err
}

// Close stops every countdown and drops all rooms.
func (r *Registry) Close() {
	for _, room := range r.snapshot() {
		room.mu.Lock()
		r.Remove(room)
		room.mu.Unlock()
	}
}
