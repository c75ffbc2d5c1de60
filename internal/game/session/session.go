// Package session tracks the local view of every game this participant
// is part of and turns record changes into events.
package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/event"
	"github.com/hoshigame/gomoku-online/internal/record"
)

// Session is the registry's view of one game.
type Session struct {
	ID         string
	Record     record.Record
	Active     bool
	LastUpdate time.Time
}

// Registry holds all known sessions keyed by record id. Updates replace
// the stored record wholesale; the Record Store is the authority and the
// registry never second-guesses it by comparing timestamps.
type Registry struct {
	bus   *event.Bus
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]Session
}

// NewRegistry creates an empty registry publishing to bus.
func NewRegistry(bus *event.Bus, clock clockwork.Clock) *Registry {
	return &Registry{
		bus:      bus,
		clock:    clock,
		sessions: make(map[string]Session),
	}
}

// Upsert applies a record update. It always emits RecordUpdated, emits
// RecordCreated the first time an id is seen, and emits MatchFinished
// exactly once per game, on the update that flips it to finished. A
// finished record replayed into the registry is therefore harmless.
func (r *Registry) Upsert(rec record.Record) {
	r.mu.Lock()
	prev, existed := r.sessions[rec.ID]
	finishedNow := rec.IsFinished && (!existed || !prev.Record.IsFinished)
	r.sessions[rec.ID] = Session{
		ID:         rec.ID,
		Record:     rec,
		Active:     !rec.IsFinished,
		LastUpdate: r.clock.Now(),
	}
	r.mu.Unlock()

	if !existed {
		r.bus.Publish(event.RecordCreated{Record: rec})
	}
	r.bus.Publish(event.RecordUpdated{Record: rec})
	if finishedNow {
		var winner record.Color
		if rec.WinnerID != nil {
			winner, _ = rec.ColorOf(*rec.WinnerID)
		}
		r.bus.Publish(event.MatchFinished{Record: rec, Winner: winner})
	}
}

// Get returns the session for a record id.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Has reports whether the registry knows the record id.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// ActiveRecords returns the records of all unfinished sessions, most
// recently touched first.
func (r *Registry) ActiveRecords() []record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []Session
	for _, s := range r.sessions {
		if s.Active {
			active = append(active, s)
		}
	}
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j].LastUpdate.After(active[j-1].LastUpdate); j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}

	records := make([]record.Record, len(active))
	for i, s := range active {
		records[i] = s.Record
	}
	return records
}
