// Package sync keeps the local session registry consistent with the
// Record Store: it seats matched players into a shared record, applies
// moves through conditional writes, and folds realtime changes back in.
package sync

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/matchmaking"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
	"github.com/hoshigame/gomoku-online/internal/record"
)

const (
	// DefaultWaitAttempts is how many times the non-creator looks for the
	// shared record before giving up.
	DefaultWaitAttempts = 10
	// DefaultWaitInterval is the pause between waiter lookups.
	DefaultWaitInterval = 2 * time.Second
)

// Rand supplies the coin flip for color assignment.
type Rand interface {
	IntN(n int) int
}

type systemRand struct{}

func (systemRand) IntN(n int) int { return rand.Intn(n) }

// SystemRand returns the process-wide random source.
func SystemRand() Rand { return systemRand{} }

// Placement is the outcome of seating a participant into a match's
// shared record.
type Placement struct {
	Record     record.Record
	MatchID    string
	SelfID     string
	OpponentID string
	SelfColor  record.Color
}

// ArbiterConfig tunes the waiter loop. Zero values fall back to the
// defaults.
type ArbiterConfig struct {
	WaitAttempts int
	WaitInterval time.Duration
}

// Arbiter decides, without any extra coordination channel, which side of
// a resolved match creates the shared game record. Both participants
// rank the member ids lexicographically; the smallest id creates, the
// other polls until the record appears.
type Arbiter struct {
	store    record.Store
	clock    clockwork.Clock
	rng      Rand
	attempts int
	interval time.Duration
}

// NewArbiter creates an arbiter over the given store.
func NewArbiter(store record.Store, clock clockwork.Clock, rng Rand, cfg ArbiterConfig) *Arbiter {
	if cfg.WaitAttempts <= 0 {
		cfg.WaitAttempts = DefaultWaitAttempts
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = DefaultWaitInterval
	}
	return &Arbiter{
		store:    store,
		clock:    clock,
		rng:      rng,
		attempts: cfg.WaitAttempts,
		interval: cfg.WaitInterval,
	}
}

// Establish seats selfID into the match's shared record, creating it or
// waiting for the opponent to, depending on who wins the election. Both
// sides run the same election on the same inputs, so exactly one record
// is created per match.
func (a *Arbiter) Establish(ctx context.Context, match matchmaking.Match, selfID string) (Placement, error) {
	if len(match.Members) != 2 {
		return Placement{}, errors.WithMetadata(errors.CodeProtocolMemberCount,
			"match must have exactly two members",
			map[string]string{"match_id": match.ID})
	}

	ids := []string{match.Members[0].Entity.ID, match.Members[1].Entity.ID}
	sort.Strings(ids)
	creator := ids[0]

	var opponentID string
	switch selfID {
	case ids[0]:
		opponentID = ids[1]
	case ids[1]:
		opponentID = ids[0]
	default:
		return Placement{}, errors.WithMetadata(errors.CodeProtocolMissingMatch,
			"participant is not a member of this match",
			map[string]string{"match_id": match.ID})
	}

	if selfID == creator {
		return a.create(ctx, match.ID, selfID, opponentID)
	}
	return a.await(ctx, match.ID, selfID, opponentID)
}

// create flips a coin for colors and inserts the record.
func (a *Arbiter) create(ctx context.Context, matchID, selfID, opponentID string) (Placement, error) {
	blackID, whiteID := selfID, opponentID
	if a.rng.IntN(2) == 1 {
		blackID, whiteID = opponentID, selfID
	}

	rec, err := a.store.Create(ctx, blackID, whiteID)
	if err != nil {
		return Placement{}, err
	}
	color, _ := rec.ColorOf(selfID)
	log.Printf("sync: created record %s for match %s as %s", rec.ID, matchID, color)

	return Placement{
		Record:     rec,
		MatchID:    matchID,
		SelfID:     selfID,
		OpponentID: opponentID,
		SelfColor:  color,
	}, nil
}

// await polls the store until the creator's record for this pairing
// shows up.
func (a *Arbiter) await(ctx context.Context, matchID, selfID, opponentID string) (Placement, error) {
	for attempt := 1; attempt <= a.attempts; attempt++ {
		rows, err := a.store.ListForParticipant(ctx, selfID)
		if err != nil {
			log.Printf("sync: record lookup %d/%d failed: %v", attempt, a.attempts, err)
		}
		for _, rec := range rows {
			if other, ok := rec.Opponent(selfID); ok && other == opponentID {
				color, _ := rec.ColorOf(selfID)
				log.Printf("sync: joined record %s for match %s as %s", rec.ID, matchID, color)
				return Placement{
					Record:     rec,
					MatchID:    matchID,
					SelfID:     selfID,
					OpponentID: opponentID,
					SelfColor:  color,
				}, nil
			}
		}

		if attempt == a.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Placement{}, errors.Wrap(errors.CodeCanceled, "record wait canceled", ctx.Err())
		case <-a.clock.After(a.interval):
		}
	}

	return Placement{}, errors.WithMetadata(errors.CodeRecordNotFound,
		"opponent never created the shared record",
		map[string]string{"match_id": matchID, "opponent_id": opponentID})
}
