// Package record defines the persisted game record, the Record Store
// client that owns it, and the realtime change feed that pushes updates.
package record

import (
	"context"
	"time"

	"github.com/hoshigame/gomoku-online/internal/game/rules"
)

// Table is the Record Store table holding game records.
const Table = "gomoku_games"

// Color identifies a player's side.
type Color string

const (
	ColorBlack Color = "black"
	ColorWhite Color = "white"
)

// Record is one game's persisted state. It is created exactly once per
// match and becomes immutable once IsFinished is true.
type Record struct {
	ID                string      `json:"id"`
	BlackPlayerID     string      `json:"black_player_id"`
	WhitePlayerID     string      `json:"white_player_id"`
	CurrentPlayerTurn string      `json:"current_player_turn"`
	WinnerID          *string     `json:"winner_id,omitempty"`
	Board             rules.Board `json:"board_state"`
	IsFinished        bool        `json:"is_finished"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	FinishedAt        *time.Time  `json:"finished_at,omitempty"`
}

// ColorOf returns the color playerID holds in this record.
func (r Record) ColorOf(playerID string) (Color, bool) {
	switch playerID {
	case r.BlackPlayerID:
		return ColorBlack, true
	case r.WhitePlayerID:
		return ColorWhite, true
	default:
		return "", false
	}
}

// Opponent returns the id of the other seat relative to playerID.
func (r Record) Opponent(playerID string) (string, bool) {
	switch playerID {
	case r.BlackPlayerID:
		return r.WhitePlayerID, true
	case r.WhitePlayerID:
		return r.BlackPlayerID, true
	default:
		return "", false
	}
}

// StoneOf returns the cell value playerID places.
func (r Record) StoneOf(playerID string) (rules.Cell, bool) {
	switch playerID {
	case r.BlackPlayerID:
		return rules.Black, true
	case r.WhitePlayerID:
		return rules.White, true
	default:
		return rules.Empty, false
	}
}

// Update is a partial record mutation. Board writes carry the complete
// grid; the store has no cell-level patch semantics. UpdatedAt is always
// refreshed by callers.
type Update struct {
	Board             *rules.Board `json:"board_state,omitempty"`
	CurrentPlayerTurn *string      `json:"current_player_turn,omitempty"`
	IsFinished        *bool        `json:"is_finished,omitempty"`
	WinnerID          *string      `json:"winner_id,omitempty"`
	UpdatedAt         time.Time    `json:"updated_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
}

// Condition restricts a patch to rows still matching the given state, so a
// stale client loses a write race at the store instead of overwriting.
type Condition struct {
	// ExpectTurn, when non-empty, requires current_player_turn to equal it.
	ExpectTurn string
	// ExpectUnfinished requires is_finished to still be false.
	ExpectUnfinished bool
}

// Store is the Record Store row client.
type Store interface {
	// Create inserts a record with an empty board, turn assigned to the
	// black player, and is_finished false.
	Create(ctx context.Context, blackID, whiteID string) (Record, error)
	// Get fetches one record by id.
	Get(ctx context.Context, id string) (Record, error)
	// Patch applies a conditional partial update and returns the
	// authoritative post-update record. A condition that matches no row
	// yields a rules-violation error.
	Patch(ctx context.Context, id string, cond Condition, update Update) (Record, error)
	// ListForParticipant returns all unfinished records where playerID
	// holds either seat, most recently updated first.
	ListForParticipant(ctx context.Context, playerID string) ([]Record, error)
}

// Feed is the realtime change-feed client. At most one subscription per
// record id is kept; re-subscribing replaces the previous callback.
type Feed interface {
	Subscribe(id string, onChange func(Record)) error
	UnsubscribeAll()
}
