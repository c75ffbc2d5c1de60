package session

import (
	"github.com/hoshigame/gomoku-online/internal/game/rules"
	"github.com/hoshigame/gomoku-online/internal/record"
)

// Model answers board questions for one record from the point of view of
// one participant. It is a pure read model over a record snapshot.
type Model struct {
	rec    record.Record
	selfID string
}

// NewModel builds a read model for selfID's view of rec.
func NewModel(rec record.Record, selfID string) Model {
	return Model{rec: rec, selfID: selfID}
}

// MyColor returns the color selfID holds, if any.
func (m Model) MyColor() (record.Color, bool) {
	return m.rec.ColorOf(m.selfID)
}

// IsMyTurn reports whether selfID moves next in an unfinished game.
func (m Model) IsMyTurn() bool {
	return !m.rec.IsFinished && m.rec.CurrentPlayerTurn == m.selfID
}

// Finished reports whether the game is over.
func (m Model) Finished() bool {
	return m.rec.IsFinished
}

// Winner returns the winning color. ok is false while the game runs and
// for draws.
func (m Model) Winner() (record.Color, bool) {
	if !m.rec.IsFinished || m.rec.WinnerID == nil {
		return "", false
	}
	return m.rec.ColorOf(*m.rec.WinnerID)
}

// CanPlace reports whether selfID may legally place at (row, col) right
// now: the game is running, it is selfID's turn, and the cell is an
// empty on-board cell.
func (m Model) CanPlace(row, col int) bool {
	return m.IsMyTurn() && rules.IsLegalMove(m.rec.Board, row, col)
}
