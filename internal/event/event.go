// Package event carries game lifecycle notifications between the sync
// layer and whatever renders them. The event set is closed: consumers
// type-switch over the variants and can rely on there being no others.
package event

import "github.com/hoshigame/gomoku-online/internal/record"

// Event is one lifecycle notification.
type Event interface {
	isEvent()
}

// RecordCreated fires when a new game record enters the registry.
type RecordCreated struct {
	Record record.Record
}

// RecordUpdated fires on every accepted registry update, including the
// one that finishes the game.
type RecordUpdated struct {
	Record record.Record
}

// MatchFinished fires exactly once, on the update that transitions a
// record from unfinished to finished. Winner is empty for a draw.
type MatchFinished struct {
	Record record.Record
	Winner record.Color
}

// SyncError reports a synchronization failure tied to a record.
type SyncError struct {
	RecordID string
	Err      error
}

func (RecordCreated) isEvent() {}
func (RecordUpdated) isEvent() {}
func (MatchFinished) isEvent() {}
func (SyncError) isEvent()     {}
