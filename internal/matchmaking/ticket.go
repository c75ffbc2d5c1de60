// Package matchmaking drives the ticket lifecycle against the Match
// Backend: submit a ticket, poll it to resolution, and fetch the match
// roster once paired.
package matchmaking

import "encoding/json"

// Status is a matchmaking ticket state as reported by the backend.
type Status string

const (
	StatusCreated           Status = "Created"
	StatusWaitingForPlayers Status = "WaitingForPlayers"
	StatusWaitingForMatch   Status = "WaitingForMatch"
	StatusWaitingForServer  Status = "WaitingForServer"
	StatusMatched           Status = "Matched"
	StatusCanceled          Status = "Canceled"
	StatusFailed            Status = "Failed"

	// StatusTimedOut is synthesized locally when the poll budget runs out;
	// the backend never reports it.
	StatusTimedOut Status = "TimedOut"
)

// Terminal reports whether the status ends the ticket's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusMatched, StatusCanceled, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Ticket is one poll's view of a matchmaking ticket.
type Ticket struct {
	ID                   string
	Status               Status
	MatchID              string
	EstimatedWaitSeconds int
}

// Entity identifies a participant to the Match Backend.
type Entity struct {
	ID   string `json:"Id"`
	Type string `json:"Type"`
}

// Member is one seat in a resolved match.
type Member struct {
	Entity     Entity          `json:"Entity"`
	Attributes json.RawMessage `json:"Attributes,omitempty"`
}

// Match is a resolved pairing. Gomoku queues always produce two members;
// the arbiter enforces that before seating anyone.
type Match struct {
	ID      string
	Members []Member
}
