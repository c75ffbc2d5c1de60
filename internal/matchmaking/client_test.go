package matchmaking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoshigame/gomoku-online/internal/matchmaking"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

func envelopeServer(data any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "status": "OK", "data": data})
	}))
}

func TestCreateTicketMissingIDIsProtocolError(t *testing.T) {
	srv := envelopeServer(map[string]any{})
	defer srv.Close()

	client := matchmaking.NewClient(srv.URL)
	_, err := client.CreateTicket(context.Background(), "tok", "q", matchmaking.Entity{ID: "E-1"}, nil, 120)
	if !errors.HasCode(err, errors.CodeProtocolMissingTicketID) {
		t.Fatalf("expected missing-ticket-id error, got %v", err)
	}
}

func TestGetMatchMissingIDIsProtocolError(t *testing.T) {
	srv := envelopeServer(map[string]any{"Members": []any{}})
	defer srv.Close()

	client := matchmaking.NewClient(srv.URL)
	_, err := client.GetMatch(context.Background(), "tok", "q", "M-1")
	if !errors.HasCode(err, errors.CodeProtocolMissingMatch) {
		t.Fatalf("expected missing-match error, got %v", err)
	}
}

func TestBackendErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"code": 409, "error": "TicketAlreadyCanceled", "errorMessage": "already canceled",
		})
	}))
	defer srv.Close()

	client := matchmaking.NewClient(srv.URL)
	_, err := client.GetTicket(context.Background(), "tok", "q", "T-1")
	if !errors.HasCode(err, errors.CodeBackendStatus) {
		t.Fatalf("expected backend-status error, got %v", err)
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []matchmaking.Status{
		matchmaking.StatusMatched, matchmaking.StatusCanceled,
		matchmaking.StatusFailed, matchmaking.StatusTimedOut,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	waiting := []matchmaking.Status{
		matchmaking.StatusCreated, matchmaking.StatusWaitingForPlayers,
		matchmaking.StatusWaitingForMatch, matchmaking.StatusWaitingForServer,
	}
	for _, s := range waiting {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
