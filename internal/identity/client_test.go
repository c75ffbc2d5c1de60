package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/identity"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

type memoryKV struct {
	values map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{values: make(map[string]string)} }

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func loginServer(t *testing.T, customIDs *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Client/LoginWithCustomID" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			TitleID       string `json:"TitleId"`
			CustomID      string `json:"CustomId"`
			CreateAccount bool   `json:"CreateAccount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.CreateAccount {
			t.Error("expected CreateAccount to be true")
		}
		if req.TitleID != "T100" {
			t.Errorf("title id = %q", req.TitleID)
		}
		if customIDs != nil {
			*customIDs = append(*customIDs, req.CustomID)
		}
		resp := map[string]any{
			"code":   200,
			"status": "OK",
			"data": map[string]any{
				"PlayFabId":     "PF-" + req.CustomID,
				"SessionTicket": "ticket",
				"EntityToken": map[string]any{
					"EntityToken":     "entity-token",
					"TokenExpiration": "2099-01-01T00:00:00Z",
					"Entity":          map[string]any{"Id": "E-" + req.CustomID, "Type": "title_player_account"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestLoginAnonymousCreatesAndPersistsInstallID(t *testing.T) {
	var customIDs []string
	srv := loginServer(t, &customIDs)
	defer srv.Close()

	kv := newMemoryKV()
	ctx := context.Background()

	client := identity.NewClient(srv.URL, "T100", kv, clockwork.NewRealClock())
	cred, err := client.LoginAnonymous(ctx)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if cred.ParticipantID == "" || cred.Token != "entity-token" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.ExpiresAt.IsZero() {
		t.Fatal("expected expiry from TokenExpiration")
	}

	// A fresh client against the same store recovers the same identity.
	again := identity.NewClient(srv.URL, "T100", kv, clockwork.NewRealClock())
	cred2, err := again.LoginAnonymous(ctx)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if cred2.ParticipantID != cred.ParticipantID {
		t.Fatalf("participant id changed across launches: %q vs %q", cred.ParticipantID, cred2.ParticipantID)
	}
	if len(customIDs) != 2 || customIDs[0] != customIDs[1] {
		t.Fatalf("expected the install id to be reused, got %v", customIDs)
	}
}

func TestLoginAnonymousCachesCredential(t *testing.T) {
	var customIDs []string
	srv := loginServer(t, &customIDs)
	defer srv.Close()

	client := identity.NewClient(srv.URL, "T100", newMemoryKV(), clockwork.NewRealClock())
	ctx := context.Background()

	if _, err := client.LoginAnonymous(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := client.LoginAnonymous(ctx); err != nil {
		t.Fatalf("cached login: %v", err)
	}
	if len(customIDs) != 1 {
		t.Fatalf("expected one backend call, got %d", len(customIDs))
	}

	if _, ok := client.Credential(); !ok {
		t.Fatal("expected cached credential")
	}
	client.Logout()
	if _, ok := client.Credential(); ok {
		t.Fatal("expected credential to be cleared on logout")
	}
}

func TestLoginFailureSurfacesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"code":         400,
			"error":        "InvalidParams",
			"errorMessage": "custom id rejected",
		})
	}))
	defer srv.Close()

	client := identity.NewClient(srv.URL, "T100", newMemoryKV(), clockwork.NewRealClock())
	_, err := client.LoginAnonymous(context.Background())
	if !errors.HasCode(err, errors.CodeAuthLoginFailed) {
		t.Fatalf("expected login failure, got %v", err)
	}
}

func TestLoginMissingEntityTokenIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"PlayFabId": "PF-1", "SessionTicket": "ticket"},
		})
	}))
	defer srv.Close()

	client := identity.NewClient(srv.URL, "T100", newMemoryKV(), clockwork.NewRealClock())
	_, err := client.LoginAnonymous(context.Background())
	if !errors.HasCode(err, errors.CodeProtocolMissingCredential) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}
