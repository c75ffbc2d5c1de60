// Package identity obtains and persists the anonymous participant identity
// issued by the Identity Service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/platform/errors"
	"github.com/hoshigame/gomoku-online/internal/platform/id"
)

// installIDKey is the fixed local-store key holding the install id.
const installIDKey = "install_id"

// KV is the durable key/value store the install id survives restarts in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Client logs in anonymously and caches the resulting credential for the
// process lifetime.
type Client struct {
	baseURL string
	titleID string
	httpc   *http.Client
	kv      KV
	clock   clockwork.Clock

	mu   sync.Mutex
	cred *Credential
}

// NewClient creates an identity client against the given base URL and
// title id.
func NewClient(baseURL, titleID string, kv KV, clock clockwork.Clock) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		titleID: titleID,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		kv:      kv,
		clock:   clock,
	}
}

type loginRequest struct {
	TitleID       string `json:"TitleId"`
	CustomID      string `json:"CustomId"`
	CreateAccount bool   `json:"CreateAccount"`
}

type loginData struct {
	PlayerID      string `json:"PlayFabId"`
	SessionTicket string `json:"SessionTicket"`
	EntityToken   struct {
		EntityToken     string `json:"EntityToken"`
		TokenExpiration string `json:"TokenExpiration"`
		Entity          struct {
			ID   string `json:"Id"`
			Type string `json:"Type"`
		} `json:"Entity"`
	} `json:"EntityToken"`
}

type envelope struct {
	Code         int             `json:"code"`
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	ErrorName    string          `json:"error"`
	ErrorMessage string          `json:"errorMessage"`
}

// Credential returns the cached credential from a previous login.
func (c *Client) Credential() (Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil {
		return Credential{}, false
	}
	return *c.cred, true
}

// LoginAnonymous logs in with the persisted install id, creating both the
// install id and the backend account on first launch. Subsequent calls
// return the cached credential.
func (c *Client) LoginAnonymous(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred != nil {
		return *c.cred, nil
	}

	installID, err := c.loadOrCreateInstallID(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("install id: %w", err)
	}

	data, err := c.login(ctx, installID)
	if err != nil {
		return Credential{}, err
	}
	if data.EntityToken.EntityToken == "" || data.EntityToken.Entity.ID == "" {
		return Credential{}, errors.New(errors.CodeProtocolMissingCredential,
			"login response missing entity token")
	}

	cred := Credential{
		ParticipantID: data.EntityToken.Entity.ID,
		EntityType:    data.EntityToken.Entity.Type,
		Token:         data.EntityToken.EntityToken,
	}
	if data.EntityToken.TokenExpiration != "" {
		if exp, err := time.Parse(time.RFC3339, data.EntityToken.TokenExpiration); err == nil {
			cred.ExpiresAt = exp
		}
	}
	if cred.ExpiresAt.IsZero() {
		if exp, ok := expiryFromToken(cred.Token); ok {
			cred.ExpiresAt = exp
		}
	}

	c.cred = &cred
	log.Printf("logged in as participant %s", cred.ParticipantID)
	return cred, nil
}

// Logout clears the cached credential.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = nil
}

func (c *Client) loadOrCreateInstallID(ctx context.Context) (string, error) {
	stored, ok, err := c.kv.Get(ctx, installIDKey)
	if err != nil {
		return "", err
	}
	if ok {
		return stored, nil
	}

	fresh, err := id.NewInstallID()
	if err != nil {
		return "", err
	}
	if err := c.kv.Set(ctx, installIDKey, fresh); err != nil {
		return "", err
	}
	log.Printf("generated new install id")
	return fresh, nil
}

func (c *Client) login(ctx context.Context, installID string) (loginData, error) {
	payload, err := json.Marshal(loginRequest{TitleID: c.titleID, CustomID: installID, CreateAccount: true})
	if err != nil {
		return loginData{}, errors.Wrap(errors.CodeAuthLoginFailed, "encode login request", err)
	}

	url := c.baseURL + "/Client/LoginWithCustomID"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return loginData{}, errors.Wrap(errors.CodeAuthLoginFailed, "build login request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return loginData{}, errors.Wrap(errors.CodeAuthLoginFailed, "login request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return loginData{}, errors.Wrap(errors.CodeAuthLoginFailed, "read login response", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return loginData{}, errors.Wrap(errors.CodeBackendEnvelope, "decode login envelope", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("login returned %d", resp.StatusCode)
		}
		return loginData{}, errors.WithMetadata(errors.CodeAuthLoginFailed, msg,
			map[string]string{"status": resp.Status, "error": env.ErrorName})
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return loginData{}, errors.Wrap(errors.CodeBackendEnvelope, "decode login data", err)
	}
	return data, nil
}
