package matchmaking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

// Client is the low-level Match Backend transport. Every endpoint is a
// JSON POST authenticated by an entity token header and wrapped in the
// backend's {code, status, data} envelope.
type Client struct {
	baseURL string
	httpc   *http.Client
	tracer  trace.Tracer
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer("matchmaking"),
	}
}

type envelope struct {
	Code         int             `json:"code"`
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	ErrorName    string          `json:"error"`
	ErrorMessage string          `json:"errorMessage"`
}

// post sends one envelope-wrapped request and decodes data into out.
func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.CodeBackendRequest, "encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.CodeBackendRequest, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-EntityToken", token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeBackendRequest, "match backend request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.CodeBackendRequest, "read response body", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(errors.CodeBackendEnvelope, "decode backend envelope", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("match backend returned %d", resp.StatusCode)
		}
		return errors.WithMetadata(errors.CodeBackendStatus, msg,
			map[string]string{"status": resp.Status, "error": env.ErrorName})
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(errors.CodeBackendEnvelope, "decode backend data", err)
		}
	}
	return nil
}

type createTicketRequest struct {
	Creator            creatorPayload `json:"Creator"`
	GiveUpAfterSeconds int            `json:"GiveUpAfterSeconds"`
	QueueName          string         `json:"QueueName"`
}

type creatorPayload struct {
	Entity     Entity             `json:"Entity"`
	Attributes *attributesPayload `json:"Attributes,omitempty"`
}

type attributesPayload struct {
	DataObject map[string]any `json:"DataObject"`
}

// CreateTicket submits a ticket and returns its id.
func (c *Client) CreateTicket(ctx context.Context, token, queue string, creator Entity, attrs map[string]any, giveUpAfter int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "matchmaking.create_ticket")
	defer span.End()

	req := createTicketRequest{
		Creator:            creatorPayload{Entity: creator},
		GiveUpAfterSeconds: giveUpAfter,
		QueueName:          queue,
	}
	if len(attrs) > 0 {
		req.Creator.Attributes = &attributesPayload{DataObject: attrs}
	}

	var data struct {
		TicketID string `json:"TicketId"`
	}
	if err := c.post(ctx, "/Match/CreateMatchmakingTicket", token, req, &data); err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	if data.TicketID == "" {
		return "", errors.New(errors.CodeProtocolMissingTicketID,
			"create response missing ticket id")
	}
	return data.TicketID, nil
}

// GetTicket fetches the current state of a ticket.
func (c *Client) GetTicket(ctx context.Context, token, queue, ticketID string) (Ticket, error) {
	req := map[string]any{
		"TicketId":     ticketID,
		"QueueName":    queue,
		"EscapeObject": false,
	}

	var data struct {
		TicketID             string `json:"TicketId"`
		Status               Status `json:"Status"`
		MatchID              string `json:"MatchId"`
		EstimatedWaitSeconds int    `json:"EstimatedWaitTimeSeconds"`
	}
	if err := c.post(ctx, "/Match/GetMatchmakingTicket", token, req, &data); err != nil {
		return Ticket{}, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return Ticket{
		ID:                   data.TicketID,
		Status:               data.Status,
		MatchID:              data.MatchID,
		EstimatedWaitSeconds: data.EstimatedWaitSeconds,
	}, nil
}

// CancelTicket asks the backend to cancel a ticket. Canceling a ticket
// that already resolved is not an error.
func (c *Client) CancelTicket(ctx context.Context, token, queue, ticketID string) error {
	ctx, span := c.tracer.Start(ctx, "matchmaking.cancel_ticket")
	defer span.End()

	req := map[string]any{
		"TicketId":  ticketID,
		"QueueName": queue,
	}
	if err := c.post(ctx, "/Match/CancelMatchmakingTicket", token, req, nil); err != nil {
		return fmt.Errorf("cancel ticket %s: %w", ticketID, err)
	}
	return nil
}

// GetMatch fetches the member roster of a resolved match.
func (c *Client) GetMatch(ctx context.Context, token, queue, matchID string) (Match, error) {
	ctx, span := c.tracer.Start(ctx, "matchmaking.get_match")
	defer span.End()

	req := map[string]any{
		"MatchId":                matchID,
		"QueueName":              queue,
		"ReturnMemberAttributes": true,
	}

	var data struct {
		MatchID string   `json:"MatchId"`
		Members []Member `json:"Members"`
	}
	if err := c.post(ctx, "/Match/GetMatch", token, req, &data); err != nil {
		return Match{}, fmt.Errorf("get match %s: %w", matchID, err)
	}
	if data.MatchID == "" {
		return Match{}, errors.New(errors.CodeProtocolMissingMatch,
			"match response missing match id")
	}
	return Match{ID: data.MatchID, Members: data.Members}, nil
}
