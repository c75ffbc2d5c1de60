package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hoshigame/gomoku-online/internal/game/rules"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

// HTTPStore talks to the Record Store's row API. Rows are addressed by
// column filters in the query string; writes ask for the updated
// representation back so callers always see the authoritative row.
type HTTPStore struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	tracer  trace.Tracer
}

// NewHTTPStore creates a store client for the given base URL and anon key.
func NewHTTPStore(baseURL, anonKey string) *HTTPStore {
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer("record"),
	}
}

func (s *HTTPStore) rowsURL(query url.Values) string {
	return fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, Table, query.Encode())
}

// do sends one request and decodes the row array every endpoint returns.
func (s *HTTPStore) do(ctx context.Context, method, rawURL string, body any) ([]Record, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(errors.CodeBackendRequest, "encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, errors.Wrap(errors.CodeBackendRequest, "build request", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeBackendRequest, "record store request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.CodeBackendRequest, "read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithMetadata(errors.CodeBackendStatus,
			fmt.Sprintf("record store returned %d", resp.StatusCode),
			map[string]string{"status": resp.Status, "body": string(raw)})
	}

	var rows []Record
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(errors.CodeBackendEnvelope, "decode record rows", err)
	}
	return rows, nil
}

// Create inserts a new record with an empty board and black to move.
func (s *HTTPStore) Create(ctx context.Context, blackID, whiteID string) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.create")
	defer span.End()

	var board rules.Board
	row := map[string]any{
		"black_player_id":     blackID,
		"white_player_id":     whiteID,
		"current_player_turn": blackID,
		"board_state":         board,
		"is_finished":         false,
	}

	query := url.Values{}
	query.Set("select", "*")
	rows, err := s.do(ctx, http.MethodPost, s.rowsURL(query), row)
	if err != nil {
		return Record{}, fmt.Errorf("create record: %w", err)
	}
	if len(rows) == 0 {
		return Record{}, errors.New(errors.CodeProtocolMissingRecord, "insert returned no row")
	}
	return rows[0], nil
}

// Get fetches one record by id.
func (s *HTTPStore) Get(ctx context.Context, id string) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.get")
	defer span.End()

	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)
	rows, err := s.do(ctx, http.MethodGet, s.rowsURL(query), nil)
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	if len(rows) == 0 {
		return Record{}, errors.WithMetadata(errors.CodeRecordNotFound,
			"record not found", map[string]string{"id": id})
	}
	return rows[0], nil
}

// Patch applies a conditional partial update. The condition is expressed
// as extra row filters, so a concurrent writer that already changed the
// turn or finished the game makes this patch match zero rows.
func (s *HTTPStore) Patch(ctx context.Context, id string, cond Condition, update Update) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.patch")
	defer span.End()

	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)
	if cond.ExpectTurn != "" {
		query.Set("current_player_turn", "eq."+cond.ExpectTurn)
	}
	if cond.ExpectUnfinished {
		query.Set("is_finished", "eq.false")
	}

	rows, err := s.do(ctx, http.MethodPatch, s.rowsURL(query), update)
	if err != nil {
		return Record{}, fmt.Errorf("patch record %s: %w", id, err)
	}
	if len(rows) == 0 {
		// The row exists but no longer matches the condition: the turn
		// moved on or the game finished under us.
		return Record{}, errors.WithMetadata(errors.CodeRulesViolation,
			"conditional update matched no row", map[string]string{"id": id})
	}
	return rows[0], nil
}

// ListForParticipant returns unfinished records for either seat, newest
// first.
func (s *HTTPStore) ListForParticipant(ctx context.Context, playerID string) ([]Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.list")
	defer span.End()

	query := url.Values{}
	query.Set("select", "*")
	query.Set("or", fmt.Sprintf("(black_player_id.eq.%s,white_player_id.eq.%s)", playerID, playerID))
	query.Set("is_finished", "eq.false")
	query.Set("order", "updated_at.desc")
	rows, err := s.do(ctx, http.MethodGet, s.rowsURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("list records for %s: %w", playerID, err)
	}
	return rows, nil
}
