package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/event"
	"github.com/hoshigame/gomoku-online/internal/game/rules"
	"github.com/hoshigame/gomoku-online/internal/game/session"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
	"github.com/hoshigame/gomoku-online/internal/record"
)

// Service applies the local participant's intents to the Record Store
// and keeps the registry fed with both local write results and remote
// change-feed deliveries.
type Service struct {
	store    record.Store
	feed     record.Feed
	registry *session.Registry
	bus      *event.Bus
	clock    clockwork.Clock
	selfID   string

	mu       stdsync.Mutex
	inflight map[string]bool
}

// NewService creates a sync service acting as selfID.
func NewService(store record.Store, feed record.Feed, registry *session.Registry, bus *event.Bus, clock clockwork.Clock, selfID string) *Service {
	return &Service{
		store:    store,
		feed:     feed,
		registry: registry,
		bus:      bus,
		clock:    clock,
		selfID:   selfID,
		inflight: make(map[string]bool),
	}
}

// Track adopts a record into the registry and subscribes to its remote
// changes. Feed deliveries land in the registry as-is; the store already
// decided they are authoritative.
func (s *Service) Track(rec record.Record) error {
	s.registry.Upsert(rec)
	if err := s.feed.Subscribe(rec.ID, func(updated record.Record) {
		s.registry.Upsert(updated)
	}); err != nil {
		return s.fail(rec.ID, fmt.Errorf("subscribe to record %s: %w", rec.ID, err))
	}
	return nil
}

// CreateGame inserts a fresh record for the given seats and tracks it.
func (s *Service) CreateGame(ctx context.Context, blackID, whiteID string) (record.Record, error) {
	rec, err := s.store.Create(ctx, blackID, whiteID)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.Track(rec); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

// LoadPlayerGames primes the registry with every unfinished game the
// participant is seated in and subscribes to each.
func (s *Service) LoadPlayerGames(ctx context.Context) ([]record.Record, error) {
	rows, err := s.store.ListForParticipant(ctx, s.selfID)
	if err != nil {
		return nil, err
	}
	for _, rec := range rows {
		if err := s.Track(rec); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// MakeMove places the participant's stone at (row, col). The move is
// validated against a fresh fetch, then written with a conditional patch
// so a concurrent writer makes it fail instead of corrupting the game.
// The patch carries the finish verdict when the move wins or fills the
// board.
func (s *Service) MakeMove(ctx context.Context, recordID string, row, col int) (record.Record, error) {
	if err := s.acquire(recordID); err != nil {
		return record.Record{}, err
	}
	defer s.release(recordID)

	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return record.Record{}, s.fail(recordID, err)
	}

	if rec.IsFinished {
		return record.Record{}, s.violation(recordID, "game is already finished")
	}
	if rec.CurrentPlayerTurn != s.selfID {
		return record.Record{}, s.violation(recordID, "not your turn")
	}
	stone, ok := rec.StoneOf(s.selfID)
	if !ok {
		return record.Record{}, s.violation(recordID, "not a participant in this game")
	}
	if !rules.IsLegalMove(rec.Board, row, col) {
		return record.Record{}, s.violation(recordID, "illegal move")
	}

	board := rules.WithStone(rec.Board, row, col, stone)
	now := s.clock.Now().UTC()
	update := record.Update{Board: &board, UpdatedAt: now}

	switch {
	case rules.CheckWin(board, row, col, stone):
		finished := true
		winner := s.selfID
		update.IsFinished = &finished
		update.WinnerID = &winner
		update.FinishedAt = &now
	case rules.IsDraw(board):
		finished := true
		update.IsFinished = &finished
		update.FinishedAt = &now
	default:
		opponent, _ := rec.Opponent(s.selfID)
		update.CurrentPlayerTurn = &opponent
	}

	cond := record.Condition{ExpectTurn: s.selfID, ExpectUnfinished: true}
	updated, err := s.store.Patch(ctx, recordID, cond, update)
	if err != nil {
		return record.Record{}, s.fail(recordID, err)
	}

	s.registry.Upsert(updated)
	return updated, nil
}

// Forfeit concedes the game: the other seat wins. A forfeit is legal on
// either turn but only while the game runs.
func (s *Service) Forfeit(ctx context.Context, recordID string) (record.Record, error) {
	if err := s.acquire(recordID); err != nil {
		return record.Record{}, err
	}
	defer s.release(recordID)

	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return record.Record{}, s.fail(recordID, err)
	}
	if rec.IsFinished {
		return record.Record{}, s.violation(recordID, "game is already finished")
	}
	opponent, ok := rec.Opponent(s.selfID)
	if !ok {
		return record.Record{}, s.violation(recordID, "not a participant in this game")
	}

	now := s.clock.Now().UTC()
	finished := true
	update := record.Update{
		IsFinished: &finished,
		WinnerID:   &opponent,
		UpdatedAt:  now,
		FinishedAt: &now,
	}

	updated, err := s.store.Patch(ctx, recordID, record.Condition{ExpectUnfinished: true}, update)
	if err != nil {
		return record.Record{}, s.fail(recordID, err)
	}

	s.registry.Upsert(updated)
	return updated, nil
}

// Close tears down every feed subscription.
func (s *Service) Close() {
	s.feed.UnsubscribeAll()
}

// acquire marks a record as having a write in flight.
func (s *Service) acquire(recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[recordID] {
		return errors.WithMetadata(errors.CodeRulesViolation,
			"another submission for this game is still in flight",
			map[string]string{"record_id": recordID})
	}
	s.inflight[recordID] = true
	return nil
}

func (s *Service) release(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, recordID)
}

// violation builds a rules-violation error and reports it on the bus.
func (s *Service) violation(recordID, msg string) error {
	return s.fail(recordID, errors.WithMetadata(errors.CodeRulesViolation, msg,
		map[string]string{"record_id": recordID}))
}

// fail publishes a SyncError for the record and returns err unchanged.
func (s *Service) fail(recordID string, err error) error {
	s.bus.Publish(event.SyncError{RecordID: recordID, Err: err})
	return err
}
