package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/event"
	"github.com/hoshigame/gomoku-online/internal/game/rules"
	"github.com/hoshigame/gomoku-online/internal/game/session"
	gamesync "github.com/hoshigame/gomoku-online/internal/game/sync"
	"github.com/hoshigame/gomoku-online/internal/identity"
	"github.com/hoshigame/gomoku-online/internal/matchmaking"
	"github.com/hoshigame/gomoku-online/internal/platform/storage/localstore"
	"github.com/hoshigame/gomoku-online/internal/record"
)

// Run logs in, finds an opponent, seats both players into a shared game
// record, and then serves console intents until the game ends or ctx is
// canceled. input is the intent stream, normally os.Stdin.
func Run(ctx context.Context, cfg Config, input io.Reader) error {
	clock := clockwork.NewRealClock()

	kv, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer kv.Close()

	idc := identity.NewClient(cfg.IdentityURL, cfg.TitleID, kv, clock)
	cred, err := idc.LoginAnonymous(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	bus := event.NewBus()
	finished := make(chan struct{})
	bus.Subscribe(renderEvents(cred.ParticipantID, finished))

	registry := session.NewRegistry(bus, clock)
	store := record.NewHTTPStore(cfg.RecordStoreURL, cfg.RecordStoreKey)
	feed := record.NewWSFeed(cfg.RecordStoreURL, cfg.RecordStoreKey, clock)
	svc := gamesync.NewService(store, feed, registry, bus, clock, cred.ParticipantID)
	defer svc.Close()

	if games, err := svc.LoadPlayerGames(ctx); err != nil {
		log.Printf("loading existing games failed: %v", err)
	} else if len(games) > 0 {
		log.Printf("resumed %d unfinished game(s)", len(games))
	}

	coord := matchmaking.NewCoordinator(matchmaking.NewClient(cfg.MatchBackendURL), idc,
		matchmaking.Config{PollInterval: cfg.PollInterval, Budget: cfg.MatchBudget}, clock)

	ticketID, err := coord.CreateTicket(ctx, cfg.MatchQueue)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	match, err := coord.PollUntilResolved(ctx, cfg.MatchQueue, ticketID, func(t matchmaking.Ticket) {
		log.Printf("matchmaking: %s", t.Status)
	})
	if err != nil {
		return fmt.Errorf("matchmaking: %w", err)
	}

	arb := gamesync.NewArbiter(store, clock, gamesync.SystemRand(),
		gamesync.ArbiterConfig{WaitAttempts: cfg.WaitAttempts, WaitInterval: cfg.WaitInterval})
	placement, err := arb.Establish(ctx, match, cred.ParticipantID)
	if err != nil {
		return fmt.Errorf("establish game: %w", err)
	}
	if err := svc.Track(placement.Record); err != nil {
		return fmt.Errorf("track game: %w", err)
	}
	log.Printf("playing %s against %s; enter moves as \"row col\", or \"forfeit\" / \"quit\"",
		placement.SelfColor, placement.OpponentID)

	return serveIntents(ctx, svc, registry, cred.ParticipantID, placement.Record.ID, input, finished)
}

// serveIntents runs the console loop until quit, game end, or ctx
// cancellation.
func serveIntents(ctx context.Context, svc *gamesync.Service, registry *session.Registry, selfID, gameID string, input io.Reader, finished <-chan struct{}) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-finished:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch {
			case line == "":
			case line == "quit":
				return nil
			case line == "forfeit":
				if _, err := svc.Forfeit(ctx, gameID); err != nil {
					log.Printf("forfeit rejected: %v", err)
				}
			default:
				var row, col int
				if _, err := fmt.Sscanf(line, "%d %d", &row, &col); err != nil {
					log.Printf("unrecognized intent %q", line)
					continue
				}
				s, ok := registry.Get(gameID)
				if !ok {
					log.Printf("no such game %s", gameID)
					continue
				}
				if !session.NewModel(s.Record, selfID).CanPlace(row, col) {
					log.Printf("cannot place at (%d,%d) right now", row, col)
					continue
				}
				if _, err := svc.MakeMove(ctx, gameID, row, col); err != nil {
					log.Printf("move rejected: %v", err)
				}
			}
		}
	}
}

// renderEvents turns bus events into log lines, closing finished when a
// game ends.
func renderEvents(selfID string, finished chan<- struct{}) event.Handler {
	var done bool
	return func(e event.Event) {
		switch ev := e.(type) {
		case event.RecordCreated:
			log.Printf("game %s started", ev.Record.ID)
		case event.RecordUpdated:
			log.Printf("game %s updated\n%s", ev.Record.ID, renderBoard(ev.Record.Board))
		case event.MatchFinished:
			switch {
			case ev.Winner == "":
				log.Printf("game %s ended in a draw", ev.Record.ID)
			case ev.Record.WinnerID != nil && *ev.Record.WinnerID == selfID:
				log.Printf("game %s: you win as %s", ev.Record.ID, ev.Winner)
			default:
				log.Printf("game %s: %s wins", ev.Record.ID, ev.Winner)
			}
			if !done {
				done = true
				close(finished)
			}
		case event.SyncError:
			log.Printf("sync error on game %s: %v", ev.RecordID, ev.Err)
		}
	}
}

// renderBoard draws the grid with X for black, O for white.
func renderBoard(b rules.Board) string {
	var sb strings.Builder
	for _, row := range b {
		for col, cell := range row {
			if col > 0 {
				sb.WriteByte(' ')
			}
			switch cell {
			case rules.Black:
				sb.WriteByte('X')
			case rules.White:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
