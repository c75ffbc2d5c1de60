package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	gamesync "github.com/hoshigame/gomoku-online/internal/game/sync"
	"github.com/hoshigame/gomoku-online/internal/matchmaking"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
	"github.com/hoshigame/gomoku-online/internal/record"
)

// fixedRand always answers the same value, pinning the coin flip.
type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

func twoMemberMatch(first, second string) matchmaking.Match {
	return matchmaking.Match{
		ID: "M-1",
		Members: []matchmaking.Member{
			{Entity: matchmaking.Entity{ID: first, Type: "title_player_account"}},
			{Entity: matchmaking.Entity{ID: second, Type: "title_player_account"}},
		},
	}
}

func TestEstablishElectionIgnoresMemberOrder(t *testing.T) {
	// "E-AAA" sorts below "E-BBB", so it creates regardless of the order
	// the backend listed the members in.
	for _, match := range []matchmaking.Match{
		twoMemberMatch("E-AAA", "E-BBB"),
		twoMemberMatch("E-BBB", "E-AAA"),
	} {
		store := newFakeStore()
		arb := gamesync.NewArbiter(store, clockwork.NewFakeClock(), fixedRand(0), gamesync.ArbiterConfig{})

		placement, err := arb.Establish(context.Background(), match, "E-AAA")
		if err != nil {
			t.Fatalf("establish: %v", err)
		}
		if store.creates != 1 {
			t.Fatalf("creates = %d, want the smaller id to create", store.creates)
		}
		if placement.OpponentID != "E-BBB" {
			t.Fatalf("opponent = %q", placement.OpponentID)
		}
	}
}

func TestEstablishCoinFlipAssignsColors(t *testing.T) {
	cases := []struct {
		flip fixedRand
		want record.Color
	}{
		{fixedRand(0), record.ColorBlack},
		{fixedRand(1), record.ColorWhite},
	}
	for _, tc := range cases {
		store := newFakeStore()
		arb := gamesync.NewArbiter(store, clockwork.NewFakeClock(), tc.flip, gamesync.ArbiterConfig{})

		placement, err := arb.Establish(context.Background(), twoMemberMatch("E-AAA", "E-BBB"), "E-AAA")
		if err != nil {
			t.Fatalf("establish: %v", err)
		}
		if placement.SelfColor != tc.want {
			t.Fatalf("flip %d: color = %q, want %q", tc.flip, placement.SelfColor, tc.want)
		}
		// Black always moves first regardless of who created.
		if placement.Record.CurrentPlayerTurn != placement.Record.BlackPlayerID {
			t.Fatal("new game must open on black's turn")
		}
	}
}

func TestEstablishRejectsBadMemberCount(t *testing.T) {
	arb := gamesync.NewArbiter(newFakeStore(), clockwork.NewFakeClock(), fixedRand(0), gamesync.ArbiterConfig{})

	short := matchmaking.Match{ID: "M-1", Members: []matchmaking.Member{
		{Entity: matchmaking.Entity{ID: "E-AAA"}},
	}}
	if _, err := arb.Establish(context.Background(), short, "E-AAA"); !errors.HasCode(err, errors.CodeProtocolMemberCount) {
		t.Fatalf("expected member-count error, got %v", err)
	}

	crowd := twoMemberMatch("E-AAA", "E-BBB")
	crowd.Members = append(crowd.Members, matchmaking.Member{Entity: matchmaking.Entity{ID: "E-CCC"}})
	if _, err := arb.Establish(context.Background(), crowd, "E-AAA"); !errors.HasCode(err, errors.CodeProtocolMemberCount) {
		t.Fatalf("expected member-count error, got %v", err)
	}
}

type establishResult struct {
	placement gamesync.Placement
	err       error
}

func TestWaiterFindsRecordOnceCreated(t *testing.T) {
	store := newFakeStore()
	fc := clockwork.NewFakeClock()
	cfg := gamesync.ArbiterConfig{WaitAttempts: 5, WaitInterval: 2 * time.Second}
	arb := gamesync.NewArbiter(store, fc, fixedRand(0), cfg)

	// "E-BBB" loses the election and waits for "E-AAA" to create.
	done := make(chan establishResult, 1)
	go func() {
		placement, err := arb.Establish(context.Background(), twoMemberMatch("E-AAA", "E-BBB"), "E-BBB")
		done <- establishResult{placement, err}
	}()

	waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := fc.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("waiting for first lookup: %v", err)
	}

	// The creator's record appears between lookups.
	store.put(record.Record{
		ID:                "g1",
		BlackPlayerID:     "E-AAA",
		WhitePlayerID:     "E-BBB",
		CurrentPlayerTurn: "E-AAA",
	})
	fc.Advance(cfg.WaitInterval)

	res := <-done
	if res.err != nil {
		t.Fatalf("establish: %v", res.err)
	}
	if res.placement.Record.ID != "g1" {
		t.Fatalf("record = %q", res.placement.Record.ID)
	}
	if res.placement.SelfColor != record.ColorWhite {
		t.Fatalf("color = %q, want the seat the creator assigned", res.placement.SelfColor)
	}
	if res.placement.OpponentID != "E-AAA" {
		t.Fatalf("opponent = %q", res.placement.OpponentID)
	}
	if store.creates != 0 {
		t.Fatal("the waiter must never create a record")
	}
}

func TestWaiterIgnoresUnrelatedGames(t *testing.T) {
	store := newFakeStore()
	// An older unfinished game against someone else must not satisfy
	// the waiter.
	store.put(record.Record{
		ID:                "g-old",
		BlackPlayerID:     "E-BBB",
		WhitePlayerID:     "E-ZZZ",
		CurrentPlayerTurn: "E-BBB",
	})
	store.put(record.Record{
		ID:                "g-new",
		BlackPlayerID:     "E-AAA",
		WhitePlayerID:     "E-BBB",
		CurrentPlayerTurn: "E-AAA",
	})
	arb := gamesync.NewArbiter(store, clockwork.NewFakeClock(), fixedRand(0), gamesync.ArbiterConfig{})

	placement, err := arb.Establish(context.Background(), twoMemberMatch("E-AAA", "E-BBB"), "E-BBB")
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if placement.Record.ID != "g-new" {
		t.Fatalf("record = %q, want the one against this opponent", placement.Record.ID)
	}
}

func TestWaiterGivesUpAfterAttempts(t *testing.T) {
	store := newFakeStore()
	fc := clockwork.NewFakeClock()
	cfg := gamesync.ArbiterConfig{WaitAttempts: 3, WaitInterval: 2 * time.Second}
	arb := gamesync.NewArbiter(store, fc, fixedRand(0), cfg)

	done := make(chan establishResult, 1)
	go func() {
		_, err := arb.Establish(context.Background(), twoMemberMatch("E-AAA", "E-BBB"), "E-BBB")
		done <- establishResult{err: err}
	}()

	waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	for i := 0; i < cfg.WaitAttempts-1; i++ {
		if err := fc.BlockUntilContext(waitCtx, 1); err != nil {
			t.Fatalf("waiting for lookup %d: %v", i+1, err)
		}
		fc.Advance(cfg.WaitInterval)
	}

	res := <-done
	if !errors.HasCode(res.err, errors.CodeRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", res.err)
	}
	if store.lists != cfg.WaitAttempts {
		t.Fatalf("lookups = %d, want %d", store.lists, cfg.WaitAttempts)
	}
}
