package view

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain/chaintest"
	"chainjack/internal/game"
)

func startPoller(t *testing.T, fake *chaintest.Fake) (*Poller, *Feed, context.CancelFunc) {
	t.Helper()
	feed := NewFeed(32)
	rec := NewReconciler("g1", 3, zerolog.Nop())
	p := NewPoller("g1", fake, rec, feed, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	return p, feed, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestPollerPublishesReconciledSnapshots(t *testing.T) {
	fake := chaintest.NewFake()
	fake.SetPhase(game.PhasePlayerTurn)
	fake.SetHands(chaintest.FakeHand{Cards: []game.Card{card(10, game.Spades), card(7, game.Hearts)}, Stake: 100})
	fake.SetDealer(card(1, game.Spades))

	p, feed, cancel := startPoller(t, fake)
	defer cancel()
	ch := feed.Subscribe()
	defer feed.Unsubscribe(ch)

	waitFor(t, func() bool { return p.Current().Phase == game.PhasePlayerTurn })

	fake.SetPhase(game.PhaseDealerTurn)
	fake.SetDealer(card(1, game.Spades), card(9, game.Hearts))

	waitFor(t, func() bool {
		s := p.Current()
		return s.Phase == game.PhaseDealerTurn && s.Dealer.Revealed
	})
	if got := len(p.Current().Dealer.Cards); got != 2 {
		t.Fatalf("dealer cards = %d, want 2", got)
	}
}

func TestRefreshCoalescesAndPollsImmediately(t *testing.T) {
	fake := chaintest.NewFake()
	fake.SetPhase(game.PhasePlayerTurn)
	fake.SetHands(chaintest.FakeHand{Cards: []game.Card{card(10, game.Spades), card(7, game.Hearts)}, Stake: 100})

	feed := NewFeed(32)
	rec := NewReconciler("g1", 3, zerolog.Nop())
	// A very long interval: only Refresh can cause follow-up polls.
	p := NewPoller("g1", fake, rec, feed, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, func() bool { return p.Current().Phase == game.PhasePlayerTurn })

	fake.SetPhase(game.PhaseDealerTurn)
	p.Refresh()
	p.Refresh() // coalesces with the pending one
	waitFor(t, func() bool { return p.Current().Phase == game.PhaseDealerTurn })
}
