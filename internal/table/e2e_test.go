package table

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/approve"
	"chainjack/internal/autopilot"
	"chainjack/internal/chain"
	"chainjack/internal/chain/chaintest"
	"chainjack/internal/game"
	"chainjack/internal/submit"
)

func card(rank int, suit game.Suit) game.Card {
	return game.Card(int(suit)*13 + rank)
}

func fastOptions() Options {
	return Options{
		PollInterval:  10 * time.Millisecond,
		TickInterval:  10 * time.Millisecond,
		SettleRetries: 2,
		Automation: autopilot.Config{
			SettlingDelay: 30 * time.Millisecond,
			RetryBackoff:  50 * time.Millisecond,
			StuckAfter:    5 * time.Second,
			MaxRetries:    3,
		},
		Submit:       submit.Config{ConfirmTimeout: time.Second},
		Approval:     approve.Config{Attempts: 3, Backoff: time.Millisecond},
		Owner:        "0xowner",
		TableSpender: "0xtable",
		VaultSpender: "0xvault",
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

// The full episode from the player's stand to the settled loss: dealer
// holds a soft 20, so the automation reveals and closes the turn with no
// draw, and the outcome engine reports the 17-versus-20 loss.
func TestStandThroughDealerTurnToLoss(t *testing.T) {
	// Deck: player T,7 then dealer upcard A, hole 9.
	emu := chaintest.NewEmulator(100, []game.Card{
		card(10, game.Spades), card(7, game.Hearts),
		card(1, game.Clubs), card(9, game.Diamonds),
	})

	reg := NewRegistry(emu, nil, fastOptions(), zerolog.Nop())
	defer reg.Shutdown()
	ctx := context.Background()
	inst := reg.Select(ctx, "g1")

	waitFor(t, func() bool { return inst.Snapshot().Phase == game.PhasePlayerTurn })

	if err := inst.PlayerAct(ctx, chain.PlayerStand, 0, 0); err != nil {
		t.Fatalf("stand: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := inst.Outcome()
		return ok
	})

	res, _ := inst.Outcome()
	if res.Tag != game.ResultLost {
		t.Fatalf("result = %s, want lost", res.Tag)
	}
	if res.PaidOnChain != 0 || res.TotalPayout != 0 {
		t.Fatalf("payout = %d/%d, want 0", res.PaidOnChain, res.TotalPayout)
	}

	// Exactly one stand, one reveal, one final advance; soft 20 draws
	// nothing.
	var dealer []chain.DealerActionKind
	for _, tx := range emu.Sent() {
		if da, ok := tx.(chain.DealerAction); ok {
			dealer = append(dealer, da.Kind)
		}
	}
	want := []chain.DealerActionKind{chain.DealerRevealAndAdvance, chain.DealerFinalAdvance}
	if len(dealer) != len(want) {
		t.Fatalf("dealer actions = %v, want %v", dealer, want)
	}
	for i := range want {
		if dealer[i] != want[i] {
			t.Fatalf("dealer actions = %v, want %v", dealer, want)
		}
	}
	if inst.Status() != autopilot.StatusIdle {
		t.Fatalf("status = %s, want idle after finish", inst.Status())
	}
}

// A low dealer hand forces draws until 17 and then the final advance.
func TestDealerDrawsToSeventeen(t *testing.T) {
	// Player stands on 19; dealer starts 6+6, draws 5 (17) and stops.
	emu := chaintest.NewEmulator(100, []game.Card{
		card(10, game.Spades), card(9, game.Hearts),
		card(6, game.Clubs), card(6, game.Diamonds),
		card(5, game.Spades),
	})

	reg := NewRegistry(emu, nil, fastOptions(), zerolog.Nop())
	defer reg.Shutdown()
	ctx := context.Background()
	inst := reg.Select(ctx, "g1")

	waitFor(t, func() bool { return inst.Snapshot().Phase == game.PhasePlayerTurn })
	if err := inst.PlayerAct(ctx, chain.PlayerStand, 0, 0); err != nil {
		t.Fatalf("stand: %v", err)
	}
	waitFor(t, func() bool {
		res, ok := inst.Outcome()
		return ok && res.PaidOnChain > 0
	})

	res, _ := inst.Outcome()
	if res.Tag != game.ResultWon || res.PaidOnChain != 200 {
		t.Fatalf("result = %s/%d, want won/200", res.Tag, res.PaidOnChain)
	}

	var dealer []chain.DealerActionKind
	for _, tx := range emu.Sent() {
		if da, ok := tx.(chain.DealerAction); ok {
			dealer = append(dealer, da.Kind)
		}
	}
	want := []chain.DealerActionKind{
		chain.DealerRevealAndAdvance,
		chain.DealerDrawCard,
		chain.DealerFinalAdvance,
	}
	if len(dealer) != len(want) {
		t.Fatalf("dealer actions = %v, want %v", dealer, want)
	}
	for i := range want {
		if dealer[i] != want[i] {
			t.Fatalf("dealer actions = %v, want %v", dealer, want)
		}
	}
}

func TestDoubleDownRunsApprovalFirst(t *testing.T) {
	emu := chaintest.NewEmulator(100, []game.Card{
		card(6, game.Spades), card(5, game.Hearts),
		card(10, game.Clubs), card(8, game.Diamonds),
		card(9, game.Spades),
	})

	reg := NewRegistry(emu, nil, fastOptions(), zerolog.Nop())
	defer reg.Shutdown()
	ctx := context.Background()
	inst := reg.Select(ctx, "g1")
	waitFor(t, func() bool { return inst.Snapshot().Phase == game.PhasePlayerTurn })

	if err := inst.PlayerAct(ctx, chain.PlayerDoubleDown, 0, 0); err != nil {
		t.Fatalf("double down: %v", err)
	}

	// Both allowances started at zero, so two grants must precede the
	// resubmitted action.
	sent := emu.Sent()
	actionAt := -1
	grantsBefore := 0
	for idx, tx := range sent {
		switch tx.(type) {
		case chain.PlayerAction:
			if actionAt < 0 {
				actionAt = idx
			}
		case chain.AuthorizationGrant:
			if actionAt < 0 {
				grantsBefore++
			}
		}
	}
	if actionAt < 0 {
		t.Fatalf("double down never submitted: %v", sent)
	}
	if grantsBefore != 2 {
		t.Fatalf("%d grants before the action, want 2", grantsBefore)
	}
}
