package view

import (
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/game"
)

// Reading is one complete poll of the remote contract, taken in a single
// cycle so the stake fields are never older than the phase field.
type Reading struct {
	Phase          game.Phase
	DealerCards    []game.Card
	Hands          []HandView
	InsuranceStake uint64
	Payout         uint64
	PayoutPresent  bool
}

// Reconciler folds a sequence of possibly stale readings into a stable
// snapshot. The contract's read path can transiently serve pre-write state
// right after a confirmed write, so observed card counts only move forward;
// the single sanctioned reset is a phase regression to not-started, which
// means a brand-new game is reusing the slot.
//
// Not safe for concurrent use; each game's poller owns one.
type Reconciler struct {
	gameID string
	log    zerolog.Logger

	started      bool
	finishedSeen bool
	dealerCount  int
	handCounts   []int
	revealed     bool

	// settleWaits counts polls where the contract reported a zero payout
	// against a nonzero stake; until the budget runs out that reads as
	// "not yet settled", not as an all-loss outcome.
	settleWaits   int
	settleRetries int

	seq  uint64
	last Snapshot
}

func NewReconciler(gameID string, settleRetries int, log zerolog.Logger) *Reconciler {
	if settleRetries <= 0 {
		settleRetries = 5
	}
	return &Reconciler{gameID: gameID, settleRetries: settleRetries, log: log}
}

// Apply folds one reading in and returns the resulting snapshot plus
// whether it differs from the previous one.
func (r *Reconciler) Apply(rd Reading, now time.Time) (Snapshot, bool) {
	if r.finishedSeen && rd.Phase < game.PhaseFinished {
		// Terminal phase is sticky. A read claiming the game is live again
		// is a serving anomaly; keep the terminal snapshot.
		r.log.Warn().
			Str("game_id", r.gameID).
			Stringer("phase", rd.Phase).
			Msg("phase regressed after finish, ignoring read")
		return r.last, false
	}

	if r.started && rd.Phase == game.PhaseNotStarted && r.last.Phase != game.PhaseNotStarted {
		// A fresh game took over the slot: drop all monotonic memory.
		r.log.Info().Str("game_id", r.gameID).Msg("slot reset to a new game")
		r.resetInstance()
	}
	r.started = true

	snap := Snapshot{
		GameID:         r.gameID,
		Phase:          rd.Phase,
		PhaseName:      rd.Phase.String(),
		InsuranceStake: rd.InsuranceStake,
		ObservedAt:     now,
	}

	snap.Dealer.Cards = rd.DealerCards
	if len(rd.DealerCards) < r.dealerCount {
		snap.Dealer.Cards = r.last.Dealer.Cards
	} else {
		r.dealerCount = len(rd.DealerCards)
	}
	if r.dealerCount >= 2 {
		r.revealed = true
	}
	snap.Dealer.Revealed = r.revealed

	snap.Hands = r.reconcileHands(rd.Hands)

	if rd.Phase == game.PhaseFinished {
		snap.FinalPayout = r.gateOutcome(rd, snap.Hands)
		r.finishedSeen = true
	}

	changed := !equalSnapshots(r.last, snap)
	if changed {
		r.seq++
	}
	snap.Seq = r.seq
	r.last = snap
	return snap, changed
}

func (r *Reconciler) resetInstance() {
	r.finishedSeen = false
	r.dealerCount = 0
	r.handCounts = nil
	r.revealed = false
	r.settleWaits = 0
	r.last = Snapshot{}
}

// reconcileHands applies per-hand card-count monotonicity. The hand count
// itself only grows (splits add hands, nothing removes them), so a reading
// with fewer hands keeps the previously seen tail.
func (r *Reconciler) reconcileHands(read []HandView) []HandView {
	n := len(read)
	if n < len(r.handCounts) {
		n = len(r.handCounts)
	}
	out := make([]HandView, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case i >= len(read):
			out = append(out, r.last.Hands[i])
		case i < len(r.handCounts) && len(read[i].Cards) < r.handCounts[i]:
			// Stale card read; keep the cards we already saw but adopt the
			// freshly read stake.
			out = append(out, HandView{Cards: r.last.Hands[i].Cards, Stake: read[i].Stake})
		default:
			out = append(out, read[i])
		}
	}
	r.handCounts = make([]int, len(out))
	for i, h := range out {
		r.handCounts[i] = len(h.Cards)
	}
	return out
}

// gateOutcome decides whether the terminal payout may be published. Stakes
// in the reading were fetched in the same cycle that observed the finished
// phase, which satisfies the re-fetch requirement.
func (r *Reconciler) gateOutcome(rd Reading, hands []HandView) *uint64 {
	if !rd.PayoutPresent {
		return nil
	}
	var totalStake uint64
	for _, h := range hands {
		totalStake += h.Stake
	}
	if rd.Payout == 0 && totalStake > 0 && r.settleWaits < r.settleRetries {
		// A zero payout can be a not-yet-settled read; only after the retry
		// budget is spent do we believe every hand really lost.
		r.settleWaits++
		r.log.Debug().
			Str("game_id", r.gameID).
			Int("waits", r.settleWaits).
			Msg("zero payout with live stake, holding result")
		return nil
	}
	p := rd.Payout
	return &p
}

func equalSnapshots(a, b Snapshot) bool {
	if a.Phase != b.Phase ||
		a.InsuranceStake != b.InsuranceStake ||
		a.Dealer.Revealed != b.Dealer.Revealed ||
		len(a.Dealer.Cards) != len(b.Dealer.Cards) ||
		len(a.Hands) != len(b.Hands) {
		return false
	}
	if (a.FinalPayout == nil) != (b.FinalPayout == nil) {
		return false
	}
	if a.FinalPayout != nil && *a.FinalPayout != *b.FinalPayout {
		return false
	}
	for i := range a.Dealer.Cards {
		if a.Dealer.Cards[i] != b.Dealer.Cards[i] {
			return false
		}
	}
	for i := range a.Hands {
		if a.Hands[i].Stake != b.Hands[i].Stake || len(a.Hands[i].Cards) != len(b.Hands[i].Cards) {
			return false
		}
		for j := range a.Hands[i].Cards {
			if a.Hands[i].Cards[j] != b.Hands[i].Cards[j] {
				return false
			}
		}
	}
	return true
}
