package view

import (
	"time"

	"chainjack/internal/game"
)

type HandView struct {
	Cards []game.Card `json:"cards"`
	Stake uint64      `json:"stake"`
}

type DealerView struct {
	Cards []game.Card `json:"cards"`
	// Revealed latches once the hole card has been seen face-up; a poll
	// that transiently reports fewer cards never clears it.
	Revealed bool `json:"revealed"`
}

// Snapshot is the reconciled view of one game. Each refresh produces a
// complete replacement; nothing outside this package mutates one.
type Snapshot struct {
	GameID         string      `json:"game_id"`
	Seq            uint64      `json:"seq"`
	Phase          game.Phase  `json:"phase"`
	PhaseName      string      `json:"phase_name"`
	Dealer         DealerView  `json:"dealer"`
	Hands          []HandView  `json:"hands"`
	InsuranceStake uint64      `json:"insurance_stake"`
	// FinalPayout is nil until the outcome gate opens: finished phase,
	// contract-published payout, stakes re-read after finishing.
	FinalPayout *uint64   `json:"final_payout,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Result is the human-facing outcome of a finished game. PaidOnChain is the
// contract's authoritative number; the tag and per-hand results are derived
// from the final cards.
type Result struct {
	game.Outcome
	PaidOnChain uint64 `json:"paid_on_chain"`
}

// Outcome resolves the final result. It reports false until the snapshot is
// terminal and the payout gate has opened.
func (s Snapshot) Outcome() (Result, bool) {
	if s.Phase != game.PhaseFinished || s.FinalPayout == nil {
		return Result{}, false
	}
	hands := make([]game.FinalHand, len(s.Hands))
	for i, h := range s.Hands {
		hands[i] = game.FinalHand{Cards: h.Cards, Stake: h.Stake}
	}
	out := game.Settle(hands, s.Dealer.Cards, s.InsuranceStake)
	return Result{Outcome: out, PaidOnChain: *s.FinalPayout}, true
}

func (s Snapshot) DealerScore() int {
	return game.Score(s.Dealer.Cards)
}
