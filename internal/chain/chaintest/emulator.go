package chaintest

import (
	"chainjack/internal/chain"
	"chainjack/internal/game"
)

// Emulator layers blackjack contract behavior on a Fake: accepted player
// and dealer transactions advance the game the way the deployed contract
// would. Cards come from the supplied deck in order, so scenarios are
// deterministic. Used by the demo binary and the end-to-end tests.
//
// The contract deals the dealer's hole card when the dealer turn begins, so
// reads see one dealer card during the player turn and two from the start
// of the dealer turn. revealAndAdvance is the dealer state machine's entry
// step and changes nothing observable by itself.
type Emulator struct {
	*Fake
	deck []game.Card
}

// NewEmulator starts one game in the player-turn phase: one hand holding
// the first two deck cards, the dealer showing the third; the fourth is
// dealt to the dealer when the player turn ends.
func NewEmulator(stake uint64, deck []game.Card) *Emulator {
	e := &Emulator{Fake: NewFake(), deck: deck}
	hand := FakeHand{Cards: []game.Card{e.draw(), e.draw()}, Stake: stake}
	up := e.draw()
	e.SetPhase(game.PhasePlayerTurn)
	e.SetHands(hand)
	e.SetDealer(up)
	e.Fake.OnSend(e.apply)
	return e
}

func (e *Emulator) draw() game.Card {
	c := e.deck[0]
	e.deck = e.deck[1:]
	return c
}

// apply runs under the Fake's lock.
func (e *Emulator) apply(tx chain.Tx) {
	switch t := tx.(type) {
	case chain.PlayerAction:
		e.applyPlayer(t)
	case chain.DealerAction:
		e.applyDealer(t)
	}
}

func (e *Emulator) toDealerTurn() {
	e.phase = game.PhaseDealerTurn
	e.dealer = append(e.dealer, e.draw())
}

func (e *Emulator) applyPlayer(t chain.PlayerAction) {
	switch t.Kind {
	case chain.PlayerHit:
		h := e.hands[t.HandIndex]
		h.Cards = append(h.Cards, e.draw())
		e.hands[t.HandIndex] = h
		if game.IsBusted(h.Cards) {
			e.toDealerTurn()
		}
	case chain.PlayerDoubleDown:
		h := e.hands[t.HandIndex]
		h.Cards = append(h.Cards, e.draw())
		h.Stake *= 2
		e.hands[t.HandIndex] = h
		e.toDealerTurn()
	case chain.PlayerStand, chain.PlayerSurrender:
		e.toDealerTurn()
	case chain.PlayerPlaceInsurance:
		e.insurance = t.Amount
		e.phase = game.PhasePlayerTurn
	case chain.PlayerSkipInsurance:
		e.phase = game.PhasePlayerTurn
	}
}

func (e *Emulator) applyDealer(t chain.DealerAction) {
	switch t.Kind {
	case chain.DealerRevealAndAdvance:
		// Entry step of the dealer state machine; the cards are already
		// on chain.
	case chain.DealerDrawCard:
		e.dealer = append(e.dealer, e.draw())
	case chain.DealerFinalAdvance:
		hands := make([]game.FinalHand, len(e.hands))
		for i, h := range e.hands {
			hands[i] = game.FinalHand{Cards: h.Cards, Stake: h.Stake}
		}
		out := game.Settle(hands, e.dealer, e.insurance)
		e.payout = out.TotalPayout
		e.settled = true
		e.phase = game.PhaseFinished
	}
}
