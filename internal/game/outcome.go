package game

// FinalHand is one player hand as it stands when the game finishes.
type FinalHand struct {
	Cards []Card
	Stake uint64
}

type ResultTag string

const (
	ResultLost         ResultTag = "lost"
	ResultWon          ResultTag = "won"
	ResultPush         ResultTag = "push"
	ResultBlackjack    ResultTag = "blackjack"
	ResultInsuranceWin ResultTag = "insurance_win"
)

type HandResult struct {
	Tag    ResultTag
	Payout uint64
}

// Outcome is the consolidated user-facing result of one finished game.
// All amounts are in the token's smallest unit.
type Outcome struct {
	Tag             ResultTag
	Hands           []HandResult
	TotalStake      uint64
	TotalPayout     uint64
	InsurancePayout uint64
}

// settleHand resolves one hand against the dealer, in priority order:
// bust loses regardless of the dealer, a natural beats everything but a
// dealer natural and pays 3:2, dealer bust pays even money, otherwise the
// higher score wins.
func settleHand(h FinalHand, dealer []Card) HandResult {
	if IsBusted(h.Cards) {
		return HandResult{Tag: ResultLost}
	}
	dealerNatural := IsBlackjack(dealer)
	if IsBlackjack(h.Cards) {
		if dealerNatural {
			return HandResult{Tag: ResultPush, Payout: h.Stake}
		}
		return HandResult{Tag: ResultBlackjack, Payout: h.Stake + h.Stake*3/2}
	}
	if dealerNatural {
		return HandResult{Tag: ResultLost}
	}
	if IsBusted(dealer) {
		return HandResult{Tag: ResultWon, Payout: 2 * h.Stake}
	}
	ps, ds := Score(h.Cards), Score(dealer)
	switch {
	case ps > ds:
		return HandResult{Tag: ResultWon, Payout: 2 * h.Stake}
	case ps == ds:
		return HandResult{Tag: ResultPush, Payout: h.Stake}
	default:
		return HandResult{Tag: ResultLost}
	}
}

// Settle computes the authoritative result of a finished game. Insurance is
// an independent side bet: it pays 3x the insurance stake when the dealer
// has a natural and is forfeited otherwise. The overall tag favors the
// insurance payout over a simultaneous main-hand loss, so the user is never
// shown "lost" at the moment a protective payout is covering the loss.
func Settle(hands []FinalHand, dealer []Card, insuranceStake uint64) Outcome {
	out := Outcome{Hands: make([]HandResult, 0, len(hands))}
	anyBlackjack := false
	for _, h := range hands {
		r := settleHand(h, dealer)
		out.Hands = append(out.Hands, r)
		out.TotalStake += h.Stake
		out.TotalPayout += r.Payout
		if r.Tag == ResultBlackjack {
			anyBlackjack = true
		}
	}
	dealerNatural := IsBlackjack(dealer)
	if insuranceStake > 0 && dealerNatural {
		out.InsurancePayout = 3 * insuranceStake
		out.TotalPayout += out.InsurancePayout
	}

	switch {
	case insuranceStake > 0 && dealerNatural:
		out.Tag = ResultInsuranceWin
	case anyBlackjack:
		out.Tag = ResultBlackjack
	case out.TotalPayout > out.TotalStake:
		out.Tag = ResultWon
	case out.TotalPayout == out.TotalStake && out.TotalStake > 0:
		out.Tag = ResultPush
	default:
		out.Tag = ResultLost
	}
	return out
}
