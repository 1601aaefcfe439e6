package game

// Phase is the remote contract's stage for one game. The contract owns the
// value; the client only observes it. The numeric order is the order of
// progress, and Finished is terminal.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseDealing
	PhaseInsuranceOffer
	PhasePlayerTurn
	PhaseDealerTurn
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseDealing:
		return "dealing"
	case PhaseInsuranceOffer:
		return "insurance_offer"
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseDealerTurn:
		return "dealer_turn"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func (p Phase) Terminal() bool {
	return p == PhaseFinished
}
