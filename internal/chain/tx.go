package chain

import "time"

// Tx is the closed set of state-changing calls the client can make. Each
// variant carries exactly the arguments its contract method takes; there is
// no stringly-typed dispatch.
type Tx interface {
	isTx()
	Method() string
}

type PlayerActionKind string

const (
	PlayerHit            PlayerActionKind = "hit"
	PlayerStand          PlayerActionKind = "stand"
	PlayerDoubleDown     PlayerActionKind = "doubleDown"
	PlayerSplit          PlayerActionKind = "split"
	PlayerPlaceInsurance PlayerActionKind = "placeInsurance"
	PlayerSkipInsurance  PlayerActionKind = "skipInsurance"
	PlayerSurrender      PlayerActionKind = "surrender"
)

func (k PlayerActionKind) Valid() bool {
	switch k {
	case PlayerHit, PlayerStand, PlayerDoubleDown, PlayerSplit,
		PlayerPlaceInsurance, PlayerSkipInsurance, PlayerSurrender:
		return true
	}
	return false
}

// PlayerAction is a user-initiated move on one hand. Amount is only
// meaningful for placeInsurance; the other kinds take no value.
type PlayerAction struct {
	GameID    string
	HandIndex int
	Kind      PlayerActionKind
	Amount    uint64
}

func (PlayerAction) isTx() {}

func (a PlayerAction) Method() string { return string(a.Kind) }

type DealerActionKind string

const (
	DealerRevealAndAdvance DealerActionKind = "revealAndAdvance"
	DealerDrawCard         DealerActionKind = "drawCard"
	DealerFinalAdvance     DealerActionKind = "finalAdvance"
)

// DealerAction advances the automated dealer turn. Calling the same kind
// twice advances the game twice; the contract does not de-duplicate.
type DealerAction struct {
	GameID string
	Kind   DealerActionKind
}

func (DealerAction) isTx() {}

func (a DealerAction) Method() string { return string(a.Kind) }

// AuthorizationGrant raises a spender's allowance over the caller's tokens.
type AuthorizationGrant struct {
	Spender string
	Amount  uint64
}

func (AuthorizationGrant) isTx() {}

func (AuthorizationGrant) Method() string { return "approve" }

type TxHash string

type SimResult struct {
	GasEstimate uint64
}

type FeeQuote struct {
	MaxFee      uint64
	PriorityFee uint64
}

type Receipt struct {
	Hash        TxHash
	GasUsed     uint64
	ConfirmedAt time.Time
}
