package chain

import (
	"context"

	"chainjack/internal/game"
)

// Reader is the poll surface of the remote ledger. Every call is idempotent
// and may return values lagging behind confirmed writes; the view layer is
// responsible for reconciling that.
type Reader interface {
	GetPhase(ctx context.Context, gameID string) (game.Phase, error)
	GetDealerCards(ctx context.Context, gameID string) ([]game.Card, error)
	GetHandCount(ctx context.Context, gameID string) (int, error)
	GetHandCards(ctx context.Context, gameID string, index int) ([]game.Card, error)
	GetHandStake(ctx context.Context, gameID string, index int) (uint64, error)
	GetInsuranceStake(ctx context.Context, gameID string) (uint64, error)
	// GetFinalPayout reports the settled payout and whether the contract has
	// published it yet.
	GetFinalPayout(ctx context.Context, gameID string) (uint64, bool, error)
	GetAuthorizationAmount(ctx context.Context, owner, spender string) (uint64, error)
}

// Writer is the confirmation-gated write surface. Send only broadcasts;
// AwaitReceipt blocks (on ctx) until the ledger confirms the transaction.
type Writer interface {
	Simulate(ctx context.Context, tx Tx) (SimResult, error)
	SuggestFees(ctx context.Context) (FeeQuote, error)
	Send(ctx context.Context, tx Tx, gasLimit uint64, fees FeeQuote) (TxHash, error)
	AwaitReceipt(ctx context.Context, hash TxHash) (Receipt, error)
}

// Client is what the engine holds: one endpoint serving both surfaces.
type Client interface {
	Reader
	Writer
}
