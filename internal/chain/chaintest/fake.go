// Package chaintest provides in-memory stand-ins for the chain gateway so
// the engine's packages can be tested without a network.
package chaintest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainjack/internal/chain"
	"chainjack/internal/game"
)

type FakeHand struct {
	Cards []game.Card
	Stake uint64
}

// Fake is a scriptable chain.Client. Tests set the observable state
// directly and inspect the transactions the engine sent. All writes confirm
// immediately unless an error is injected.
type Fake struct {
	mu sync.Mutex

	phase      game.Phase
	dealer     []game.Card
	hands      []FakeHand
	insurance  uint64
	payout     uint64
	settled    bool
	allowances map[string]uint64

	sent     []chain.Tx
	nextHash int

	simulateErr error
	sendErr     error
	sendErrOnce error
	feesErr     error

	// onSend runs under the lock after a transaction is accepted, letting a
	// test (or the emulator) mutate state the way the contract would.
	onSend func(tx chain.Tx)
}

func NewFake() *Fake {
	return &Fake{allowances: map[string]uint64{}}
}

func (f *Fake) SetPhase(p game.Phase)          { f.mu.Lock(); f.phase = p; f.mu.Unlock() }
func (f *Fake) SetDealer(cards ...game.Card)   { f.mu.Lock(); f.dealer = cards; f.mu.Unlock() }
func (f *Fake) SetHands(hands ...FakeHand)     { f.mu.Lock(); f.hands = hands; f.mu.Unlock() }
func (f *Fake) SetInsurance(stake uint64)      { f.mu.Lock(); f.insurance = stake; f.mu.Unlock() }
func (f *Fake) SetAllowance(sp string, n uint64) {
	f.mu.Lock()
	f.allowances[sp] = n
	f.mu.Unlock()
}

func (f *Fake) SetPayout(payout uint64, settled bool) {
	f.mu.Lock()
	f.payout = payout
	f.settled = settled
	f.mu.Unlock()
}

func (f *Fake) FailSimulate(err error) { f.mu.Lock(); f.simulateErr = err; f.mu.Unlock() }
func (f *Fake) FailSend(err error)     { f.mu.Lock(); f.sendErr = err; f.mu.Unlock() }
func (f *Fake) FailSendOnce(err error) { f.mu.Lock(); f.sendErrOnce = err; f.mu.Unlock() }
func (f *Fake) FailFees(err error)     { f.mu.Lock(); f.feesErr = err; f.mu.Unlock() }

func (f *Fake) OnSend(fn func(tx chain.Tx)) { f.mu.Lock(); f.onSend = fn; f.mu.Unlock() }

// Sent returns a copy of every accepted transaction, in send order.
func (f *Fake) Sent() []chain.Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chain.Tx, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Fake) GetPhase(_ context.Context, _ string) (game.Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase, nil
}

func (f *Fake) GetDealerCards(_ context.Context, _ string) ([]game.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]game.Card, len(f.dealer))
	copy(out, f.dealer)
	return out, nil
}

func (f *Fake) GetHandCount(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hands), nil
}

func (f *Fake) GetHandCards(_ context.Context, _ string, index int) ([]game.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.hands) {
		return nil, fmt.Errorf("no hand %d", index)
	}
	out := make([]game.Card, len(f.hands[index].Cards))
	copy(out, f.hands[index].Cards)
	return out, nil
}

func (f *Fake) GetHandStake(_ context.Context, _ string, index int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.hands) {
		return 0, fmt.Errorf("no hand %d", index)
	}
	return f.hands[index].Stake, nil
}

func (f *Fake) GetInsuranceStake(_ context.Context, _ string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insurance, nil
}

func (f *Fake) GetFinalPayout(_ context.Context, _ string) (uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payout, f.settled, nil
}

func (f *Fake) GetAuthorizationAmount(_ context.Context, _, spender string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowances[spender], nil
}

func (f *Fake) Simulate(_ context.Context, _ chain.Tx) (chain.SimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.simulateErr != nil {
		return chain.SimResult{}, f.simulateErr
	}
	return chain.SimResult{GasEstimate: 50_000}, nil
}

func (f *Fake) SuggestFees(_ context.Context) (chain.FeeQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feesErr != nil {
		return chain.FeeQuote{}, f.feesErr
	}
	return chain.FeeQuote{MaxFee: 100, PriorityFee: 2}, nil
}

func (f *Fake) Send(_ context.Context, tx chain.Tx, _ uint64, _ chain.FeeQuote) (chain.TxHash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErrOnce != nil {
		err := f.sendErrOnce
		f.sendErrOnce = nil
		return "", err
	}
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	if grant, ok := tx.(chain.AuthorizationGrant); ok {
		f.allowances[grant.Spender] = grant.Amount
	}
	if f.onSend != nil {
		f.onSend(tx)
	}
	f.nextHash++
	return chain.TxHash(fmt.Sprintf("0xfake%04d", f.nextHash)), nil
}

func (f *Fake) AwaitReceipt(_ context.Context, hash chain.TxHash) (chain.Receipt, error) {
	return chain.Receipt{Hash: hash, GasUsed: 42_000, ConfirmedAt: time.Now()}, nil
}
