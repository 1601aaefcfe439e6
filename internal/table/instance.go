// Package table owns game-instance lifecycle: each instance couples one
// game's poller and automation controller, and the selector decides which
// single instance is live for the UI.
package table

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/approve"
	"chainjack/internal/autopilot"
	"chainjack/internal/chain"
	"chainjack/internal/submit"
	"chainjack/internal/view"
)

type Options struct {
	PollInterval  time.Duration
	TickInterval  time.Duration
	SettleRetries int

	Automation autopilot.Config
	Submit     submit.Config
	Approval   approve.Config

	Owner        string
	TableSpender string
	VaultSpender string
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 500 * time.Millisecond
	}
	if o.SettleRetries <= 0 {
		o.SettleRetries = 5
	}
	return o
}

// Instance is one game's running machinery. Stop cancels its polling and
// automation completely; a later re-entry builds a fresh instance that
// re-derives everything from chain reads.
type Instance struct {
	gameID string
	opts   Options
	log    zerolog.Logger

	feed   *view.Feed
	poller *view.Poller
	ctrl   *autopilot.Controller
	sub    *submit.Submitter
	flow   *approve.Flow

	cancel context.CancelFunc
	done   chan struct{}
}

func newInstance(gameID string, client chain.Client, journal submit.Journal, opts Options, log zerolog.Logger) *Instance {
	opts = opts.withDefaults()
	ilog := log.With().Str("game_id", gameID).Logger()

	inst := &Instance{
		gameID: gameID,
		opts:   opts,
		log:    ilog,
		feed:   view.NewFeed(0),
		done:   make(chan struct{}),
	}

	rec := view.NewReconciler(gameID, opts.SettleRetries, ilog)
	inst.poller = view.NewPoller(gameID, client, rec, inst.feed, opts.PollInterval, ilog)

	inst.sub = submit.New(client, opts.Submit, ilog).
		WithConfirmedHook(inst.poller.Refresh)
	if journal != nil {
		inst.sub.WithJournal(journal)
	}

	inst.flow = approve.NewFlow(client, inst.sub, opts.Owner, opts.TableSpender, opts.VaultSpender, opts.Approval, ilog)
	inst.ctrl = autopilot.New(gameID, opts.Automation, inst.submitDealer, ilog)
	return inst
}

// submitDealer dispatches asynchronously so the controller's lock is never
// held across a multi-second confirmation wait.
func (i *Instance) submitDealer(kind chain.DealerActionKind) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.opts.Submit.ConfirmTimeout+30*time.Second)
		defer cancel()
		_, err := i.sub.Submit(ctx, chain.DealerAction{GameID: i.gameID, Kind: kind})
		i.ctrl.HandleResult(kind, err)
	}()
}

func (i *Instance) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	i.cancel = cancel

	go i.poller.Run(ctx)
	go i.loop(ctx)
}

// loop is the instance's single logical thread: snapshots and clock ticks
// are serialized into the controller, never concurrent decisions.
func (i *Instance) loop(ctx context.Context) {
	defer close(i.done)
	snaps := i.feed.Subscribe()
	defer i.feed.Unsubscribe(snaps)
	ticker := time.NewTicker(i.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				return
			}
			i.ctrl.HandleSnapshot(s)
		case <-ticker.C:
			i.ctrl.Tick()
		}
	}
}

func (i *Instance) stop() {
	if i.cancel != nil {
		i.cancel()
		<-i.done
	}
	i.feed.Close()
}

func (i *Instance) GameID() string { return i.gameID }

func (i *Instance) Snapshot() view.Snapshot { return i.poller.Current() }

func (i *Instance) Feed() *view.Feed { return i.feed }

func (i *Instance) Status() autopilot.Status { return i.ctrl.Status() }

// Retry is the operator's manual re-evaluation for a stuck dealer turn.
func (i *Instance) Retry() { i.ctrl.ManualKick() }

// PlayerAct submits a user-initiated action, running the approval flow
// first when the action moves stake. Errors come back unmapped; the
// transport layer turns them into user-facing messages.
func (i *Instance) PlayerAct(ctx context.Context, kind chain.PlayerActionKind, handIndex int, amount uint64) error {
	if !kind.Valid() {
		return &chain.ContractError{Code: "invalid_action"}
	}
	if need := i.stakeNeeded(kind, handIndex, amount); need > 0 {
		if err := i.flow.Ensure(ctx, need, need); err != nil {
			return err
		}
	}
	_, err := i.sub.Submit(ctx, chain.PlayerAction{
		GameID:    i.gameID,
		HandIndex: handIndex,
		Kind:      kind,
		Amount:    amount,
	})
	return err
}

// stakeNeeded returns the extra token amount an action will pull, which is
// what the allowances must cover.
func (i *Instance) stakeNeeded(kind chain.PlayerActionKind, handIndex int, amount uint64) uint64 {
	switch kind {
	case chain.PlayerDoubleDown, chain.PlayerSplit:
		s := i.poller.Current()
		if handIndex >= 0 && handIndex < len(s.Hands) {
			return s.Hands[handIndex].Stake
		}
		return 0
	case chain.PlayerPlaceInsurance:
		return amount
	default:
		return 0
	}
}

// Outcome resolves the final result once the snapshot gate has opened.
func (i *Instance) Outcome() (view.Result, bool) {
	return i.Snapshot().Outcome()
}
