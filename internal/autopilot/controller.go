// Package autopilot advances the automated dealer turn. Every client runs
// this machine independently; the contract arbitrates concurrent writers,
// and a rejection because someone else already advanced the game is a
// normal outcome, not a failure.
package autopilot

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
	"chainjack/internal/game"
	"chainjack/internal/view"
)

type State string

const (
	StateIdle           State = "idle"
	StateSettling       State = "settling"
	StateRevealPending  State = "reveal_pending"
	StateHitPending     State = "hit_pending"
	StateAdvancePending State = "advance_pending"
	StateDone           State = "done"
)

// Status is the coarse automation state shown to the UI.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWaiting Status = "waiting"
	StatusStuck   Status = "stuck"
)

type Config struct {
	// SettlingDelay holds the machine back after entering the dealer turn
	// so a just-confirmed write can propagate through the read path.
	SettlingDelay time.Duration
	RetryBackoff  time.Duration
	// StuckAfter bounds how long the machine may sit without progress
	// before the stuck signal is raised.
	StuckAfter time.Duration
	// MaxRetries bounds automatic retries of transient failures per dealer
	// turn; after that only the stuck signal remains.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.SettlingDelay <= 0 {
		c.SettlingDelay = 1500 * time.Millisecond
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 3 * time.Second
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// SubmitFunc dispatches one dealer action. It must not block: the outcome
// comes back through HandleResult.
type SubmitFunc func(kind chain.DealerActionKind)

// Controller decides the single next dealer action per snapshot. The
// in-flight flag is the sole mutual exclusion for the non-idempotent write
// path: while a submission is unresolved, no amount of snapshot redelivery
// causes another one.
type Controller struct {
	gameID string
	cfg    Config
	submit SubmitFunc
	now    func() time.Time
	log    zerolog.Logger

	mu    sync.Mutex
	state State
	stuck bool

	// Dealer-turn memory, reset on every entry into the dealer turn and on
	// every entry into the finished phase.
	calledReveal  bool
	calledFinal   bool
	inFlight      bool
	awaitingCard  bool
	advanceReady  bool
	lastCardCount int
	retriesLeft   int
	settleUntil   time.Time
	lastProgress  time.Time

	retryPending bool
	retryAt      time.Time
	retryKind    chain.DealerActionKind

	haveSnap bool
	snap     view.Snapshot
}

func New(gameID string, cfg Config, submit SubmitFunc, log zerolog.Logger) *Controller {
	return &Controller{
		gameID: gameID,
		cfg:    cfg.withDefaults(),
		submit: submit,
		now:    time.Now,
		log:    log,
		state:  StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stuck:
		return StatusStuck
	case c.state == StateIdle || c.state == StateDone:
		return StatusIdle
	default:
		return StatusWaiting
	}
}

// HandleSnapshot feeds one reconciled snapshot through the decision rules.
func (c *Controller) HandleSnapshot(s view.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = s
	c.haveSnap = true
	c.evaluate(c.now())
}

// Tick drives time-based transitions: the settling delay expiring, a
// scheduled retry coming due, and stuck detection.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	if c.retryPending && !now.Before(c.retryAt) {
		c.retryPending = false
		if c.haveSnap && c.snap.Phase == game.PhaseDealerTurn {
			c.log.Info().Str("game_id", c.gameID).Str("kind", string(c.retryKind)).Msg("retrying dealer action")
			c.dispatch(c.retryKind, now)
		} else {
			// The game moved on while we were backing off; nothing to do.
			c.log.Debug().Str("game_id", c.gameID).Msg("abandoning retry, phase changed")
		}
	}

	c.evaluate(now)

	if c.active() && now.Sub(c.lastProgress) > c.cfg.StuckAfter && !c.stuck {
		c.stuck = true
		c.log.Warn().
			Str("game_id", c.gameID).
			Str("state", string(c.state)).
			Dur("since_progress", now.Sub(c.lastProgress)).
			Msg("dealer automation stuck, manual retry available")
	}
}

// ManualKick is the operator's one-shot re-evaluation. It runs the exact
// decision rules a tick runs; it is not a privileged path.
func (c *Controller) ManualKick() {
	c.mu.Lock()
	c.stuck = false
	c.awaitingCard = false
	c.retryPending = false
	c.lastProgress = c.now()
	c.mu.Unlock()
	c.Tick()
}

// HandleResult reports the outcome of a dispatched dealer action.
func (c *Controller) HandleResult(kind chain.DealerActionKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	if c.state == StateIdle || c.state == StateDone {
		// Late receipt after the episode ended: bookkeeping only.
		c.log.Debug().Str("game_id", c.gameID).Str("kind", string(kind)).Err(err).Msg("late dealer action result")
		return
	}

	if err == nil {
		c.inFlight = false
		c.progress(now)
		if kind == chain.DealerRevealAndAdvance {
			c.advanceReady = true
		}
		if kind == chain.DealerDrawCard {
			// The receipt confirms the draw, but the drawn card may not be
			// readable yet; hold the next decision until it shows up.
			c.awaitingCard = true
		}
		c.evaluate(now)
		return
	}

	switch chain.Classify(err) {
	case chain.KindTransient:
		c.inFlight = false
		if c.retriesLeft > 0 && !c.retryPending {
			c.retriesLeft--
			c.retryPending = true
			c.retryAt = now.Add(c.cfg.RetryBackoff)
			c.retryKind = kind
			c.log.Info().Str("game_id", c.gameID).Str("kind", string(kind)).Err(err).Msg("dealer action failed, retry scheduled")
		} else {
			c.log.Warn().Str("game_id", c.gameID).Str("kind", string(kind)).Err(err).Msg("dealer action retries exhausted")
		}
	case chain.KindStaleState:
		// Another writer advanced the game first. Expected; absorb it and
		// hold until the snapshot reflects whatever they did.
		c.inFlight = false
		c.awaitingCard = true
		c.progress(now)
		c.log.Debug().Str("game_id", c.gameID).Str("kind", string(kind)).Msg("dealer action superseded")
	default:
		// A named revert will not clear on its own; hold until something
		// observable changes or the operator kicks. The revert also proves
		// the call never executed, so its once-only budget is returned.
		c.inFlight = false
		c.awaitingCard = true
		switch kind {
		case chain.DealerRevealAndAdvance:
			c.calledReveal = false
		case chain.DealerFinalAdvance:
			c.calledFinal = false
		}
		c.log.Error().Str("game_id", c.gameID).Str("kind", string(kind)).Err(err).Msg("dealer action failed")
	}
}

func (c *Controller) active() bool {
	return c.state == StateSettling || c.state == StateRevealPending ||
		c.state == StateHitPending || c.state == StateAdvancePending
}

func (c *Controller) progress(now time.Time) {
	c.lastProgress = now
	c.stuck = false
}

func (c *Controller) resetMemory(now time.Time) {
	c.calledReveal = false
	c.calledFinal = false
	c.inFlight = false
	c.awaitingCard = false
	c.advanceReady = false
	c.lastCardCount = 0
	c.retriesLeft = c.cfg.MaxRetries
	c.retryPending = false
	c.stuck = false
	c.lastProgress = now
}

// evaluate applies the decision rules in order; the first match wins and at
// most one submission leaves per call. Caller holds the lock.
func (c *Controller) evaluate(now time.Time) {
	if !c.haveSnap {
		return
	}
	s := c.snap

	if s.Phase == game.PhaseFinished {
		if c.state != StateDone {
			c.resetMemory(now)
			c.state = StateDone
			c.log.Debug().Str("game_id", c.gameID).Msg("game finished, automation done")
		}
		return
	}
	if s.Phase != game.PhaseDealerTurn {
		if c.state != StateIdle {
			c.resetMemory(now)
			c.state = StateIdle
		}
		return
	}

	// Entering the dealer turn: clear memory and let the read path settle
	// before acting.
	if c.state == StateIdle || c.state == StateDone {
		c.resetMemory(now)
		c.lastCardCount = len(s.Dealer.Cards)
		c.settleUntil = now.Add(c.cfg.SettlingDelay)
		c.state = StateSettling
		c.log.Debug().Str("game_id", c.gameID).Int("dealer_cards", c.lastCardCount).Msg("dealer turn entered, settling")
		return
	}

	// Progress can also arrive as an observed card; that substitutes for a
	// lost receipt.
	if n := len(s.Dealer.Cards); n > c.lastCardCount {
		c.lastCardCount = n
		c.inFlight = false
		c.awaitingCard = false
		c.advanceReady = true
		c.retryPending = false
		c.progress(now)
	}

	if c.inFlight || c.retryPending || c.awaitingCard {
		return
	}
	if now.Before(c.settleUntil) {
		return
	}

	if !c.calledReveal {
		if len(s.Dealer.Cards) >= 2 {
			c.calledReveal = true
			c.state = StateRevealPending
			c.dispatch(chain.DealerRevealAndAdvance, now)
		}
		return
	}
	if !c.advanceReady {
		return
	}

	score := game.Score(s.Dealer.Cards)
	if score < 17 {
		c.state = StateHitPending
		c.dispatch(chain.DealerDrawCard, now)
		return
	}
	if !c.calledFinal {
		c.calledFinal = true
		c.state = StateAdvancePending
		c.dispatch(chain.DealerFinalAdvance, now)
	}
}

// dispatch marks the action in flight and hands it to the submitter. Caller
// holds the lock; the submit func must not call back synchronously into the
// controller.
func (c *Controller) dispatch(kind chain.DealerActionKind, now time.Time) {
	c.inFlight = true
	c.log.Info().Str("game_id", c.gameID).Str("kind", string(kind)).Msg("submitting dealer action")
	c.submit(kind)
}
