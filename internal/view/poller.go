package view

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
	"chainjack/internal/game"
)

// Poller drives one game's reconciliation: it reads the full contract state
// on a ticker, feeds the reconciler, and publishes changed snapshots to the
// feed. Read failures skip the cycle; the next tick tries again.
type Poller struct {
	gameID   string
	reader   chain.Reader
	rec      *Reconciler
	feed     *Feed
	interval time.Duration
	log      zerolog.Logger

	refreshCh chan struct{}

	mu   sync.RWMutex
	last Snapshot
}

func NewPoller(gameID string, reader chain.Reader, rec *Reconciler, feed *Feed, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		gameID:    gameID,
		reader:    reader,
		rec:       rec,
		feed:      feed,
		interval:  interval,
		log:       log,
		refreshCh: make(chan struct{}, 1),
	}
}

// Refresh requests an immediate poll, coalescing with one already pending.
// Called after a confirmed write so its effects show up without waiting a
// full tick.
func (p *Poller) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Current returns the latest reconciled snapshot.
func (p *Poller) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run polls until ctx is cancelled. It performs one poll up front so the
// caller has a snapshot as soon as possible.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-p.refreshCh:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	rd, err := p.read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Str("game_id", p.gameID).Msg("poll failed, keeping last snapshot")
		}
		return
	}
	snap, changed := p.rec.Apply(rd, time.Now())
	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()
	if changed {
		p.log.Debug().
			Str("game_id", p.gameID).
			Uint64("seq", snap.Seq).
			Stringer("phase", snap.Phase).
			Int("dealer_cards", len(snap.Dealer.Cards)).
			Msg("snapshot updated")
		p.feed.Publish(snap)
	}
}

// read gathers one complete reading. Phase comes first so that every other
// field in the reading is at least as fresh as the phase that gates it.
func (p *Poller) read(ctx context.Context) (Reading, error) {
	var rd Reading
	phase, err := p.reader.GetPhase(ctx, p.gameID)
	if err != nil {
		return rd, err
	}
	rd.Phase = phase

	rd.DealerCards, err = p.reader.GetDealerCards(ctx, p.gameID)
	if err != nil {
		return rd, err
	}

	count, err := p.reader.GetHandCount(ctx, p.gameID)
	if err != nil {
		return rd, err
	}
	for i := 0; i < count; i++ {
		cards, err := p.reader.GetHandCards(ctx, p.gameID, i)
		if err != nil {
			return rd, err
		}
		stake, err := p.reader.GetHandStake(ctx, p.gameID, i)
		if err != nil {
			return rd, err
		}
		rd.Hands = append(rd.Hands, HandView{Cards: cards, Stake: stake})
	}

	rd.InsuranceStake, err = p.reader.GetInsuranceStake(ctx, p.gameID)
	if err != nil {
		return rd, err
	}

	if phase == game.PhaseFinished {
		rd.Payout, rd.PayoutPresent, err = p.reader.GetFinalPayout(ctx, p.gameID)
		if err != nil {
			return rd, err
		}
	}
	return rd, nil
}
