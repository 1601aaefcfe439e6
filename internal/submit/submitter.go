// Package submit wraps the chain's write path: simulate, price, send,
// await confirmation, classify. It performs each submission exactly once;
// retry policy belongs to the caller.
package submit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
)

type Config struct {
	// ConfirmTimeout bounds the receipt wait; past it the submission is
	// reported transient and the chain may still apply it.
	ConfirmTimeout time.Duration
	// FeeHeadroomPct inflates the simulated gas cost into the send ceiling;
	// simulation underestimates execution with side effects.
	FeeHeadroomPct int
	// FallbackFees is used when the fee oracle is unreachable.
	FallbackFees chain.FeeQuote
}

func (c Config) withDefaults() Config {
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 90 * time.Second
	}
	if c.FeeHeadroomPct <= 0 {
		c.FeeHeadroomPct = 30
	}
	if c.FallbackFees == (chain.FeeQuote{}) {
		c.FallbackFees = chain.FeeQuote{MaxFee: 500, PriorityFee: 5}
	}
	return c
}

// Journal records completed submissions somewhere diagnostic. Implementations
// must be safe to call concurrently; failures are the journal's problem.
type Journal interface {
	Record(ctx context.Context, e Entry)
}

type Entry struct {
	RequestID string
	Method    string
	GameID    string
	TxHash    string
	GasUsed   uint64
	Err       string
	Took      time.Duration
}

type Submitter struct {
	writer  chain.Writer
	cfg     Config
	log     zerolog.Logger
	journal Journal
	// onConfirmed runs after a confirmed write, wired to the poller's
	// Refresh so the write's effects show up promptly.
	onConfirmed func()
}

func New(writer chain.Writer, cfg Config, log zerolog.Logger) *Submitter {
	return &Submitter{writer: writer, cfg: cfg.withDefaults(), log: log}
}

func (s *Submitter) WithJournal(j Journal) *Submitter {
	s.journal = j
	return s
}

func (s *Submitter) WithConfirmedHook(fn func()) *Submitter {
	s.onConfirmed = fn
	return s
}

// Submit performs one write end to end. It never retries: a failed call is
// reported once and the caller decides what happens next.
func (s *Submitter) Submit(ctx context.Context, tx chain.Tx) (chain.Receipt, error) {
	reqID := NewRequestID()
	start := time.Now()
	log := s.log.With().Str("request_id", reqID).Str("method", tx.Method()).Logger()

	rcpt, err := s.submit(ctx, log, tx)
	s.record(ctx, tx, reqID, rcpt, err, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("kind", string(chain.Classify(err))).Msg("submission failed")
		return chain.Receipt{}, err
	}
	log.Info().Str("tx", string(rcpt.Hash)).Uint64("gas_used", rcpt.GasUsed).Msg("submission confirmed")
	if s.onConfirmed != nil {
		s.onConfirmed()
	}
	return rcpt, nil
}

func (s *Submitter) submit(ctx context.Context, log zerolog.Logger, tx chain.Tx) (chain.Receipt, error) {
	// Dry run first: a revert surfaces here for the price of a read.
	sim, err := s.writer.Simulate(ctx, tx)
	if err != nil {
		return chain.Receipt{}, err
	}

	fees, err := s.writer.SuggestFees(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("fee oracle unreachable, using fallback quote")
		fees = s.cfg.FallbackFees
	}

	gasLimit := sim.GasEstimate * uint64(100+s.cfg.FeeHeadroomPct) / 100

	hash, err := s.writer.Send(ctx, tx, gasLimit, fees)
	if err != nil {
		return chain.Receipt{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()
	return s.writer.AwaitReceipt(cctx, hash)
}

func (s *Submitter) record(ctx context.Context, tx chain.Tx, reqID string, rcpt chain.Receipt, err error, took time.Duration) {
	if s.journal == nil {
		return
	}
	e := Entry{
		RequestID: reqID,
		Method:    tx.Method(),
		TxHash:    string(rcpt.Hash),
		GasUsed:   rcpt.GasUsed,
		Took:      took,
	}
	switch t := tx.(type) {
	case chain.PlayerAction:
		e.GameID = t.GameID
	case chain.DealerAction:
		e.GameID = t.GameID
	}
	if err != nil {
		e.Err = err.Error()
	}
	s.journal.Record(context.WithoutCancel(ctx), e)
}
