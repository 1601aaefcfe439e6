// Package approve sequences the spending authorizations that gate
// stake-moving actions: the table contract and the settlement vault each
// hold an independent allowance over the player's tokens.
package approve

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
)

type Config struct {
	// Attempts bounds allowance re-reads after a confirmed grant; the read
	// path can lag the grant's confirmation.
	Attempts int
	Backoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// Submitter is the slice of the submit package the flow needs.
type Submitter interface {
	Submit(ctx context.Context, tx chain.Tx) (chain.Receipt, error)
}

type Flow struct {
	reader chain.Reader
	sub    Submitter
	owner  string
	table  string
	vault  string
	cfg    Config
	log    zerolog.Logger
}

func NewFlow(reader chain.Reader, sub Submitter, owner, tableSpender, vaultSpender string, cfg Config, log zerolog.Logger) *Flow {
	return &Flow{
		reader: reader,
		sub:    sub,
		owner:  owner,
		table:  tableSpender,
		vault:  vaultSpender,
		cfg:    cfg.withDefaults(),
		log:    log,
	}
}

// Ensure makes both allowances sufficient before the caller submits the
// action that needs them. The two are checked in sequence: confirming the
// first grant can consume time during which the second allowance may have
// changed, so it is re-read afterwards rather than assumed.
func (f *Flow) Ensure(ctx context.Context, needTable, needVault uint64) error {
	if err := f.ensureOne(ctx, f.table, needTable); err != nil {
		return err
	}
	return f.ensureOne(ctx, f.vault, needVault)
}

func (f *Flow) ensureOne(ctx context.Context, spender string, need uint64) error {
	if need == 0 {
		return nil
	}
	have, err := f.reader.GetAuthorizationAmount(ctx, f.owner, spender)
	if err != nil {
		return err
	}
	if have >= need {
		return nil
	}

	f.log.Info().
		Str("spender", spender).
		Uint64("have", have).
		Uint64("need", need).
		Msg("allowance short, submitting grant")
	if _, err := f.sub.Submit(ctx, chain.AuthorizationGrant{Spender: spender, Amount: need}); err != nil {
		return err
	}

	// The grant confirmed, but the allowance read may still serve the old
	// value for a while.
	for attempt := 0; attempt < f.cfg.Attempts; attempt++ {
		have, err = f.reader.GetAuthorizationAmount(ctx, f.owner, spender)
		if err == nil && have >= need {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.Backoff):
		}
	}
	return fmt.Errorf("%w: allowance for %s still %d after grant", chain.ErrPrerequisite, spender, have)
}
