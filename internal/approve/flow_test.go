package approve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
	"chainjack/internal/chain/chaintest"
	"chainjack/internal/submit"
)

func newFlow(fake chain.Client, attempts int) *Flow {
	sub := submit.New(fake, submit.Config{}, zerolog.Nop())
	return NewFlow(fake, sub, "0xowner", "0xtable", "0xvault",
		Config{Attempts: attempts, Backoff: time.Millisecond}, zerolog.Nop())
}

func TestEnsureNoGrantsWhenSufficient(t *testing.T) {
	fake := chaintest.NewFake()
	fake.SetAllowance("0xtable", 1000)
	fake.SetAllowance("0xvault", 1000)

	if err := newFlow(fake, 3).Ensure(context.Background(), 100, 100); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if n := len(fake.Sent()); n != 0 {
		t.Fatalf("%d grants sent with sufficient allowances", n)
	}
}

func TestEnsureGrantsBothShortAllowances(t *testing.T) {
	fake := chaintest.NewFake()

	if err := newFlow(fake, 3).Ensure(context.Background(), 100, 250); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	sent := fake.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d grants, want 2", len(sent))
	}
	g0 := sent[0].(chain.AuthorizationGrant)
	g1 := sent[1].(chain.AuthorizationGrant)
	if g0.Spender != "0xtable" || g0.Amount != 100 {
		t.Fatalf("first grant = %+v", g0)
	}
	if g1.Spender != "0xvault" || g1.Amount != 250 {
		t.Fatalf("second grant = %+v", g1)
	}
}

// laggingReader serves the pre-grant allowance for a few reads after the
// grant confirmed, like a read replica that has not caught up.
type laggingReader struct {
	*chaintest.Fake
	lagReads int
}

func (r *laggingReader) GetAuthorizationAmount(ctx context.Context, owner, spender string) (uint64, error) {
	if r.lagReads > 0 {
		r.lagReads--
		return 0, nil
	}
	return r.Fake.GetAuthorizationAmount(ctx, owner, spender)
}

func TestEnsureToleratesLaggingAllowanceRead(t *testing.T) {
	fake := &laggingReader{Fake: chaintest.NewFake(), lagReads: 3}
	sub := submit.New(fake.Fake, submit.Config{}, zerolog.Nop())
	flow := NewFlow(fake, sub, "0xowner", "0xtable", "0xvault",
		Config{Attempts: 5, Backoff: time.Millisecond}, zerolog.Nop())

	if err := flow.Ensure(context.Background(), 100, 0); err != nil {
		t.Fatalf("Ensure should outlast the read lag: %v", err)
	}
}

func TestEnsureBoundedAttemptsSurfacePrerequisite(t *testing.T) {
	fake := &laggingReader{Fake: chaintest.NewFake(), lagReads: 100}
	sub := submit.New(fake.Fake, submit.Config{}, zerolog.Nop())
	flow := NewFlow(fake, sub, "0xowner", "0xtable", "0xvault",
		Config{Attempts: 3, Backoff: time.Millisecond}, zerolog.Nop())

	err := flow.Ensure(context.Background(), 100, 0)
	if !errors.Is(err, chain.ErrPrerequisite) {
		t.Fatalf("want prerequisite error after bounded attempts, got %v", err)
	}
}

func TestEnsureSkipsZeroRequirements(t *testing.T) {
	fake := chaintest.NewFake()
	if err := newFlow(fake, 3).Ensure(context.Background(), 0, 0); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if n := len(fake.Sent()); n != 0 {
		t.Fatalf("grants sent for zero requirements")
	}
}
