package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chainjack/internal/game"
)

// RPCClient talks to a chain gateway over HTTP. The gateway fronts the
// contract's view functions and mempool; it reports contract reverts as
// structured error codes so the client can classify them.
type RPCClient struct {
	base            string
	inner           *http.Client
	receiptInterval time.Duration
}

func NewRPCClient(base string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		base:            strings.TrimRight(base, "/"),
		inner:           &http.Client{Timeout: timeout},
		receiptInterval: time.Second,
	}
}

// WithReceiptInterval sets how often AwaitReceipt polls the gateway.
func (c *RPCClient) WithReceiptInterval(d time.Duration) *RPCClient {
	if d > 0 {
		c.receiptInterval = d
	}
	return c
}

var phaseNames = map[string]game.Phase{
	"not_started":     game.PhaseNotStarted,
	"dealing":         game.PhaseDealing,
	"insurance_offer": game.PhaseInsuranceOffer,
	"player_turn":     game.PhasePlayerTurn,
	"dealer_turn":     game.PhaseDealerTurn,
	"finished":        game.PhaseFinished,
}

func (c *RPCClient) GetPhase(ctx context.Context, gameID string) (game.Phase, error) {
	var out struct {
		Phase string `json:"phase"`
	}
	if err := c.getJSON(ctx, "/v1/games/"+url.PathEscape(gameID)+"/phase", &out); err != nil {
		return game.PhaseNotStarted, err
	}
	p, ok := phaseNames[out.Phase]
	if !ok {
		return game.PhaseNotStarted, fmt.Errorf("unknown phase %q", out.Phase)
	}
	return p, nil
}

func (c *RPCClient) GetDealerCards(ctx context.Context, gameID string) ([]game.Card, error) {
	var out struct {
		Cards []game.Card `json:"cards"`
	}
	err := c.getJSON(ctx, "/v1/games/"+url.PathEscape(gameID)+"/dealer/cards", &out)
	return out.Cards, err
}

func (c *RPCClient) GetHandCount(ctx context.Context, gameID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.getJSON(ctx, "/v1/games/"+url.PathEscape(gameID)+"/hands", &out)
	return out.Count, err
}

func (c *RPCClient) GetHandCards(ctx context.Context, gameID string, index int) ([]game.Card, error) {
	var out struct {
		Cards []game.Card `json:"cards"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("/v1/games/%s/hands/%d/cards", url.PathEscape(gameID), index), &out)
	return out.Cards, err
}

func (c *RPCClient) GetHandStake(ctx context.Context, gameID string, index int) (uint64, error) {
	var out struct {
		Stake uint64 `json:"stake"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("/v1/games/%s/hands/%d/stake", url.PathEscape(gameID), index), &out)
	return out.Stake, err
}

func (c *RPCClient) GetInsuranceStake(ctx context.Context, gameID string) (uint64, error) {
	var out struct {
		Stake uint64 `json:"stake"`
	}
	err := c.getJSON(ctx, "/v1/games/"+url.PathEscape(gameID)+"/insurance", &out)
	return out.Stake, err
}

func (c *RPCClient) GetFinalPayout(ctx context.Context, gameID string) (uint64, bool, error) {
	var out struct {
		Payout  uint64 `json:"payout"`
		Settled bool   `json:"settled"`
	}
	err := c.getJSON(ctx, "/v1/games/"+url.PathEscape(gameID)+"/payout", &out)
	return out.Payout, out.Settled, err
}

func (c *RPCClient) GetAuthorizationAmount(ctx context.Context, owner, spender string) (uint64, error) {
	var out struct {
		Amount uint64 `json:"amount"`
	}
	path := "/v1/allowance?owner=" + url.QueryEscape(owner) + "&spender=" + url.QueryEscape(spender)
	err := c.getJSON(ctx, path, &out)
	return out.Amount, err
}

type txEnvelope struct {
	Method    string `json:"method"`
	GameID    string `json:"game_id,omitempty"`
	HandIndex int    `json:"hand_index,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Spender   string `json:"spender,omitempty"`

	GasLimit    uint64 `json:"gas_limit,omitempty"`
	MaxFee      uint64 `json:"max_fee,omitempty"`
	PriorityFee uint64 `json:"priority_fee,omitempty"`
}

func envelope(tx Tx) txEnvelope {
	switch t := tx.(type) {
	case PlayerAction:
		return txEnvelope{Method: t.Method(), GameID: t.GameID, HandIndex: t.HandIndex, Amount: t.Amount}
	case DealerAction:
		return txEnvelope{Method: t.Method(), GameID: t.GameID}
	case AuthorizationGrant:
		return txEnvelope{Method: t.Method(), Spender: t.Spender, Amount: t.Amount}
	default:
		return txEnvelope{Method: tx.Method()}
	}
}

func (c *RPCClient) Simulate(ctx context.Context, tx Tx) (SimResult, error) {
	var out struct {
		GasEstimate uint64 `json:"gas_estimate"`
	}
	err := c.postJSON(ctx, "/v1/simulate", envelope(tx), &out)
	return SimResult{GasEstimate: out.GasEstimate}, err
}

func (c *RPCClient) SuggestFees(ctx context.Context) (FeeQuote, error) {
	var out struct {
		MaxFee      uint64 `json:"max_fee"`
		PriorityFee uint64 `json:"priority_fee"`
	}
	err := c.getJSON(ctx, "/v1/fees", &out)
	return FeeQuote{MaxFee: out.MaxFee, PriorityFee: out.PriorityFee}, err
}

func (c *RPCClient) Send(ctx context.Context, tx Tx, gasLimit uint64, fees FeeQuote) (TxHash, error) {
	env := envelope(tx)
	env.GasLimit = gasLimit
	env.MaxFee = fees.MaxFee
	env.PriorityFee = fees.PriorityFee
	var out struct {
		Hash string `json:"hash"`
	}
	if err := c.postJSON(ctx, "/v1/tx", env, &out); err != nil {
		return "", err
	}
	return TxHash(out.Hash), nil
}

// AwaitReceipt polls the gateway until the transaction confirms or ctx
// expires. A 404 means still pending.
func (c *RPCClient) AwaitReceipt(ctx context.Context, hash TxHash) (Receipt, error) {
	ticker := time.NewTicker(c.receiptInterval)
	defer ticker.Stop()
	for {
		var out struct {
			GasUsed     uint64 `json:"gas_used"`
			ConfirmedAt int64  `json:"confirmed_at"`
		}
		err := c.getJSON(ctx, "/v1/tx/"+url.PathEscape(string(hash))+"/receipt", &out)
		if err == nil {
			return Receipt{
				Hash:        hash,
				GasUsed:     out.GasUsed,
				ConfirmedAt: time.Unix(out.ConfirmedAt, 0),
			}, nil
		}
		if !isPending(err) {
			return Receipt{}, err
		}
		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: awaiting receipt: %v", ErrTransient, ctx.Err())
		case <-ticker.C:
		}
	}
}

type httpStatusError struct {
	status int
	code   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gateway status %d (%s)", e.status, e.code)
}

func isPending(err error) bool {
	se, ok := err.(*httpStatusError)
	return ok && se.status == http.StatusNotFound
}

func (c *RPCClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RPCClient) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RPCClient) do(req *http.Request, out any) error {
	resp, err := c.inner.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, out)
	}
	return classifyStatus(resp.StatusCode, raw)
}

func classifyStatus(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrTransient, status)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrStaleState, body.Error)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrPrerequisite, body.Error)
	case http.StatusUnprocessableEntity:
		code := body.Error
		if code == "" {
			code = "unspecified_revert"
		}
		return &ContractError{Code: code}
	default:
		return &httpStatusError{status: status, code: body.Error}
	}
}
