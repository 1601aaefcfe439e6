package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chainjack/internal/approve"
	"chainjack/internal/autopilot"
	"chainjack/internal/chain/chaintest"
	"chainjack/internal/config"
	"chainjack/internal/game"
	"chainjack/internal/submit"
	"chainjack/internal/table"
)

func newTestServer(t *testing.T) (*httptest.Server, *table.Registry, *chaintest.Fake) {
	t.Helper()
	fake := chaintest.NewFake()
	fake.SetPhase(game.PhasePlayerTurn)
	fake.SetHands(chaintest.FakeHand{Cards: []game.Card{game.Card(10), game.Card(23)}, Stake: 100})
	opts := table.Options{
		PollInterval: 10 * time.Millisecond,
		TickInterval: 10 * time.Millisecond,
		Automation: autopilot.Config{
			SettlingDelay: 20 * time.Millisecond,
			RetryBackoff:  50 * time.Millisecond,
			StuckAfter:    time.Second,
		},
		Submit:       submit.Config{ConfirmTimeout: time.Second},
		Approval:     approve.Config{Attempts: 3, Backoff: 5 * time.Millisecond},
		Owner:        "0xowner",
		TableSpender: "0xtable",
		VaultSpender: "0xvault",
	}
	reg := table.NewRegistry(fake, nil, opts, zerolog.Nop())
	t.Cleanup(reg.Shutdown)
	srv := httptest.NewServer(NewRouter(reg, config.ServerConfig{MCPEnabled: false}))
	t.Cleanup(srv.Close)
	return srv, reg, fake
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestSelectedRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/selected")
	if err != nil {
		t.Fatalf("get selected: %v", err)
	}
	if got := decodeBody(t, resp); got["game_id"] != "" {
		t.Fatalf("initial selection = %v, want empty", got["game_id"])
	}

	resp = putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": "g1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put selected status = %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp); got["game_id"] != "g1" {
		t.Fatalf("selection = %v, want g1", got["game_id"])
	}

	resp, err = http.Get(srv.URL + "/api/selected")
	if err != nil {
		t.Fatalf("get selected: %v", err)
	}
	if got := decodeBody(t, resp); got["game_id"] != "g1" {
		t.Fatalf("selection = %v, want g1", got["game_id"])
	}

	// Empty id deselects.
	resp = putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": ""})
	if got := decodeBody(t, resp); got["game_id"] != "" {
		t.Fatalf("selection after deselect = %v, want empty", got["game_id"])
	}
}

func TestSnapshotAndStatusForSelectedGame(t *testing.T) {
	srv, _, _ := newTestServer(t)
	putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": "g1"}).Body.Close()

	deadline := time.After(2 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/games/g1/snapshot")
		if err != nil {
			t.Fatalf("get snapshot: %v", err)
		}
		body := decodeBody(t, resp)
		if body["phase_name"] == "player_turn" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("snapshot never reached player_turn: %v", body)
		case <-time.After(10 * time.Millisecond):
		}
	}

	resp, err := http.Get(srv.URL + "/api/games/g1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	body := decodeBody(t, resp)
	if body["game_id"] != "g1" {
		t.Fatalf("status game_id = %v", body["game_id"])
	}
	if body["status"] != "idle" {
		t.Fatalf("status = %v, want idle", body["status"])
	}
}

func TestUnselectedGameIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/games/nope/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestActionValidationAndMapping(t *testing.T) {
	srv, _, fake := newTestServer(t)
	putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": "g1"}).Body.Close()

	raw, _ := json.Marshal(map[string]any{"kind": "fold"})
	resp, err := http.Post(srv.URL+"/api/games/g1/actions", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post action: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind status = %d, want 400", resp.StatusCode)
	}

	raw, _ = json.Marshal(map[string]any{"kind": "hit", "hand_index": 0})
	resp, err = http.Post(srv.URL+"/api/games/g1/actions", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post action: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("hit status = %d body = %v", resp.StatusCode, body)
	}

	sent := fake.Sent()
	if len(sent) == 0 {
		t.Fatal("no transaction reached the chain client")
	}
}

func TestRetryEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": "g1"}).Body.Close()

	resp, err := http.Post(srv.URL+"/api/games/g1/retry", "application/json", nil)
	if err != nil {
		t.Fatalf("post retry: %v", err)
	}
	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("retry body = %v", body)
	}
}

func TestEventsStreamReplaysSnapshots(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	putJSON(t, srv.URL+"/api/selected", map[string]any{"game_id": "g1"}).Body.Close()

	inst, _ := reg.Get("g1")
	deadline := time.After(2 * time.Second)
	for inst.Snapshot().Seq == 0 {
		select {
		case <-deadline:
			t.Fatal("poller never produced a snapshot")
		case <-time.After(10 * time.Millisecond):
		}
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/games/g1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	chunk := string(buf[:n])
	if !bytes.Contains([]byte(chunk), []byte("event: snapshot")) {
		t.Fatalf("expected snapshot replay, got %q", chunk)
	}
}
