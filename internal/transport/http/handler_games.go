package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chainjack/internal/chain"
	"chainjack/internal/table"
)

type GameHandlers struct {
	reg *table.Registry
}

func NewGameHandlers(reg *table.Registry) *GameHandlers {
	return &GameHandlers{reg: reg}
}

func (h *GameHandlers) instance(w http.ResponseWriter, r *http.Request) (*table.Instance, bool) {
	gameID := chi.URLParam(r, "game_id")
	if gameID == "" {
		WriteHTTPError(w, http.StatusBadRequest, "game_not_found")
		return nil, false
	}
	inst, ok := h.reg.Get(gameID)
	if !ok {
		WriteHTTPError(w, http.StatusNotFound, "game_not_selected")
		return nil, false
	}
	return inst, true
}

func (h *GameHandlers) Snapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := h.instance(w, r)
		if !ok {
			return
		}
		writeJSON(w, inst.Snapshot())
	}
}

type statusResponse struct {
	GameID  string `json:"game_id"`
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
}

func (h *GameHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := h.instance(w, r)
		if !ok {
			return
		}
		snap := inst.Snapshot()
		resp := statusResponse{
			GameID: inst.GameID(),
			Status: string(inst.Status()),
			Phase:  snap.PhaseName,
		}
		if resp.Status == "stuck" {
			resp.Message = "dealer progression is stuck; retry to resubmit"
		}
		writeJSON(w, resp)
	}
}

func (h *GameHandlers) Outcome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := h.instance(w, r)
		if !ok {
			return
		}
		result, ok := inst.Outcome()
		if !ok {
			WriteHTTPError(w, http.StatusConflict, "game_not_settled")
			return
		}
		writeJSON(w, result)
	}
}

type actionRequest struct {
	Kind      string `json:"kind"`
	HandIndex int    `json:"hand_index"`
	Amount    uint64 `json:"amount,omitempty"`
}

func (h *GameHandlers) Action() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricActionSubmitTotal.Add(1)
		inst, ok := h.instance(w, r)
		if !ok {
			metricActionSubmitErrors.Add(1)
			return
		}
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricActionSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		kind := chain.PlayerActionKind(req.Kind)
		if !kind.Valid() {
			metricActionSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_action")
			return
		}
		if err := inst.PlayerAct(r.Context(), kind, req.HandIndex, req.Amount); err != nil {
			metricActionSubmitErrors.Add(1)
			writeActionError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func (h *GameHandlers) Retry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := h.instance(w, r)
		if !ok {
			return
		}
		metricRetryKickTotal.Add(1)
		inst.Retry()
		writeJSON(w, map[string]any{"ok": true, "status": string(inst.Status())})
	}
}

// writeActionError maps submission failures onto statuses the UI can act on,
// with the human-readable text coming from the error classifier.
func writeActionError(w http.ResponseWriter, err error) {
	var status int
	switch chain.Classify(err) {
	case chain.KindTransient:
		status = http.StatusServiceUnavailable
	case chain.KindStaleState:
		status = http.StatusConflict
	case chain.KindPrerequisite:
		status = http.StatusPaymentRequired
	case chain.KindContract:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   string(chain.Classify(err)),
		"message": chain.UserMessage(err),
	})
}
