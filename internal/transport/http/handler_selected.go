package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"chainjack/internal/table"
)

type selectRequest struct {
	GameID string `json:"game_id"`
}

func SelectedGetHandler(reg *table.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"game_id": reg.Selector().Current()})
	}
}

// SelectedPutHandler changes which game is displayed. An empty game_id
// deselects: the running instance stops and nothing replaces it.
func SelectedPutHandler(reg *table.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.GameID == "" {
			reg.Deselect()
			writeJSON(w, map[string]any{"game_id": ""})
			return
		}
		metricGameSelectTotal.Add(1)
		// The instance outlives this request; its polling must not stop
		// when the response is written.
		inst := reg.Select(context.WithoutCancel(r.Context()), req.GameID)
		writeJSON(w, map[string]any{"game_id": inst.GameID()})
	}
}
