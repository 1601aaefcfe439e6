package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"chainjack/internal/table"
	"chainjack/internal/view"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams snapshot changes for one game. Event ids carry the
// snapshot sequence number, so a reconnect with Last-Event-ID replays only
// what the client missed.
func EventsSSEHandler(reg *table.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := NewGameHandlers(reg)
		inst, ok := h.instance(w, r)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		setSSEHeaders(w)
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("game_id", inst.GameID()).
			Msg("sse stream opened")

		var lastSeq uint64
		if v := r.Header.Get("Last-Event-ID"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				lastSeq = n
			}
		}
		feed := inst.Feed()
		for _, snap := range feed.ReplayAfter(lastSeq) {
			if err := writeSnapshotEvent(w, snap); err != nil {
				return
			}
			lastSeq = snap.Seq
		}
		flusher.Flush()

		ch := feed.Subscribe()
		defer feed.Unsubscribe(ch)
		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("game_id", inst.GameID()).
					Msg("sse stream closed")
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				if snap.Seq <= lastSeq {
					continue
				}
				if err := writeSnapshotEvent(w, snap); err != nil {
					return
				}
				lastSeq = snap.Seq
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprintf(w, "event: ping\ndata: {\"ts\":%d}\n\n", time.Now().UnixMilli()); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap view.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", snap.Seq); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}
