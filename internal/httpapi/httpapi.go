// Package httpapi exposes a Generator over HTTP.
//
//	POST /ids[?count=N]  issue one ID, or N (1..4096) in one batch
//	GET  /ids/{id}       decode an ID
//	GET  /ids/watch      WebSocket feed of every issued ID
//	GET  /healthz        liveness
//
// IDs are rendered as base-10 strings.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"sohio.net/flake/internal/broadcast"
	"sohio.net/flake/internal/snowflake"
	"sohio.net/flake/internal/static"
)

// MaxBatch bounds count on POST /ids: one full millisecond of sequence space.
const MaxBatch = snowflake.MaxSequence + 1

// Recorder persists issued IDs before they are returned. When a Recorder is
// configured it owns publishing to the watch feed as well.
type Recorder interface {
	Record(ctx context.Context, ids ...snowflake.ID) error
}

var u websocket.Upgrader

type idHandler struct {
	*http.ServeMux
	gen  *snowflake.Generator
	feed *broadcast.Set[snowflake.ID]
	rec  Recorder
	log  *slog.Logger
}

// Decoded is the JSON form of a decoded ID, also sent on the watch feed.
type Decoded struct {
	ID snowflake.ID `json:"id"`
	snowflake.Meta
}

// NewHandler builds the API. rec may be nil, in which case issued IDs go
// straight to feed.
func NewHandler(gen *snowflake.Generator, feed *broadcast.Set[snowflake.ID], rec Recorder, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &idHandler{http.NewServeMux(), gen, feed, rec, logger}

	h.ServeMux.HandleFunc("POST /ids", h.serveIssue)
	h.ServeMux.HandleFunc("GET /ids/watch", h.serveWatch)
	h.ServeMux.HandleFunc("GET /ids/{id}", h.serveDecode)
	h.ServeMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h.ServeMux.Handle("/", static.NewHandler())

	return h
}

func (h *idHandler) serveIssue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	batch := r.URL.Query().Has("count")
	count := 1
	if batch {
		n, err := strconv.Atoi(r.URL.Query().Get("count"))
		if err != nil || n < 1 || n > MaxBatch {
			writeError(w, http.StatusBadRequest, fmt.Errorf("count must be an integer in [1, %d]", MaxBatch))
			return
		}
		count = n
	}

	ids, err := h.gen.NextIDs(count)
	if err != nil {
		h.log.Warn("issue failed", "err", err, "count", count, "issued", len(ids))
		writeError(w, statusFor(err), err)
		return
	}

	if h.rec != nil {
		if err := h.rec.Record(r.Context(), ids...); err != nil {
			h.log.Error("record failed", "err", err, "count", len(ids))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	} else if h.feed != nil {
		for _, id := range ids {
			h.feed.Send(id)
		}
	}

	h.log.Debug("issued", "count", len(ids), "first", ids[0])

	if batch {
		writeJSON(w, http.StatusOK, struct {
			IDs []snowflake.ID `json:"ids"`
		}{ids})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID snowflake.ID `json:"id"`
	}{ids[0]})
}

func (h *idHandler) serveDecode(w http.ResponseWriter, r *http.Request) {
	id, err := snowflake.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, Decoded{id, snowflake.Decode(id)})
}

func (h *idHandler) serveWatch(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeError(w, http.StatusNotFound, errors.New("watch feed disabled"))
		return
	}

	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ch := h.feed.MakeChan()
	h.log.Debug("watcher connected", "remote", r.RemoteAddr)

	// Drain and discard client frames; a read error means the client left.
	go func() {
		defer ch.Close()

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer conn.Close()

		for id := range ch.Receiver() {
			if err := conn.WriteJSON(Decoded{id, snowflake.Decode(id)}); err != nil {
				return
			}
		}
		h.log.Debug("watcher gone", "remote", r.RemoteAddr, "dropped", ch.Dropped())
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	}()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, snowflake.ErrClockMovedBackwards), errors.Is(err, snowflake.ErrTimestampOverflow):
		return http.StatusServiceUnavailable
	case errors.Is(err, snowflake.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}
