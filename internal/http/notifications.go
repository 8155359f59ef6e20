package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	httpmiddleware "github.com/formsigner/api/internal/http/middleware"
)

// SubAccountNotificationStream pushes admin-message events to the sub-account
// session as server-sent events. The stream scopes to the owning account's
// channel; the client's poll loop covers any gap after a drop.
func (h *Handler) SubAccountNotificationStream(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "notifications unavailable", nil)
		return
	}

	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.broker.Subscribe(r.Context(), sub.MainAccountID)

	// Heartbeats keep intermediaries from reaping the idle connection.
	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
