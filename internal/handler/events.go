package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// streamBuffer is the mailbox size of one SSE client.
const streamBuffer = 32

// handleNotificationStream pushes notification events as server-sent
// events until the client goes away or the channel closes.
func (h *Handler) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.mgr.Notifications().Subscribe(streamBuffer)
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Notification)
			if err != nil {
				h.logger.Error("encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				h.logger.Debug("stream client gone", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
