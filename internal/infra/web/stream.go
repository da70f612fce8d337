// File: internal/infra/web/stream.go
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/infra/logging"

	"github.com/go-chi/chi/v5"
)

type sendMessageRequest struct {
	Content string                 `json:"content"`
	Files   []model.FileAttachment `json:"files,omitempty"`
}

// sendMessage handles POST /conversations/{id}/messages. Clients that accept
// text/event-stream (or pass ?stream=true) get assistant deltas as SSE; the
// rest get the finished message as JSON.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")
	userID := userIDFrom(r)

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument))
		return
	}

	ctx := logging.WithConversationID(r.Context(), convID)

	if !wantsStream(r) {
		msg, err := s.chatUC.SendMessage(ctx, userID, convID, req.Content, req.Files)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("%w: streaming unsupported by this connection", domain.ErrInvalidArgument))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msg, err := s.chatUC.StreamMessage(ctx, userID, convID, req.Content, req.Files, func(delta string) error {
		writeSSE(w, "delta", map[string]string{"text": delta})
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; the error has to travel in-band.
		writeSSE(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", msg)
	flusher.Flush()
}

func wantsStream(r *http.Request) bool {
	if r.URL.Query().Get("stream") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// writeSSE emits one Server-Sent Event. The payload is a single JSON line, so
// no data-field splitting is needed.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
