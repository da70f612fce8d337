// File: internal/infra/web/livecount.go
package web

import (
	"net/http"

	"ai-chat-backend/internal/infra/logging"

	"github.com/gorilla/websocket"
)

// liveTokenCount upgrades GET /token-count to a websocket. Each text frame is
// a draft message body; the reply carries its token count so the client can
// show context usage while the user types. Counts for repeated content come
// from the shared cache.
func (s *Server) liveTokenCount(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 512,
	}
	if s.allowedOrigin != "" {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin header at all.
			return origin == "" || origin == s.allowedOrigin
		}
	}
	// With no allowed_origin configured the upgrader's default same-origin
	// check applies: the Origin host must match the request host.

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.With(r.Context(), s.log).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	l := logging.With(r.Context(), s.log)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Debug().Err(err).Msg("token count socket closed")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		content := string(data)
		count, cached := 0, false
		if s.tokens != nil {
			count, cached = s.tokens.Get(r.Context(), content)
		}
		if !cached {
			count = s.counter.Count(content)
			if s.tokens != nil {
				s.tokens.Put(r.Context(), content, count)
			}
		}

		if err := conn.WriteJSON(map[string]int{"tokens": count}); err != nil {
			return
		}
	}
}
