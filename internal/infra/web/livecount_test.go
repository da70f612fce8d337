//go:build !integration

package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestLiveTokenCount(t *testing.T) {
	s := newTestServer(serverOpts{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	mintRec := httptest.NewRecorder()
	token, err := s.auth.Mint(mintRec, "u1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/token-count"
	hdr := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("dial: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	// plainCounter rounds up at 4 chars per token.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("exactly twenty chars")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out struct {
		Tokens int `json:"tokens"`
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Tokens != 5 {
		t.Fatalf("expected 5 tokens, got %d", out.Tokens)
	}
}

func TestLiveTokenCount_Origins(t *testing.T) {
	dial := func(t *testing.T, s *Server, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
		t.Helper()
		mintRec := httptest.NewRecorder()
		token, err := s.auth.Mint(mintRec, "u1")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		hdr := http.Header{"Authorization": []string{"Bearer " + token}}
		if origin != "" {
			hdr.Set("Origin", origin)
		}
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/token-count"
		return websocket.DefaultDialer.Dial(url, hdr)
	}

	t.Run("same-origin browser handshake accepted by default", func(t *testing.T) {
		s := newTestServer(serverOpts{})
		srv := httptest.NewServer(s.Router())
		defer srv.Close()

		// Browsers send Origin on every websocket handshake, same-origin ones
		// included.
		conn, _, err := dial(t, s, srv, srv.URL)
		if err != nil {
			t.Fatalf("same-origin dial: %v", err)
		}
		conn.Close()
	})

	t.Run("cross-origin rejected by default", func(t *testing.T) {
		s := newTestServer(serverOpts{})
		srv := httptest.NewServer(s.Router())
		defer srv.Close()

		_, resp, err := dial(t, s, srv, "http://evil.example")
		if err == nil {
			t.Fatal("expected cross-origin dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 handshake response, got %+v", resp)
		}
	})

	t.Run("configured allowed origin accepted cross-host", func(t *testing.T) {
		s := newTestServer(serverOpts{allowedOrigin: "https://chat.example"})
		srv := httptest.NewServer(s.Router())
		defer srv.Close()

		conn, _, err := dial(t, s, srv, "https://chat.example")
		if err != nil {
			t.Fatalf("allowed-origin dial: %v", err)
		}
		conn.Close()

		if _, resp, err := dial(t, s, srv, "https://other.example"); err == nil {
			t.Fatal("expected non-allowed origin to fail")
		} else if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 handshake response, got %+v", resp)
		}
	})
}

func TestLiveTokenCount_RejectsUnauthenticated(t *testing.T) {
	s := newTestServer(serverOpts{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/token-count"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}
