package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"immerse-backend/internal/middleware"
	"immerse-backend/internal/models"
	"immerse-backend/internal/submission"
)

type updateMessage struct {
	Type    string              `json:"type"`
	Payload models.ResultUpdate `json:"payload"`
}

func newTestHub(known uuid.UUID) (*Hub, *middleware.SessionAuth) {
	auth := middleware.NewSessionAuth("secret")
	hub := NewHub(nil, auth, func(id uuid.UUID) (models.ResultUpdate, error) {
		if id != known {
			return models.ResultUpdate{}, errors.New("not found")
		}
		return models.ResultUpdate{SessionID: id, Result: models.IdleResult()}, nil
	})
	return hub, auth
}

func readUpdate(t *testing.T, conn *websocket.Conn) updateMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg updateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message %s: %v", data, err)
	}
	return msg
}

func TestHub_DeliversTransitionsLocally(t *testing.T) {
	sessionID := uuid.New()
	hub, auth := newTestHub(sessionID)
	token, _, _ := auth.GenerateSessionToken(sessionID)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	initial := readUpdate(t, conn)
	if initial.Type != models.WSTypeResultUpdate || initial.Payload.Result.State != models.StateIdle {
		t.Fatalf("unexpected initial message %+v", initial)
	}
	if hub.Connections(sessionID) != 1 {
		t.Fatalf("expected 1 registered connection, got %d", hub.Connections(sessionID))
	}

	hub.OnTransition(context.Background(), submission.Transition{
		SessionID: sessionID,
		Token:     3,
		Result:    models.SuccessResult("done"),
	})

	got := readUpdate(t, conn)
	if got.Payload.Token != 3 || got.Payload.Result.State != models.StateSuccess || got.Payload.Result.Summary != "done" {
		t.Fatalf("unexpected update %+v", got)
	}
}

func TestHub_RejectsBadHandshake(t *testing.T) {
	sessionID := uuid.New()
	hub, auth := newTestHub(sessionID)
	unknown, _, _ := auth.GenerateSessionToken(uuid.New())

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"invalid token", "?token=nope", http.StatusUnauthorized},
		{"unknown session", "?token=" + unknown, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tc.query, nil))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestHub_TransitionDuringHandshakeFollowsSnapshot(t *testing.T) {
	sessionID := uuid.New()
	auth := middleware.NewSessionAuth("secret")

	var hub *Hub
	hub = NewHub(nil, auth, func(id uuid.UUID) (models.ResultUpdate, error) {
		snap := models.ResultUpdate{SessionID: id, Token: 1, Result: models.LoadingResult()}
		// the submission resolves while the handshake is still reading state
		hub.OnTransition(context.Background(), submission.Transition{
			SessionID: id,
			Token:     1,
			Result:    models.SuccessResult("done"),
		})
		return snap, nil
	})
	token, _, _ := auth.GenerateSessionToken(sessionID)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	first := readUpdate(t, conn)
	if first.Payload.Result.State != models.StateLoading {
		t.Fatalf("expected the snapshot first, got %+v", first)
	}

	second := readUpdate(t, conn)
	if second.Payload.Result.State != models.StateSuccess || second.Payload.Result.Summary != "done" {
		t.Fatalf("expected the resolution after the snapshot, got %+v", second)
	}
}
