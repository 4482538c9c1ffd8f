package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"immerse-backend/internal/middleware"
	"immerse-backend/internal/models"
	"immerse-backend/internal/submission"
)

const (
	writeTimeout     = 10 * time.Second
	subscribeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SnapshotFunc returns the current result of a session, or an error if the
// session does not exist.
type SnapshotFunc func(sessionID uuid.UUID) (models.ResultUpdate, error)

// client queues updates until its initial snapshot has been sent, so the
// snapshot is always the first message and nothing published after
// registration is lost.
type client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	started bool
	backlog [][]byte
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.backlog = append(c.backlog, data)
		return nil
	}
	return c.send(data)
}

// start sends the snapshot followed by everything queued since registration.
func (c *client) start(snapshot []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	backlog := c.backlog
	c.backlog = nil

	if err := c.send(snapshot); err != nil {
		return err
	}
	for _, data := range backlog {
		if err := c.send(data); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) send(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type subscription struct {
	cancel context.CancelFunc
	ready  chan struct{}
}

// Hub pushes result transitions to the WebSocket connections of each session.
// With a Redis client, updates fan out through pub/sub so every instance can
// deliver them; without one they are delivered locally.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	redisClient *redis.Client
	auth        *middleware.SessionAuth
	snapshot    SnapshotFunc
	subs        map[uuid.UUID]*subscription
}

func NewHub(redisClient *redis.Client, auth *middleware.SessionAuth, snapshot SnapshotFunc) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		redisClient: redisClient,
		auth:        auth,
		snapshot:    snapshot,
		subs:        make(map[uuid.UUID]*subscription),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.auth.ParseSessionToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.snapshot(sessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	ready := h.registerConnection(sessionID, c)

	select {
	case <-ready:
	case <-time.After(subscribeTimeout):
		log.Printf("WebSocket subscription not confirmed for session %s, continuing", sessionID)
	}

	// The snapshot is taken only once updates reach c, so any transition it
	// misses is already queued behind it.
	current, err := h.snapshot(sessionID)
	if err != nil {
		h.unregisterConnection(sessionID, c)
		return
	}
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeResultUpdate, Payload: current})
	if err != nil {
		h.unregisterConnection(sessionID, c)
		return
	}
	if err := c.start(data); err != nil {
		log.Printf("WebSocket write failed for session %s: %v", sessionID, err)
	}

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// OnTransition publishes a result transition to the session's connections.
func (h *Hub) OnTransition(ctx context.Context, t submission.Transition) {
	h.Publish(ctx, t.SessionID, models.WSMessage{
		Type: models.WSTypeResultUpdate,
		Payload: models.ResultUpdate{
			SessionID: t.SessionID,
			Token:     t.Token,
			Result:    t.Result,
		},
	})
}

func (h *Hub) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to encode update for session %s: %v", sessionID, err)
		return
	}

	if h.redisClient != nil {
		err := h.redisClient.Publish(ctx, channelName(sessionID), string(data)).Err()
		if err == nil {
			return
		}
		log.Printf("Redis publish failed for session %s, delivering locally: %v", sessionID, err)
	}

	h.broadcast(sessionID, data)
}

// Connections returns the number of open connections for a session.
func (h *Hub) Connections(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// registerConnection adds c to the session and returns a channel that is closed
// once published updates are being delivered to it.
func (h *Hub) registerConnection(sessionID uuid.UUID, c *client) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)
	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(h.connections[sessionID]))

	if h.redisClient == nil {
		ready := make(chan struct{})
		close(ready)
		return ready
	}

	// Start pub/sub subscription if this is the first connection for this session
	sub, ok := h.subs[sessionID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sub = &subscription{cancel: cancel, ready: make(chan struct{})}
		h.subs[sessionID] = sub
		go h.subscribeToPubSub(ctx, sessionID, sub.ready)
	}
	return sub.ready
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if sub, ok := h.subs[sessionID]; ok {
			sub.cancel()
			delete(h.subs, sessionID)
		}
	}

	log.Printf("WebSocket disconnected: session %s", sessionID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID, ready chan<- struct{}) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(sessionID))
	defer pubsub.Close()

	// wait for the subscription confirmation before reporting ready
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("Redis subscribe failed for session %s: %v", sessionID, err)
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write failed for session %s: %v", sessionID, err)
		}
	}
}

func channelName(sessionID uuid.UUID) string {
	return "session_updates:" + sessionID.String()
}
