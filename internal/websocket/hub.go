package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// session groups the open connections of one session with the cancel func for
// its redis subscription. The subscription lives exactly as long as the first
// to last connection.
type session struct {
	conns  []*websocket.Conn
	cancel context.CancelFunc
}

// Hub fans redis pub/sub updates out to websocket connections, keyed by
// session ID. One session may hold several tabs.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*session
	redis     *redis.Client
	jwtSecret []byte
}

func NewHub(redisClient *redis.Client, jwtSecret string) *Hub {
	return &Hub{
		sessions:  make(map[uuid.UUID]*session),
		redis:     redisClient,
		jwtSecret: []byte(jwtSecret),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket requests, so the token
	// travels as a query param.
	sessionID, ok := h.parseSessionToken(r.URL.Query().Get("token"))
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.attach(sessionID, conn)

	// Reads only serve to detect disconnect; clients never send anything.
	go func() {
		defer h.detach(sessionID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) parseSessionToken(tokenStr string) (uuid.UUID, bool) {
	if tokenStr == "" {
		return uuid.Nil, false
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}

	idStr, _ := claims["session_id"].(string)
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return sessionID, true
}

func (h *Hub) attach(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[sessionID]
	if s == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s = &session{cancel: cancel}
		h.sessions[sessionID] = s
		go h.subscribe(ctx, sessionID)
	}
	s.conns = append(s.conns, conn)

	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(s.conns))
}

func (h *Hub) detach(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	s := h.sessions[sessionID]
	if s == nil {
		return
	}

	for i, c := range s.conns {
		if c == conn {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}

	if len(s.conns) == 0 {
		s.cancel()
		delete(h.sessions, sessionID)
	}

	log.Printf("WebSocket disconnected: session %s", sessionID)
}

func (h *Hub) subscribe(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redis.Subscribe(ctx, "session_updates:"+sessionID.String())
	defer pubsub.Close()

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
	defer h.mu.RUnlock()

	if s := h.sessions[sessionID]; s != nil {
		for _, conn := range s.conns {
			conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

// SendToSession sends a message directly, bypassing pub/sub.
func (h *Hub) SendToSession(sessionID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(sessionID, data)
}
