package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ service.EventBroadcaster = (*Hub)(nil)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API is token-authenticated, not cookie-authenticated
	CheckOrigin: func(*http.Request) bool { return true },
}

// AuthFunc resolves the token a client sends as its first frame.
type AuthFunc func(ctx context.Context, token string) (userID string, role domain.Role, err error)

type Client struct {
	ID     string
	UserID string
	Role   domain.Role
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub pushes events to connected websocket clients. A client sees an event only
// if it could read the request through the API.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	auth    AuthFunc
	logger  *slog.Logger
}

func NewHub(auth AuthFunc, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		auth:    auth,
		logger:  logger,
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	h.mu.Unlock()
	h.logger.Info("websocket hub stopped")
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client registered",
		slog.String("client_id", c.ID),
		slog.String("user_id", c.UserID),
		slog.String("role", string(c.Role)),
		slog.Int("clients", n),
	)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Debug("websocket client unregistered", slog.String("client_id", c.ID))
}

// Connected reports the number of authenticated clients.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Publish(ctx context.Context, topic string, event any) error {
	const op = "broadcast.Hub.Publish"

	if err := ctx.Err(); err != nil {
		return e.WrapError(ctx, op, err)
	}
	full, err := json.Marshal(Envelope{Topic: topic, Data: event})
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}
	var public []byte

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		msg := full
		switch audience(c, event) {
		case seeNothing:
			continue
		case seePublic:
			if public == nil {
				ev := event.(domain.RequestChanged)
				if public, err = json.Marshal(Envelope{Topic: topic, Data: ev.Public()}); err != nil {
					return fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
				}
			}
			msg = public
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, message dropped",
				slog.String("client_id", c.ID),
				slog.String("topic", topic),
			)
		}
	}
	return nil
}

type visibility uint8

const (
	seeNothing visibility = iota
	seePublic
	seeAll
)

// audience mirrors the read rules of the API: coordinators see everything,
// volunteers see the open pool plus their own claims, requesters see their own.
// A request leaving the pool reaches every volunteer without contact details, and
// a volunteer whose claim was released still hears about it.
func audience(c *Client, event any) visibility {
	if c.Role == domain.RoleCoordinator {
		return seeAll
	}
	switch ev := event.(type) {
	case domain.RequestChanged:
		r := ev.Request
		if r == nil {
			return seeNothing
		}
		if r.RequesterID == c.UserID {
			return seeAll
		}
		if c.Role != domain.RoleVolunteer {
			return seeNothing
		}
		switch {
		case r.AssignedTo(c.UserID), ev.PreviousVolunteerID == c.UserID:
			return seeAll
		case r.Status == domain.StatusPending:
			return seeAll
		case ev.PreviousStatus == domain.StatusPending:
			return seePublic
		}
	case domain.VolunteerMoved:
		if ev.VolunteerID == c.UserID {
			return seeAll
		}
	}
	return seeNothing
}

// ServeWS upgrades the connection and expects {"token": "..."} within authTimeout.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var hello struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth timeout"))
		_ = conn.Close()
		h.logger.Info("websocket auth not received", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
	userID, role, err := h.auth(ctx, hello.Token)
	cancel()
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
		_ = conn.Close()
		h.logger.Info("websocket auth rejected", slog.Any("error", err))
		return
	}

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.add(c)
	if err := conn.WriteJSON(map[string]string{"status": "authenticated", "user_id": userID}); err != nil {
		h.remove(c)
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only keeps the connection alive; clients do not send commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", slog.String("client_id", c.ID), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
