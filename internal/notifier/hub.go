package notifier

import (
	"sync"

	"taskpay_backend/internal/model"
	"taskpay_backend/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans ledger events out to connected websocket clients. Delivery is
// fire-and-forget: a slow or dead connection is dropped, never waited on.
type Hub struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]map[*client]struct{}
	admins map[*client]struct{}

	telegram *AdminBot
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const clientBuffer = 16

func NewHub(telegram *AdminBot) *Hub {
	return &Hub{
		users:    make(map[uuid.UUID]map[*client]struct{}),
		admins:   make(map[*client]struct{}),
		telegram: telegram,
	}
}

// Subscribe takes ownership of the connection and streams events for userID
// (and everything, when admin) until the peer goes away.
func (h *Hub) Subscribe(userID uuid.UUID, admin bool, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	if admin {
		h.admins[c] = struct{}{}
	} else {
		if h.users[userID] == nil {
			h.users[userID] = make(map[*client]struct{})
		}
		h.users[userID][c] = struct{}{}
	}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(userID, admin, c)
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) readLoop(userID uuid.UUID, admin bool, c *client) {
	defer func() {
		h.unsubscribe(userID, admin, c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger().Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) unsubscribe(userID uuid.UUID, admin bool, c *client) {
	h.mu.Lock()
	if admin {
		delete(h.admins, c)
	} else if conns := h.users[userID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
	h.mu.Unlock()
	close(c.send)
}

// Emit implements service.Emitter.
func (h *Hub) Emit(event model.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		logger.Logger().Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	for c := range h.users[event.UserID] {
		select {
		case c.send <- msg:
		default:
		}
	}
	for c := range h.admins {
		select {
		case c.send <- msg:
		default:
		}
	}
	h.mu.RUnlock()

	if h.telegram != nil {
		h.telegram.Notify(event)
	}
}
