package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

// ChatStore persists topic chat history. The catalog use case implements it.
type ChatStore interface {
	ChatHistory(ctx context.Context, topic string) ([]entity.ChatMsg, error)
	AddChatMessage(ctx context.Context, topic string, msg entity.ChatMsg) (entity.ChatMsg, error)
}

// Hub routes realtime events. The registry is owned by the Run loop; every
// read or write of it is a closure executed there, one at a time.
type Hub struct {
	registry   *Registry
	store      ChatStore
	ops        chan func()
	stopped    chan struct{}
	sendBuffer int
	limiter    *ratelimit.Limiter
	now        func() time.Time
}

func NewHub(store ChatStore, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		registry:   NewRegistry(),
		store:      store,
		ops:        make(chan func()),
		stopped:    make(chan struct{}),
		sendBuffer: sendBuffer,
		now:        time.Now,
	}
}

// Start runs the hub loop in a goroutine until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	go h.Run(ctx)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case op := <-h.ops:
			op()
		case <-ctx.Done():
			return
		}
	}
}

// do executes fn on the hub loop and waits for it. It returns false once the hub has stopped.
func (h *Hub) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case h.ops <- func() { fn(); close(done) }:
	case <-h.stopped:
		return false
	}
	select {
	case <-done:
		return true
	case <-h.stopped:
		return false
	}
}

// SetLimiter throttles chat and typing events per connection.
func (h *Hub) SetLimiter(l *ratelimit.Limiter) {
	h.limiter = l
}

func (h *Hub) allow(c *Connection, action string) bool {
	if h.limiter == nil {
		return true
	}
	ok, wait := h.limiter.Allow(c.ID, action)
	if !ok {
		logger.Warn("Rate limited %s from socket [id: %s], retry in %v", action, c.ID, wait)
	}
	return ok
}

// NewConnection allocates a connection with a fresh id. It is not registered yet.
func (h *Hub) NewConnection() *Connection {
	return newConnection(uuid.NewString(), h.sendBuffer)
}

func (h *Hub) Register(c *Connection) {
	h.do(func() {
		h.registry.Add(c)
	})
	logger.Info("New connected socket [id: %s]", c.ID)
}

// Unregister removes c and closes its Send channel. Calling it again is a no-op.
func (h *Hub) Unregister(c *Connection) {
	h.do(func() {
		h.disconnect(c)
	})
	if h.limiter != nil {
		h.limiter.Forget(c.ID)
	}
}

// ConnectionCount is the number of live connections.
func (h *Hub) ConnectionCount() int {
	n := 0
	h.do(func() {
		n = h.registry.Len()
	})
	return n
}

// disconnect runs on the loop. It is the only place Send is closed.
// A closed connection is never added back to the registry.
func (h *Hub) disconnect(c *Connection) {
	if c.closed {
		return
	}
	c.closed = true
	h.registry.Remove(c)
	close(c.Send)
	logger.Info("Socket disconnected [id: %s]", c.ID)

	topic, userName := c.Topic, c.UserName
	c.Topic, c.UserName = "", ""
	if topic != "" && userName != "" {
		frame := encode(EventTypingUpdate, TypingData{UserName: userName, IsTyping: false}, h.now())
		h.deliverAll(h.registry.Members(topic), frame, nil)
	}
}

// deliver queues frame on c. A full buffer means the client cannot keep up, so it is dropped.
func (h *Hub) deliver(c *Connection, frame []byte) {
	if c.closed || frame == nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
		logger.Warn("Socket send buffer full, dropping [id: %s]", c.ID)
		h.disconnect(c)
	}
}

func (h *Hub) deliverAll(conns []*Connection, frame []byte, except *Connection) {
	for _, c := range conns {
		if c == except {
			continue
		}
		h.deliver(c, frame)
	}
}

// EmitToRoom sends to every connection in room, or to every connection when room is empty.
func (h *Hub) EmitToRoom(eventType string, data interface{}, room string) {
	frame := encode(eventType, data, h.now())
	h.do(func() {
		if room == "" {
			h.deliverAll(h.registry.All(), frame, nil)
			return
		}
		h.deliverAll(h.registry.Members(room), frame, nil)
	})
}

// EmitToUser sends to the connection most recently bound to userID.
func (h *Hub) EmitToUser(eventType string, data interface{}, userID string) {
	frame := encode(eventType, data, h.now())
	h.do(func() {
		c := h.registry.UserConnection(userID)
		if c == nil {
			logger.Info("No active socket for user: %s", userID)
			return
		}
		logger.Info("Emiting event: %s to user: %s socket [id: %s]", eventType, userID, c.ID)
		h.deliver(c, frame)
	})
}

// BroadcastExcluding sends to everyone in room (or everywhere when room is
// empty) except the connection bound to userID. With no such connection
// nobody is excluded.
func (h *Hub) BroadcastExcluding(eventType string, data interface{}, userID, room string) {
	frame := encode(eventType, data, h.now())
	h.do(func() {
		excluded := h.registry.UserConnection(userID)
		targets := h.registry.All()
		if room != "" {
			targets = h.registry.Members(room)
		}
		h.deliverAll(targets, frame, excluded)
	})
}

// EmitToWatchers sends to the connections watching userID.
func (h *Hub) EmitToWatchers(eventType string, data interface{}, userID string) {
	h.EmitToRoom(eventType, data, WatchRoom(userID))
}

func (h *Hub) send(c *Connection, eventType string, data interface{}) {
	frame := encode(eventType, data, h.now())
	h.do(func() {
		h.deliver(c, frame)
	})
}

func encode(eventType string, data interface{}, ts time.Time) []byte {
	frame, err := json.Marshal(WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: ts.UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to encode %s event: %v", eventType, err)
		return nil
	}
	return frame
}
