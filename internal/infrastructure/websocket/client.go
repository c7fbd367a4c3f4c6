package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

const (
	writeWait      = 20 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 16 << 10
)

// Client pumps frames between a websocket and its registry connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	c    *Connection
}

// Serve registers a new connection for ws, binds userID when given and starts
// both pumps. It returns immediately.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, userID string) *Connection {
	c := h.NewConnection()
	h.Register(c)
	if userID != "" {
		h.BindUser(c, userID)
	}

	client := &Client{hub: h, conn: ws, c: c}
	go client.WritePump()
	go client.ReadPump(ctx)
	return c
}

// ReadPump handles inbound frames in order until the socket fails.
func (cl *Client) ReadPump(ctx context.Context) {
	defer func() {
		cl.hub.Unregister(cl.c)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Socket read failed [id: %s]: %v", cl.c.ID, err)
			}
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		cl.hub.HandleMessage(ctx, cl.c, message)
	}
}

// WritePump drains Send to the socket and keeps it alive with pings.
func (cl *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case message, ok := <-cl.c.Send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Socket write failed [id: %s]: %v", cl.c.ID, err)
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
