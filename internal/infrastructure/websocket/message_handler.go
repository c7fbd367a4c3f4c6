package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

// Inbound event types
const (
	EventJoinTopic   = "join-topic"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventBindUser    = "bind-user"
	EventUnbindUser  = "unbind-user"
	EventWatchUser   = "watch-user"
)

// Outbound event types
const (
	EventHistory      = "history"
	EventMessageAdded = "message-added"
	EventTypingUpdate = "typing-update"
	EventError        = "error"
)

// WSMessage is the frame sent to clients.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type JoinTopicData struct {
	Topic    string `json:"topic"`
	UserName string `json:"userName"`
}

type SendMessageData struct {
	Txt  string `json:"txt"`
	From string `json:"from"`
}

type TypingData struct {
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type UserData struct {
	UserID string `json:"userId"`
}

type HistoryData struct {
	Messages []entity.ChatMsg `json:"messages"`
}

type ErrorData struct {
	Message string `json:"message"`
}

var errRateLimited = errors.New("rate limit exceeded")

// HandleMessage processes one inbound frame of c. Frames of one connection
// must be handled sequentially; store calls happen here, off the hub loop.
func (h *Hub) HandleMessage(ctx context.Context, c *Connection, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("Malformed frame from socket [id: %s]: %v", c.ID, err)
		h.send(c, EventError, ErrorData{Message: "malformed message"})
		return
	}

	var err error
	switch msg.Type {
	case EventJoinTopic:
		var data JoinTopicData
		if err = decodeData(msg.Data, &data); err == nil {
			h.joinTopic(ctx, c, data)
		}
	case EventSendMessage:
		var data SendMessageData
		if err = decodeData(msg.Data, &data); err == nil {
			if !h.allow(c, ratelimit.ActionChatMessage) {
				err = errRateLimited
				break
			}
			h.sendMessage(ctx, c, data)
		}
	case EventTyping:
		var data TypingData
		if err = decodeData(msg.Data, &data); err == nil {
			if !h.allow(c, ratelimit.ActionTyping) {
				return
			}
			h.typing(c, data)
		}
	case EventBindUser:
		var data UserData
		if err = decodeData(msg.Data, &data); err == nil {
			h.BindUser(c, data.UserID)
		}
	case EventUnbindUser:
		h.unbindUser(c)
	case EventWatchUser:
		var data UserData
		if err = decodeData(msg.Data, &data); err == nil {
			h.watchUser(c, data.UserID)
		}
	default:
		err = fmt.Errorf("unknown event type %q", msg.Type)
	}

	if err != nil {
		logger.Warn("Cannot handle %s from socket [id: %s]: %v", msg.Type, c.ID, err)
		h.send(c, EventError, ErrorData{Message: err.Error()})
	}
}

func decodeData(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(raw, dst)
}

func (h *Hub) joinTopic(ctx context.Context, c *Connection, data JoinTopicData) {
	if data.Topic == "" {
		return
	}

	userName := data.UserName
	if userName == "" {
		userName = "Guest-" + c.ID
	}
	live := false
	h.do(func() {
		if c.closed {
			return
		}
		live = true
		if c.Topic != "" && c.Topic != data.Topic {
			logger.Info("Socket leaving topic %s [id: %s]", c.Topic, c.ID)
		}
		h.registry.SetTopic(c, data.Topic, userName)
	})
	if !live {
		return
	}
	logger.Info("Socket joined topic %s as %s [id: %s]", data.Topic, userName, c.ID)

	history, err := h.store.ChatHistory(ctx, data.Topic)
	if err != nil {
		logger.Error("Failed to load chat history for topic %s: %v", data.Topic, err)
		return
	}
	if history == nil {
		history = []entity.ChatMsg{}
	}
	h.send(c, EventHistory, HistoryData{Messages: history})
}

func (h *Hub) sendMessage(ctx context.Context, c *Connection, data SendMessageData) {
	var topic, userName string
	h.do(func() {
		if c.closed {
			return
		}
		topic = c.Topic
		userName = c.UserName
	})
	if topic == "" {
		return
	}
	logger.Info("New chat msg from socket [id: %s], topic %s", c.ID, topic)

	from := data.From
	if from == "" {
		from = userName
	}
	saved, err := h.store.AddChatMessage(ctx, topic, entity.ChatMsg{
		From:      from,
		Txt:       data.Txt,
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to save chat msg on topic %s: %v", topic, err)
		return
	}

	h.EmitToRoom(EventMessageAdded, saved, topic)
}

func (h *Hub) typing(c *Connection, data TypingData) {
	frame := encode(EventTypingUpdate, data, h.now())
	h.do(func() {
		if c.closed || c.Topic == "" {
			return
		}
		h.deliverAll(h.registry.Members(c.Topic), frame, c)
	})
}

// BindUser associates userID with c for targeted notifications.
func (h *Hub) BindUser(c *Connection, userID string) {
	if userID == "" {
		return
	}
	h.do(func() {
		if !c.closed {
			h.registry.Bind(c, userID)
		}
	})
	logger.Info("Setting socket.userId = %s for socket [id: %s]", userID, c.ID)
}

func (h *Hub) unbindUser(c *Connection) {
	h.do(func() {
		h.registry.Unbind(c)
	})
	logger.Info("Removing socket.userId for socket [id: %s]", c.ID)
}

func (h *Hub) watchUser(c *Connection, userID string) {
	if userID == "" {
		return
	}
	h.do(func() {
		if !c.closed {
			h.registry.Join(c, WatchRoom(userID))
		}
	})
	logger.Info("user-watch from socket [id: %s], on user %s", c.ID, userID)
}
