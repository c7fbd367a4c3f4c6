package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
)

type fakeChatStore struct {
	mu      sync.Mutex
	history map[string][]entity.ChatMsg
	failAdd bool
	failGet bool
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{history: make(map[string][]entity.ChatMsg)}
}

func (s *fakeChatStore) ChatHistory(ctx context.Context, topic string) ([]entity.ChatMsg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("store down")
	}
	return append([]entity.ChatMsg{}, s.history[topic]...), nil
}

func (s *fakeChatStore) AddChatMessage(ctx context.Context, topic string, msg entity.ChatMsg) (entity.ChatMsg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd {
		return msg, errors.New("store down")
	}
	msg.ID = "chat-1"
	s.history[topic] = append(s.history[topic], msg)
	return msg, nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T, store ChatStore, buffer int) *Hub {
	h := NewHub(store, buffer)
	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	t.Cleanup(cancel)
	return h
}

func connect(h *Hub) *Connection {
	c := h.NewConnection()
	h.Register(c)
	return c
}

func event(t *testing.T, eventType string, data interface{}) []byte {
	raw, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
	require.NoError(t, err)
	return raw
}

// drain returns every frame queued on c without blocking.
func drain(t *testing.T, c *Connection) []frame {
	var out []frame
	for {
		select {
		case raw, ok := <-c.Send:
			if !ok {
				return out
			}
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func types(frames []frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}

func isClosed(c *Connection) bool {
	for {
		select {
		case _, ok := <-c.Send:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestJoinTopicSendsHistoryOnlyToJoiner(t *testing.T) {
	store := newFakeChatStore()
	store.history["toy1"] = []entity.ChatMsg{{ID: "c0", From: "Muki", Txt: "old"}}
	h := newTestHub(t, store, 16)
	a, b := connect(h), connect(h)

	h.HandleMessage(context.Background(), b, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "Muki"}))
	drain(t, b)
	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1"}))

	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, EventHistory, frames[0].Type)

	var history HistoryData
	require.NoError(t, json.Unmarshal(frames[0].Data, &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "old", history.Messages[0].Txt)

	assert.Empty(t, drain(t, b))

	var name string
	h.do(func() { name = a.UserName })
	assert.Equal(t, "Guest-"+a.ID, name)
}

func TestRetopicLeavesPreviousRoom(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	a := connect(h)

	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "x", UserName: "A"}))
	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "y", UserName: "A"}))
	drain(t, a)

	h.EmitToRoom("ping", nil, "x")
	assert.Empty(t, drain(t, a))

	h.EmitToRoom("ping", nil, "y")
	assert.Equal(t, []string{"ping"}, types(drain(t, a)))
}

func TestSendMessagePersistsAndReachesSender(t *testing.T) {
	store := newFakeChatStore()
	h := newTestHub(t, store, 16)
	a, b, outsider := connect(h), connect(h), connect(h)
	for _, c := range []*Connection{a, b} {
		h.HandleMessage(context.Background(), c, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: c.ID}))
		drain(t, c)
	}

	h.HandleMessage(context.Background(), a, event(t, EventSendMessage, SendMessageData{Txt: "hello", From: "A"}))

	for _, c := range []*Connection{a, b} {
		frames := drain(t, c)
		require.Len(t, frames, 1)
		assert.Equal(t, EventMessageAdded, frames[0].Type)
		var msg entity.ChatMsg
		require.NoError(t, json.Unmarshal(frames[0].Data, &msg))
		assert.Equal(t, "hello", msg.Txt)
		assert.Equal(t, "A", msg.From)
		assert.False(t, msg.Timestamp.IsZero())
	}
	assert.Empty(t, drain(t, outsider))
	assert.Len(t, store.history["toy1"], 1)
}

func TestSendMessageWithoutTopicIsNoop(t *testing.T) {
	store := newFakeChatStore()
	h := newTestHub(t, store, 16)
	a := connect(h)

	h.HandleMessage(context.Background(), a, event(t, EventSendMessage, SendMessageData{Txt: "hello"}))
	assert.Empty(t, drain(t, a))
	assert.Empty(t, store.history)
}

func TestSendMessageStoreFailureEmitsNothing(t *testing.T) {
	store := newFakeChatStore()
	h := newTestHub(t, store, 16)
	a := connect(h)
	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "A"}))
	drain(t, a)

	store.failAdd = true
	h.HandleMessage(context.Background(), a, event(t, EventSendMessage, SendMessageData{Txt: "hello"}))
	assert.Empty(t, drain(t, a))
}

func TestTypingExcludesSender(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	a, b := connect(h), connect(h)
	for _, c := range []*Connection{a, b} {
		h.HandleMessage(context.Background(), c, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: c.ID}))
		drain(t, c)
	}

	h.HandleMessage(context.Background(), a, event(t, EventTyping, TypingData{UserName: "A", IsTyping: true}))

	assert.Empty(t, drain(t, a))
	frames := drain(t, b)
	require.Len(t, frames, 1)
	var typing TypingData
	require.NoError(t, json.Unmarshal(frames[0].Data, &typing))
	assert.Equal(t, TypingData{UserName: "A", IsTyping: true}, typing)
}

func TestDisconnectEmitsStoppedTypingOnce(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	a, b := connect(h), connect(h)
	for _, c := range []*Connection{a, b} {
		h.HandleMessage(context.Background(), c, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: c.ID}))
		drain(t, c)
	}

	h.Unregister(a)
	h.Unregister(a)

	frames := drain(t, b)
	require.Len(t, frames, 1)
	assert.Equal(t, EventTypingUpdate, frames[0].Type)
	var typing TypingData
	require.NoError(t, json.Unmarshal(frames[0].Data, &typing))
	assert.Equal(t, TypingData{UserName: a.ID, IsTyping: false}, typing)
	assert.True(t, isClosed(a))
	assert.Equal(t, 1, h.ConnectionCount())
}

func TestDisconnectAnonymousEmitsNothing(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	a, b := connect(h), connect(h)

	h.Unregister(a)
	assert.Empty(t, drain(t, b))
}

func TestSlowConsumerDisconnectedOnce(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 1)
	slow := connect(h)
	h.HandleMessage(context.Background(), slow, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "Slow"}))

	// the history frame fills the buffer
	h.EmitToRoom("one", nil, "")
	h.EmitToRoom("two", nil, "")

	assert.True(t, isClosed(slow))
	assert.Equal(t, 0, h.ConnectionCount())

	h.Unregister(slow)
	h.EmitToRoom("three", nil, "")
}

func TestDroppedConnectionStaysOut(t *testing.T) {
	store := newFakeChatStore()
	h := newTestHub(t, store, 1)
	slow := connect(h)
	h.HandleMessage(context.Background(), slow, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "Slow"}))
	h.EmitToRoom("one", nil, "")
	require.True(t, isClosed(slow))

	h.HandleMessage(context.Background(), slow, event(t, EventSendMessage, SendMessageData{Txt: "still here"}))
	h.HandleMessage(context.Background(), slow, event(t, EventJoinTopic, JoinTopicData{Topic: "toy9", UserName: "Slow"}))
	h.HandleMessage(context.Background(), slow, event(t, EventWatchUser, UserData{UserID: "u2"}))
	h.BindUser(slow, "u1")

	history, err := store.ChatHistory(context.Background(), "toy1")
	require.NoError(t, err)
	assert.Empty(t, history)

	var toy9, watchers int
	var bound *Connection
	h.do(func() {
		toy9 = len(h.registry.Members("toy9"))
		watchers = len(h.registry.Members(WatchRoom("u2")))
		bound = h.registry.UserConnection("u1")
	})
	assert.Zero(t, toy9)
	assert.Zero(t, watchers)
	assert.Nil(t, bound)
	assert.Empty(t, slow.Topic)
	assert.Empty(t, slow.UserName)
}

func TestEmitToUserMostRecentBindingWins(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	first, second := connect(h), connect(h)

	h.HandleMessage(context.Background(), first, event(t, EventBindUser, UserData{UserID: "u1"}))
	h.HandleMessage(context.Background(), second, event(t, EventBindUser, UserData{UserID: "u1"}))

	h.EmitToUser("note", "hi", "u1")
	assert.Empty(t, drain(t, first))
	assert.Equal(t, []string{"note"}, types(drain(t, second)))

	h.HandleMessage(context.Background(), second, event(t, EventUnbindUser, map[string]string{}))
	h.EmitToUser("note", "hi", "u1")
	assert.Equal(t, []string{"note"}, types(drain(t, first)))

	h.EmitToUser("note", "hi", "nobody")
	assert.Empty(t, drain(t, first))
	assert.Empty(t, drain(t, second))
}

func TestBroadcastExcludingFourWays(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	caller, roomMate, elsewhere := connect(h), connect(h), connect(h)
	h.BindUser(caller, "u1")
	for _, c := range []*Connection{caller, roomMate} {
		h.HandleMessage(context.Background(), c, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: c.ID}))
		drain(t, c)
	}

	// bound and room: other room members only
	h.BroadcastExcluding("e", nil, "u1", "toy1")
	assert.Empty(t, drain(t, caller))
	assert.Len(t, drain(t, roomMate), 1)
	assert.Empty(t, drain(t, elsewhere))

	// bound, no room: everyone else
	h.BroadcastExcluding("e", nil, "u1", "")
	assert.Empty(t, drain(t, caller))
	assert.Len(t, drain(t, roomMate), 1)
	assert.Len(t, drain(t, elsewhere), 1)

	// unbound and room: whole room
	h.BroadcastExcluding("e", nil, "ghost", "toy1")
	assert.Len(t, drain(t, caller), 1)
	assert.Len(t, drain(t, roomMate), 1)
	assert.Empty(t, drain(t, elsewhere))

	// unbound, no room: everyone
	h.BroadcastExcluding("e", nil, "ghost", "")
	assert.Len(t, drain(t, caller), 1)
	assert.Len(t, drain(t, roomMate), 1)
	assert.Len(t, drain(t, elsewhere), 1)
}

func TestEmitToWatchers(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	watcher, other := connect(h), connect(h)

	h.HandleMessage(context.Background(), watcher, event(t, EventWatchUser, UserData{UserID: "u1"}))
	h.EmitToWatchers("watched-user-toy-added", map[string]string{"name": "Kite"}, "u1")

	assert.Equal(t, []string{"watched-user-toy-added"}, types(drain(t, watcher)))
	assert.Empty(t, drain(t, other))
}

func TestMalformedFrameAnswersError(t *testing.T) {
	h := newTestHub(t, newFakeChatStore(), 16)
	a := connect(h)

	h.HandleMessage(context.Background(), a, []byte("{not json"))
	h.HandleMessage(context.Background(), a, event(t, "dance", nil))
	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, nil))

	assert.Equal(t, []string{EventError, EventError, EventError}, types(drain(t, a)))
}

func TestHistoryFailureEmitsNothing(t *testing.T) {
	store := newFakeChatStore()
	store.failGet = true
	h := newTestHub(t, store, 16)
	a := connect(h)

	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "A"}))
	assert.Empty(t, drain(t, a))
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub(newFakeChatStore(), 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	h.EmitToRoom("late", nil, "")
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestChatMessagesRateLimited(t *testing.T) {
	store := newFakeChatStore()
	h := newTestHub(t, store, 16)
	h.SetLimiter(ratelimit.NewLimiter(map[string]ratelimit.Rule{
		ratelimit.ActionChatMessage: {Burst: 1, Refill: time.Hour},
	}))
	a := connect(h)
	h.HandleMessage(context.Background(), a, event(t, EventJoinTopic, JoinTopicData{Topic: "toy1", UserName: "A"}))
	drain(t, a)

	h.HandleMessage(context.Background(), a, event(t, EventSendMessage, SendMessageData{Txt: "one"}))
	h.HandleMessage(context.Background(), a, event(t, EventSendMessage, SendMessageData{Txt: "two"}))

	assert.Equal(t, []string{EventMessageAdded, EventError}, types(drain(t, a)))
	assert.Len(t, store.history["toy1"], 1)
}
