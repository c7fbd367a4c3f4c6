package usecase

// Notifier pushes catalog events to realtime clients. The websocket hub implements it.
type Notifier interface {
	EmitToRoom(eventType string, data interface{}, room string)
	EmitToUser(eventType string, data interface{}, userID string)
	BroadcastExcluding(eventType string, data interface{}, userID, room string)
	EmitToWatchers(eventType string, data interface{}, userID string)
}

type noopNotifier struct{}

func (noopNotifier) EmitToRoom(string, interface{}, string)                 {}
func (noopNotifier) EmitToUser(string, interface{}, string)                 {}
func (noopNotifier) BroadcastExcluding(string, interface{}, string, string) {}
func (noopNotifier) EmitToWatchers(string, interface{}, string)             {}

// Event types sent by the catalog.
const (
	EventToyAdded            = "toy-added"
	EventWatchedUserToyAdded = "watched-user-toy-added"
	EventToyUpdated          = "toy-updated"
	EventYourToyUpdated      = "your-toy-updated"
	EventToyRemoved          = "toy-removed"
	EventToyMsgAdded         = "toy-msg-added"
)
