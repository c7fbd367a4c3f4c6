package websocket

// WatchRoom is the room joined by connections that follow a user's activity.
func WatchRoom(userID string) string {
	return "watching:" + userID
}

// Connection is one realtime client as seen by the registry.
// Its fields are only touched from the hub loop.
type Connection struct {
	ID       string
	UserID   string
	Topic    string
	UserName string
	Send     chan []byte

	rooms    map[string]struct{}
	boundSeq uint64
	closed   bool
}

func newConnection(id string, buffer int) *Connection {
	return &Connection{
		ID:    id,
		Send:  make(chan []byte, buffer),
		rooms: make(map[string]struct{}),
	}
}

// Registry tracks connections, their rooms and their bound users.
// It is not safe for concurrent use; the Hub owns it.
type Registry struct {
	conns map[string]*Connection
	rooms map[string]map[string]*Connection
	seq   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]*Connection),
	}
}

func (r *Registry) Add(c *Connection) {
	r.conns[c.ID] = c
}

// Remove drops the connection and its room memberships. It reports false if
// the connection was already gone.
func (r *Registry) Remove(c *Connection) bool {
	if _, ok := r.conns[c.ID]; !ok {
		return false
	}
	for room := range c.rooms {
		r.Leave(c, room)
	}
	delete(r.conns, c.ID)
	return true
}

func (r *Registry) Len() int {
	return len(r.conns)
}

func (r *Registry) Join(c *Connection, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Connection)
		r.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}
}

func (r *Registry) Leave(c *Connection, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// SetTopic moves the connection into topic, leaving its previous topic room.
func (r *Registry) SetTopic(c *Connection, topic, userName string) {
	if c.Topic != "" && c.Topic != topic {
		r.Leave(c, c.Topic)
	}
	r.Join(c, topic)
	c.Topic = topic
	c.UserName = userName
}

func (r *Registry) Bind(c *Connection, userID string) {
	r.seq++
	c.UserID = userID
	c.boundSeq = r.seq
}

func (r *Registry) Unbind(c *Connection) {
	c.UserID = ""
	c.boundSeq = 0
}

// UserConnection returns the connection most recently bound to userID, or nil.
func (r *Registry) UserConnection(userID string) *Connection {
	if userID == "" {
		return nil
	}
	var found *Connection
	for _, c := range r.conns {
		if c.UserID != userID {
			continue
		}
		if found == nil || c.boundSeq > found.boundSeq {
			found = c
		}
	}
	return found
}

// Members returns a snapshot of the connections in room.
func (r *Registry) Members(room string) []*Connection {
	members := r.rooms[room]
	out := make([]*Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every connection.
func (r *Registry) All() []*Connection {
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (c *Connection) InRoom(room string) bool {
	_, ok := c.rooms[room]
	return ok
}
