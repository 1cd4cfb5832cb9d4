package sse

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Event is one server-sent event addressed to a single user.
type Event struct {
	UserID string
	Type   string
	Data   map[string]interface{}
}

type client struct {
	userID string
	ch     chan Event
}

// Manager fans events out to the SSE connections of each user. A user can
// hold several connections (several open tabs); every connection gets every
// event addressed to that user.
type Manager struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	events     chan Event
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan Event, 64),
	}
}

// Run is the hub loop; start it in its own goroutine.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.clients[c] = true
			log.Printf("[SSE] client connected for user %s (%d total)", c.userID, len(m.clients))
		case c := <-m.unregister:
			if _, ok := m.clients[c]; ok {
				delete(m.clients, c)
				close(c.ch)
			}
		case ev := <-m.events:
			for c := range m.clients {
				if c.userID != ev.UserID {
					continue
				}
				select {
				case c.ch <- ev:
				default:
					// Slow consumer; drop rather than stall the hub.
					log.Printf("[SSE] dropping event %s for user %s", ev.Type, ev.UserID)
				}
			}
		}
	}
}

// SendToUser queues an event for all open connections of the user.
func (m *Manager) SendToUser(userID, eventType string, data map[string]interface{}) {
	m.events <- Event{UserID: userID, Type: eventType, Data: data}
}

// Connection is one registered SSE connection of a user. Events addressed
// to the user reach it from the moment Connect returns.
type Connection struct {
	manager *Manager
	client  *client
}

// Connect registers a connection with the hub. Callers attach per-connection
// subscriptions between Connect and Serve so the first delivery is not lost,
// and must Close the connection when done.
func (m *Manager) Connect(userID string) *Connection {
	cl := &client{userID: userID, ch: make(chan Event, 16)}
	m.register <- cl
	return &Connection{manager: m, client: cl}
}

// Close deregisters the connection from the hub.
func (conn *Connection) Close() {
	conn.manager.unregister <- conn.client
}

// ServeHTTP streams events to one connection until the client goes away.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	conn := m.Connect(userID)
	defer conn.Close()
	conn.Serve(c)
}

// Serve writes the connection's events as SSE frames until the client
// goes away.
func (conn *Connection) Serve(c *gin.Context) {
	cl := conn.client

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case ev, ok := <-cl.ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				log.Printf("[SSE] failed to marshal event %s: %v", ev.Type, err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
