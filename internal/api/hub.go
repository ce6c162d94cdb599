/*
Package api
File: hub.go
Description:
    The WebSocket Hub is the renderer-facing half of the observer contract.

    It maintains a registry of all connected renderers. The engine hands every
    notification to OnStateChanged, which wraps it in a Message envelope and
    queues it on 'Broadcast'; the Hub loop then writes it to every client.

    Architecture:
    - Hub: one per process, an engine Observer.
    - Client: Represents one renderer connection.
    - ServeWs: The HTTP handler that upgrades a standard GET request to a WebSocket.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/everforgeworks/protocell/internal/game"
)

// Message defines the standard JSON envelope for all real-time communication.
type Message struct {
	Type    string      `json:"type"`    // Notification reason, or "snapshot" on connect
	Payload interface{} `json:"payload"` // game.Notification or game.Snapshot
	Sender  string      `json:"sender"`  // "engine", or the client id for the welcome message
}

// Client represents a single connected renderer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered channel for outbound messages
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	// Outbound messages. Buffered so the engine never waits on the Hub loop.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns
}

// NewHub creates a new Hub instance. Run it in a goroutine.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run is the main event loop for the Hub. It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WS: renderer %s connected (%d total)", client.id, len(h.clients))

		case client := <-h.unregister:
			// Clean up resources to prevent leaks.
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("WS: renderer %s disconnected", client.id)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// If the client's send buffer is full, assume they hung or disconnected.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// OnStateChanged implements game.Observer. It is called under the session lock,
// so it drops the message rather than block when the Hub is backed up.
func (h *Hub) OnStateChanged(n game.Notification) {
	msg, err := json.Marshal(Message{Type: string(n.Reason), Payload: n, Sender: "engine"})
	if err != nil {
		log.Printf("WS: error marshaling notification: %v", err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("WS: broadcast queue full, dropped %s notification #%d", n.Reason, n.Seq)
	}
}

// upgrader configures the WebSocket handshake.
// CheckOrigin returns true to allow connections from any host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request, sends the current snapshot so the renderer can draw
// everything once, then subscribes the connection to notifications.
func ServeWs(hub *Hub, session *game.Session, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS Upgrade Error:", err)
		return
	}

	client := &Client{id: uuid.NewString(), hub: hub, conn: conn, send: make(chan []byte, 256)}

	// Snapshot and register under the session lock, so no notification can fall between them.
	err = session.Do(func(e *game.Engine) error {
		welcome, err := json.Marshal(Message{Type: "snapshot", Payload: e.Snapshot(), Sender: client.id})
		if err != nil {
			return err
		}
		client.send <- welcome
		return hub.add(client)
	})
	if err != nil {
		log.Printf("WS: renderer not attached: %v", err)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

var errHubStopped = errors.New("hub stopped")

// add registers c, failing once the Hub has shut down.
func (h *Hub) add(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return errHubStopped
	}
}

// remove unregisters c. After shutdown Run has already closed every client.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump only watches for the connection closing. Renderers act through the REST API.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS Error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	// Range over the channel. This loop exits when c.send is closed.
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
}
