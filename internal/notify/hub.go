package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Hub fans engine events out to connected editor UIs over websockets.
type Hub struct {
	clients    map[hubClient]bool
	broadcast  chan Event
	register   chan hubClient
	unregister chan hubClient
	origins    []string
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// hubClient allows tests to stand in for a real websocket connection.
type hubClient interface {
	sendChannel() chan []byte
	shutdown()
}

// NewHub creates a hub that accepts upgrades from the given origin
// patterns. An empty list allows same-origin requests only.
func NewHub(originPatterns []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[hubClient]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan hubClient),
		unregister: make(chan hubClient),
		origins:    originPatterns,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("notify: websocket client connected (total: %d)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.sendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("notify: websocket client disconnected (total: %d)", count)

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("notify: failed to marshal event: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.sendChannel() <- data:
				default:
					// Slow client; drop it rather than block the hub.
					close(client.sendChannel())
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop disconnects all clients and ends the Run loop.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.sendChannel())
		client.shutdown()
	}
	h.clients = make(map[hubClient]bool)
	h.mu.Unlock()
}

// Broadcast queues an event for delivery to every connected client.
// Never blocks; drops the event when the queue is full.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Println("notify: broadcast queue full, dropping event")
	}
}

// drop hands a client back to the Run loop for removal. Safe to call after
// Stop: a stopped hub no longer drains the unregister channel, so the send
// races against shutdown instead of blocking the pump goroutine forever.
func (h *Hub) drop(client hubClient) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		log.Printf("notify: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "hub stopped")
		return
	}

	go client.writePump()
	go client.readPump()
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) sendChannel() chan []byte { return c.send }

func (c *wsClient) shutdown() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *wsClient) writePump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains client messages to detect disconnection; the protocol is
// currently one-directional.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
