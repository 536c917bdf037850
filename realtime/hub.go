package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks connected clients by user ID and delivers notification events
// to a single recipient. Delivery is best-effort: a slow client gets
// disconnected rather than blocking the hub.
type Hub struct {
	clients    map[string][]*Client // userID -> open connections
	register   chan *Client
	unregister chan *Client
	deliver    chan targeted
	mu         sync.RWMutex
}

type targeted struct {
	userID string
	data   []byte
}

type Client struct {
	conn      *websocket.Conn
	userID    string
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once
}

// closeSend is the only way the send channel gets closed. Both the
// unregister path and the slow-consumer drop path can race on the same
// client, the Once keeps the second close a no-op.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan targeted, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = append(h.clients[client.userID], client)
			h.mu.Unlock()
			log.Printf("WebSocket client connected for user %s", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.deliver:
			h.mu.Lock()
			conns := h.clients[msg.userID]
			kept := conns[:0]
			for _, client := range conns {
				select {
				case client.send <- msg.data:
					kept = append(kept, client)
				default:
					// Slow consumer. Drop the connection here, in the
					// same step as the close, so the next deliver never
					// sees a closed channel still in the map.
					client.closeSend()
					log.Printf("Dropping slow WebSocket client for user %s", msg.userID)
				}
			}
			if len(kept) == 0 {
				delete(h.clients, msg.userID)
			} else {
				h.clients[msg.userID] = kept
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked unlinks a client and closes its send channel. Called with
// h.mu held. Harmless for a client the deliver path already dropped.
func (h *Hub) removeLocked(client *Client) {
	conns := h.clients[client.userID]
	for i, c := range conns {
		if c == client {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	} else {
		h.clients[client.userID] = conns
	}
	client.closeSend()
}

// NotifyUser sends a typed event to every open connection of one user.
func (h *Hub) NotifyUser(userID string, eventType string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}

	select {
	case h.deliver <- targeted{userID: userID, data: data}:
	default:
		log.Printf("Dropping %s event for user %s, hub backlogged", eventType, userID)
	}
}

func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades an already-authenticated request. The caller resolves
// the user ID from the JWT before handing off here.
func Handler(hub *Hub, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:   conn,
			userID: userID,
			send:   make(chan []byte, 256),
			hub:    hub,
		}

		hub.register <- client

		welcome, _ := json.Marshal(map[string]interface{}{
			"type": "connected",
			"payload": map[string]interface{}{
				"userId": userID,
				"time":   time.Now().Unix(),
			},
		})
		client.send <- welcome

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		// A ping arriving in the window after the hub dropped this
		// client would panic on the closed send channel, keep the read
		// loop from taking the process with it.
		if r := recover(); r != nil {
			log.Printf("WebSocket read loop panic: %v", r)
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		// The notification stream is one-way; clients only ping.
		if data["type"] == "ping" {
			pong, _ := json.Marshal(map[string]interface{}{
				"type":    "pong",
				"payload": map[string]interface{}{"time": time.Now().Unix()},
			})
			c.send <- pong
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
