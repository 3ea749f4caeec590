package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/wricardo/lightcycle/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one push frame sent to spectators of a match.
type Message struct {
	GameID string               `json:"game_id"`
	Snap   *service.GameSnapshot `json:"snapshot,omitempty"`
	Event  string               `json:"event,omitempty"`
	Data   interface{}          `json:"data,omitempty"`
}

// Client is one spectator WebSocket connection, subscribed to a single
// match's updates.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub maintains every spectator connection, keyed by the match (game id)
// they are watching, and fans out snapshot pushes each tick.
type Hub struct {
	sessions map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	logger *log.Logger
}

// NewHub creates a new spectator push hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's event loop; call it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket and subscribes the
// resulting client to gameID's updates.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), gameID: gameID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastSnapshot pushes a match's current state to every spectator
// watching it, dropping (and unregistering) any client whose send buffer
// is still full from the previous tick rather than blocking the caller.
func (h *Hub) BroadcastSnapshot(gameID string, snap *service.GameSnapshot) {
	message := &Message{GameID: gameID, Snap: snap, Event: "snapshot"}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket snapshot", "err", err)
		return
	}
	if clients, ok := h.sessions[gameID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// BroadcastEvent sends a custom, non-snapshot event (e.g. "match_finished")
// to every spectator of a game.
func (h *Hub) BroadcastEvent(gameID string, event string, data interface{}) {
	h.broadcast <- &Message{GameID: gameID, Event: event, Data: data}
}

func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.gameID] == nil {
		h.sessions[client.gameID] = make(map[*Client]bool)
	}
	h.sessions[client.gameID][client] = true
	h.logger.Info("spectator registered", "game_id", client.gameID, "total", len(h.sessions[client.gameID]))
}

func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.sessions, client.gameID)
			}
			h.logger.Info("spectator unregistered", "game_id", client.gameID, "remaining", len(clients))
		}
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "err", err)
		return
	}
	if clients, ok := h.sessions[message.GameID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// readPump keeps the connection alive and detects client disconnects;
// spectators never send data the server needs to act on.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
