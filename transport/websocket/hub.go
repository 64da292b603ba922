package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cellwar/game/engine"
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

	// Broadcasts queued beyond this are dropped.
	broadcastBuffer = 256
)

// Events pushed to spectators
const (
	EventStateUpdate = "state_update"
	EventAction      = "action"
	EventTurnEnded   = "turn_ended"
	EventGameOver    = "game_over"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what spectators receive. Seq is the game version the message
// describes; zero means unversioned.
type Message struct {
	GameID string            `json:"gameId"`
	Seq    uint64            `json:"seq,omitempty"`
	Event  string            `json:"event"`
	State  *engine.GameState `json:"state,omitempty"`
	Data   interface{}       `json:"data,omitempty"`
}

// Client represents a WebSocket client watching one game
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub maintains the set of active clients and broadcasts messages.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients by game ID
	games map[string]map[*Client]bool

	// Highest Seq delivered per game
	latest map[string]uint64

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}

	log logrus.FieldLogger
}

// NewHub creates a new WebSocket hub
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		games:      make(map[string]map[*Client]bool),
		latest:     make(map[string]uint64),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket"),
	}
}

// Run starts the hub's event loop and blocks until ctx is done, closing every
// client on the way out.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case reply := <-h.count:
			n := 0
			for _, clients := range h.games {
				n += len(clients)
			}
			reply <- n

		case <-ctx.Done():
			close(h.done)
			for _, clients := range h.games {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to gameID.
// initial, when set, is sent before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string, initial *engine.GameState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
	}

	if initial != nil {
		if data, err := json.Marshal(&Message{GameID: gameID, Event: EventStateUpdate, State: initial}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastState queues a state snapshot for every client watching gameID.
// A snapshot older than one already delivered for the game is discarded.
func (h *Hub) BroadcastState(gameID, event string, seq uint64, state *engine.GameState) {
	h.enqueue(&Message{GameID: gameID, Seq: seq, Event: event, State: state})
}

// BroadcastEvent queues a custom event for every client watching gameID
func (h *Hub) BroadcastEvent(gameID, event string, seq uint64, data interface{}) {
	h.enqueue(&Message{GameID: gameID, Seq: seq, Event: event, Data: data})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	reply := make(chan int)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.log.WithFields(logrus.Fields{"game": message.GameID, "event": message.Event}).Warn("broadcast queue full, dropping message")
	}
}

// registerClient adds a client to a game
func (h *Hub) registerClient(client *Client) {
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true

	h.log.WithFields(logrus.Fields{"game": client.gameID, "clients": len(h.games[client.gameID])}).Debug("client registered")
}

// unregisterClient removes a client from a game
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.games[client.gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.games, client.gameID)
				delete(h.latest, client.gameID)
			}

			h.log.WithFields(logrus.Fields{"game": client.gameID, "clients": len(clients)}).Debug("client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients watching a game
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.games[message.GameID]
	if !ok {
		return
	}

	if message.Seq != 0 {
		if message.Seq < h.latest[message.GameID] {
			h.log.WithFields(logrus.Fields{"game": message.GameID, "event": message.Event, "seq": message.Seq}).Debug("dropping stale broadcast")
			return
		}
		h.latest[message.GameID] = message.Seq
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast message")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Spectators only listen; reads keep the pong deadline moving
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Each message is its own frame so clients can decode frames independently.
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
