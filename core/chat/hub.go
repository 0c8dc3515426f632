package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Event types
const (
	EventMessage = "message"
	EventError   = "error"
)

// Event is what the live feed sends to every client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type (
	// Hub fans posted messages out to the connected websocket clients.
	Hub struct {
		clients    map[*Client]bool
		broadcast  chan []byte
		register   chan *Client
		unregister chan *Client
		done       chan struct{}
		logger     core.Logger
		mu         sync.Mutex
	}

	Client struct {
		hub    *Hub
		svc    *Service
		conn   *websocket.Conn
		send   chan []byte
		author string
	}
)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run dispatches events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Debug("chat client registered: " + c.author)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("chat client unregistered: " + c.author)

		case data := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// too slow
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues ev for every connected client. It is dropped once the hub stopped.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshaling chat event", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Serve attaches an upgraded connection of author to the hub and blocks until it is closed.
func (svc *Service) Serve(conn *websocket.Conn, author string) {
	h := svc.hub
	if h == nil {
		_ = conn.Close()
		return
	}
	c := &Client{hub: h, svc: svc, conn: conn, send: make(chan []byte, sendBuffer), author: author}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// readPump posts the forms received from the client.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Form
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("reading chat message", err)
			}
			if isDecodeError(err) {
				c.reply(Event{Type: EventError, Payload: "mensaje inválido"})
				continue
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		_, err := c.svc.Post(ctx, c.author, f)
		cancel()
		if err != nil {
			c.reply(Event{Type: EventError, Payload: errorPayload(err)})
		}
	}
}

func (c *Client) reply(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.hub.clients[c] {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Warn("writing chat message", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// errorPayload is the per-field map of a validation error, or the error text.
func errorPayload(err error) interface{} {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return vErr.FieldMap()
	}
	return err.Error()
}

func isDecodeError(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
