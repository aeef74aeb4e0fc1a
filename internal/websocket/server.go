package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oselight/stripdeck/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Message is the envelope pushed to connected clients
type Message struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Server fans out board and analysis events to connected WebSocket
// clients. A client that cannot keep up with the broadcast rate is
// dropped rather than allowed to stall the hub.
type Server struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger

	mu      sync.Mutex
	started bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *Message, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.Named("websocket"),
	}
}

// Start runs the hub loop until the stop channel closes
func (s *Server) Start(stop <-chan struct{}) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run(stop)
}

func (s *Server) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			for c := range s.clients {
				close(c.send)
				c.conn.Close()
			}
			s.clients = make(map[*client]struct{})
			return

		case c := <-s.register:
			s.clients[c] = struct{}{}
			s.logger.Debug("Client connected", logger.Int("clients", len(s.clients)))

		case c := <-s.unregister:
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
				s.logger.Debug("Client disconnected", logger.Int("clients", len(s.clients)))
			}

		case msg := <-s.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("Failed to marshal broadcast message", logger.Error(err))
				continue
			}
			for c := range s.clients {
				select {
				case c.send <- payload:
				default:
					delete(s.clients, c)
					close(c.send)
					s.logger.Warn("Dropped slow WebSocket client")
				}
			}
		}
	}
}

// Broadcast queues a message for all connected clients. Non-blocking: if
// the hub's queue is full the message is dropped and logged.
func (s *Server) Broadcast(msg *Message) {
	select {
	case s.broadcast <- msg:
	default:
		s.logger.Warn("Broadcast queue full, dropping message", logger.String("type", msg.Type))
	}
}

// HandleConnection upgrades an HTTP request to a WebSocket connection and
// attaches it to the hub
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	s.register <- c

	go s.writePump(c)
	go s.readPump(c)
}

// writePump streams queued messages to one client and keeps the
// connection alive with pings
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// readPump drains client frames so pong handlers fire, and unregisters on
// disconnect. Inbound payloads are ignored; the socket is push-only.
func (s *Server) readPump(c *client) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
