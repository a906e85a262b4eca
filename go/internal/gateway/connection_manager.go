package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSendBufferFull means the observer is not draining its queue.
	ErrSendBufferFull = errors.New("connection send buffer full")
	// ErrConnectionClosed means the observer has already been closed.
	ErrConnectionClosed = errors.New("connection closed")
)

// Observer is a registered client that receives broadcasts.
type Observer interface {
	Label() string
	Send(data []byte) error
	Close()
}

// MessageHandler executes one inbound client message.
type MessageHandler interface {
	Handle(ctx context.Context, raw []byte) Response
}

// ConnectionManager is the registry of live observers and owns the websocket
// pumps of every client connection.
type ConnectionManager struct {
	observers map[string]Observer
	nextID    uint64
	mu        sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler
	clock    clockwork.Clock
}

// Connection is one websocket client.
type Connection struct {
	label   string
	conn    *websocket.Conn
	manager *ConnectionManager

	// send is the per-connection FIFO drained by writePump
	send      chan []byte
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendQueueSize   int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  8192,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendQueueSize:   64,
		CheckOrigin:     CheckLocalOrigin,
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, handler MessageHandler, clock clockwork.Clock) *ConnectionManager {
	defaults := DefaultConnectionConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = defaults.SendQueueSize
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = defaults.CheckOrigin
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		observers: make(map[string]Observer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		handler: handler,
		clock:   clock,
	}
}

// NextLabel returns a fresh label. Labels are never reused within a process.
func (cm *ConnectionManager) NextLabel() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.nextID++
	return fmt.Sprintf("Client-%d", cm.nextID)
}

// Register adds an observer.
func (cm *ConnectionManager) Register(o Observer) {
	cm.mu.Lock()
	cm.observers[o.Label()] = o
	total := len(cm.observers)
	cm.mu.Unlock()

	log.Info().Str("client", o.Label()).Int("total_connections", total).Msg("client connected")
}

// Remove unregisters and closes an observer. Removing twice is harmless.
func (cm *ConnectionManager) Remove(o Observer) {
	cm.mu.Lock()
	current, exists := cm.observers[o.Label()]
	if exists && current == o {
		delete(cm.observers, o.Label())
	}
	total := len(cm.observers)
	cm.mu.Unlock()

	o.Close()
	if exists {
		log.Info().Str("client", o.Label()).Int("total_connections", total).Msg("client disconnected")
	}
}

// Observers returns a snapshot of the registry.
func (cm *ConnectionManager) Observers() []Observer {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]Observer, 0, len(cm.observers))
	for _, o := range cm.observers {
		out = append(out, o)
	}
	return out
}

// Count returns the number of registered observers.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.observers)
}

// Broadcast sends data to every observer registered when it is called.
// Observers that fail are removed once the pass is over; the number evicted
// is returned.
func (cm *ConnectionManager) Broadcast(data []byte) int {
	targets := cm.Observers()

	var failed []Observer
	for _, o := range targets {
		if err := o.Send(data); err != nil {
			log.Warn().Err(err).Str("client", o.Label()).Msg("broadcast failed, evicting client")
			failed = append(failed, o)
		}
	}

	for _, o := range failed {
		cm.Remove(o)
	}
	return len(failed)
}

// CloseAll closes every observer, used on shutdown.
func (cm *ConnectionManager) CloseAll() {
	for _, o := range cm.Observers() {
		cm.Remove(o)
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	labels := make([]string, 0, len(cm.observers))
	for label := range cm.observers {
		labels = append(labels, label)
	}
	return map[string]interface{}{
		"total_connections": len(cm.observers),
		"clients":           labels,
		"connections_seen":  cm.nextID,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		label:       cm.NextLabel(),
		conn:        conn,
		manager:     cm,
		send:        make(chan []byte, cm.config.SendQueueSize),
		ConnectedAt: cm.clock.Now(),
	}
	cm.Register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Debug().
		Str("client", connection.label).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
	return nil
}

func (c *Connection) Label() string {
	return c.label
}

// Send queues data for the write pump without blocking.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which closes the socket after flushing a close frame.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.manager.Remove(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client", c.label).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().
					Err(err).
					Str("client", c.label).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds client commands to the handler and queues the replies.
func (c *Connection) readPump() {
	defer c.manager.Remove(c)

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client", c.label).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))

		if c.manager.handler == nil {
			continue
		}
		resp := c.manager.handler.Handle(context.Background(), message)
		data, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Str("client", c.label).Msg("failed to marshal response")
			continue
		}
		if err := c.Send(data); err != nil {
			log.Warn().Err(err).Str("client", c.label).Msg("failed to queue response")
			return
		}
	}
}
