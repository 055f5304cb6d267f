package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 32
)

// UserHub fans user events from NATS out to websocket clients on the
// user-management page.
type UserHub struct {
	natsConn *nats.Conn
	sub      *nats.Subscription
	log      *zap.Logger

	clients   map[*UserHubClient]bool
	clientsMu sync.RWMutex

	register   chan *UserHubClient
	unregister chan *UserHubClient
	stop       chan struct{}
	stopOnce   sync.Once
}

// UserHubClient is one connected websocket.
type UserHubClient struct {
	hub        *UserHub
	conn       *websocket.Conn
	send       chan []byte
	username   string
	remoteAddr string
}

// HubStats is a snapshot of the hub.
type HubStats struct {
	Clients int `json:"clients"`
}

// NewUserHub subscribes to UserEventsSubject. Call Run to start serving clients.
func NewUserHub(natsConn *nats.Conn, log *zap.Logger) (*UserHub, error) {
	h := &UserHub{
		natsConn:   natsConn,
		log:        log,
		clients:    make(map[*UserHubClient]bool),
		register:   make(chan *UserHubClient),
		unregister: make(chan *UserHubClient),
		stop:       make(chan struct{}),
	}
	sub, err := natsConn.Subscribe(UserEventsSubject, func(msg *nats.Msg) {
		h.broadcast(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to user events: %w", err)
	}
	h.sub = sub
	return h, nil
}

// Run is the hub's main loop. It returns after Close.
func (h *UserHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			h.log.Debug("user hub client connected", zap.String("user", client.username), zap.String("remote", client.remoteAddr))

		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug("user hub client disconnected", zap.String("user", client.username), zap.String("remote", client.remoteAddr))

		case <-h.stop:
			h.clientsMu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

// Close unsubscribes from NATS and disconnects every client.
func (h *UserHub) Close() {
	h.stopOnce.Do(func() {
		if h.sub != nil {
			_ = h.sub.Unsubscribe()
		}
		close(h.stop)
	})
}

// Stats returns the number of connected clients.
func (h *UserHub) Stats() HubStats {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return HubStats{Clients: len(h.clients)}
}

// Attach registers conn and starts its pumps.
func (h *UserHub) Attach(conn *websocket.Conn, username, remoteAddr string) *UserHubClient {
	client := &UserHubClient{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, clientSendSize),
		username:   username,
		remoteAddr: remoteAddr,
	}
	select {
	case h.register <- client:
	case <-h.stop:
		_ = conn.Close()
		return client
	}
	go client.writePump()
	go client.readPump()
	return client
}

func (h *UserHub) remove(client *UserHubClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *UserHub) broadcast(data []byte) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; its writePump will see the closed connection.
			h.log.Warn("dropping slow user hub client", zap.String("remote", client.remoteAddr))
			go client.conn.Close()
		}
	}
}

func (c *UserHubClient) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stop:
	}
}

// readPump only watches for close frames and keeps the pong deadline fresh.
func (c *UserHubClient) readPump() {
	defer func() {
		c.leave()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *UserHubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
