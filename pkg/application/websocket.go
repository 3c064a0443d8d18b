package application

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	ChannelAll string = "all"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var (
	ErrConnectionClosed = errors.New("websocket connection closed")
	ErrSlowConnection   = errors.New("websocket send buffer full")
)

type HuberOptions struct {
	Logger      *logrus.Logger
	CheckOrigin func(r *http.Request) bool
}

// Connection is one websocket client, subscribed to the channels it asked
// for with ?channel= on connect, or to ChannelAll when it named none.
type Connection struct {
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]struct{}

	mu     sync.Mutex
	closed bool
}

func (c *Connection) InChannel(channel string) bool {
	_, ok := c.channels[channel]
	return ok
}

// SendJSON queues v for the client. A client whose buffer is full is
// considered gone and is dropped.
func (c *Connection) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.closeLocked()
		return ErrSlowConnection
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type WsCallback func(ctx context.Context, conn *Connection) error

type Huber interface {
	http.Handler
	ForEach(channel string, f WsCallback) error
	Broadcast(channel string, v interface{})
	ConnectionsCount() int
}

func NewHub(opts *HuberOptions) Huber {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &huber{
		logger:      logger,
		connections: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

type huber struct {
	mu          sync.RWMutex
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
	connections map[*Connection]struct{}
}

func (h *huber) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("failed to upgrade websocket")
		return
	}
	conn := &Connection{
		conn:     ws,
		send:     make(chan []byte, sendBuffer),
		channels: map[string]struct{}{},
	}
	for _, channel := range r.URL.Query()["channel"] {
		conn.channels[channel] = struct{}{}
	}
	if len(conn.channels) == 0 {
		conn.channels[ChannelAll] = struct{}{}
	}

	h.mu.Lock()
	h.connections[conn] = struct{}{}
	h.mu.Unlock()

	go h.writePump(conn)
	h.readPump(conn)
}

// readPump discards client messages and returns once the client is gone.
func (h *huber) readPump(conn *Connection) {
	defer func() {
		h.mu.Lock()
		delete(h.connections, conn)
		h.mu.Unlock()
		conn.close()
	}()
	conn.conn.SetReadLimit(4096)
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *huber) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-conn.send:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *huber) inChannel(channel string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		if conn.InChannel(channel) {
			out = append(out, conn)
		}
	}
	return out
}

func (h *huber) ForEach(channel string, f WsCallback) error {
	ctx := context.Background()
	for _, conn := range h.inChannel(channel) {
		if err := f(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}

func (h *huber) Broadcast(channel string, v interface{}) {
	err := h.ForEach(channel, func(_ context.Context, conn *Connection) error {
		if err := conn.SendJSON(v); err != nil {
			h.logger.WithError(err).Debug("websocket client skipped")
		}
		return nil
	})
	if err != nil {
		h.logger.WithError(err).Error("websocket broadcast failed")
	}
}

func (h *huber) ConnectionsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
