package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/manpreetbhatti/inkboard/backend/internal/collab"
	"github.com/manpreetbhatti/inkboard/backend/internal/metrics"
	"github.com/manpreetbhatti/inkboard/backend/internal/protocol"
	"github.com/manpreetbhatti/inkboard/backend/internal/ratelimit"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Past this many dropped frames the connection is closed
	maxRateLimitViolations = 1000
)

type Options struct {
	SendBufferSize    int
	MaxMessageSize    int64
	MessagesPerSecond float64
	MessageBurst      int
}

func DefaultOptions() Options {
	return Options{
		SendBufferSize:    256,
		MaxMessageSize:    1024 * 1024,
		MessagesPerSecond: 100,
		MessageBurst:      200,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a websocket connection registered with the hub as a collab.Peer
type Client struct {
	id          string
	hub         *collab.Hub
	conn        *websocket.Conn
	log         *slog.Logger
	rateLimiter *ratelimit.Limiter
	opts        Options

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func ServeWs(hub *collab.Hub, opts Options, log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	id := uuid.NewString()
	client := &Client{
		id:          id,
		hub:         hub,
		conn:        conn,
		log:         log.With("conn", id),
		rateLimiter: ratelimit.NewLimiter(opts.MessagesPerSecond, opts.MessageBurst),
		opts:        opts,
		send:        make(chan []byte, opts.SendBufferSize),
	}

	if !hub.Register(client) {
		client.log.Warn("hub stopped, refusing connection")
		conn.Close()
		return
	}
	client.log.Debug("connection opened", "remote", conn.RemoteAddr().String())

	go client.writePump()
	go client.readPump()
}

func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. It returns false when the queue is
// full or the client is closed.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the socket
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket error", "err", err)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			rateLimitWarnings++
			metrics.Rejected.WithLabelValues("rate_limited").Inc()
			if rateLimitWarnings%100 == 1 {
				c.log.Warn("rate limit exceeded", "warnings", rateLimitWarnings)
				c.sendError("rate_limited", "too many messages, frames are being dropped")
			}
			if rateLimitWarnings > maxRateLimitViolations {
				c.log.Warn("disconnecting for excessive rate limit violations")
				return
			}
			continue
		}

		msg, err := protocol.Decode(message)
		if err != nil {
			c.rejectFrame(err)
			continue
		}

		c.hub.Dispatch(c, msg)
	}
}

// rejectFrame answers a frame that never reached the hub
func (c *Client) rejectFrame(err error) {
	code := "malformed"
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		code = "unknown_type"
	case errors.Is(err, protocol.ErrInvalidPayload):
		code = "invalid_payload"
	}
	metrics.Rejected.WithLabelValues(code).Inc()
	c.log.Warn("invalid message", "err", err)
	c.sendError(code, err.Error())
}

func (c *Client) sendError(code, message string) {
	data, err := protocol.Encode(protocol.TypeError, protocol.Error{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Send(data)
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
