package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// inbound is a client-to-server control message.
type inbound struct {
	Event  string `json:"event"`
	UserID string `json:"userId"`
}

// Client is a websocket connection bridged into the registry.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	registry  *Registry
	log       *zap.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, registry *Registry, log *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		registry: registry,
		log:      log.With(zap.String("conn_id", id)),
	}
}

func (c *Client) ID() string { return c.id }

// Send enqueues msg without blocking.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Serve registers the client and pumps messages until the peer goes away.
// A non-empty joinAs joins that user's channel before any message is read.
// It blocks for the lifetime of the connection.
func (c *Client) Serve(joinAs string) {
	c.registry.Register(c)
	if joinAs != "" {
		if err := c.registry.Join(c.id, joinAs); err != nil {
			c.log.Warn("Join rejected", zap.String("user_id", joinAs), zap.Error(err))
		}
	}
	defer func() {
		c.registry.Leave(c.id)
		c.close()
	}()

	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("Ignoring malformed client message", zap.Error(err))
			continue
		}
		switch msg.Event {
		case "join":
			if err := c.registry.Join(c.id, msg.UserID); err != nil {
				c.log.Warn("Join rejected", zap.String("user_id", msg.UserID), zap.Error(err))
			}
		default:
			c.log.Debug("Ignoring client event", zap.String("event", msg.Event))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
