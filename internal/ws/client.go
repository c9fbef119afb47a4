package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	readLimit  = 4096
)

// MessageHandler processes inbound client frames (send, mark_read ops).
type MessageHandler interface {
	HandleMessage(c *Client, data []byte)
}

// Client is one live websocket connection of an authenticated participant.
type Client struct {
	ID       string
	UserID   int64
	UserType string
	Channels []string
	Conn     *websocket.Conn
	Send     chan []byte

	manager *Manager
	logger  *zap.Logger

	closeOnce sync.Once
}

func NewClient(id string, userID int64, userType string, channels []string, conn *websocket.Conn, m *Manager, logger *zap.Logger) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		UserType: userType,
		Channels: channels,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		manager:  m,
		logger:   logger,
	}
}

// Close unregisters the client and tears the connection down. Send is
// never closed: queueing can race teardown, and a send on a closed channel
// panics. WritePump exits through the write error once the connection dies.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.manager.Remove(c)
		_ = c.Conn.Close()
	})
}

// ReadPump pumps frames from the connection to the handler. Runs until the
// connection dies; a dead connection is detected by the pong deadline.
func (c *Client) ReadPump(h MessageHandler) {
	defer c.Close()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("ws read error",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}
		h.HandleMessage(c, message)
	}
}

// WritePump pumps outbound frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON queues a JSON frame for this client only.
func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("ws marshal failed",
			zap.String("client_id", c.ID),
			zap.Error(err))
		return
	}
	select {
	case c.Send <- data:
	default:
		c.logger.Warn("ws send buffer full",
			zap.String("client_id", c.ID))
	}
}
