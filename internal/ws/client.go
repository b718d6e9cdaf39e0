package ws

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const sendBuffer = 256

// Client is one live, authenticated connection. A user may hold several at
// once (multiple tabs or devices); each gets its own channel id.
type Client struct {
	UserID    string
	Username  string
	ChannelID string
	Conn      *websocket.Conn
	Send      chan []byte
	Connected time.Time

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, userID, username, channelID string) *Client {
	return &Client{
		UserID:    userID,
		Username:  username,
		ChannelID: channelID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Connected: time.Now().UTC(),
	}
}

// enqueue offers a frame to the send channel; a slow consumer loses frames
// rather than blocking fan-out.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Close is idempotent; it tears down the send channel and the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	_ = c.Conn.Close()
}

// writePump drains the send channel onto the socket, keeping the connection
// alive with pings. Runs as a goroutine per connection.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
