package room

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SLProject/logger"
)

// Client represents one authenticated socket on this gateway node.
// A user may hold several connections (devices/tabs), each with its own
// subscriptions and its own outbound queue consumed by a single writer
// goroutine.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 25 * time.Second
)

// writePump is the single writer for the connection. It drains the send
// queue and keeps the socket alive with control pings; when the queue is
// closed it sends a close frame and returns.
func (c *Client) writePump() {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				_ = c.WS.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(data); err != nil {
				logger.Infof("[room] write connId=%s err=%v", c.ConnID, err)
				return
			}
		case <-t.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(data []byte) error {
	if err := c.WS.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return c.WS.WriteMessage(websocket.TextMessage, data)
}

// enqueue drops the frame when the client cannot keep up; slow consumers
// must not stall the fanout workers. A fanout worker may still hold a
// pre-teardown subscriber snapshot, so enqueue checks the closed flag
// under the same lock shutdown takes.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		logger.Warnf("[room] send queue full, drop frame connId=%s user=%s", c.ConnID, c.UserID)
	}
}

// shutdown closes the send queue exactly once, releasing writePump.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
