package notifier

import (
	"errors"
	"sync"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 64
)

var errChannelClosed = errors.New("websocket channel closed")
var errChannelBacklogged = errors.New("websocket channel backlogged")

// Event is the wire envelope for everything pushed over a websocket.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WSChannel adapts one websocket connection to the Channel contract. All
// writes go through a single writer goroutine; Send only enqueues, so the
// hub's per-recipient lock is never held across network I/O.
type WSChannel struct {
	conn  *websocket.Conn
	send  chan Event
	done  chan struct{}
	close sync.Once
}

func NewWSChannel(conn *websocket.Conn) *WSChannel {
	c := &WSChannel{
		conn: conn,
		send: make(chan Event, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *WSChannel) Send(notification *models.Notification) error {
	return c.SendEvent(Event{Type: "notification", Data: notification})
}

// SendEvent enqueues an event for the writer goroutine. The buffered queue
// preserves per-channel FIFO order; a full queue means the client stopped
// reading and the channel is reported dead rather than blocking the hub.
func (c *WSChannel) SendEvent(event Event) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}
	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return errChannelClosed
	default:
		return errChannelBacklogged
	}
}

func (c *WSChannel) Close() {
	c.close.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the channel shuts down (writer error or Close).
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

func (c *WSChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
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
