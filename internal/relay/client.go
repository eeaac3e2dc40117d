package relay

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Location and join events
	// are tiny; anything bigger is not ours.
	maxMessageSize = 4 * 1024

	// Outbound buffer per connection. A client that falls this far
	// behind is dropped rather than allowed to stall the hub.
	sendBufferSize = 64
)

// Client is a wrapper for a single websocket connection: it owns the
// socket and mediates between wire events and the Hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// send is the buffered channel of outbound events. The hub writes
	// to it; writePump drains it onto the socket.
	send chan *Event
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan *Event, sendBufferSize),
	}
}

// ID returns the opaque connection identifier assigned on accept.
func (c *Client) ID() string { return c.id }

// readPump pumps events from the websocket connection to the hub.
//
// There is at most one reader per connection: all reads happen from
// this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("read error", slog.String("conn", c.id), slog.Any("err", err))
			}
			break
		}
		ev.client = c
		c.hub.inbound <- &ev
	}
}

// writePump pumps events from the hub to the websocket connection.
//
// There is at most one writer per connection: all writes happen from
// this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write error", slog.String("conn", c.id), slog.Any("err", err))
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
