package realtime

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Conn adapts a gorilla websocket connection to the hub. Writes go through
// a buffered channel drained by a single writer goroutine; reads are
// dispatched inline so one connection's events are handled strictly in
// arrival order.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	gateway *Gateway
	log     *slog.Logger
	maxSize int64
}

func NewConn(id string, ws *websocket.Conn, gateway *Gateway, log *slog.Logger, maxSize int64) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		gateway: gateway,
		log:     log,
		maxSize: maxSize,
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues a frame for delivery. A slow client whose buffer is full gets
// the frame dropped; the ping timeout will eventually reap the connection.
func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Start() {
	c.gateway.HandleConnect(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		// transport-level close and ping timeout both land here, so both
		// share the same disconnect handling path
		c.gateway.HandleDisconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.maxSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("ws_read_error", "conn_id", c.id, "error", err)
			}
			return
		}

		c.gateway.HandleEvent(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
