package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sitekit/internal/config"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from the peer. The feed is
	// one-directional; clients send nothing but control frames.
	maxMessageSize = 512
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id         string
	pingPeriod time.Duration
	pongWait   time.Duration
	logger     *slog.Logger
}

// Upgrader builds the gorilla upgrader from configuration. Origin
// checking stays with the browser's same-origin default via chi's
// CORS layer; the toolbar is same-host only.
func Upgrader(cfg config.WebSocketConfig) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
}

// Serve upgrades an HTTP request, registers the client and starts its
// pumps. It returns once the upgrade has happened (or failed).
func Serve(hub *Hub, cfg config.WebSocketConfig, w http.ResponseWriter, r *http.Request) error {
	upgrader := Upgrader(cfg)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 64),
		id:         uuid.New().String(),
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
		logger: hub.logger.With(
			slog.String("component", "websocket.client"),
			slog.String("remote_addr", conn.RemoteAddr().String()),
		),
	}
	if client.pongWait <= 0 {
		client.pongWait = 60 * time.Second
	}
	if client.pingPeriod <= 0 || client.pingPeriod >= client.pongWait {
		client.pingPeriod = client.pongWait * 9 / 10
	}

	hub.register <- client
	go client.writePump()
	go client.readPump()
	return nil
}

// readPump discards inbound frames and drives the pong deadline. It
// exists so the connection's close and ping/pong handling runs.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("feed connection closed unexpectedly",
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump forwards hub broadcasts to the peer and keeps it alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
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
