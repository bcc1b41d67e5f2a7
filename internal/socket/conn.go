package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// conn is one client. Writes go through send so only writeLoop touches the socket.
type conn struct {
	srv  *Server
	ws   *websocket.Conn
	uid  int64
	send chan []byte

	once sync.Once
	done chan struct{}
}

func newConn(srv *Server, ws *websocket.Conn, uid int64) *conn {
	return &conn{
		srv:  srv,
		ws:   ws,
		uid:  uid,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// push queues a broadcast. It is dropped when the client does not keep up.
func (c *conn) push(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.srv.log.Warn().Int64("uid", c.uid).Msg("send buffer full, dropping push")
	}
}

// reply queues the answer to a request. It waits for buffer space, so a slow
// client stops being read instead of losing replies.
func (c *conn) reply(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *conn) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.srv.log.Debug().Err(err).Int64("uid", c.uid).Msg("read error")
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.srv.log.Debug().Err(err).Int64("uid", c.uid).Msg("dropping malformed frame")
			continue
		}

		reply, err := json.Marshal(c.srv.Handle(ctx, c.uid, req))
		if err != nil {
			c.srv.log.Error().Err(err).Str("event", req.Event).Msg("can't encode reply")
			continue
		}

		c.reply(reply)
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
