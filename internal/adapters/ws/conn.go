package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/core"
)

const writeTimeout = 5 * time.Second

// wsConn adapts a websocket connection to core.Sender: one text message per
// protocol line, queued on a bounded channel drained by the write pump.
type wsConn struct {
	conn *websocket.Conn
	send chan string

	mu     sync.RWMutex
	closed bool
}

func newWSConn(c *websocket.Conn, sendBuffer int) *wsConn {
	return &wsConn{
		conn: c,
		send: make(chan string, sendBuffer),
	}
}

func (c *wsConn) TrySend(line string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- line:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

func (c *wsConn) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for line := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
			return
		}
	}
}
