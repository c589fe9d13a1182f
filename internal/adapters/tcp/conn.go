package tcp

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/core"
)

const writeTimeout = 5 * time.Second

// Conn wraps a net.Conn behind a bounded send channel. The write pump is the
// sole writer to the socket; TrySend never blocks, so a slow consumer costs
// its own lines, never the broadcaster's.
type Conn struct {
	conn net.Conn
	send chan string

	mu     sync.RWMutex
	closed bool
}

func newConn(c net.Conn, sendBuffer int) *Conn {
	return &Conn{
		conn: c,
		send: make(chan string, sendBuffer),
	}
}

func (c *Conn) TrySend(line string) error {
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

// Close stops accepting lines and lets the write pump drain what is already
// queued before the socket closes, so a farewell line still reaches the
// client ahead of FIN.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

func (c *Conn) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for line := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Warn().Err(err).Str("module", "adapters.tcp").Msg("writePump set deadline")
			return
		}
		if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
			log.Warn().Err(err).Str("module", "adapters.tcp").Msg("writePump write error")
			return
		}
	}
}
