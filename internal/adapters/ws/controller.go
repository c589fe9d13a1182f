// Package ws serves the same line protocol as the TCP adapter over
// websocket: one text message in either direction carries one line.
package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/core"
	"github.com/parlorchat/parlor/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades chat websocket connections and binds them to protocol
// sessions.
type Controller struct {
	registry   *core.Registry
	sendBuffer int
	readLimit  int64
}

func NewController(registry *core.Registry, sendBuffer int, readLimit int64) *Controller {
	return &Controller{
		registry:   registry,
		sendBuffer: sendBuffer,
		readLimit:  readLimit,
	}
}

// HandleChat is the gin handler for the chat endpoint. The client token set
// by the router middleware becomes the session ID.
func (ctl *Controller) HandleChat(c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("new WS connection")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	conn.SetReadLimit(ctl.readLimit)

	wc := newWSConn(conn, ctl.sendBuffer)
	go wc.writePump()

	sess := protocol.NewSession(sid, ctl.registry, wc)
	sess.Greet()

	go ctl.readPump(sess, wc)
}

func (ctl *Controller) readPump(sess *protocol.Session, wc *wsConn) {
	defer func() {
		sess.Leave()
		wc.Close()
		log.Info().Str("module", "adapters.ws").Str("sid", string(sess.ID())).Msg("WS connection closed")
	}()

	for {
		msgType, data, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "adapters.ws").
					Str("sid", string(sess.ID())).Msg("readPump read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		sess.HandleLine(string(data))
	}
}
