// Package signal carries the signaling events over WebSocket: the server
// controller feeding the hub and the client channel used by call screens.
package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Hub        *hub.Hub
	Limiter    *RateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(h *hub.Hub, limiter *RateLimiter, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	return &SignalWSController{Hub: h, Limiter: limiter, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the connection of user until
// it drops or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, sid core.SessionID, user domain.UserID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(user)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := newWsSignalConn(ws)
	conn.keepAlive(ctl.PingPeriod)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Connect(sid, user, conn, cancel)

	go conn.writePump(ctx, "signal", ctl.PingPeriod)
	go ctl.readPump(ctx, cancel, sid, user, conn)
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, user domain.UserID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Hub.Disconnect(sid)
		if ctl.Limiter != nil && len(ctl.Hub.Registry.ConnsOfUser(user)) == 0 {
			ctl.Limiter.Forget(user)
		}
		cancel()
		c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if ctl.Limiter != nil && !ctl.Limiter.Allow(user) {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited")
			frame, _ := domain.NewEnvelope(domain.EventError, domain.ErrorPayload{Error: "rate_limited"})
			_ = c.TrySend(frame)
			continue
		}
		ctl.Hub.Dispatch(ctx, sid, data)
	}
}
