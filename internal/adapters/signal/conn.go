package signal

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait   = 5 * time.Second
	sendBuffer  = 64
	defaultPing = 54 * time.Second
)

// WsSignalConn is one WebSocket endpoint with a buffered outbox drained by
// writePump. It is used on both ends of the channel.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, sendBuffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. writePump flushes what is queued and then
// closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump owns the socket: it sends queued frames and a ping every
// pingPeriod, and closes the socket when it returns.
func (c *WsSignalConn) writePump(ctx context.Context, module string, pingPeriod time.Duration) {
	if pingPeriod <= 0 {
		pingPeriod = defaultPing
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", module).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", module).Msg("writePump channel closed")
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", module).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", module).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", module).Msg("writePump ping")
				return
			}
		}
	}
}

// keepAlive extends the read deadline on every pong.
func (c *WsSignalConn) keepAlive(pingPeriod time.Duration) {
	if pingPeriod <= 0 {
		pingPeriod = defaultPing
	}
	wait := pingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})
}
