package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client is the call screen end of the signaling channel. It implements
// core.SignalChannel.
type Client struct {
	conn   *WsSignalConn
	user   domain.UserID
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	seq      int
	handlers map[string]map[int]core.Handler
}

// Dial connects to the hub endpoint as user.
func Dial(ctx context.Context, rawURL string, user domain.UserID, pingPeriod time.Duration) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse signal url: %w", err)
	}
	q := u.Query()
	q.Set("user_id", string(user))
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial signal: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:     newWsSignalConn(ws),
		user:     user,
		cancel:   cancel,
		done:     make(chan struct{}),
		handlers: make(map[string]map[int]core.Handler),
	}
	c.conn.keepAlive(pingPeriod)
	go c.conn.writePump(runCtx, "signal.client", pingPeriod)
	go c.readLoop()
	log.Info().Str("module", "signal.client").Str("user", string(user)).Str("url", u.Host).Msg("signal connected")
	return c, nil
}

// Emit queues one event. Delivery is not acknowledged; a full or closed
// connection is only logged.
func (c *Client) Emit(event string, payload any) {
	frame, err := domain.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.client").Str("event", event).Msg("encode event")
		return
	}
	if err := c.conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal.client").Str("event", event).Msg("event not sent")
	}
}

func (c *Client) On(event string, h core.Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := c.seq
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]core.Handler)
	}
	c.handlers[event][id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Close flushes queued events and closes the connection.
func (c *Client) Close() { c.conn.Close() }

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	defer func() {
		c.cancel()
		c.conn.Close()
		close(c.done)
		log.Info().Str("module", "signal.client").Str("user", string(c.user)).Msg("signal disconnected")
	}()
	for {
		_, data, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("module", "signal.client").Msg("read error")
			}
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("module", "signal.client").Msg("bad frame")
			continue
		}
		c.deliver(env)
	}
}

func (c *Client) deliver(env domain.Envelope) {
	c.mu.RLock()
	hs := make([]core.Handler, 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		hs = append(hs, h)
	}
	c.mu.RUnlock()
	if len(hs) == 0 {
		log.Debug().Str("module", "signal.client").Str("event", env.Event).Msg("unhandled event")
		return
	}
	for _, h := range hs {
		h(env.Data)
	}
}
