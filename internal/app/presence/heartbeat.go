package presence

import (
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = 2 * time.Second

// Heartbeat announces "still in room" on the signaling channel while a
// participant is joined. At most one interval is active at a time.
type Heartbeat struct {
	signal   core.SignalChannel
	clock    core.Clock
	interval time.Duration

	mu    sync.Mutex
	timer core.Timer
	gen   uint64
}

func NewHeartbeat(signal core.SignalChannel, clock core.Clock, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Heartbeat{signal: signal, clock: clock, interval: interval}
}

// Start emits p every interval and then calls onTick, if set. A running
// interval is cleared first.
func (h *Heartbeat) Start(p domain.PresencePayload, onTick func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		log.Debug().Str("module", "presence.heartbeat").Str("room", string(p.RoomID)).Msg("restarting heartbeat")
	}
	h.gen++
	gen := h.gen
	h.timer = h.clock.Every(h.interval, func() { h.tick(gen, p, onTick) })
	log.Info().Str("module", "presence.heartbeat").Str("room", string(p.RoomID)).Str("user", string(p.UserID)).Dur("interval", h.interval).Msg("heartbeat started")
}

// Stop is safe to call when not running.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer == nil {
		return
	}
	h.timer.Stop()
	h.timer = nil
	h.gen++
	log.Info().Str("module", "presence.heartbeat").Msg("heartbeat stopped")
}

func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timer != nil
}

func (h *Heartbeat) tick(gen uint64, p domain.PresencePayload, onTick func()) {
	h.mu.Lock()
	live := gen == h.gen && h.timer != nil
	h.mu.Unlock()
	// A tick already in flight when Stop or a restart ran.
	if !live {
		return
	}
	h.signal.Emit(domain.EventUserInInterview, p)
	if onTick != nil {
		onTick()
	}
}
