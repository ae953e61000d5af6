package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBusyWindow = 3 * time.Second

type HostConfig struct {
	RoomID        domain.RoomID
	ApplicationID domain.ApplicationID
	// UserID is the participant waiting to be admitted.
	UserID      domain.UserID
	CompanyName string
	BusyWindow  time.Duration
}

// HostConfigFromQuery reads the company call screen parameters.
func HostConfigFromQuery(q url.Values, companyName string) (HostConfig, error) {
	cfg := HostConfig{
		RoomID:        domain.RoomID(strings.TrimSpace(q.Get(QueryRoomID))),
		ApplicationID: domain.ApplicationID(strings.TrimSpace(q.Get(QueryApplicationID))),
		UserID:        domain.UserID(strings.TrimSpace(q.Get(QueryUserID))),
		CompanyName:   companyName,
	}
	if cfg.RoomID == "" {
		return cfg, ErrMissingRoomIdentifier
	}
	if cfg.UserID == "" {
		return cfg, ErrMissingParticipant
	}
	return cfg, nil
}

// StartTimeKey is the local storage key of the admission wall-clock time.
func StartTimeKey(room domain.RoomID) string {
	return "interviewStartTime:" + string(room)
}

// HostGate is the company side of a call: the participant waits until the
// host admits them, and admission is refused while the participant's
// heartbeats show them in another room. The busy flag is a staleness
// check, not a lock.
type HostGate struct {
	cfg      HostConfig
	signal   core.SignalChannel
	store    core.LocalStore
	notifier core.Notifier
	clock    core.Clock
	log      zerolog.Logger

	mu       sync.Mutex
	busy     bool
	busyRoom domain.RoomID
	timer    core.Timer
	gen      uint64
	offs     []func()
}

func NewHostGate(cfg HostConfig, signal core.SignalChannel, store core.LocalStore, notifier core.Notifier, clock core.Clock) *HostGate {
	if cfg.BusyWindow <= 0 {
		cfg.BusyWindow = DefaultBusyWindow
	}
	if clock == nil {
		clock = core.SystemClock
	}
	return &HostGate{
		cfg:      cfg,
		signal:   signal,
		store:    store,
		notifier: notifier,
		clock:    clock,
		log: log.With().
			Str("module", "session.host").
			Str("room", string(cfg.RoomID)).
			Str("participant", string(cfg.UserID)).
			Logger(),
	}
}

func (g *HostGate) Start() {
	offs := []func(){
		g.signal.On(domain.EventUserInterviewGoing, g.onPresence),
		g.signal.On(domain.EventUserLeft, g.onUserLeft),
	}
	g.mu.Lock()
	g.offs = append(g.offs, offs...)
	g.mu.Unlock()
	g.signal.Emit(domain.EventUserWatch, domain.WatchPayload{UserID: g.cfg.UserID})
	g.log.Info().Msg("watching participant presence")
}

func (g *HostGate) Stop() {
	g.mu.Lock()
	offs := g.offs
	g.offs = nil
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()
	for _, off := range offs {
		off()
	}
}

func (g *HostGate) CanAdmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.busy
}

// Busy returns the other room the participant was last seen in.
func (g *HostGate) Busy() (domain.RoomID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busyRoom, g.busy
}

// AllowEntry admits the participant: the start time is persisted locally and
// start-interview is emitted.
func (g *HostGate) AllowEntry() error {
	if room, busy := g.Busy(); busy {
		g.log.Warn().Str("busy_room", string(room)).Msg("admission refused")
		g.notifier.Error("The candidate is currently in another interview.")
		return ErrParticipantBusy
	}
	started := g.clock.Now().UTC().Format(time.RFC3339)
	if err := g.store.Set(StartTimeKey(g.cfg.RoomID), started); err != nil {
		return fmt.Errorf("persist interview start time: %w", err)
	}
	g.signal.Emit(domain.EventStartInterview, domain.StartInterviewPayload{
		RoomID:        g.cfg.RoomID,
		ApplicationID: g.cfg.ApplicationID,
		UserID:        g.cfg.UserID,
		CompanyName:   g.cfg.CompanyName,
	})
	g.log.Info().Str("start_time", started).Msg("participant admitted")
	g.notifier.Success("The candidate has been invited to join.")
	return nil
}

// Finalize reports the end of an admitted interview. It does nothing when no
// start time was persisted for the room.
func (g *HostGate) Finalize(_ context.Context) error {
	key := StartTimeKey(g.cfg.RoomID)
	started, ok := g.store.Get(key)
	if !ok {
		return nil
	}
	g.signal.Emit(domain.EventEndInterview, domain.EndInterviewPayload{
		RoomID:        g.cfg.RoomID,
		ApplicationID: g.cfg.ApplicationID,
		UserID:        g.cfg.UserID,
		StartTime:     started,
	})
	g.log.Info().Str("start_time", started).Msg("interview end reported")
	if err := g.store.Remove(key); err != nil {
		return fmt.Errorf("remove interview start time: %w", err)
	}
	return nil
}

func (g *HostGate) onPresence(data json.RawMessage) {
	var p domain.PresenceGoingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.log.Warn().Err(err).Msg("bad presence payload")
		return
	}
	if p.UserID != g.cfg.UserID || p.RoomID == g.cfg.RoomID {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busy {
		g.log.Info().Str("busy_room", string(p.RoomID)).Msg("participant busy elsewhere")
	}
	g.busy = true
	g.busyRoom = p.RoomID
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = g.clock.AfterFunc(g.cfg.BusyWindow, func() { g.clearBusy(gen) })
}

func (g *HostGate) clearBusy(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	g.busy = false
	g.busyRoom = ""
	g.timer = nil
	g.log.Info().Msg("participant available again")
}

func (g *HostGate) onUserLeft(data json.RawMessage) {
	var p domain.LeftPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.log.Warn().Err(err).Msg("bad user:left payload")
		return
	}
	if p.UserID != g.cfg.UserID || p.RoomID != g.cfg.RoomID {
		return
	}
	g.log.Info().Msg("participant left the room")
	g.notifier.Info("The candidate left the interview.")
}
