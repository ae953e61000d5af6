// Package session drives one call screen from mount to teardown. The
// Coordinator merges three asynchronous sources (local user actions, the
// signaling channel and media handle callbacks) into a single state machine
// whose teardown runs exactly once.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/app/presence"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEndDisplayDelay = 2500 * time.Millisecond
	DefaultLeaveTimeout    = 5 * time.Second
	DefaultUnloadTimeout   = 500 * time.Millisecond

	RouteUserApplications    = "/user/applications"
	RouteCompanyApplications = "/company/applications"
)

// BindingStore is the shared room assignment, see package binding.
type BindingStore interface {
	Get() domain.InvitationBinding
	Set(domain.InvitationBinding)
	ClearIf(room domain.RoomID) bool
	Subscribe(func(domain.InvitationBinding)) func()
}

// Finalizer runs during teardown, after the media handle is destroyed and
// before user:leave is emitted.
type Finalizer interface {
	Finalize(ctx context.Context) error
}

type Config struct {
	User  domain.User
	Role  domain.Role
	Query url.Values
	Token string

	Camera bool
	Mic    bool

	HeartbeatInterval time.Duration
	EndDisplayDelay   time.Duration
	LeaveTimeout      time.Duration
	UnloadTimeout     time.Duration
	ApplicationsRoute string
}

type Deps struct {
	Signal    core.SignalChannel
	Media     core.MediaFactory
	Bindings  BindingStore
	Navigator core.Navigator
	Notifier  core.Notifier
	Clock     core.Clock
}

type Coordinator struct {
	cfg        Config
	deps       Deps
	heartbeat  *presence.Heartbeat
	finalizers []Finalizer
	log        zerolog.Logger

	mu             sync.Mutex
	st             state
	roomID         domain.RoomID
	previousRoomID domain.RoomID
	media          core.MediaSession
	delay          core.Timer
	offs           []func()
	done           chan struct{}
}

func NewCoordinator(cfg Config, deps Deps, finalizers ...Finalizer) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock
	}
	if cfg.EndDisplayDelay <= 0 {
		cfg.EndDisplayDelay = DefaultEndDisplayDelay
	}
	if cfg.LeaveTimeout <= 0 {
		cfg.LeaveTimeout = DefaultLeaveTimeout
	}
	if cfg.UnloadTimeout <= 0 {
		cfg.UnloadTimeout = DefaultUnloadTimeout
	}
	if cfg.ApplicationsRoute == "" {
		cfg.ApplicationsRoute = RouteFor(cfg.Role)
	}
	return &Coordinator{
		cfg:        cfg,
		deps:       deps,
		heartbeat:  presence.NewHeartbeat(deps.Signal, deps.Clock, cfg.HeartbeatInterval),
		finalizers: finalizers,
		log: log.With().
			Str("module", "session.coordinator").
			Str("user", string(cfg.User.ID)).
			Str("role", string(cfg.Role)).
			Logger(),
		done: make(chan struct{}),
	}
}

// RouteFor is the applications list a role lands on after a call.
func RouteFor(role domain.Role) string {
	if role == domain.RoleCompany {
		return RouteCompanyApplications
	}
	return RouteUserApplications
}

// Mount resolves the room and starts joining it. The only error returned is
// ErrMissingRoomIdentifier (or ErrAlreadyMounted); media failures are
// handled internally by tearing down.
func (c *Coordinator) Mount(ctx context.Context) error {
	current := c.deps.Bindings.Get()
	roomID, err := ResolveRoomID(c.cfg.Query, current)
	if err != nil {
		c.log.Error().Err(err).Msg("cannot join call")
		c.deps.Notifier.Error("No interview room was found for this call.")
		return err
	}

	c.mu.Lock()
	if c.st.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.roomID = roomID
	c.previousRoomID = roomID
	prev := c.st
	next, act := reduce(prev, trigMount)
	c.st = next
	c.mu.Unlock()
	c.logTransition(trigMount, prev, next)

	if current.RoomID != roomID {
		c.deps.Bindings.Set(domain.InvitationBinding{
			RoomID:        roomID,
			ApplicationID: domain.ApplicationID(c.cfg.Query.Get(QueryApplicationID)),
		})
	}

	offs := []func(){
		c.deps.Bindings.Subscribe(func(domain.InvitationBinding) { c.checkBinding() }),
		c.deps.Signal.On(domain.EventInterviewEnd, c.onInterviewEnd),
	}
	c.mu.Lock()
	gone := c.st.phase == PhaseLeaving || c.st.phase == PhaseLeft
	if !gone {
		c.offs = append(c.offs, offs...)
	}
	c.mu.Unlock()
	if gone {
		for _, off := range offs {
			off()
		}
		return nil
	}

	c.perform(ctx, act, trigMount)
	return nil
}

// EndCall is the local "end call" button.
func (c *Coordinator) EndCall() { c.dispatch(context.Background(), trigEndCall) }

// Unload is called when the host process is going away. Teardown is
// attempted under UnloadTimeout and may not finish.
func (c *Coordinator) Unload() { c.dispatch(context.Background(), trigUnload) }

// Close unmounts the call screen, tearing down if nothing else did.
func (c *Coordinator) Close() {
	c.dispatch(context.Background(), trigUnmount)
	c.heartbeat.Stop()
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.phase
}

func (c *Coordinator) RoomID() domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Done is closed once the coordinator reaches PhaseLeft.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

func (c *Coordinator) dispatch(ctx context.Context, t trigger) {
	c.mu.Lock()
	prev := c.st
	next, act := reduce(prev, t)
	c.st = next
	c.mu.Unlock()
	c.logTransition(t, prev, next)
	c.perform(ctx, act, t)
}

func (c *Coordinator) logTransition(t trigger, prev, next state) {
	if prev.phase == next.phase && prev.pending == next.pending {
		c.log.Debug().Str("trigger", t.String()).Str("phase", prev.phase.String()).Msg("trigger ignored")
		return
	}
	c.log.Info().
		Str("trigger", t.String()).
		Str("from", prev.phase.String()).
		Str("to", next.phase.String()).
		Bool("intentional", next.intentional).
		Msg("session transition")
	if next.phase == PhaseLeft && prev.phase != PhaseLeft {
		close(c.done)
	}
}

func (c *Coordinator) perform(ctx context.Context, act action, t trigger) {
	switch act {
	case actJoin:
		c.join(ctx)
	case actStartHeartbeat:
		c.startHeartbeat()
	case actScheduleTeardown:
		c.scheduleTeardown(t)
	case actTeardown:
		c.teardown(t)
	case actNone:
	}
}

func (c *Coordinator) join(ctx context.Context) {
	room := c.RoomID()
	var media core.MediaSession
	err := safely(func() error {
		var err error
		media, err = c.deps.Media.Create(c.cfg.Token)
		return err
	})
	if err != nil {
		c.log.Error().Err(fault("create", err)).Str("room", string(room)).Msg("media handle unavailable")
		c.dispatch(ctx, trigJoinFailed)
		return
	}

	c.mu.Lock()
	gone := c.st.phase == PhaseLeaving || c.st.phase == PhaseLeft
	if !gone {
		c.media = media
	}
	c.mu.Unlock()
	if gone {
		c.guard("destroy", func() error { return fault("destroy", media.Destroy()) })
		return
	}

	cfg := core.JoinConfig{
		RoomID:      room,
		UserID:      c.cfg.User.ID,
		UserName:    c.cfg.User.Username,
		Mode:        core.CallModeOneOnOne,
		Camera:      c.cfg.Camera,
		Mic:         c.cfg.Mic,
		OnJoinRoom:  func() { c.dispatch(context.Background(), trigJoined) },
		OnLeaveRoom: func() { c.dispatch(context.Background(), trigMediaLeft) },
		OnUserLeave: c.onUserLeave,
	}
	c.log.Info().Str("room", string(room)).Msg("joining media room")
	if err := safely(func() error { return media.Join(ctx, cfg) }); err != nil {
		c.log.Error().Err(fault("join", err)).Str("room", string(room)).Msg("media join failed")
		c.dispatch(ctx, trigJoinFailed)
	}
}

func (c *Coordinator) startHeartbeat() {
	room := c.RoomID()
	company := string(room)
	if b := c.deps.Bindings.Get(); b.RoomID == room && b.CompanyID != "" {
		company = string(b.CompanyID)
	}
	c.heartbeat.Start(domain.PresencePayload{
		UserID:    c.cfg.User.ID,
		CompanyID: company,
		RoomID:    room,
	}, c.checkBinding)
	// The binding may have moved while the join was in flight.
	c.checkBinding()
}

// checkBinding compares the shared binding with the room captured at mount.
// Anything else writing the store (a new invitation, a clear) supersedes
// this session.
func (c *Coordinator) checkBinding() {
	b := c.deps.Bindings.Get()
	c.mu.Lock()
	drift := c.st.phase == PhaseJoined && b.RoomID != c.previousRoomID
	prevRoom := c.previousRoomID
	c.mu.Unlock()
	if !drift {
		return
	}
	c.log.Warn().Str("room", string(prevRoom)).Str("bound_room", string(b.RoomID)).Msg("room superseded")
	c.dispatch(context.Background(), trigSuperseded)
}

func (c *Coordinator) onInterviewEnd(data json.RawMessage) {
	var room domain.RoomID
	if err := json.Unmarshal(data, &room); err != nil {
		c.log.Warn().Err(err).Msg("bad interview:end payload")
		return
	}
	if room != c.RoomID() {
		c.log.Debug().Str("ended_room", string(room)).Msg("interview:end for another room")
		return
	}
	c.dispatch(context.Background(), trigRemoteEnd)
}

func (c *Coordinator) onUserLeave(uid domain.UserID) {
	c.log.Info().Str("peer", string(uid)).Msg("remote participant left media room")
	c.deps.Notifier.Info("The other participant left the call.")
}

func (c *Coordinator) scheduleTeardown(t trigger) {
	if t == trigSuperseded {
		c.deps.Notifier.Info("This interview was moved to another room. Ending the call.")
	} else {
		c.deps.Notifier.Success("The interview has ended.")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.st.pending || c.st.phase == PhaseLeaving || c.st.phase == PhaseLeft {
		return
	}
	c.delay = c.deps.Clock.AfterFunc(c.cfg.EndDisplayDelay, func() {
		c.dispatch(context.Background(), trigDelayElapsed)
	})
}

// teardown is reached once per lifetime. Each step is guarded so a failing
// media handle or channel cannot keep the user on the call screen.
func (c *Coordinator) teardown(t trigger) {
	c.mu.Lock()
	if c.delay != nil {
		c.delay.Stop()
		c.delay = nil
	}
	media := c.media
	c.media = nil
	offs := c.offs
	c.offs = nil
	intentional := c.st.intentional
	room := c.roomID
	c.mu.Unlock()

	for _, off := range offs {
		c.guard("unsubscribe", func() error { off(); return nil })
	}
	c.heartbeat.Stop()

	timeout := c.cfg.LeaveTimeout
	if t == trigUnload {
		timeout = c.cfg.UnloadTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if media != nil {
		if l, ok := media.(core.RoomLeaver); ok {
			c.guard("leave", func() error { return fault("leave", l.Leave(ctx)) })
		}
		c.guard("destroy", func() error { return fault("destroy", media.Destroy()) })
	}
	for _, f := range c.finalizers {
		c.guard("finalize", func() error { return f.Finalize(ctx) })
	}
	c.guard("emit user:leave", func() error {
		c.deps.Signal.Emit(domain.EventUserLeave, domain.LeavePayload{RoomID: room, UserID: c.cfg.User.ID})
		return nil
	})
	if !intentional {
		c.guard("clear binding", func() error { c.deps.Bindings.ClearIf(room); return nil })
	}
	c.guard("navigate", func() error { c.deps.Navigator.Navigate(c.cfg.ApplicationsRoute); return nil })

	c.log.Info().Str("room", string(room)).Str("trigger", t.String()).Bool("intentional", intentional).Msg("session torn down")
	c.dispatch(context.Background(), trigTeardownDone)
}

func (c *Coordinator) guard(op string, fn func() error) {
	if err := safely(fn); err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("teardown step failed")
	}
}

// safely turns a panic in fn into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
