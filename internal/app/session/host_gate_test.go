package session

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/core/coretest"
	"github.com/dkeye/Interview/internal/domain"
)

type gateFixture struct {
	signal   *coretest.Signal
	clock    *coretest.Clock
	notifier *coretest.Notifier
	store    *coretest.Store
	gate     *HostGate
}

func newGate(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{
		signal:   coretest.NewSignal(),
		clock:    coretest.NewClock(),
		notifier: &coretest.Notifier{},
		store:    coretest.NewStore(),
	}
	f.gate = NewHostGate(HostConfig{
		RoomID:        "room123",
		ApplicationID: "app-1",
		UserID:        "u-1",
		CompanyName:   "Acme",
	}, f.signal, f.store, f.notifier, f.clock)
	f.gate.Start()
	t.Cleanup(f.gate.Stop)
	return f
}

func (f *gateFixture) seen(user domain.UserID, room domain.RoomID) {
	f.signal.Deliver(domain.EventUserInterviewGoing, domain.PresenceGoingPayload{
		UserID:    user,
		CompanyID: "c-other",
		RoomID:    room,
	})
}

func TestHostConfigFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"complete", "roomId=room123&applicationId=app-1&user_id=u-1", nil},
		{"no room", "applicationId=app-1&user_id=u-1", ErrMissingRoomIdentifier},
		{"no participant", "roomId=room123", ErrMissingParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			cfg, err := HostConfigFromQuery(q, "Acme")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && (cfg.RoomID != "room123" || cfg.UserID != "u-1" || cfg.ApplicationID != "app-1") {
				t.Fatalf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestHostGate_StartWatchesParticipant(t *testing.T) {
	f := newGate(t)
	watches := f.signal.Emits(domain.EventUserWatch)
	if len(watches) != 1 || watches[0].Payload.(domain.WatchPayload).UserID != "u-1" {
		t.Fatalf("unexpected user:watch emits %+v", watches)
	}
	if f.signal.Handlers(domain.EventUserInterviewGoing) != 1 || f.signal.Handlers(domain.EventUserLeft) != 1 {
		t.Fatalf("handlers not registered")
	}
	f.gate.Stop()
	if f.signal.Handlers(domain.EventUserInterviewGoing) != 0 || f.signal.Handlers(domain.EventUserLeft) != 0 {
		t.Fatalf("handlers left after stop")
	}
}

func TestHostGate_AllowEntry(t *testing.T) {
	f := newGate(t)

	if err := f.gate.AllowEntry(); err != nil {
		t.Fatalf("allow entry: %v", err)
	}
	if v, ok := f.store.Get(StartTimeKey("room123")); !ok || v != "2026-01-01T09:00:00Z" {
		t.Fatalf("start time not persisted: %q %v", v, ok)
	}
	starts := f.signal.Emits(domain.EventStartInterview)
	if len(starts) != 1 {
		t.Fatalf("expected one start-interview, got %d", len(starts))
	}
	want := domain.StartInterviewPayload{RoomID: "room123", ApplicationID: "app-1", UserID: "u-1", CompanyName: "Acme"}
	if got := starts[0].Payload.(domain.StartInterviewPayload); got != want {
		t.Fatalf("unexpected payload %+v", got)
	}
	if f.notifier.Count("success") != 1 {
		t.Fatalf("expected a success toast")
	}
}

func TestHostGate_BusyDebounce(t *testing.T) {
	f := newGate(t)

	f.seen("u-1", "room-other")
	if f.gate.CanAdmit() {
		t.Fatalf("participant should be busy")
	}
	if err := f.gate.AllowEntry(); !errors.Is(err, ErrParticipantBusy) {
		t.Fatalf("expected ErrParticipantBusy, got %v", err)
	}
	if len(f.signal.Emits(domain.EventStartInterview)) != 0 {
		t.Fatalf("start-interview emitted while busy")
	}
	if _, ok := f.store.Get(StartTimeKey("room123")); ok {
		t.Fatalf("start time persisted while busy")
	}
	if f.notifier.Count("error") != 1 {
		t.Fatalf("expected an error toast")
	}

	f.clock.Advance(2 * time.Second)
	f.seen("u-1", "room-other")
	f.clock.Advance(2 * time.Second)
	if room, busy := f.gate.Busy(); !busy || room != "room-other" {
		t.Fatalf("re-receipt should restart the window, busy=%v room=%q", busy, room)
	}
	f.clock.Advance(time.Second)
	if !f.gate.CanAdmit() {
		t.Fatalf("window elapsed, participant should be free")
	}
	if err := f.gate.AllowEntry(); err != nil {
		t.Fatalf("allow entry: %v", err)
	}
}

func TestHostGate_IgnoresIrrelevantPresence(t *testing.T) {
	f := newGate(t)
	f.seen("u-1", "room123")
	f.seen("u-2", "room-other")
	if !f.gate.CanAdmit() {
		t.Fatalf("presence in this room or of another user must not block")
	}
	if f.clock.Pending() != 0 {
		t.Fatalf("no busy timer expected")
	}
}

func TestHostGate_StopCancelsBusyTimer(t *testing.T) {
	f := newGate(t)
	f.seen("u-1", "room-other")
	f.gate.Stop()
	if f.clock.Pending() != 0 {
		t.Fatalf("busy timer left after stop")
	}
	f.seen("u-1", "room-other2")
	if room, _ := f.gate.Busy(); room != "room-other" {
		t.Fatalf("presence after stop must be ignored, got %q", room)
	}
}

func TestHostGate_UserLeftToast(t *testing.T) {
	f := newGate(t)
	f.signal.Deliver(domain.EventUserLeft, domain.LeftPayload{RoomID: "room-x", UserID: "u-1"})
	f.signal.Deliver(domain.EventUserLeft, domain.LeftPayload{RoomID: "room123", UserID: "u-1"})
	if f.notifier.Count("info") != 1 {
		t.Fatalf("expected one info toast, got %+v", f.notifier.Toasts)
	}
}

func TestHostGate_Finalize(t *testing.T) {
	f := newGate(t)

	if err := f.gate.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(f.signal.Emits(domain.EventEndInterview)) != 0 {
		t.Fatalf("no admission, no end-interview")
	}

	if err := f.gate.AllowEntry(); err != nil {
		t.Fatalf("allow entry: %v", err)
	}
	f.clock.Advance(30 * time.Minute)
	if err := f.gate.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	ends := f.signal.Emits(domain.EventEndInterview)
	if len(ends) != 1 {
		t.Fatalf("expected one end-interview, got %d", len(ends))
	}
	want := domain.EndInterviewPayload{RoomID: "room123", ApplicationID: "app-1", UserID: "u-1", StartTime: "2026-01-01T09:00:00Z"}
	if got := ends[0].Payload.(domain.EndInterviewPayload); got != want {
		t.Fatalf("unexpected payload %+v", got)
	}
	if _, ok := f.store.Get(StartTimeKey("room123")); ok {
		t.Fatalf("marker not removed")
	}
}
