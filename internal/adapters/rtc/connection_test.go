package rtc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/core/coretest"
	"github.com/dkeye/Interview/internal/domain"
)

const room = domain.RoomID("room123")

func newConn(t *testing.T, sig *coretest.Signal, initiator bool) *WebRTCConnection {
	t.Helper()
	f := &Factory{Signal: sig, Initiator: initiator}
	ms, err := f.Create("tok-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c := ms.(*WebRTCConnection)
	t.Cleanup(func() { _ = c.Destroy() })
	return c
}

func join(t *testing.T, c *WebRTCConnection, user domain.UserID, camera bool) <-chan struct{} {
	t.Helper()
	joined := make(chan struct{}, 1)
	err := c.Join(context.Background(), core.JoinConfig{
		RoomID:     room,
		UserID:     user,
		Mode:       core.CallModeOneOnOne,
		Camera:     camera,
		Mic:        true,
		OnJoinRoom: func() { joined <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return joined
}

func TestConfiguration(t *testing.T) {
	cfg := Configuration([]string{"stun:stun.example.org:3478", "turn:turn.example.org:3478"}, "secret")
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("servers = %+v", cfg.ICEServers)
	}
	turn := cfg.ICEServers[1]
	if turn.Username != turnUsername || turn.Credential != "secret" {
		t.Fatalf("turn = %+v", turn)
	}

	noToken := Configuration([]string{"turn:turn.example.org:3478"}, "")
	if len(noToken.ICEServers) != 0 {
		t.Fatalf("turn without credential kept: %+v", noToken.ICEServers)
	}
	if def := Configuration(nil, ""); len(def.ICEServers) != 1 {
		t.Fatalf("default = %+v", def.ICEServers)
	}
}

func TestJoinAnnouncesRoom(t *testing.T) {
	sig := coretest.NewSignal()
	c := newConn(t, sig, false)
	joined := join(t, c, "u-1", false)

	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("OnJoinRoom not called")
	}
	emits := sig.Emits(domain.EventRoomJoin)
	if len(emits) != 1 {
		t.Fatalf("room:join emits = %d", len(emits))
	}
	if p := emits[0].Payload.(domain.RoomPayload); p.RoomID != room || p.UserID != "u-1" {
		t.Fatalf("payload = %+v", p)
	}
	if err := c.Join(context.Background(), core.JoinConfig{RoomID: room}); err == nil {
		t.Fatal("second join accepted")
	}
}

func TestOfferAnswerExchange(t *testing.T) {
	hostSig, userSig := coretest.NewSignal(), coretest.NewSignal()
	host := newConn(t, hostSig, true)
	user := newConn(t, userSig, false)
	join(t, host, "c-1", true)
	join(t, user, "u-1", true)

	// a peer in another room and the host itself are ignored
	hostSig.Deliver(domain.EventRoomPeer, domain.RoomPayload{RoomID: "other", UserID: "u-1"})
	hostSig.Deliver(domain.EventRoomPeer, domain.RoomPayload{RoomID: room, UserID: "c-1"})
	if n := len(hostSig.Emits(domain.EventOffer)); n != 0 {
		t.Fatalf("unexpected offers: %d", n)
	}

	// the non-initiator never offers
	userSig.Deliver(domain.EventRoomPeer, domain.RoomPayload{RoomID: room, UserID: "c-1"})
	if n := len(userSig.Emits(domain.EventOffer)); n != 0 {
		t.Fatalf("user offered: %d", n)
	}

	hostSig.Deliver(domain.EventRoomPeer, domain.RoomPayload{RoomID: room, UserID: "u-1"})
	offers := hostSig.Emits(domain.EventOffer)
	if len(offers) != 1 {
		t.Fatalf("offers = %d", len(offers))
	}
	offer := offers[0].Payload.(domain.SDPPayload)
	if offer.RoomID != room || !strings.Contains(offer.SDP, "m=video") || !strings.Contains(offer.SDP, "m=audio") {
		t.Fatalf("offer = %+v", offer)
	}

	offer.From = "c-1"
	userSig.Deliver(domain.EventOffer, offer)
	answers := userSig.Emits(domain.EventAnswer)
	if len(answers) != 1 {
		t.Fatalf("answers = %d", len(answers))
	}
	answer := answers[0].Payload.(domain.SDPPayload)
	answer.From = "u-1"
	hostSig.Deliver(domain.EventAnswer, answer)

	host.mu.Lock()
	defer host.mu.Unlock()
	if !host.remoteSet || host.peer != "u-1" {
		t.Fatalf("host remoteSet=%v peer=%q", host.remoteSet, host.peer)
	}
}

func TestCandidatesBufferedUntilRemoteDescription(t *testing.T) {
	hostSig, userSig := coretest.NewSignal(), coretest.NewSignal()
	host := newConn(t, hostSig, true)
	user := newConn(t, userSig, false)
	join(t, host, "c-1", false)
	join(t, user, "u-1", false)

	mid := "0"
	idx := uint16(0)
	cand := domain.CandidatePayload{
		RoomID:        room,
		Candidate:     "candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	}
	userSig.Deliver(domain.EventCandidate, cand)
	userSig.Deliver(domain.EventCandidate, domain.CandidatePayload{RoomID: "other", Candidate: cand.Candidate})

	user.mu.Lock()
	pending := len(user.pending)
	user.mu.Unlock()
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	hostSig.Deliver(domain.EventRoomPeer, domain.RoomPayload{RoomID: room, UserID: "u-1"})
	userSig.Deliver(domain.EventOffer, hostSig.Emits(domain.EventOffer)[0].Payload)

	user.mu.Lock()
	defer user.mu.Unlock()
	if len(user.pending) != 0 || !user.remoteSet {
		t.Fatalf("pending = %d remoteSet = %v", len(user.pending), user.remoteSet)
	}
}

func TestPeerLeftReported(t *testing.T) {
	sig := coretest.NewSignal()
	c := newConn(t, sig, false)
	left := make(chan domain.UserID, 2)
	err := c.Join(context.Background(), core.JoinConfig{
		RoomID:      room,
		UserID:      "u-1",
		OnUserLeave: func(uid domain.UserID) { left <- uid },
	})
	if err != nil {
		t.Fatal(err)
	}

	sig.Deliver(domain.EventUserLeft, domain.LeftPayload{RoomID: room, UserID: "u-1"})
	sig.Deliver(domain.EventUserLeft, domain.LeftPayload{RoomID: "other", UserID: "c-1"})
	sig.Deliver(domain.EventUserLeft, domain.LeftPayload{RoomID: room, UserID: "c-1"})

	select {
	case uid := <-left:
		if uid != "c-1" {
			t.Fatalf("left = %q", uid)
		}
	case <-time.After(time.Second):
		t.Fatal("OnUserLeave not called")
	}
	select {
	case uid := <-left:
		t.Fatalf("extra leave for %q", uid)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLeaveAndDestroy(t *testing.T) {
	sig := coretest.NewSignal()
	c := newConn(t, sig, true)
	join(t, c, "c-1", false)

	if err := c.Leave(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Leave(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(sig.Emits(domain.EventRoomLeave)); n != 1 {
		t.Fatalf("room:leave emits = %d", n)
	}
	for _, ev := range []string{domain.EventRoomPeer, domain.EventOffer, domain.EventAnswer, domain.EventCandidate, domain.EventUserLeft} {
		if n := sig.Handlers(ev); n != 0 {
			t.Fatalf("%s handlers = %d after leave", ev, n)
		}
	}
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
	if err := c.Join(context.Background(), core.JoinConfig{RoomID: room}); err != ErrClosed {
		t.Fatalf("join after destroy = %v", err)
	}
}
