package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/app/presence"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T, limiter *RateLimiter) (string, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.New(presence.NewTracker(core.SystemClock, 6*time.Second), repository.NewMemoryRepository(), nil)
	ctl := NewSignalWSController(h, limiter, 32768, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c, core.SessionID(uuid.NewString()), domain.UserID(c.Query("user_id")))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal", h
}

func dial(t *testing.T, url string, user domain.UserID) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, user, time.Minute)
	if err != nil {
		t.Fatalf("dial %s: %v", user, err)
	}
	t.Cleanup(c.Close)
	return c
}

func collect(c *Client, event string) <-chan json.RawMessage {
	ch := make(chan json.RawMessage, 16)
	c.On(event, func(data json.RawMessage) { ch <- data })
	return ch
}

func await(t *testing.T, ch <-chan json.RawMessage, what string) json.RawMessage {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestSignal_RoundTrip(t *testing.T) {
	url, _ := newTestServer(t, nil)
	host := dial(t, url, "c-1")
	guest := dial(t, url, "u-1")

	pong := collect(host, domain.EventPong)
	host.Emit(domain.EventPing, nil)
	await(t, pong, "pong")

	peers := collect(host, domain.EventRoomPeer)
	invites := collect(guest, domain.EventInterviewInvite)
	ends := collect(guest, domain.EventInterviewEnd)

	host.Emit(domain.EventRoomJoin, domain.RoomPayload{RoomID: "room123"})
	// The hub handles frames of one connection in order; a pong proves
	// the join landed before the guest joins.
	host.Emit(domain.EventPing, nil)
	await(t, pong, "second pong")
	guest.Emit(domain.EventRoomJoin, domain.RoomPayload{RoomID: "room123"})

	var peer domain.RoomPayload
	if err := json.Unmarshal(await(t, peers, "room:peer"), &peer); err != nil || peer.UserID != "u-1" {
		t.Fatalf("unexpected room:peer %+v, %v", peer, err)
	}

	host.Emit(domain.EventStartInterview, domain.StartInterviewPayload{RoomID: "room123", UserID: "u-1", CompanyName: "Acme"})
	var inv domain.InvitePayload
	if err := json.Unmarshal(await(t, invites, "interview:invite"), &inv); err != nil || inv.CompanyID != "c-1" || inv.RoomID != "room123" {
		t.Fatalf("unexpected invite %+v, %v", inv, err)
	}

	host.Emit(domain.EventEndInterview, domain.EndInterviewPayload{RoomID: "room123", UserID: "u-1", StartTime: time.Now().UTC().Format(time.RFC3339)})
	var room string
	if err := json.Unmarshal(await(t, ends, "interview:end"), &room); err != nil || room != "room123" {
		t.Fatalf("unexpected interview:end %q, %v", room, err)
	}
}

func TestSignal_CloseFlushesAndAnnounces(t *testing.T) {
	url, _ := newTestServer(t, nil)
	host := dial(t, url, "c-1")
	guest := dial(t, url, "u-1")

	pong := collect(host, domain.EventPong)
	host.Emit(domain.EventRoomJoin, domain.RoomPayload{RoomID: "room123"})
	host.Emit(domain.EventPing, nil)
	await(t, pong, "pong")

	peers := collect(host, domain.EventRoomPeer)
	left := collect(host, domain.EventUserLeft)
	guest.Emit(domain.EventRoomJoin, domain.RoomPayload{RoomID: "room123"})
	await(t, peers, "room:peer")

	guest.Emit(domain.EventUserLeave, domain.LeavePayload{RoomID: "room123", UserID: "u-1"})
	guest.Close()

	var p domain.LeftPayload
	if err := json.Unmarshal(await(t, left, "user:left"), &p); err != nil || p.UserID != "u-1" {
		t.Fatalf("unexpected user:left %+v, %v", p, err)
	}
	select {
	case <-guest.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("guest connection not closed")
	}
}

func TestSignal_RateLimited(t *testing.T) {
	url, _ := newTestServer(t, NewRateLimiter(1, time.Hour))
	c := dial(t, url, "u-1")

	errs := collect(c, domain.EventError)
	pong := collect(c, domain.EventPong)
	c.Emit(domain.EventPing, nil)
	c.Emit(domain.EventPing, nil)

	await(t, pong, "pong")
	var p domain.ErrorPayload
	if err := json.Unmarshal(await(t, errs, "error"), &p); err != nil || p.Error != "rate_limited" {
		t.Fatalf("unexpected error payload %+v, %v", p, err)
	}
}
