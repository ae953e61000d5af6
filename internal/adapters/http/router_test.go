package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/adapters/signal"
	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/app/presence"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/core/coretest"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/gin-gonic/gin"
)

type routerFixture struct {
	engine *gin.Engine
	hub    *hub.Hub
	clock  *coretest.Clock
	repo   *repository.MemoryRepository
}

func newRouter(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := coretest.NewClock()
	repo := repository.NewMemoryRepository()
	h := hub.New(presence.NewTracker(clock, 6*time.Second), repo, clock)
	cfg := &config.Config{Mode: "test", Secret: "test-secret", StaticPath: t.TempDir()}
	ctl := signal.NewSignalWSController(h, nil, 0, time.Minute)
	return &routerFixture{
		engine: SetupRouter(context.Background(), cfg, h, ctl),
		hub:    h,
		clock:  clock,
		repo:   repo,
	}
}

func (f *routerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	f := newRouter(t)
	if w := f.get(t, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
}

func TestRouter_Presence(t *testing.T) {
	f := newRouter(t)
	f.hub.Presence.Observe("u-1", "room123")

	var resp PresenceResponse
	w := f.get(t, "/api/presence/u-1")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.InInterview || resp.RoomID != "room123" {
		t.Fatalf("unexpected presence %+v", resp)
	}

	f.clock.Advance(7 * time.Second)
	resp = PresenceResponse{}
	w = f.get(t, "/api/presence/u-1")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.InInterview {
		t.Fatalf("stale presence reported: %+v", resp)
	}
}

func TestRouter_Interviews(t *testing.T) {
	f := newRouter(t)
	if w := f.get(t, "/api/interviews/room123"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	_, err := f.repo.StartInterview(context.Background(), repository.StartInterviewInput{
		RoomID: "room123", UserID: "u-1", CompanyID: "c-1", StartedAt: f.clock.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	w := f.get(t, "/api/interviews/room123")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp InterviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != repository.InterviewStatusRunning || resp.UserID != "u-1" {
		t.Fatalf("unexpected interview %+v", resp)
	}
}

func TestRouter_Rooms(t *testing.T) {
	f := newRouter(t)
	var resp RoomsResponse
	w := f.get(t, "/api/rooms")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rooms) != 0 {
		t.Fatalf("expected no rooms, got %+v", resp.Rooms)
	}
}

func TestRouter_SignalRequiresUser(t *testing.T) {
	f := newRouter(t)
	if w := f.get(t, "/api/ws/signal"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user, got %d", w.Code)
	}
}
