package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Interview/internal/app/binding"
	"github.com/dkeye/Interview/internal/core/coretest"
	"github.com/dkeye/Interview/internal/domain"
)

func TestInvitationListener_WritesBinding(t *testing.T) {
	signal := coretest.NewSignal()
	store := binding.NewStore()
	notifier := &coretest.Notifier{}
	off := NewInvitationListener(signal, store, notifier).Start()

	signal.Deliver(domain.EventInterviewInvite, domain.InvitePayload{
		RoomID:        "room123",
		ApplicationID: "app-1",
		CompanyID:     "c-1",
		CompanyName:   "Acme",
	})
	want := domain.InvitationBinding{RoomID: "room123", ApplicationID: "app-1", CompanyID: "c-1", CompanyName: "Acme"}
	if got := store.Get(); got != want {
		t.Fatalf("unexpected binding %+v", got)
	}
	if len(notifier.Toasts) != 1 || notifier.Toasts[0].Msg != "Your interview with Acme is starting." {
		t.Fatalf("unexpected toasts %+v", notifier.Toasts)
	}

	signal.Deliver(domain.EventInterviewInvite, domain.InvitePayload{ApplicationID: "app-2"})
	if got := store.Get(); got != want {
		t.Fatalf("invitation without room must be ignored, got %+v", got)
	}

	off()
	signal.Deliver(domain.EventInterviewInvite, domain.InvitePayload{RoomID: "room-2"})
	if got := store.Get(); got.RoomID != "room123" {
		t.Fatalf("listener still active after off: %+v", got)
	}
}

func TestWaitForBinding(t *testing.T) {
	store := binding.NewStore()
	got := make(chan domain.InvitationBinding, 1)
	go func() {
		b, err := WaitForBinding(context.Background(), store)
		if err != nil {
			t.Errorf("wait: %v", err)
		}
		got <- b
	}()

	deadline := time.After(2 * time.Second)
	for {
		store.Set(domain.InvitationBinding{RoomID: "room123"})
		select {
		case b := <-got:
			if b.RoomID != "room123" {
				t.Fatalf("unexpected binding %+v", b)
			}
			return
		case <-deadline:
			t.Fatalf("binding never observed")
		case <-time.After(10 * time.Millisecond):
			store.Clear()
		}
	}
}

func TestWaitForBinding_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WaitForBinding(ctx, binding.NewStore()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
