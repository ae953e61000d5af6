package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

// InvitationListener writes inbound invitations into the binding store. It
// lives for the whole client session, not for one call screen.
type InvitationListener struct {
	signal   core.SignalChannel
	bindings BindingStore
	notifier core.Notifier
}

func NewInvitationListener(signal core.SignalChannel, bindings BindingStore, notifier core.Notifier) *InvitationListener {
	return &InvitationListener{signal: signal, bindings: bindings, notifier: notifier}
}

// Start subscribes to invitations and returns the unsubscribe func.
func (l *InvitationListener) Start() func() {
	return l.signal.On(domain.EventInterviewInvite, l.onInvite)
}

func (l *InvitationListener) onInvite(data json.RawMessage) {
	var p domain.InvitePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "session.invitation").Msg("bad invitation payload")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "session.invitation").Msg("invitation without room")
		return
	}
	l.bindings.Set(domain.InvitationBinding{
		RoomID:        p.RoomID,
		ApplicationID: p.ApplicationID,
		CompanyID:     p.CompanyID,
		CompanyName:   p.CompanyName,
	})
	log.Info().Str("module", "session.invitation").Str("room", string(p.RoomID)).Str("company", p.CompanyName).Msg("invitation received")
	l.notifier.Success(fmt.Sprintf("Your interview with %s is starting.", companyLabel(p.CompanyName)))
}

func companyLabel(name string) string {
	if name == "" {
		return "the company"
	}
	return name
}

// WaitForBinding blocks until the store holds a room or ctx is done.
func WaitForBinding(ctx context.Context, bindings BindingStore) (domain.InvitationBinding, error) {
	ch := make(chan domain.InvitationBinding, 1)
	cancel := bindings.Subscribe(func(b domain.InvitationBinding) {
		if b.IsZero() {
			return
		}
		select {
		case ch <- b:
		default:
		}
	})
	defer cancel()
	if b := bindings.Get(); !b.IsZero() {
		return b, nil
	}
	select {
	case b := <-ch:
		return b, nil
	case <-ctx.Done():
		return domain.InvitationBinding{}, ctx.Err()
	}
}
