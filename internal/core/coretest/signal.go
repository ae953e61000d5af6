package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Interview/internal/core"
)

// Emitted is one recorded Emit call.
type Emitted struct {
	Event   string
	Payload any
}

// Signal is an in-memory core.SignalChannel that records emits and lets
// tests deliver inbound events.
type Signal struct {
	mu       sync.Mutex
	emitted  []Emitted
	seq      int
	handlers map[string]map[int]core.Handler
}

func NewSignal() *Signal {
	return &Signal{handlers: make(map[string]map[int]core.Handler)}
}

func (s *Signal) Emit(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted = append(s.emitted, Emitted{Event: event, Payload: payload})
}

func (s *Signal) On(event string, h core.Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]core.Handler)
	}
	s.handlers[event][id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[event], id)
	}
}

// Deliver marshals payload and hands it to every handler of event.
func (s *Signal) Deliver(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	hs := make([]core.Handler, 0, len(s.handlers[event]))
	for _, h := range s.handlers[event] {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(raw)
	}
}

// Handlers is the number of live handlers for event.
func (s *Signal) Handlers(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers[event])
}

// Emits returns the recorded emits of event.
func (s *Signal) Emits(event string) []Emitted {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Emitted
	for _, e := range s.emitted {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Events returns the names of every emit, in order.
func (s *Signal) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.emitted))
	for i, e := range s.emitted {
		out[i] = e.Event
	}
	return out
}
