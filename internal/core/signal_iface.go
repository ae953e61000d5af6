package core

import (
	"encoding/json"
	"errors"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SessionID identifies one signaling connection.
type SessionID string

// Frame is one encoded signaling envelope.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// SignalChannel is the client side of the persistent event channel.
// Emit is fire-and-forget: nothing acknowledges delivery.
type SignalChannel interface {
	Emit(event string, payload any)
	// On registers h for event and returns a func that removes it.
	On(event string, h Handler) (off func())
}
