package domain

import (
	"encoding/json"
	"fmt"
)

// Signaling event names. The JSON field casing of each payload is part of
// the wire contract with the web clients and must not be normalised.
const (
	EventRoomJoin           = "room:join"
	EventRoomLeave          = "room:leave"
	EventRoomPeer           = "room:peer"
	EventUserWatch          = "user:watch"
	EventUserLeave          = "user:leave"
	EventUserLeft           = "user:left"
	EventUserInInterview    = "user:in-interview"
	EventUserInterviewGoing = "user:in-interview-going"
	EventStartInterview     = "start-interview"
	EventEndInterview       = "end-interview"
	EventInterviewInvite    = "interview:invite"
	EventInterviewEnd       = "interview:end"
	EventOffer              = "webrtc:offer"
	EventAnswer             = "webrtc:answer"
	EventCandidate          = "webrtc:candidate"
	EventPing               = "ping"
	EventPong               = "pong"
	EventError              = "error"
)

// Envelope is one frame on the signaling channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

type RoomPayload struct {
	RoomID RoomID `json:"roomID"`
	UserID UserID `json:"userId,omitempty"`
}

type WatchPayload struct {
	UserID UserID `json:"userId"`
}

// LeavePayload is emitted by a participant leaving its room.
type LeavePayload struct {
	RoomID RoomID `json:"roomId"`
	UserID UserID `json:"userId"`
}

// LeftPayload is the hub's announcement of a LeavePayload to the room.
type LeftPayload struct {
	RoomID RoomID `json:"roomID"`
	UserID UserID `json:"userId"`
}

// PresencePayload is the repeating heartbeat of a joined participant.
type PresencePayload struct {
	UserID    UserID `json:"userId"`
	CompanyID string `json:"companyId"`
	RoomID    RoomID `json:"roomId"`
}

// PresenceGoingPayload is a heartbeat forwarded to the interested hosts.
type PresenceGoingPayload struct {
	UserID    UserID `json:"userId"`
	CompanyID string `json:"companyId"`
	RoomID    RoomID `json:"roomID"`
}

type StartInterviewPayload struct {
	RoomID        RoomID        `json:"roomID"`
	ApplicationID ApplicationID `json:"applicationId"`
	UserID        UserID        `json:"userId"`
	CompanyName   string        `json:"companyName"`
}

type EndInterviewPayload struct {
	RoomID        RoomID        `json:"roomID"`
	ApplicationID ApplicationID `json:"applicationId"`
	UserID        UserID        `json:"userId"`
	StartTime     string        `json:"startTime"`
}

type InvitePayload struct {
	RoomID        RoomID        `json:"roomID"`
	ApplicationID ApplicationID `json:"applicationId"`
	CompanyID     UserID        `json:"companyId"`
	CompanyName   string        `json:"companyName"`
}

type SDPPayload struct {
	RoomID RoomID `json:"roomID"`
	From   UserID `json:"from,omitempty"`
	SDP    string `json:"sdp"`
}

type CandidatePayload struct {
	RoomID        RoomID  `json:"roomID"`
	From          UserID  `json:"from,omitempty"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
