// Package rtc is the media session handle of a call screen: one pion
// PeerConnection negotiated with the other participant over the signaling
// channel.
package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("media session closed")

const turnUsername = "interview"

// Factory creates one WebRTCConnection per call screen. The initiator
// (the host) sends the offer once a peer shows up in the room.
type Factory struct {
	ICEServers []string
	Signal     core.SignalChannel
	Initiator  bool
}

// Create builds the peer connection. token is used as the TURN credential.
func (f *Factory) Create(token string) (core.MediaSession, error) {
	pc, err := webrtc.NewPeerConnection(Configuration(f.ICEServers, token))
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	return &WebRTCConnection{
		pc:        pc,
		signal:    f.Signal,
		initiator: f.Initiator,
		log:       log.With().Str("module", "webrtc").Logger(),
	}, nil
}

func Configuration(urls []string, token string) webrtc.Configuration {
	if len(urls) == 0 {
		urls = []string{"stun:stun.l.google.com:19302"}
	}
	var stun, turn []string
	for _, u := range urls {
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			turn = append(turn, u)
		} else {
			stun = append(stun, u)
		}
	}
	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 && token != "" {
		servers = append(servers, webrtc.ICEServer{URLs: turn, Username: turnUsername, Credential: token})
	}
	return webrtc.Configuration{ICEServers: servers}
}

type WebRTCConnection struct {
	pc        *webrtc.PeerConnection
	signal    core.SignalChannel
	initiator bool
	log       zerolog.Logger

	mu        sync.Mutex
	cfg       core.JoinConfig
	peer      domain.UserID
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	offs      []func()
	joined    bool
	left      bool
	closed    bool
}

// Join announces the room on the signaling channel and reports OnJoinRoom
// once local media is set up; the peer may arrive later.
func (c *WebRTCConnection) Join(ctx context.Context, cfg core.JoinConfig) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.joined {
		c.mu.Unlock()
		return errors.New("already joined")
	}
	c.joined = true
	c.cfg = cfg
	c.log = c.log.With().Str("room", string(cfg.RoomID)).Str("user", string(cfg.UserID)).Logger()
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.addMedia(cfg); err != nil {
		return err
	}

	c.pc.OnICECandidate(c.onLocalCandidate)
	c.pc.OnConnectionStateChange(c.onConnectionState)
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.log.Info().Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("remote track")
	})

	offs := []func(){
		c.signal.On(domain.EventRoomPeer, c.onPeer),
		c.signal.On(domain.EventOffer, c.onOffer),
		c.signal.On(domain.EventAnswer, c.onAnswer),
		c.signal.On(domain.EventCandidate, c.onRemoteCandidate),
		c.signal.On(domain.EventUserLeft, c.onPeerLeft),
	}
	c.mu.Lock()
	c.offs = offs
	c.mu.Unlock()

	c.signal.Emit(domain.EventRoomJoin, domain.RoomPayload{RoomID: cfg.RoomID, UserID: cfg.UserID})
	c.log.Info().Bool("camera", cfg.Camera).Bool("mic", cfg.Mic).Bool("initiator", c.initiator).Msg("joined media room")
	if cfg.OnJoinRoom != nil {
		go cfg.OnJoinRoom()
	}
	return nil
}

// addMedia sends local tracks for enabled devices and only receives for the
// rest.
func (c *WebRTCConnection) addMedia(cfg core.JoinConfig) error {
	kinds := []struct {
		enabled bool
		kind    webrtc.RTPCodecType
		mime    string
		id      string
	}{
		{cfg.Camera, webrtc.RTPCodecTypeVideo, webrtc.MimeTypeVP8, "video"},
		{cfg.Mic, webrtc.RTPCodecTypeAudio, webrtc.MimeTypeOpus, "audio"},
	}
	for _, k := range kinds {
		if !k.enabled {
			if _, err := c.pc.AddTransceiverFromKind(k.kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				return fmt.Errorf("add %s transceiver: %w", k.id, err)
			}
			continue
		}
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: k.mime}, k.id, string(cfg.UserID))
		if err != nil {
			return fmt.Errorf("new %s track: %w", k.id, err)
		}
		if _, err := c.pc.AddTrack(track); err != nil {
			return fmt.Errorf("add %s track: %w", k.id, err)
		}
	}
	return nil
}

// Leave announces room:leave and stops listening. The peer connection stays
// open until Destroy.
func (c *WebRTCConnection) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.left || !c.joined {
		c.mu.Unlock()
		return nil
	}
	c.left = true
	room := c.cfg.RoomID
	offs := c.offs
	c.offs = nil
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.signal.Emit(domain.EventRoomLeave, domain.RoomPayload{RoomID: room})
	c.log.Info().Msg("left media room")
	return nil
}

func (c *WebRTCConnection) Destroy() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	offs := c.offs
	c.offs = nil
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if err := c.pc.Close(); err != nil {
		c.log.Error().Err(err).Msg("close error")
		return err
	}
	c.log.Info().Msg("closed")
	return nil
}

func (c *WebRTCConnection) onConnectionState(s webrtc.PeerConnectionState) {
	c.log.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
	c.mu.Lock()
	cfg := c.cfg
	peer := c.peer
	closed := c.closed
	c.mu.Unlock()

	switch s {
	case webrtc.PeerConnectionStateFailed:
		if cfg.OnUserLeave != nil && peer != "" {
			go cfg.OnUserLeave(peer)
		}
	case webrtc.PeerConnectionStateClosed:
		// Closed without Destroy: the handle left on its own.
		if !closed && cfg.OnLeaveRoom != nil {
			go cfg.OnLeaveRoom()
		}
	}
}

func (c *WebRTCConnection) room() (domain.RoomID, domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.RoomID, c.cfg.UserID
}

func (c *WebRTCConnection) onPeer(data json.RawMessage) {
	var p domain.RoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	room, self := c.room()
	if p.RoomID != room || p.UserID == "" || p.UserID == self {
		return
	}
	c.mu.Lock()
	c.peer = p.UserID
	restart := c.remoteSet
	c.mu.Unlock()
	c.log.Info().Str("peer", string(p.UserID)).Msg("peer in room")
	if c.initiator {
		c.sendOffer(restart)
	}
}

func (c *WebRTCConnection) sendOffer(iceRestart bool) {
	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := c.pc.CreateOffer(opts)
	if err != nil {
		c.log.Error().Err(err).Msg("create offer")
		return
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		c.log.Error().Err(err).Msg("set local offer")
		return
	}
	room, _ := c.room()
	c.signal.Emit(domain.EventOffer, domain.SDPPayload{RoomID: room, SDP: offer.SDP})
}

func (c *WebRTCConnection) onOffer(data json.RawMessage) {
	var p domain.SDPPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Error().Err(err).Msg("bad offer payload")
		return
	}
	room, _ := c.room()
	if p.RoomID != room {
		return
	}
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}); err != nil {
		c.log.Error().Err(err).Msg("apply offer")
		return
	}
	c.remoteReady(p.From)
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		c.log.Error().Err(err).Msg("create answer")
		return
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		c.log.Error().Err(err).Msg("set local answer")
		return
	}
	c.signal.Emit(domain.EventAnswer, domain.SDPPayload{RoomID: room, SDP: answer.SDP})
}

func (c *WebRTCConnection) onAnswer(data json.RawMessage) {
	var p domain.SDPPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Error().Err(err).Msg("bad answer payload")
		return
	}
	room, _ := c.room()
	if p.RoomID != room {
		return
	}
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		c.log.Error().Err(err).Msg("apply answer")
		return
	}
	c.remoteReady(p.From)
}

// remoteReady flushes candidates that arrived before the remote description.
func (c *WebRTCConnection) remoteReady(from domain.UserID) {
	c.mu.Lock()
	c.remoteSet = true
	if from != "" {
		c.peer = from
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ci := range pending {
		if err := c.pc.AddICECandidate(ci); err != nil {
			c.log.Error().Err(err).Msg("add buffered ice candidate")
		}
	}
}

func (c *WebRTCConnection) onLocalCandidate(cand *webrtc.ICECandidate) {
	if cand == nil {
		return
	}
	ci := cand.ToJSON()
	room, _ := c.room()
	c.signal.Emit(domain.EventCandidate, domain.CandidatePayload{
		RoomID:        room,
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

func (c *WebRTCConnection) onRemoteCandidate(data json.RawMessage) {
	var p domain.CandidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Error().Err(err).Msg("bad candidate payload")
		return
	}
	room, _ := c.room()
	if p.RoomID != room {
		return
	}
	ci := webrtc.ICECandidateInit{Candidate: p.Candidate, SDPMid: p.SDPMid, SDPMLineIndex: p.SDPMLineIndex}

	c.mu.Lock()
	if !c.remoteSet {
		c.pending = append(c.pending, ci)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if err := c.pc.AddICECandidate(ci); err != nil {
		c.log.Error().Err(err).Msg("add ice candidate")
	}
}

func (c *WebRTCConnection) onPeerLeft(data json.RawMessage) {
	var p domain.LeftPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	room, self := c.room()
	if p.RoomID != room || p.UserID == self {
		return
	}
	c.mu.Lock()
	cb := c.cfg.OnUserLeave
	c.mu.Unlock()
	c.log.Info().Str("peer", string(p.UserID)).Msg("peer left")
	if cb != nil {
		go cb(p.UserID)
	}
}
