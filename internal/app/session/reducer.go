package session

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseJoining
	PhaseJoined
	PhaseLeaving
	PhaseLeft
	PhaseSuperseded
)

var phaseNames = [...]string{"idle", "joining", "joined", "leaving", "left", "superseded"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

type trigger int

const (
	trigMount trigger = iota
	trigJoined
	trigJoinFailed
	trigEndCall
	trigMediaLeft
	trigRemoteEnd
	trigSuperseded
	trigUnload
	trigUnmount
	trigDelayElapsed
	trigTeardownDone
)

var triggerNames = [...]string{
	"mount", "joined", "join_failed", "end_call", "media_left", "remote_end",
	"superseded", "unload", "unmount", "delay_elapsed", "teardown_done",
}

func (t trigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return "unknown"
}

type action int

const (
	actNone action = iota
	actJoin
	actStartHeartbeat
	actScheduleTeardown
	actTeardown
)

type state struct {
	phase Phase
	// intentional is decided by the first leave trigger and never changes
	// afterwards.
	intentional bool
	// pending is set while a delayed teardown is armed.
	pending bool
}

// reduce is the only place phase changes. It returns actTeardown at most
// once per lifetime because every path to it leaves for PhaseLeaving.
func reduce(s state, t trigger) (state, action) {
	switch s.phase {
	case PhaseIdle:
		switch t {
		case trigMount:
			s.phase = PhaseJoining
			return s, actJoin
		case trigUnmount:
			s.phase = PhaseLeft
			return s, actNone
		}

	case PhaseJoining, PhaseJoined, PhaseSuperseded:
		switch t {
		case trigJoined:
			if s.phase == PhaseJoining {
				s.phase = PhaseJoined
				return s, actStartHeartbeat
			}
		case trigEndCall, trigMediaLeft, trigUnload:
			return leave(s, true), actTeardown
		case trigUnmount, trigJoinFailed:
			return leave(s, false), actTeardown
		case trigRemoteEnd:
			if !s.pending {
				s.pending = true
				s.intentional = false
				return s, actScheduleTeardown
			}
		case trigSuperseded:
			if s.phase == PhaseJoined && !s.pending {
				s.phase = PhaseSuperseded
				s.pending = true
				s.intentional = false
				return s, actScheduleTeardown
			}
		case trigDelayElapsed:
			if s.pending {
				return leave(s, false), actTeardown
			}
		}

	case PhaseLeaving:
		if t == trigTeardownDone {
			s.phase = PhaseLeft
		}
	}
	return s, actNone
}

func leave(s state, intentional bool) state {
	if !s.pending {
		s.intentional = intentional
	}
	s.phase = PhaseLeaving
	return s
}
