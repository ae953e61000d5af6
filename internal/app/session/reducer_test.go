package session

import "testing"

var allTriggers = []trigger{
	trigMount, trigJoined, trigJoinFailed, trigEndCall, trigMediaLeft, trigRemoteEnd,
	trigSuperseded, trigUnload, trigUnmount, trigDelayElapsed, trigTeardownDone,
}

func TestReduce_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  state
		trig  trigger
		want  state
		wantA action
	}{
		{"mount", state{}, trigMount, state{phase: PhaseJoining}, actJoin},
		{"unmount idle", state{}, trigUnmount, state{phase: PhaseLeft}, actNone},
		{"end call idle", state{}, trigEndCall, state{}, actNone},
		{"joined", state{phase: PhaseJoining}, trigJoined, state{phase: PhaseJoined}, actStartHeartbeat},
		{"joined twice", state{phase: PhaseJoined}, trigJoined, state{phase: PhaseJoined}, actNone},
		{"join failed", state{phase: PhaseJoining}, trigJoinFailed, state{phase: PhaseLeaving}, actTeardown},
		{"end call", state{phase: PhaseJoined}, trigEndCall, state{phase: PhaseLeaving, intentional: true}, actTeardown},
		{"end call while joining", state{phase: PhaseJoining}, trigEndCall, state{phase: PhaseLeaving, intentional: true}, actTeardown},
		{"media left", state{phase: PhaseJoined}, trigMediaLeft, state{phase: PhaseLeaving, intentional: true}, actTeardown},
		{"unload", state{phase: PhaseJoined}, trigUnload, state{phase: PhaseLeaving, intentional: true}, actTeardown},
		{"unmount", state{phase: PhaseJoined}, trigUnmount, state{phase: PhaseLeaving}, actTeardown},
		{"remote end", state{phase: PhaseJoined}, trigRemoteEnd, state{phase: PhaseJoined, pending: true}, actScheduleTeardown},
		{"remote end pending", state{phase: PhaseJoined, pending: true}, trigRemoteEnd, state{phase: PhaseJoined, pending: true}, actNone},
		{"superseded", state{phase: PhaseJoined}, trigSuperseded, state{phase: PhaseSuperseded, pending: true}, actScheduleTeardown},
		{"superseded while joining", state{phase: PhaseJoining}, trigSuperseded, state{phase: PhaseJoining}, actNone},
		{"superseded while pending", state{phase: PhaseJoined, pending: true}, trigSuperseded, state{phase: PhaseJoined, pending: true}, actNone},
		{"delay elapsed", state{phase: PhaseSuperseded, pending: true}, trigDelayElapsed, state{phase: PhaseLeaving, pending: true}, actTeardown},
		{"stale delay", state{phase: PhaseJoined}, trigDelayElapsed, state{phase: PhaseJoined}, actNone},
		{"end call pending", state{phase: PhaseJoined, pending: true}, trigEndCall, state{phase: PhaseLeaving, pending: true}, actTeardown},
		{"leaving ignores end call", state{phase: PhaseLeaving}, trigEndCall, state{phase: PhaseLeaving}, actNone},
		{"teardown done", state{phase: PhaseLeaving}, trigTeardownDone, state{phase: PhaseLeft}, actNone},
		{"left is final", state{phase: PhaseLeft}, trigMount, state{phase: PhaseLeft}, actNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, act := reduce(tt.from, tt.trig)
			if got != tt.want || act != tt.wantA {
				t.Fatalf("reduce(%+v, %s) = %+v, %d; want %+v, %d", tt.from, tt.trig, got, act, tt.want, tt.wantA)
			}
		})
	}
}

// Every trigger sequence, however it interleaves, yields at most one
// teardown, and the intentional flag never changes once leaving.
func TestReduce_TeardownAtMostOnce(t *testing.T) {
	const depth = 5
	var walk func(s state, n, teardowns int)
	walk = func(s state, n, teardowns int) {
		if teardowns > 1 {
			t.Fatalf("teardown requested twice, last state %+v", s)
		}
		if n == depth {
			return
		}
		for _, tr := range allTriggers {
			next, act := reduce(s, tr)
			if s.phase == PhaseLeaving || s.phase == PhaseLeft {
				if next.intentional != s.intentional {
					t.Fatalf("%s flipped intentional in %s", tr, s.phase)
				}
			}
			c := teardowns
			if act == actTeardown {
				c++
			}
			walk(next, n+1, c)
		}
	}
	walk(state{}, 0, 0)
}

func TestReduce_FirstLeaveDecidesIntent(t *testing.T) {
	s, _ := reduce(state{phase: PhaseJoined}, trigRemoteEnd)
	s, act := reduce(s, trigEndCall)
	if act != actTeardown || s.intentional {
		t.Fatalf("remote end came first, got %+v", s)
	}

	s, _ = reduce(state{phase: PhaseJoined}, trigEndCall)
	s, _ = reduce(s, trigUnmount)
	if !s.intentional {
		t.Fatalf("end call came first, got %+v", s)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseSuperseded.String() != "superseded" || Phase(42).String() != "unknown" {
		t.Fatalf("unexpected phase names")
	}
	if trigDelayElapsed.String() != "delay_elapsed" {
		t.Fatalf("unexpected trigger name %q", trigDelayElapsed)
	}
}
