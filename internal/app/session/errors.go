package session

import "errors"

var (
	ErrMissingRoomIdentifier = errors.New("missing room identifier")
	ErrMissingParticipant    = errors.New("missing participant user id")
	ErrAlreadyMounted        = errors.New("coordinator already mounted")
	ErrParticipantBusy       = errors.New("participant is in another interview")
)

// MediaSessionFault is any failure of the media handle. It is logged and
// turned into a teardown, never returned to the caller.
type MediaSessionFault struct {
	Op  string
	Err error
}

func (e *MediaSessionFault) Error() string {
	return "media session " + e.Op + ": " + e.Err.Error()
}

func (e *MediaSessionFault) Unwrap() error { return e.Err }

func fault(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MediaSessionFault{Op: op, Err: err}
}
