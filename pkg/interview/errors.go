package interview

import "errors"

// Protocol errors reported to callers. The engine itself stays healthy when
// these occur; they are fatal only to the call that triggered them. Callers
// match with errors.Is to map them onto transport responses.
var (
	// ErrSessionNotFound means no checkpoint exists for the session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotSuspended means the session exists but is not waiting at the
	// human input stage, so there is nothing to resume. Re-submitting an
	// already-consumed answer lands here.
	ErrNotSuspended = errors.New("session is not awaiting input")

	// ErrSessionComplete means the interview already finished.
	ErrSessionComplete = errors.New("session is already complete")

	// ErrSessionBusy means another call is currently driving this session.
	ErrSessionBusy = errors.New("session is processing another request")

	// ErrInvalidTransition means a routing function chose a successor not
	// present in the canonical transition table.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrCorruptCheckpoint means the stored state for a session no longer
	// deserializes. Unrecoverable for that session; others are unaffected.
	ErrCorruptCheckpoint = errors.New("session checkpoint is corrupt")
)
