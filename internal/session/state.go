// Package session manages the dialogue lifecycle from wake phrase to
// spoken answer.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the lifecycle state of a dialogue session.
type State int

const (
	// StateIdle - No interaction in progress.
	StateIdle State = iota
	// StateWakeDetected - Wake phrase matched, speaker identified.
	StateWakeDetected
	// StateAwaitingReference - Greeting sent, waiting for a verse request.
	StateAwaitingReference
	// StateResolving - Verse request received, parsing and lookup running.
	StateResolving
	// StateResponding - Answer resolved, reply delivered. Terminal.
	StateResponding
	// StateTimedOut - Deadline passed with no usable request. Terminal.
	StateTimedOut
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWakeDetected:
		return "WAKE_DETECTED"
	case StateAwaitingReference:
		return "AWAITING_REFERENCE"
	case StateResolving:
		return "RESOLVING"
	case StateResponding:
		return "RESPONDING"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (RESPONDING or TIMED_OUT).
func (s State) IsTerminal() bool {
	return s == StateResponding || s == StateTimedOut
}

// Errors for invalid state transitions.
var (
	ErrSessionExpired    = errors.New("session deadline passed")
	ErrSessionTerminal   = errors.New("session already completed")
	ErrNotAwaiting       = errors.New("session is not awaiting a reference")
	ErrRepromptsExceeded = errors.New("reprompt budget exhausted")
)

// Session tracks one dialogue from wake to answer.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	WAKE_DETECTED → AWAITING_REFERENCE → RESOLVING → RESPONDING
//	                        ▲               │
//	                        └── reprompt ───┘  (bounded by maxReprompts)
//
// Any state may move to TIMED_OUT when the deadline passes. A
// collaborator failure mid-resolve abandons the session entirely; the
// speaker has to wake the service again.
type Session struct {
	mu           sync.RWMutex
	id           string
	speaker      string
	state        State
	deadline     time.Time
	startedAt    time.Time
	reprompts    int
	maxReprompts int
}

// NewSession creates a session in WAKE_DETECTED state.
func NewSession(id, speaker string, timeout time.Duration, maxReprompts int) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		speaker:      speaker,
		state:        StateWakeDetected,
		deadline:     now.Add(timeout),
		startedAt:    now,
		maxReprompts: maxReprompts,
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Speaker returns the identified speaker label.
func (s *Session) Speaker() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speaker
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Age returns how long the session has been alive.
func (s *Session) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt)
}

// Expired reports whether the deadline has passed.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().After(s.deadline)
}

// BeginAwaiting transitions WAKE_DETECTED to AWAITING_REFERENCE after
// the greeting is delivered.
func (s *Session) BeginAwaiting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return ErrSessionTerminal
	}
	s.state = StateAwaitingReference
	return nil
}

// BeginResolving transitions AWAITING_REFERENCE to RESOLVING when a
// verse clip arrives. Rejects expired and mis-ordered requests.
func (s *Session) BeginResolving() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().After(s.deadline) {
		s.state = StateTimedOut
		return ErrSessionExpired
	}
	switch s.state {
	case StateAwaitingReference:
		s.state = StateResolving
		return nil
	case StateResponding, StateTimedOut:
		return ErrSessionTerminal
	default:
		return ErrNotAwaiting
	}
}

// Reprompt returns the session to AWAITING_REFERENCE after an
// unparseable request, consuming one unit of the reprompt budget.
// Fails with ErrRepromptsExceeded when the budget is spent; the
// caller should then abandon the session.
func (s *Session) Reprompt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return ErrSessionTerminal
	}
	if s.reprompts >= s.maxReprompts {
		s.state = StateTimedOut
		return ErrRepromptsExceeded
	}
	s.reprompts++
	s.state = StateAwaitingReference
	return nil
}

// Reprompts returns how many reprompts have been consumed.
func (s *Session) Reprompts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reprompts
}

// Complete transitions to the terminal RESPONDING state. Idempotent.
func (s *Session) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsTerminal() {
		s.state = StateResponding
	}
}

// Timeout transitions to TIMED_OUT.
// Returns true if the session was reaped, false if already terminal.
func (s *Session) Timeout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return false
	}
	s.state = StateTimedOut
	return true
}
