// Package repl implements the chat turn lifecycle as a pure state machine.
// The engine consumes events from the terminal and from the response stream
// and emits effects for its runner to execute. It performs no I/O itself,
// which keeps every transition unit-testable without a terminal or network.
package repl

import (
	"strings"

	"github.com/parley-dev/parley/session"
)

// State is the engine's top-level mode.
type State int

const (
	// StateIdle accepts input; no request is outstanding.
	StateIdle State = iota
	// StateAwaitingResponse has one request outstanding. Typing is still
	// accepted into the input buffer but submits are ignored.
	StateAwaitingResponse
	// StateError shows a banner from the last failure. Any input clears it.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "waiting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one input to the engine, from either the terminal or the stream.
type Event interface{ isEvent() }

type (
	// SubmitEvent is a line of user input ready to send.
	SubmitEvent struct{ Text string }
	// FragmentEvent is one incremental piece of the assistant's reply.
	FragmentEvent struct{ Text string }
	// CompletedEvent is the stream's successful terminal event.
	CompletedEvent struct{}
	// FailedEvent is the stream's failure terminal event.
	FailedEvent struct{ Err error }
	// CancelledEvent is the stream's cancelled terminal event.
	CancelledEvent struct{}
	// CancelEvent is the user's request to abort the outstanding turn.
	CancelEvent struct{}
	// ResizeEvent carries new terminal dimensions.
	ResizeEvent struct{ Width, Height int }
	// QuitEvent is the user's request to exit.
	QuitEvent struct{}
	// StorageFailedEvent reports that a persist effect could not complete.
	StorageFailedEvent struct{ Err error }
)

func (SubmitEvent) isEvent()        {}
func (FragmentEvent) isEvent()      {}
func (CompletedEvent) isEvent()     {}
func (FailedEvent) isEvent()        {}
func (CancelledEvent) isEvent()     {}
func (CancelEvent) isEvent()        {}
func (ResizeEvent) isEvent()        {}
func (QuitEvent) isEvent()          {}
func (StorageFailedEvent) isEvent() {}

// Effect is one instruction the engine's runner must execute.
type Effect interface{ isEffect() }

type (
	// StartStreamEffect asks the runner to open a request whose history is
	// the committed turns followed by the new user turn.
	StartStreamEffect struct{ History []session.Turn }
	// CancelStreamEffect asks the runner to cancel the outstanding request.
	CancelStreamEffect struct{}
	// PersistEffect asks the runner to durably append completed turns.
	PersistEffect struct{ Turns []session.Turn }
	// QuitEffect asks the runner to flush and exit.
	QuitEffect struct{}
)

func (StartStreamEffect) isEffect()  {}
func (CancelStreamEffect) isEffect() {}
func (PersistEffect) isEffect()      {}
func (QuitEffect) isEffect()         {}

// Engine drives one conversation. It holds a working copy of the session
// and the in-flight turn; the session's committed turn list is only ever
// extended by its runner executing a PersistEffect.
type Engine struct {
	sess  *session.Session
	state State

	pendingUser     *session.Turn
	fragments       strings.Builder
	cancelRequested bool

	banner        string
	width, height int
}

// NewEngine creates an engine over a restored or fresh session, starting
// in the idle state.
func NewEngine(sess *session.Session) *Engine {
	return &Engine{sess: sess, state: StateIdle}
}

// State returns the current mode.
func (e *Engine) State() State { return e.state }

// Session returns the working session.
func (e *Engine) Session() *session.Session { return e.sess }

// Apply feeds one event through the state machine and returns the effects
// the runner must execute, in order. It never blocks.
func (e *Engine) Apply(ev Event) []Effect {
	switch ev := ev.(type) {
	case ResizeEvent:
		e.width, e.height = ev.Width, ev.Height
		return nil
	case QuitEvent:
		return []Effect{QuitEffect{}}
	case StorageFailedEvent:
		e.banner = "could not save session: " + ev.Err.Error()
		e.state = StateError
		return nil
	}

	switch e.state {
	case StateIdle:
		return e.applyIdle(ev)
	case StateAwaitingResponse:
		return e.applyAwaiting(ev)
	case StateError:
		// Any input clears the banner and behaves as idle.
		e.banner = ""
		e.state = StateIdle
		return e.applyIdle(ev)
	}
	return nil
}

func (e *Engine) applyIdle(ev Event) []Effect {
	sub, ok := ev.(SubmitEvent)
	if !ok || strings.TrimSpace(sub.Text) == "" {
		return nil
	}

	turn := session.NewTurn(session.RoleUser, sub.Text, e.sess.NextSeq())
	e.pendingUser = &turn
	e.fragments.Reset()
	e.cancelRequested = false
	e.state = StateAwaitingResponse

	history := make([]session.Turn, 0, len(e.sess.Turns)+1)
	history = append(history, e.sess.Turns...)
	history = append(history, turn)
	return []Effect{StartStreamEffect{History: history}}
}

func (e *Engine) applyAwaiting(ev Event) []Effect {
	switch ev := ev.(type) {
	case FragmentEvent:
		e.fragments.WriteString(ev.Text)
		return nil
	case CancelEvent:
		e.cancelRequested = true
		return []Effect{CancelStreamEffect{}}
	case CompletedEvent:
		if e.cancelRequested {
			return e.discardTurn()
		}
		user := *e.pendingUser
		assistant := session.NewTurn(session.RoleAssistant, e.fragments.String(), user.Seq+1)
		e.pendingUser = nil
		e.fragments.Reset()
		e.state = StateIdle
		return []Effect{PersistEffect{Turns: []session.Turn{user, assistant}}}
	case FailedEvent:
		if e.cancelRequested {
			return e.discardTurn()
		}
		e.discardTurn()
		e.banner = ev.Err.Error()
		e.state = StateError
		return nil
	case CancelledEvent:
		return e.discardTurn()
	}
	// Submits while a turn is outstanding are ignored.
	return nil
}

// discardTurn drops the pending user turn and any partial reply, leaving
// the committed session untouched.
func (e *Engine) discardTurn() []Effect {
	e.pendingUser = nil
	e.fragments.Reset()
	e.cancelRequested = false
	e.state = StateIdle
	return nil
}

// Snapshot is an immutable view of the engine for rendering.
type Snapshot struct {
	Title   string
	State   State
	Banner  string
	Turns   []session.Turn
	Pending *session.Turn
	Partial string
	Width   int
}

// Snapshot captures the current state. The returned value shares no mutable
// data with the engine, so rendering it later is safe.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Title:   e.sess.Settings.Title,
		State:   e.state,
		Banner:  e.banner,
		Turns:   append([]session.Turn(nil), e.sess.Turns...),
		Partial: e.fragments.String(),
		Width:   e.width,
	}
	if e.pendingUser != nil {
		p := *e.pendingUser
		snap.Pending = &p
	}
	return snap
}
