package repl

import (
	"strings"
	"testing"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/session"
)

func TestFrameIdempotent(t *testing.T) {
	e := NewEngine(session.New("test", config.Defaults()))
	applyAll(e,
		SubmitEvent{Text: "hello"},
		FragmentEvent{Text: "Hi "},
		FragmentEvent{Text: "there"},
	)

	snap := e.Snapshot()
	first := Frame(snap, nil)
	second := Frame(snap, nil)
	if first != second {
		t.Error("Expected byte-identical frames for the same snapshot")
	}
}

func TestFrameShowsPartialReply(t *testing.T) {
	e := NewEngine(session.New("test", config.Defaults()))
	applyAll(e,
		SubmitEvent{Text: "hello"},
		FragmentEvent{Text: "streaming"},
	)

	frame := Frame(e.Snapshot(), nil)
	if !strings.Contains(frame, "You: hello") {
		t.Errorf("Expected pending user turn in frame:\n%s", frame)
	}
	if !strings.Contains(frame, "Assistant: streaming") {
		t.Errorf("Expected partial reply in frame:\n%s", frame)
	}
}

func TestFrameShowsBanner(t *testing.T) {
	sess := session.New("test", config.Defaults())
	snap := Snapshot{
		State:  StateError,
		Banner: "something broke",
		Turns:  sess.Turns,
	}

	frame := Frame(snap, nil)
	if !strings.Contains(frame, "! something broke") {
		t.Errorf("Expected banner in frame:\n%s", frame)
	}
}

func TestFrameAppliesContentRenderer(t *testing.T) {
	snap := Snapshot{
		State: StateIdle,
		Turns: []session.Turn{
			{Role: session.RoleUser, Content: "hi", Seq: 1, Complete: true},
			{Role: session.RoleAssistant, Content: "hello", Seq: 2, Complete: true},
		},
	}

	upper := func(s string) string { return strings.ToUpper(s) }
	frame := Frame(snap, upper)
	if !strings.Contains(frame, "Assistant: HELLO") {
		t.Errorf("Expected renderer applied to assistant content:\n%s", frame)
	}
	if !strings.Contains(frame, "You: hi") {
		t.Errorf("Expected user content left alone:\n%s", frame)
	}
}

func TestStatusLinePerState(t *testing.T) {
	states := map[State]string{
		StateIdle:             StatusLine(Snapshot{State: StateIdle}),
		StateAwaitingResponse: StatusLine(Snapshot{State: StateAwaitingResponse}),
		StateError:            StatusLine(Snapshot{State: StateError}),
	}
	seen := map[string]bool{}
	for state, line := range states {
		if line == "" {
			t.Errorf("Expected a status line for state %v", state)
		}
		if seen[line] {
			t.Errorf("Expected distinct status lines, %q repeated", line)
		}
		seen[line] = true
	}
}
