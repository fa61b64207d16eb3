// Package llm adapts provider SDKs to one streaming contract: a request
// yields a handle whose event channel carries zero or more text fragments
// in arrival order, followed by exactly one terminal event (completed,
// failed, or cancelled), after which the channel is closed.
package llm

import (
	"context"
	stderrors "errors"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
)

// EventKind discriminates stream events.
type EventKind int

const (
	KindFragment EventKind = iota
	KindCompleted
	KindFailed
	KindCancelled
)

// Event is one item on a handle's event stream. Text is set for fragments,
// Err for failures.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Request is one exchange with the remote service. History is the full turn
// sequence including the new user turn as its last element.
type Request struct {
	History  []session.Turn
	Settings config.Settings
}

// lastInput returns the text of the newest user turn.
func (r Request) lastInput() string {
	if len(r.History) == 0 {
		return ""
	}
	return r.History[len(r.History)-1].Content
}

// Streamer starts one streaming exchange. Implementations must deliver
// fragments in the order the remote service produced them, without
// coalescing, and must always finish with exactly one terminal event.
type Streamer interface {
	Stream(ctx context.Context, req Request) (*Handle, error)
}

// Handle is one outstanding request. Callers must drain Events until it is
// closed, even after calling Cancel: cancellation is best-effort and a
// fragment may still arrive before the terminal event.
type Handle struct {
	ch     chan Event
	cancel context.CancelFunc
}

func newHandle(parent context.Context) (*Handle, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{ch: make(chan Event, 16), cancel: cancel}, ctx
}

// Events returns the event stream for this request.
func (h *Handle) Events() <-chan Event { return h.ch }

// Cancel requests best-effort early termination. Exactly one terminal event
// is still delivered: Cancelled if cancellation wins the race, otherwise
// whatever outcome was already in flight.
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) fragment(text string) {
	if text == "" {
		return
	}
	h.ch <- Event{Kind: KindFragment, Text: text}
}

// finish emits the terminal event and closes the stream. A nil err is
// completion; a context cancellation maps to Cancelled.
func (h *Handle) finish(ctx context.Context, err error) {
	switch {
	case err == nil:
		h.ch <- Event{Kind: KindCompleted}
	case ctx.Err() != nil || stderrors.Is(err, context.Canceled):
		h.ch <- Event{Kind: KindCancelled}
	default:
		h.ch <- Event{Kind: KindFailed, Err: err}
	}
	close(h.ch)
}

// New constructs the streamer selected by the settings' provider field.
func New(ctx context.Context, settings config.Settings) (Streamer, error) {
	switch settings.Provider {
	case "google", "gemini":
		return NewGeminiStreamer(ctx, settings)
	case "openai":
		return NewOpenAIStreamer(settings)
	case "bedrock":
		return NewBedrockStreamer(ctx, settings)
	case "anthropic":
		return NewAnthropicStreamer(settings)
	case "mock":
		return &MockStreamer{}, nil
	default:
		return nil, errors.New("unknown provider '%s'", settings.Provider)
	}
}
