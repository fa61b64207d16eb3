package llm

import (
	"context"
	"strings"
)

// MockStreamer echoes the user's input word by word. It exists so the chat
// loop can be exercised without network access or credentials.
type MockStreamer struct {
	// Reply overrides the default echo when non-empty.
	Reply string
	// Block makes the stream produce nothing until it is cancelled.
	Block bool
}

func (m *MockStreamer) Stream(ctx context.Context, req Request) (*Handle, error) {
	h, ctx := newHandle(ctx)
	reply := m.Reply
	if reply == "" {
		reply = "You said: " + req.lastInput()
	}
	if m.Block {
		go func() {
			<-ctx.Done()
			h.finish(ctx, ctx.Err())
		}()
		return h, nil
	}
	go func() {
		words := strings.Fields(reply)
		for i, w := range words {
			select {
			case <-ctx.Done():
				h.finish(ctx, ctx.Err())
				return
			default:
			}
			if i > 0 {
				w = " " + w
			}
			h.fragment(w)
		}
		h.finish(ctx, nil)
	}()
	return h, nil
}
