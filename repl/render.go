package repl

import (
	"strings"

	"github.com/parley-dev/parley/session"
)

// ContentRenderer transforms assistant content before it is placed in the
// frame, for example markdown formatting. It must be deterministic.
type ContentRenderer func(string) string

// PlainContent is the identity renderer.
func PlainContent(s string) string { return s }

const (
	userLabel      = "You"
	assistantLabel = "Assistant"
	systemLabel    = "System"
)

func roleLabel(role string) string {
	switch role {
	case session.RoleUser:
		return userLabel
	case session.RoleAssistant:
		return assistantLabel
	case session.RoleSystem:
		return systemLabel
	default:
		return role
	}
}

// Frame projects a snapshot into the full transcript text. It is a pure
// function: the same snapshot always yields byte-identical output.
func Frame(snap Snapshot, render ContentRenderer) string {
	if render == nil {
		render = PlainContent
	}

	var b strings.Builder
	if snap.Title != "" {
		b.WriteString(snap.Title)
		b.WriteString("\n\n")
	}

	for _, t := range snap.Turns {
		writeTurn(&b, t.Role, t.Content, render)
	}
	if snap.Pending != nil {
		writeTurn(&b, snap.Pending.Role, snap.Pending.Content, render)
	}

	switch snap.State {
	case StateAwaitingResponse:
		b.WriteString(assistantLabel)
		b.WriteString(": ")
		if snap.Partial != "" {
			b.WriteString(render(snap.Partial))
		}
		b.WriteString("\n")
	case StateError:
		if snap.Banner != "" {
			b.WriteString("! ")
			b.WriteString(snap.Banner)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeTurn(b *strings.Builder, role, content string, render ContentRenderer) {
	b.WriteString(roleLabel(role))
	b.WriteString(": ")
	if role == session.RoleAssistant {
		content = render(content)
	}
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
}

// StatusLine summarizes the snapshot's mode for the frame's footer.
func StatusLine(snap Snapshot) string {
	switch snap.State {
	case StateAwaitingResponse:
		return "waiting for reply... press esc to cancel"
	case StateError:
		return "error. type to continue or /quit to exit"
	default:
		return "enter to send, /help for commands"
	}
}
