// Package session persists conversation history. Each session is one JSON
// file under a sessions directory, holding the ordered turn history and a
// snapshot of the settings the conversation was created with.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/parley-dev/parley/config"
)

// Roles a turn can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a conversation. Seq is strictly increasing and
// gapless within a session. Complete is false only while an assistant reply
// is still streaming; a turn is never persisted incomplete.
type Turn struct {
	ID       string `json:"id"`
	Seq      int    `json:"seq"`
	Role     string `json:"role"`
	Content  string `json:"content"`
	Complete bool   `json:"complete"`
}

// NewTurn creates a completed turn with a fresh message ID. The sequence
// number is assigned by the caller, which knows the session it belongs to.
func NewTurn(role, content string, seq int) Turn {
	return Turn{
		ID:       "msg-" + uuid.NewString(),
		Seq:      seq,
		Role:     role,
		Content:  content,
		Complete: true,
	}
}

// Session is one persisted conversation.
type Session struct {
	Name         string          `json:"name"`
	Settings     config.Settings `json:"settings"`
	Turns        []Turn          `json:"turns"`
	CreatedAt    int64           `json:"created_at"`
	LastAccessed int64           `json:"last_accessed"`
}

// New creates an empty in-memory session; nothing touches disk until the
// store saves it.
func New(name string, settings config.Settings) *Session {
	now := time.Now().Unix()
	return &Session{
		Name:         name,
		Settings:     settings,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// LastSeq returns the sequence number of the most recent turn, or 0 for an
// empty session.
func (s *Session) LastSeq() int {
	if len(s.Turns) == 0 {
		return 0
	}
	return s.Turns[len(s.Turns)-1].Seq
}

// NextSeq returns the sequence number the next turn must carry.
func (s *Session) NextSeq() int { return s.LastSeq() + 1 }

// Touch refreshes the last-accessed timestamp.
func (s *Session) Touch() { s.LastAccessed = time.Now().Unix() }
