// Package engine keeps a client in step with the shared session record.
package engine

import (
	"context"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/stats"
)

// SessionStore is the shared session record.
type SessionStore interface {
	Create(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, patch *domain.SessionPatch) (*domain.Session, error)
}

// Completion produces GM text.
type Completion interface {
	Generate(ctx context.Context, prompt, llmKey string, prior []domain.Message) (string, error)
}

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	NoticeSystem NoticeKind = "system"
	NoticeError  NoticeKind = "error"
)

// Notice is a local message that is not part of the chat history.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Member is one roster line as shown to the player.
type Member struct {
	Name    string
	Color   string
	Current bool
	Self    bool
	Stats   []stats.Stat
}

// View renders the session for the local player.
type View interface {
	// Deliver shows one new chat message.
	Deliver(msg domain.Message)
	// Rerender redraws the whole chat.
	Rerender(history []domain.Message)
	UpdateMembers(members []Member)
	Notify(n Notice)
}

// InputProbe reports whether the player is mid-typing.
type InputProbe interface {
	Composing() bool
}

type idleProbe struct{}

func (idleProbe) Composing() bool { return false }
