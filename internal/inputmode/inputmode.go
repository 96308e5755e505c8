// Package inputmode decides whether typed text is a game action for the GM
// or table chat.
package inputmode

import "fmt"

// Mode is where the next line of input goes.
type Mode string

const (
	// Chat is shared with the table only.
	Chat Mode = "chat"
	// Action is sent to the GM.
	Action Mode = "action"
)

// Parse accepts "chat", "action" or the legacy name "prompt".
func Parse(s string) (Mode, error) {
	switch s {
	case "chat":
		return Chat, nil
	case "action", "prompt":
		return Action, nil
	default:
		return "", fmt.Errorf("unknown input mode %q", s)
	}
}

// Manager follows the turn: action on your turn, chat otherwise. A manual
// choice holds until the turn moves; a pinned choice holds until Unpin.
type Manager struct {
	mode   Mode
	manual bool
	pinned bool
}

// NewManager starts in chat mode.
func NewManager() *Manager {
	return &Manager{mode: Chat}
}

func (m *Manager) Mode() Mode { return m.mode }

func (m *Manager) Manual() bool { return m.manual }

func (m *Manager) Pinned() bool { return m.pinned }

// Update recomputes the mode from the turn unless the user chose one.
func (m *Manager) Update(isMyTurn bool) Mode {
	if m.manual || m.pinned {
		return m.mode
	}
	if isMyTurn {
		m.mode = Action
	} else {
		m.mode = Chat
	}
	return m.mode
}

// Set switches the mode. manual marks it as the user's choice.
func (m *Manager) Set(mode Mode, manual bool) {
	m.mode = mode
	if manual {
		m.manual = true
	}
}

// ResetManual drops a manual choice so Update follows the turn again.
func (m *Manager) ResetManual() {
	m.manual = false
}

// Pin keeps the current mode across turn changes.
func (m *Manager) Pin() {
	m.pinned = true
}

// Unpin releases a pin and any manual choice.
func (m *Manager) Unpin() {
	m.pinned = false
	m.manual = false
}

// ShouldSendToAI reports whether input goes to the GM.
func (m *Manager) ShouldSendToAI() bool {
	return m.mode == Action
}
