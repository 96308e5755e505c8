package engine

import (
	"slices"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Shadow is the last session state this client synced to. It only drives
// change detection and is replaced whole on every change.
type Shadow struct {
	ChatLength     int
	LastMessage    *domain.Message
	CurrentTurn    string
	Players        domain.Roster
	CharacterStats domain.CharacterStats
}

func newShadow(s *domain.Session) *Shadow {
	sh := &Shadow{
		ChatLength:     len(s.ChatHistory),
		CurrentTurn:    s.CurrentTurn,
		Players:        s.Players.Clone(),
		CharacterStats: s.CharacterStats.Clone(),
	}
	if n := len(s.ChatHistory); n > 0 {
		last := s.ChatHistory[n-1]
		last.Parts = slices.Clone(last.Parts)
		sh.LastMessage = &last
	}
	return sh
}

func (sh *Shadow) clone() Shadow {
	c := *sh
	c.Players = sh.Players.Clone()
	c.CharacterStats = sh.CharacterStats.Clone()
	if sh.LastMessage != nil {
		last := *sh.LastMessage
		last.Parts = slices.Clone(last.Parts)
		c.LastMessage = &last
	}
	return c
}

// differs reports whether s diverged from the shadow in history, turn,
// player set or stats.
func (sh *Shadow) differs(s *domain.Session) bool {
	if sh == nil {
		return true
	}
	if len(s.ChatHistory) != sh.ChatLength {
		return true
	}
	if n := len(s.ChatHistory); n > 0 && (sh.LastMessage == nil || !s.ChatHistory[n-1].Equal(*sh.LastMessage)) {
		return true
	}
	if s.CurrentTurn != sh.CurrentTurn {
		return true
	}
	if !s.Players.SameNames(sh.Players) {
		return true
	}
	return !s.CharacterStats.Equal(sh.CharacterStats)
}
