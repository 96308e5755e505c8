// Package domain defines the core models shared by the gateway and the client.
package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Role is the author role of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Well-known message authors.
const (
	AuthorSystem = "SYSTEM"
	AuthorGM     = "GM"
)

// Part is one text fragment of a message.
type Part struct {
	Text string `json:"text"`
}

// Message is one entry of a session's chat history.
type Message struct {
	Role   Role   `json:"role"`
	Parts  []Part `json:"parts"`
	Author string `json:"author,omitempty"`
}

// NewMessage builds a single-part message.
func NewMessage(role Role, author, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}, Author: author}
}

// Text joins all parts of the message.
func (m Message) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Equal reports whether two messages carry the same role, author and text.
func (m Message) Equal(o Message) bool {
	return m.Role == o.Role && m.Author == o.Author && slices.Equal(m.Parts, o.Parts)
}

// StatsTemplate selects which stats are shown in the short and detailed views.
type StatsTemplate struct {
	Template string   `json:"template"`
	Short    []string `json:"short,omitempty"`
	Detailed []string `json:"detailed,omitempty"`
}

// Clone returns a deep copy.
func (t *StatsTemplate) Clone() *StatsTemplate {
	if t == nil {
		return nil
	}
	return &StatsTemplate{
		Template: t.Template,
		Short:    slices.Clone(t.Short),
		Detailed: slices.Clone(t.Detailed),
	}
}

// Session is the persisted unit of a game instance.
type Session struct {
	ID             string         `json:"id"`
	GeminiAPIKey   string         `json:"gemini_api_key"`
	Players        Roster         `json:"players"`
	ChatHistory    []Message      `json:"chat_history"`
	CurrentTurn    string         `json:"current_turn"`
	TurnOrder      []string       `json:"turn_order"`
	CharacterStats CharacterStats `json:"character_stats"`
	StatsTemplate  *StatsTemplate `json:"stats_template"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MarshalJSON writes an empty turn as null and empty lists as [].
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	var turn *string
	if s.CurrentTurn != "" {
		turn = &s.CurrentTurn
	}
	if s.ChatHistory == nil {
		s.ChatHistory = []Message{}
	}
	if s.TurnOrder == nil {
		s.TurnOrder = []string{}
	}
	if s.CharacterStats == nil {
		s.CharacterStats = CharacterStats{}
	}
	return json.Marshal(struct {
		alias
		CurrentTurn *string `json:"current_turn"`
	}{alias(s), turn})
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = s.Players.Clone()
	c.ChatHistory = make([]Message, len(s.ChatHistory))
	for i, m := range s.ChatHistory {
		m.Parts = slices.Clone(m.Parts)
		c.ChatHistory[i] = m
	}
	c.TurnOrder = slices.Clone(s.TurnOrder)
	c.CharacterStats = s.CharacterStats.Clone()
	c.StatsTemplate = s.StatsTemplate.Clone()
	return &c
}
