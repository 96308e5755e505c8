package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Session field names as they appear on the wire.
const (
	FieldID             = "id"
	FieldGeminiAPIKey   = "gemini_api_key"
	FieldPlayers        = "players"
	FieldChatHistory    = "chat_history"
	FieldCurrentTurn    = "current_turn"
	FieldTurnOrder      = "turn_order"
	FieldCharacterStats = "character_stats"
	FieldStatsTemplate  = "stats_template"
	FieldCreatedAt      = "created_at"
)

// SessionPatch is a partial session update. Only the field groups that were
// set are sent; the store merges them shallowly, last writer wins.
type SessionPatch struct {
	fields map[string]json.RawMessage
}

// NewPatch returns an empty patch.
func NewPatch() *SessionPatch {
	return &SessionPatch{fields: make(map[string]json.RawMessage)}
}

func (p *SessionPatch) set(field string, v any) *SessionPatch {
	if p.fields == nil {
		p.fields = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// every settable value is plain data
		panic(fmt.Sprintf("marshal %s: %v", field, err))
	}
	p.fields[field] = raw
	return p
}

func (p *SessionPatch) SetPlayers(r Roster) *SessionPatch {
	return p.set(FieldPlayers, r)
}

func (p *SessionPatch) SetTurnOrder(order []string) *SessionPatch {
	if order == nil {
		order = []string{}
	}
	return p.set(FieldTurnOrder, order)
}

// SetCurrentTurn sets the turn; an empty name is sent as null.
func (p *SessionPatch) SetCurrentTurn(name string) *SessionPatch {
	if name == "" {
		return p.set(FieldCurrentTurn, nil)
	}
	return p.set(FieldCurrentTurn, name)
}

func (p *SessionPatch) SetChatHistory(history []Message) *SessionPatch {
	if history == nil {
		history = []Message{}
	}
	return p.set(FieldChatHistory, history)
}

func (p *SessionPatch) SetCharacterStats(stats CharacterStats) *SessionPatch {
	if stats == nil {
		stats = CharacterStats{}
	}
	return p.set(FieldCharacterStats, stats)
}

func (p *SessionPatch) SetStatsTemplate(t *StatsTemplate) *SessionPatch {
	return p.set(FieldStatsTemplate, t)
}

// Merge copies every field of o into p, overwriting.
func (p *SessionPatch) Merge(o *SessionPatch) *SessionPatch {
	if o == nil {
		return p
	}
	for k, v := range o.fields {
		if p.fields == nil {
			p.fields = make(map[string]json.RawMessage)
		}
		p.fields[k] = v
	}
	return p
}

// Empty reports whether no field was set.
func (p *SessionPatch) Empty() bool {
	return p == nil || len(p.fields) == 0
}

// Has reports whether field was set.
func (p *SessionPatch) Has(field string) bool {
	if p == nil {
		return false
	}
	_, ok := p.fields[field]
	return ok
}

// Fields returns the set field names, sorted.
func (p *SessionPatch) Fields() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.fields))
	for k := range p.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Raw returns the encoded value of field.
func (p *SessionPatch) Raw(field string) json.RawMessage {
	if p == nil {
		return nil
	}
	return slices.Clone(p.fields[field])
}

func (p *SessionPatch) MarshalJSON() ([]byte, error) {
	if p == nil || p.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.fields)
}

func (p *SessionPatch) UnmarshalJSON(b []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	p.fields = fields
	return nil
}

// Apply merges the patch into s. Identity fields and unknown keys are
// rejected.
func (p *SessionPatch) Apply(s *Session) error {
	for _, field := range p.Fields() {
		raw := p.fields[field]
		var target any
		switch field {
		case FieldPlayers:
			target = &s.Players
		case FieldChatHistory:
			target = &s.ChatHistory
		case FieldCurrentTurn:
			s.CurrentTurn = ""
			target = &s.CurrentTurn
		case FieldTurnOrder:
			target = &s.TurnOrder
		case FieldCharacterStats:
			s.CharacterStats = nil
			target = &s.CharacterStats
		case FieldStatsTemplate:
			target = &s.StatsTemplate
		case FieldID, FieldGeminiAPIKey, FieldCreatedAt:
			return fmt.Errorf("field %q is immutable", field)
		default:
			return fmt.Errorf("unknown field %q", field)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("failed to decode %s: %w", field, err)
		}
	}
	return nil
}
