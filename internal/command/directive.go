package command

import (
	"encoding/json"
	"strings"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Directive names as written by the GM.
const (
	NameTurn           = "Turn"
	NameStats          = "Stats"
	NameTemplate       = "Template"
	NameGeminiStats    = "GeminiStats"
	NameGeminiTemplate = "GeminiTemplate"
)

// Directive is the decoded form of a Command. The concrete types are
// TurnDirective, StatsDirective, TemplateDirective and UnknownDirective.
type Directive interface {
	directive()
}

// TurnDirective hands the turn to Target.
type TurnDirective struct {
	Target string
}

// StatsDirective sets stats for a character.
type StatsDirective struct {
	Character string
	Stats     *domain.StatSheet
}

// TemplateDirective switches the stats template. Generated is set when the
// template came from a GeminiTemplate block.
type TemplateDirective struct {
	Template  domain.StatsTemplate
	Generated bool
}

// UnknownDirective is a command nobody handles.
type UnknownDirective struct {
	Name string
}

func (TurnDirective) directive()     {}
func (StatsDirective) directive()    {}
func (TemplateDirective) directive() {}
func (UnknownDirective) directive()  {}

// Decode classifies c. Malformed payloads return a *domain.ParseError.
func (c Command) Decode() (Directive, error) {
	switch strings.ToLower(c.Name) {
	case "turn":
		return TurnDirective{Target: c.Value}, nil
	case "stats":
		return decodeStats(c.Value)
	case "template":
		return decodeTemplate(NameTemplate, c.Value, false)
	case "geminitemplate":
		return decodeTemplate(NameGeminiTemplate, c.Value, true)
	default:
		return UnknownDirective{Name: c.Name}, nil
	}
}

func decodeStats(raw string) (Directive, error) {
	var payload struct {
		Character string            `json:"character"`
		Stats     *domain.StatSheet `json:"stats"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &domain.ParseError{Command: NameStats, Reason: "invalid json", Err: err}
	}
	payload.Character = strings.TrimSpace(payload.Character)
	if payload.Character == "" {
		return nil, &domain.ParseError{Command: NameStats, Reason: "character is required"}
	}
	if payload.Stats.Len() == 0 {
		return nil, &domain.ParseError{Command: NameStats, Reason: "stats are empty"}
	}
	return StatsDirective{Character: payload.Character, Stats: payload.Stats}, nil
}

func decodeTemplate(name, raw string, generated bool) (Directive, error) {
	var t domain.StatsTemplate
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, &domain.ParseError{Command: name, Reason: "invalid json", Err: err}
	}
	t.Template = strings.ToLower(strings.TrimSpace(t.Template))
	if t.Template == "" {
		t.Template = "custom"
	}
	return TemplateDirective{Template: t, Generated: generated}, nil
}
