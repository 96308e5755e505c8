// Package stats keeps per-character stat sheets and the display template.
package stats

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Missing is shown for a configured stat the character does not have.
const Missing = "?"

// DefaultShortCount is the number of stats shown when no template is set.
const DefaultShortCount = 3

// Stat is one displayed name/value pair.
type Stat struct {
	Name  string
	Value string
}

// Applied describes a merge into one character's sheet.
type Applied struct {
	Character string
	Stats     []Stat
	Changed   bool
}

// Registry owns every character's stats for one session.
type Registry struct {
	chars      domain.CharacterStats
	template   *domain.StatsTemplate
	roster     []string
	shortCount int
}

// NewRegistry creates an empty registry. shortCount <= 0 uses the default.
func NewRegistry(shortCount int) *Registry {
	if shortCount <= 0 {
		shortCount = DefaultShortCount
	}
	return &Registry{chars: domain.CharacterStats{}, shortCount: shortCount}
}

// Load replaces all stats and the template from a session snapshot.
func (r *Registry) Load(stats domain.CharacterStats, tpl *domain.StatsTemplate) {
	r.chars = stats.Clone()
	if r.chars == nil {
		r.chars = domain.CharacterStats{}
	}
	r.template = tpl.Clone()
}

// SetRoster records the current display names so stats blocks can be
// matched against players who have no stats yet.
func (r *Registry) SetRoster(names []string) {
	r.roster = slices.Clone(names)
}

// Snapshot returns a copy of all stats.
func (r *Registry) Snapshot() domain.CharacterStats {
	return r.chars.Clone()
}

// Template returns a copy of the active template, or nil.
func (r *Registry) Template() *domain.StatsTemplate {
	return r.template.Clone()
}

// Has reports whether name has any stats.
func (r *Registry) Has(name string) bool {
	return r.chars.Has(name)
}

// Characters returns every character with a sheet, sorted.
func (r *Registry) Characters() []string {
	out := make([]string, 0, len(r.chars))
	for name := range r.chars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a declared name to a known character: exact match first,
// then a known name containing or contained in it, else the name itself.
func (r *Registry) Resolve(declared string) string {
	candidates := r.candidates()
	for _, c := range candidates {
		if c == declared {
			return c
		}
	}
	for _, c := range candidates {
		if strings.Contains(c, declared) || strings.Contains(declared, c) {
			return c
		}
	}
	return declared
}

func (r *Registry) candidates() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	add(r.roster)
	add(r.Characters())
	return out
}

// ApplyCSV merges a GeminiStats block. Rows are grouped by their declared
// character and each group lands on the best-matching known name.
func (r *Registry) ApplyCSV(raw string) ([]Applied, error) {
	rows, err := ParseCSV(raw)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string]*domain.StatSheet)
	for _, row := range rows {
		sheet, ok := groups[row.Character]
		if !ok {
			sheet = &domain.StatSheet{}
			groups[row.Character] = sheet
			order = append(order, row.Character)
		}
		sheet.Set(row.Stat, row.Value)
	}

	out := make([]Applied, 0, len(order))
	for _, declared := range order {
		out = append(out, r.merge(r.Resolve(declared), groups[declared]))
	}
	return out, nil
}

// ApplyStats merges a single sheet for name.
func (r *Registry) ApplyStats(name string, sheet *domain.StatSheet) Applied {
	return r.merge(r.Resolve(name), sheet)
}

func (r *Registry) merge(name string, incoming *domain.StatSheet) Applied {
	existing, ok := r.chars[name]
	if !ok {
		existing = &domain.StatSheet{}
		r.chars[name] = existing
	}
	applied := Applied{Character: name}
	for _, k := range incoming.Keys() {
		v, _ := incoming.Get(k)
		if old, had := existing.Get(k); !had || old != v {
			applied.Changed = true
		}
		applied.Stats = append(applied.Stats, Stat{Name: k, Value: v})
	}
	existing.Merge(incoming)
	return applied
}

// SetTemplate switches the display template. Built-in templates take their
// default lists unless explicit lists are given; "custom" and unknown names
// need at least one explicit list.
func (r *Registry) SetTemplate(name string, short, detailed []string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	tpl, ok := builtinTemplates[name]
	if !ok {
		if len(short) == 0 && len(detailed) == 0 {
			return fmt.Errorf("template %q needs short or detailed stats", name)
		}
		tpl = domain.StatsTemplate{Template: name}
	}
	next := tpl.Clone()
	if len(short) > 0 {
		next.Short = slices.Clone(short)
	}
	if len(detailed) > 0 {
		next.Detailed = slices.Clone(detailed)
	}
	r.template = next
	return nil
}

// ApplyTemplate is SetTemplate for a decoded template payload. It reports
// whether the active template changed.
func (r *Registry) ApplyTemplate(t domain.StatsTemplate) (bool, error) {
	before := r.template.Clone()
	if err := r.SetTemplate(t.Template, t.Short, t.Detailed); err != nil {
		return false, err
	}
	return !sameTemplate(before, r.template), nil
}

// Short returns the compact stats for name. Template stats the character
// lacks show as Missing.
func (r *Registry) Short(name string) []Stat {
	if r.template != nil && len(r.template.Short) > 0 {
		return r.pick(name, r.template.Short)
	}
	keys := r.chars[name].Keys()
	if len(keys) > r.shortCount {
		keys = keys[:r.shortCount]
	}
	return r.pick(name, keys)
}

// Detailed returns the full stats for name.
func (r *Registry) Detailed(name string) []Stat {
	if r.template != nil && len(r.template.Detailed) > 0 {
		return r.pick(name, r.template.Detailed)
	}
	return r.pick(name, r.chars[name].Keys())
}

func (r *Registry) pick(name string, keys []string) []Stat {
	sheet := r.chars[name]
	out := make([]Stat, 0, len(keys))
	for _, k := range keys {
		v, ok := sheet.Get(k)
		if !ok {
			v = Missing
		}
		out = append(out, Stat{Name: k, Value: v})
	}
	return out
}

// Prune drops characters not in keep and returns the removed names.
func (r *Registry) Prune(keep []string) []string {
	var removed []string
	for _, name := range r.Characters() {
		if !slices.Contains(keep, name) {
			delete(r.chars, name)
			removed = append(removed, name)
		}
	}
	return removed
}

func sameTemplate(a, b *domain.StatsTemplate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Template == b.Template && slices.Equal(a.Short, b.Short) && slices.Equal(a.Detailed, b.Detailed)
}
