package domain

import (
	"bytes"
	"slices"

	"github.com/tidwall/gjson"
)

// StatSheet is an ordered stat-name to value map for one character.
// Values are kept as strings ("12/20", "🧙 Wizard").
type StatSheet struct {
	keys   []string
	values map[string]string
}

// NewStatSheet builds a sheet from name/value pairs.
func NewStatSheet(pairs ...string) *StatSheet {
	s := &StatSheet{}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Set(pairs[i], pairs[i+1])
	}
	return s
}

// Set stores value under name, appending name if it is new.
func (s *StatSheet) Set(name, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// Get returns the value stored under name.
func (s *StatSheet) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Keys returns stat names in insertion order.
func (s *StatSheet) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Len returns the number of stats.
func (s *StatSheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Merge overwrites keys present in o and keeps the rest.
func (s *StatSheet) Merge(o *StatSheet) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		s.Set(k, o.values[k])
	}
}

// Clone returns an independent copy.
func (s *StatSheet) Clone() *StatSheet {
	if s == nil {
		return nil
	}
	c := &StatSheet{keys: slices.Clone(s.keys), values: make(map[string]string, len(s.values))}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Equal compares contents, ignoring key order.
func (s *StatSheet) Equal(o *StatSheet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, k := range s.Keys() {
		ov, ok := o.Get(k)
		if !ok || ov != s.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the sheet as an object in insertion order.
func (s *StatSheet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, k := range s.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writePair(&buf, k, s.values[k]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object; numbers and booleans are stringified.
func (s *StatSheet) UnmarshalJSON(b []byte) error {
	*s = StatSheet{}
	res, err := parseObject(b, "stats")
	if err != nil || !res.Exists() {
		return err
	}
	res.ForEach(func(key, value gjson.Result) bool {
		s.Set(key.String(), value.String())
		return true
	})
	return nil
}

// CharacterStats maps a display name to that character's sheet.
type CharacterStats map[string]*StatSheet

// Clone returns a deep copy.
func (c CharacterStats) Clone() CharacterStats {
	if c == nil {
		return nil
	}
	out := make(CharacterStats, len(c))
	for name, sheet := range c {
		out[name] = sheet.Clone()
	}
	return out
}

// Equal is a deep comparison. A character with an empty sheet equals a
// missing one.
func (c CharacterStats) Equal(o CharacterStats) bool {
	for name, sheet := range c {
		if !sheet.Equal(o[name]) {
			return false
		}
	}
	for name, sheet := range o {
		if _, ok := c[name]; !ok && sheet.Len() > 0 {
			return false
		}
	}
	return true
}

// Has reports whether name has at least one recorded stat.
func (c CharacterStats) Has(name string) bool {
	return c[name].Len() > 0
}
