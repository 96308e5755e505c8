package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
)

// Roster maps member ids to display names. Key order from the wire is kept
// so "first occurrence" is well defined.
type Roster struct {
	ids   []string
	names map[string]string
}

// NewRoster builds a roster from id/name pairs.
func NewRoster(pairs ...string) Roster {
	var r Roster
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Set maps id to name, appending id if it is new.
func (r *Roster) Set(id, name string) {
	if r.names == nil {
		r.names = make(map[string]string)
	}
	if _, ok := r.names[id]; !ok {
		r.ids = append(r.ids, id)
	}
	r.names[id] = name
}

// Delete removes id.
func (r *Roster) Delete(id string) {
	if _, ok := r.names[id]; !ok {
		return
	}
	delete(r.names, id)
	r.ids = slices.DeleteFunc(r.ids, func(v string) bool { return v == id })
}

// Name returns the display name for id.
func (r Roster) Name(id string) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// IDs returns member ids in insertion order.
func (r Roster) IDs() []string {
	return slices.Clone(r.ids)
}

// IDsOf returns every id mapped to name.
func (r Roster) IDsOf(name string) []string {
	var out []string
	for _, id := range r.ids {
		if r.names[id] == name {
			out = append(out, id)
		}
	}
	return out
}

// Names returns display names in insertion order, duplicates included.
func (r Roster) Names() []string {
	out := make([]string, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.names[id])
	}
	return out
}

// UniqueNames returns display names in first-seen order without repeats.
func (r Roster) UniqueNames() []string {
	seen := make(map[string]struct{}, len(r.ids))
	out := make([]string, 0, len(r.ids))
	for _, id := range r.ids {
		name := r.names[id]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Contains reports whether any member is displayed as name.
func (r Roster) Contains(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Len returns the number of member ids.
func (r Roster) Len() int {
	return len(r.ids)
}

// Clone returns an independent copy.
func (r Roster) Clone() Roster {
	c := Roster{ids: slices.Clone(r.ids)}
	if r.names != nil {
		c.names = make(map[string]string, len(r.names))
		for k, v := range r.names {
			c.names[k] = v
		}
	}
	return c
}

// SameNames compares the set of display names, ignoring ids and order.
func (r Roster) SameNames(o Roster) bool {
	a, b := r.UniqueNames(), o.UniqueNames()
	if len(a) != len(b) {
		return false
	}
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// MarshalJSON writes members as an object in insertion order.
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, id, r.names[id]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of id to name, keeping key order.
func (r *Roster) UnmarshalJSON(b []byte) error {
	*r = Roster{}
	res, err := parseObject(b, "players")
	if err != nil || !res.Exists() {
		return err
	}
	res.ForEach(func(key, value gjson.Result) bool {
		r.Set(key.String(), value.String())
		return true
	})
	return nil
}

func parseObject(b []byte, what string) (gjson.Result, error) {
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json", what)
	}
	res := gjson.ParseBytes(b)
	if res.Type == gjson.Null {
		return gjson.Result{}, nil
	}
	if !res.IsObject() {
		return gjson.Result{}, fmt.Errorf("%s: expected object, got %s", what, res.Type)
	}
	return res, nil
}

func writePair(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
