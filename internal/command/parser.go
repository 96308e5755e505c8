// Package command extracts ${Name=Value} directives from GM text.
//
// A value runs to the first closing brace. Values that open with '{' are
// read to their matching brace so JSON payloads survive; braces inside
// plain values are not supported.
package command

import (
	"strings"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Command is one raw directive found in a message.
type Command struct {
	Name  string
	Value string
}

// Is reports whether the command has the given name, ignoring case.
func (c Command) Is(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// Parse returns every directive in text, in order of appearance.
// GeminiStats blocks are left to StatsBlocks.
func Parse(text string) []Command {
	var out []Command
	scan(text, func(name, value string, _, _ int) {
		if strings.EqualFold(name, NameGeminiStats) {
			return
		}
		out = append(out, Command{Name: name, Value: value})
	})
	return out
}

// StatsBlocks returns the CSV payload of every GeminiStats directive.
func StatsBlocks(text string) []string {
	var out []string
	scan(text, func(name, value string, _, _ int) {
		if strings.EqualFold(name, NameGeminiStats) {
			out = append(out, value)
		}
	})
	return out
}

// Strip removes every directive from text for display.
func Strip(text string) string {
	var b strings.Builder
	last := 0
	scan(text, func(_, _ string, start, end int) {
		b.WriteString(text[last:start])
		last = end
	})
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return strings.TrimSpace(b.String())
}

// LatestTurn returns the most recent Turn target announced by the model.
func LatestTurn(history []domain.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleModel {
			continue
		}
		cmds := Parse(history[i].Text())
		for j := len(cmds) - 1; j >= 0; j-- {
			if cmds[j].Is(NameTurn) && cmds[j].Value != "" {
				return cmds[j].Value, true
			}
		}
	}
	return "", false
}

func scan(text string, emit func(name, value string, start, end int)) {
	for pos := 0; pos < len(text); {
		start := strings.Index(text[pos:], "${")
		if start < 0 {
			return
		}
		start += pos
		next, name, value, ok := readDirective(text, start+2)
		if !ok {
			pos = start + 2
			continue
		}
		emit(strings.TrimSpace(name), strings.TrimSpace(value), start, next)
		pos = next
	}
}

// readDirective parses "name=value}" starting at i and returns the index
// just past the closing brace.
func readDirective(text string, i int) (next int, name, value string, ok bool) {
	eq := strings.IndexAny(text[i:], "=}$")
	if eq <= 0 || text[i+eq] != '=' {
		return 0, "", "", false
	}
	name = text[i : i+eq]
	if strings.TrimSpace(name) == "" {
		return 0, "", "", false
	}
	v := i + eq + 1

	if body := strings.TrimLeft(text[v:], " \t"); strings.HasPrefix(body, "{") {
		open := len(text) - len(body)
		if end, found := matchBrace(text, open); found {
			rest := end + 1
			for rest < len(text) && (text[rest] == ' ' || text[rest] == '\t') {
				rest++
			}
			if rest < len(text) && text[rest] == '}' {
				return rest + 1, name, text[v : end+1], true
			}
		}
	}

	end := strings.IndexByte(text[v:], '}')
	if end <= 0 {
		return 0, "", "", false
	}
	return v + end + 1, name, text[v : v+end], true
}

// matchBrace finds the brace closing the one at open, skipping string
// literals.
func matchBrace(text string, open int) (int, bool) {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
