// Package terminal is the pterm front end of the game client.
package terminal

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"

	"github.com/DeweyHur/online-trpg/internal/command"
	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/stats"
)

var paletteColors = map[string]pterm.Color{
	"red":     pterm.FgLightRed,
	"blue":    pterm.FgLightBlue,
	"green":   pterm.FgLightGreen,
	"yellow":  pterm.FgLightYellow,
	"purple":  pterm.FgMagenta,
	"pink":    pterm.FgLightMagenta,
	"indigo":  pterm.FgBlue,
	"emerald": pterm.FgGreen,
}

func colorFor(name string) pterm.Color {
	if c, ok := paletteColors[name]; ok {
		return c
	}
	return pterm.FgGray
}

// View renders the chat to a terminal. It also reports whether the player
// is composing, which holds the input mode steady across turn changes.
type View struct {
	out io.Writer

	mu      sync.Mutex
	members []engine.Member
	colors  map[string]string

	composing atomic.Bool
}

// NewView writes to out, or stdout when out is nil.
func NewView(out io.Writer) *View {
	if out == nil {
		out = os.Stdout
	}
	return &View{out: out, colors: map[string]string{}}
}

var (
	_ engine.View       = (*View)(nil)
	_ engine.InputProbe = (*View)(nil)
)

// Deliver prints one message.
func (v *View) Deliver(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, v.renderLocked(msg))
}

// Rerender redraws the whole chat.
func (v *View) Rerender(history []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, pterm.DefaultSection.Sprint("Chat"))
	for _, msg := range history {
		fmt.Fprintln(v.out, v.renderLocked(msg))
	}
}

// UpdateMembers refreshes the name colours used by later messages.
func (v *View) UpdateMembers(members []engine.Member) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.members = members
	v.colors = make(map[string]string, len(members))
	for _, m := range members {
		v.colors[m.Name] = m.Color
	}
}

// Notify prints a local notice.
func (v *View) Notify(n engine.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch n.Kind {
	case engine.NoticeError:
		fmt.Fprint(v.out, pterm.Error.Sprintln(n.Text))
	default:
		fmt.Fprint(v.out, pterm.Info.Sprintln(n.Text))
	}
}

// Composing implements engine.InputProbe.
func (v *View) Composing() bool { return v.composing.Load() }

// SetComposing marks the player as mid-input.
func (v *View) SetComposing(on bool) { v.composing.Store(on) }

// PrintMembers prints the roster with short stats.
func (v *View) PrintMembers(members []engine.Member, waiting string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(members) == 0 {
		fmt.Fprint(v.out, pterm.Info.Sprintln(waiting))
		return
	}
	var b strings.Builder
	for _, m := range members {
		marker := "  "
		if m.Current {
			marker = "▶ "
		}
		b.WriteString(marker + colorFor(m.Color).Sprint(m.Name))
		if m.Self {
			b.WriteString(" (you)")
		}
		for _, s := range m.Stats {
			fmt.Fprintf(&b, "  %s %s", s.Name, s.Value)
		}
		b.WriteString("\n")
	}
	fmt.Fprint(v.out, pterm.DefaultBox.WithTitle("Members").Sprint(strings.TrimRight(b.String(), "\n")))
	fmt.Fprintln(v.out)
}

// PrintStats prints every stat of one character.
func (v *View) PrintStats(name string, sheet []stats.Stat) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var b strings.Builder
	for _, s := range sheet {
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Value)
	}
	title := colorFor(v.colors[name]).Sprint(name)
	fmt.Fprint(v.out, pterm.DefaultBox.WithTitle(title).Sprint(strings.TrimRight(b.String(), "\n")))
	fmt.Fprintln(v.out)
}

func (v *View) renderLocked(msg domain.Message) string {
	text := v.highlightLocked(command.Strip(msg.Text()))
	switch {
	case msg.Author == domain.AuthorSystem:
		return pterm.FgYellow.Sprint("[SYSTEM] ") + text
	case msg.Role == domain.RoleModel:
		return pterm.FgLightCyan.Sprint("[GM] ") + text
	default:
		author := msg.Author
		if author == "" {
			author = "?"
		}
		return "[" + colorFor(v.colors[author]).Sprint(author) + "] " + text
	}
}

// highlightLocked colours roster names inside text, longest names first so
// "Sir Aldric" wins over "Aldric".
func (v *View) highlightLocked(text string) string {
	if len(v.colors) == 0 {
		return text
	}
	names := make([]string, 0, len(v.colors))
	for name := range v.colors {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, name, colorFor(v.colors[name]).Sprint(name))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
