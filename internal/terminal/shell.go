package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/inputmode"
	"github.com/DeweyHur/online-trpg/internal/stats"
)

// Game is the part of the session client the shell drives.
type Game interface {
	JoinAs(ctx context.Context, name string) error
	SendAction(ctx context.Context, text string) error
	RemovePlayer(ctx context.Context, name string) error
	Advance(ctx context.Context) error
	SetMode(mode string) (inputmode.Mode, error)
	Pin() error
	Members() []engine.Member
	DetailedStats(name string) []stats.Stat
	Status() engine.Status
	Leave()
}

// Definition describes a single command's metadata.
type Definition struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
}

// Handler executes a command. Returning true ends the shell.
type Handler func(*Context) bool

// Command couples metadata with the executable handler.
type Command struct {
	Definition
	Handler Handler
}

// Context provides the runtime data available to a command handler.
type Context struct {
	Ctx     context.Context
	Shell   *Shell
	Raw     string
	Arg     string
	Input   string
	Command *Command
}

// Shell reads lines from the player. Lines starting with '/' are commands;
// anything else is said by the player's character.
type Shell struct {
	game Game
	view *View

	registry map[string]*Command
	ordered  []*Command
}

// NewShell creates a shell with the built-in commands.
func NewShell(game Game, view *View) *Shell {
	sh := &Shell{game: game, view: view, registry: make(map[string]*Command)}
	sh.registerBuiltins()
	return sh
}

// Define registers a command. It panics on a missing name or a duplicate.
func (sh *Shell) Define(def Definition, handler Handler) *Command {
	if handler == nil {
		panic("terminal: handler must not be nil")
	}
	if strings.TrimSpace(def.Name) == "" {
		panic("terminal: command must have a name")
	}
	cmd := &Command{Definition: def, Handler: handler}

	register := func(name string) {
		key := strings.ToLower(name)
		if _, exists := sh.registry[key]; exists {
			panic(fmt.Sprintf("terminal: duplicate registration for %q", name))
		}
		sh.registry[key] = cmd
	}
	register(def.Name)
	for _, alias := range def.Aliases {
		if strings.TrimSpace(alias) != "" {
			register(alias)
		}
	}

	sh.ordered = append(sh.ordered, cmd)
	sort.SliceStable(sh.ordered, func(i, j int) bool {
		return sh.ordered[i].Name < sh.ordered[j].Name
	})
	return cmd
}

// Commands returns the registered commands sorted by name.
func (sh *Shell) Commands() []*Command {
	out := make([]*Command, len(sh.ordered))
	copy(out, sh.ordered)
	return out
}

// Run reads lines until EOF, ctx is cancelled or a command ends the shell.
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sh.Dispatch(ctx, scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// Dispatch handles one line and reports whether the shell should end.
func (sh *Shell) Dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	sh.view.SetComposing(true)
	defer sh.view.SetComposing(false)

	if !strings.HasPrefix(line, "/") {
		// Failures are already reported through the view.
		_ = sh.game.SendAction(ctx, line)
		return false
	}

	parts := strings.Fields(line)
	cmd, ok := sh.registry[strings.ToLower(strings.TrimPrefix(parts[0], "/"))]
	if !ok {
		sh.errorf("Unknown command. Type '/help'.")
		return false
	}
	return cmd.Handler(&Context{
		Ctx:     ctx,
		Shell:   sh,
		Raw:     line,
		Arg:     strings.TrimSpace(strings.TrimPrefix(line, parts[0])),
		Input:   parts[0],
		Command: cmd,
	})
}

func (sh *Shell) errorf(format string, args ...any) {
	sh.view.Notify(engine.Notice{Kind: engine.NoticeError, Text: fmt.Sprintf(format, args...)})
}

func (sh *Shell) infof(format string, args ...any) {
	sh.view.Notify(engine.Notice{Kind: engine.NoticeSystem, Text: fmt.Sprintf(format, args...)})
}

func (sh *Shell) usage(c *Context) bool {
	sh.errorf("Usage: %s", c.Command.Usage)
	return false
}

func (sh *Shell) resolve(input string) (string, bool) {
	members := sh.game.Members()
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	name, err := ResolveName(input, names)
	if err != nil {
		sh.errorf("%v", err)
		return "", false
	}
	return name, true
}

func (sh *Shell) registerBuiltins() {
	sh.Define(Definition{
		Name:        "name",
		Aliases:     []string{"join"},
		Usage:       "/name <character>",
		Description: "Play as a character, adding it to the game if new.",
	}, func(c *Context) bool {
		if c.Arg == "" {
			return sh.usage(c)
		}
		_ = sh.game.JoinAs(c.Ctx, c.Arg)
		return false
	})

	sh.Define(Definition{
		Name:        "mode",
		Usage:       "/mode chat|action|auto",
		Description: "Switch between talking to the table and acting for the GM.",
	}, func(c *Context) bool {
		if c.Arg == "" {
			return sh.usage(c)
		}
		if mode, err := sh.game.SetMode(strings.ToLower(c.Arg)); err == nil {
			sh.infof("Input mode: %s", mode)
		}
		return false
	})

	sh.Define(Definition{
		Name:        "pin",
		Usage:       "/pin",
		Description: "Keep the current input mode when the turn changes.",
	}, func(c *Context) bool {
		if err := sh.game.Pin(); err == nil {
			sh.infof("Input mode pinned.")
		}
		return false
	})

	sh.Define(Definition{
		Name:        "members",
		Aliases:     []string{"who"},
		Usage:       "/members",
		Description: "List the characters in turn order.",
	}, func(c *Context) bool {
		sh.view.PrintMembers(sh.game.Members(), "Waiting for players...")
		return false
	})

	sh.Define(Definition{
		Name:        "stats",
		Usage:       "/stats <character>",
		Description: "Show a character's full sheet.",
	}, func(c *Context) bool {
		if c.Arg == "" {
			return sh.usage(c)
		}
		name, ok := sh.resolve(c.Arg)
		if !ok {
			return false
		}
		sheet := sh.game.DetailedStats(name)
		if len(sheet) == 0 {
			sh.infof("No stats for %s yet.", name)
			return false
		}
		sh.view.PrintStats(name, sheet)
		return false
	})

	sh.Define(Definition{
		Name:        "kick",
		Usage:       "/kick <character>",
		Description: "Remove a character from the game.",
	}, func(c *Context) bool {
		if c.Arg == "" {
			return sh.usage(c)
		}
		if name, ok := sh.resolve(c.Arg); ok {
			_ = sh.game.RemovePlayer(c.Ctx, name)
		}
		return false
	})

	sh.Define(Definition{
		Name:        "next",
		Usage:       "/next",
		Description: "Pass the turn to the next character.",
	}, func(c *Context) bool {
		_ = sh.game.Advance(c.Ctx)
		return false
	})

	sh.Define(Definition{
		Name:        "status",
		Usage:       "/status",
		Description: "Show the sync loop state.",
	}, func(c *Context) bool {
		st := sh.game.Status()
		text := fmt.Sprintf("%s %s, %d polls (%d in the last minute), %d failed", st.State, st.SessionID, st.Ticks, st.TicksLastMinute, st.Failures)
		if st.LastError != "" {
			text += ", last error: " + st.LastError
		}
		sh.infof("%s", text)
		return false
	})

	sh.Define(Definition{
		Name:        "leave",
		Aliases:     []string{"quit", "exit"},
		Usage:       "/leave",
		Description: "Leave the session.",
	}, func(c *Context) bool {
		sh.game.Leave()
		return true
	})

	sh.Define(Definition{
		Name:        "help",
		Aliases:     []string{"?"},
		Usage:       "/help",
		Description: "List commands.",
	}, func(c *Context) bool {
		rows := pterm.TableData{{"Command", "Description"}}
		for _, cmd := range sh.Commands() {
			rows = append(rows, []string{cmd.Usage, cmd.Description})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		if err != nil {
			sh.errorf("%v", err)
			return false
		}
		fmt.Fprintln(sh.view.out, table)
		return false
	})
}
