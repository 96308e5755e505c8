// Package prompt renders the text sent to the GM and the table's system
// messages in the session language.
package prompt

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	KeyTurn       = "prompt.turn"
	KeyChat       = "prompt.chat"
	KeyGameSetup  = "prompt.game_setup"
	KeyBatchStats = "prompt.batch_stats"
	KeyJoin       = "system.join"
	KeyLeave      = "system.leave"
	KeyWaiting    = "label.waiting"
	KeyNoPlayers  = "label.no_players"
)

var supported = []language.Tag{language.English, language.Korean}

var matcher = language.NewMatcher(supported)

// Supported returns the catalog languages.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Catalog prints prompts for one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for lang; English by default.
func New(lang string) *Catalog {
	tag := language.English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, idx, _ := matcher.Match(parsed)
			tag = supported[idx]
		}
	}
	return &Catalog{tag: tag, printer: message.NewPrinter(tag)}
}

func (c *Catalog) Tag() language.Tag { return c.tag }

// Turn asks the GM to resolve the current player's action.
func (c *Catalog) Turn(players []string, current string) string {
	return c.printer.Sprintf(KeyTurn, c.playerList(players), c.orWaiting(current))
}

// Chat tells the GM the input is table talk and must not advance the game.
func (c *Catalog) Chat(players []string, current, self string) string {
	return c.printer.Sprintf(KeyChat, c.playerList(players), c.orWaiting(current), self)
}

// GameSetup opens a new session around the world description.
func (c *Catalog) GameSetup(world string) string {
	return c.printer.Sprintf(KeyGameSetup, strings.TrimSpace(world))
}

// BatchStats asks for representative stats for several characters.
func (c *Catalog) BatchStats(names []string) string {
	return c.printer.Sprintf(KeyBatchStats, strings.Join(names, ", "))
}

func (c *Catalog) Join(name string) string {
	return c.printer.Sprintf(KeyJoin, name)
}

func (c *Catalog) Leave(name string) string {
	return c.printer.Sprintf(KeyLeave, name)
}

func (c *Catalog) Waiting() string {
	return c.printer.Sprintf(KeyWaiting)
}

func (c *Catalog) NoPlayers() string {
	return c.printer.Sprintf(KeyNoPlayers)
}

func (c *Catalog) playerList(players []string) string {
	if len(players) == 0 {
		return c.NoPlayers()
	}
	return strings.Join(players, ", ")
}

func (c *Catalog) orWaiting(name string) string {
	if name == "" {
		return c.Waiting()
	}
	return name
}
