// Package turn tracks who is playing and whose action the GM expects next.
package turn

import (
	"log/slog"
	"slices"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Ledger owns the roster, the turn order and the current turn. The current
// turn is always empty or a member of the turn order.
type Ledger struct {
	players  domain.Roster
	order    []string
	current  string
	identity string
	logger   *slog.Logger
}

// NewLedger returns an empty ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Initialize replaces roster, order and turn from a session snapshot.
func (l *Ledger) Initialize(s *domain.Session) {
	l.players = s.Players.Clone()
	l.order = slices.Clone(s.TurnOrder)
	l.current = s.CurrentTurn
	l.check()
}

// SetIdentity sets the local player's display name.
func (l *Ledger) SetIdentity(name string) {
	l.identity = name
}

// Identity returns the local player's display name.
func (l *Ledger) Identity() string {
	return l.identity
}

// IsMyTurn reports whether the local player holds the turn.
func (l *Ledger) IsMyTurn() bool {
	return l.identity != "" && l.identity == l.current
}

// Current returns the current turn, or "".
func (l *Ledger) Current() string {
	return l.current
}

// Order returns the turn order.
func (l *Ledger) Order() []string {
	return slices.Clone(l.order)
}

// Players returns a copy of the roster.
func (l *Ledger) Players() domain.Roster {
	return l.players.Clone()
}

// Has reports whether name is on the roster.
func (l *Ledger) Has(name string) bool {
	return l.players.Contains(name)
}

// ApplyTurn hands the turn to target if target is on the roster.
func (l *Ledger) ApplyTurn(target string) bool {
	if !l.players.Contains(target) {
		l.logger.Warn("turn command rejected", "error", &domain.MembershipError{Name: target})
		return false
	}
	if !slices.Contains(l.order, target) {
		l.updateOrder()
	}
	l.current = target
	l.check()
	return true
}

// Advance moves the turn to the next player in order, wrapping around.
func (l *Ledger) Advance() {
	if len(l.order) == 0 {
		return
	}
	i := slices.Index(l.order, l.current)
	l.current = l.order[(i+1)%len(l.order)]
	l.check()
}

// AddPlayer registers id as name. The first player to join takes the turn.
func (l *Ledger) AddPlayer(id, name string) {
	l.players.Set(id, name)
	l.updateOrder()
}

// RemovePlayer drops every id displayed as name. If name held the turn it
// passes to the head of the order.
func (l *Ledger) RemovePlayer(name string) bool {
	ids := l.players.IDsOf(name)
	if len(ids) == 0 && !slices.Contains(l.order, name) {
		return false
	}
	for _, id := range ids {
		l.players.Delete(id)
	}
	l.order = slices.DeleteFunc(l.order, func(n string) bool { return n == name })
	if l.current == name {
		l.current = ""
		if len(l.order) > 0 {
			l.current = l.order[0]
		}
	}
	l.check()
	return true
}

// Deduplicate keeps one id per display name, first occurrence wins, and
// rebuilds the turn order from the remaining names.
func (l *Ledger) Deduplicate() {
	seen := make(map[string]struct{})
	var deduped domain.Roster
	for _, id := range l.players.IDs() {
		name, _ := l.players.Name(id)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		deduped.Set(id, name)
	}
	l.players = deduped
	l.updateOrder()
}

// updateOrder rebuilds the order from the roster and fills an empty turn.
func (l *Ledger) updateOrder() {
	l.order = l.players.UniqueNames()
	if l.current == "" && len(l.order) > 0 {
		l.current = l.order[0]
	}
	l.check()
}

func (l *Ledger) check() {
	if l.current == "" || slices.Contains(l.order, l.current) {
		return
	}
	l.logger.Error("current turn not in turn order, clearing", "current_turn", l.current, "turn_order", l.order)
	l.current = ""
}
