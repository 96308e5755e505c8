package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/DeweyHur/online-trpg/internal/command"
	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/inputmode"
	"github.com/DeweyHur/online-trpg/internal/prompt"
	"github.com/DeweyHur/online-trpg/internal/stats"
	"github.com/DeweyHur/online-trpg/internal/turn"
)

// Deps are the collaborators a GameContext works with.
type Deps struct {
	Store      SessionStore
	Completion Completion
	View       View
	Probe      InputProbe
	Prompts    *prompt.Catalog
	Logger     *slog.Logger
	// Limiter throttles background stats generation. Nil means unlimited.
	Limiter         *rate.Limiter
	ShortStatsCount int
	StatsRequestTTL time.Duration
	// RerenderDelay lets the member list settle before the chat is redrawn.
	// Zero redraws synchronously.
	RerenderDelay time.Duration
}

// GameContext is everything a client holds for one joined session. It is
// built on entering a session and thrown away on leave.
type GameContext struct {
	SessionID string
	LLMKey    string

	deps   Deps
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	ledger   *turn.Ledger
	registry *stats.Registry
	mode     *inputmode.Manager
	colors   colorMap
	shadow   *Shadow
	history  []domain.Message
	known    int
	// pending is the tail of history written locally and not yet confirmed
	// by the store.
	pending  []domain.Message
	closed   bool
	rerender *time.Timer

	coalescer *Coalescer
}

// NewGameContext creates a context for sessionID. Until Seed is called it
// only delivers chat messages.
func NewGameContext(parent context.Context, sessionID, llmKey string, deps Deps) *GameContext {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Probe == nil {
		deps.Probe = idleProbe{}
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.New("")
	}
	ctx, cancel := context.WithCancel(parent)
	g := &GameContext{
		SessionID: sessionID,
		LLMKey:    llmKey,
		deps:      deps,
		logger:    deps.Logger.With("session_id", sessionID),
		ctx:       ctx,
		cancel:    cancel,
		mode:      inputmode.NewManager(),
	}
	g.coalescer = newCoalescer(g.fetchStats, deps.Limiter, deps.StatsRequestTTL, g.logger)
	return g
}

// Seed binds the ledger, registry and colours to a snapshot and marks its
// history as already shown.
func (g *GameContext) Seed(s *domain.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ledger = turn.NewLedger(g.logger)
	g.registry = stats.NewRegistry(g.deps.ShortStatsCount)
	g.ledger.Initialize(s)
	g.ledger.Deduplicate()
	g.registry.Load(s.CharacterStats, s.StatsTemplate)
	g.registry.SetRoster(g.ledger.Order())
	g.colors.refresh(g.ledger.Order())
	g.shadow = newShadow(s)
	g.history = s.Clone().ChatHistory
	g.known = len(g.history)
	g.pending = nil
	g.mode.Update(g.ledger.IsMyTurn())
}

// Ready reports whether Seed has run.
func (g *GameContext) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ledger != nil
}

// Close cancels background work and waits for it.
func (g *GameContext) Close() {
	g.mu.Lock()
	g.closed = true
	if g.rerender != nil {
		g.rerender.Stop()
	}
	g.shadow = nil
	g.mu.Unlock()
	g.cancel()
	g.coalescer.Wait()
}

// Shadow returns a copy of the last synced state.
func (g *GameContext) Shadow() (Shadow, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shadow == nil {
		return Shadow{}, false
	}
	return g.shadow.clone(), true
}

// History returns the locally known chat history.
func (g *GameContext) History() []domain.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.history)
}

// Identity returns the local player's character name.
func (g *GameContext) Identity() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return ""
	}
	return g.ledger.Identity()
}

// CurrentTurn returns whose turn it is.
func (g *GameContext) CurrentTurn() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return ""
	}
	return g.ledger.Current()
}

// Mode returns the current input mode.
func (g *GameContext) Mode() inputmode.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode.Mode()
}

// SetMode applies a manual mode choice.
func (g *GameContext) SetMode(mode inputmode.Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode.Set(mode, true)
}

// FollowTurn drops manual and pinned choices and follows the turn again.
func (g *GameContext) FollowTurn() inputmode.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode.Unpin()
	if g.ledger == nil {
		return g.mode.Mode()
	}
	return g.mode.Update(g.ledger.IsMyTurn())
}

// PinMode keeps the current mode across turn changes.
func (g *GameContext) PinMode() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode.Pin()
}

// ModePrompt returns the GM preamble for the current mode.
func (g *GameContext) ModePrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modePromptLocked()
}

func (g *GameContext) modePromptLocked() string {
	var order []string
	var current, self string
	if g.ledger != nil {
		order, current, self = g.ledger.Order(), g.ledger.Current(), g.ledger.Identity()
	}
	if g.mode.ShouldSendToAI() {
		return g.deps.Prompts.Turn(order, current)
	}
	return g.deps.Prompts.Chat(order, current, self)
}

// Members returns the roster as it should be displayed.
func (g *GameContext) Members() []Member {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.membersLocked()
}

func (g *GameContext) membersLocked() []Member {
	if g.ledger == nil {
		return nil
	}
	order := g.ledger.Order()
	out := make([]Member, 0, len(order))
	for _, name := range order {
		out = append(out, Member{
			Name:    name,
			Color:   g.colors.get(name),
			Current: name == g.ledger.Current(),
			Self:    name == g.ledger.Identity(),
			Stats:   g.registry.Short(name),
		})
	}
	return out
}

// DetailedStats returns every stat shown for name.
func (g *GameContext) DetailedStats(name string) []stats.Stat {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.registry == nil {
		return nil
	}
	return g.registry.Detailed(name)
}

// ColorOf returns the display colour for a name.
func (g *GameContext) ColorOf(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.colors.get(name)
}

// sync reconciles a fetched snapshot. It returns the suffix to deliver and
// whether the player set changed; ok is false when nothing changed.
func (g *GameContext) sync(s *domain.Session) (fresh []domain.Message, playersChanged bool, members []Member, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || !g.shadow.differs(s) {
		return nil, false, nil, false
	}

	prev := g.shadow
	g.shadow = newShadow(s)

	history := s.Clone().ChatHistory
	base := g.known - len(g.pending)
	if len(g.pending) > 0 && matchesAt(history, base, g.pending) {
		g.pending = nil
	}
	if len(g.pending) > 0 {
		// Our own messages are still in flight; keep them after whatever
		// the store has so the pending write carries both.
		switch {
		case len(history) > base:
			fresh = slices.Clone(history[base:])
		case len(history) < base:
			g.logger.Warn("chat history shrank", "known", base, "fetched", len(history))
		}
		history = append(history, g.pending...)
	} else {
		switch {
		case len(history) > g.known:
			fresh = slices.Clone(history[g.known:])
		case len(history) < g.known:
			g.logger.Warn("chat history shrank", "known", g.known, "fetched", len(history))
		}
	}
	g.history = history
	g.known = len(history)

	if g.ledger == nil {
		return fresh, false, nil, true
	}

	previousTurn := g.ledger.Current()
	g.ledger.Initialize(s)
	g.ledger.Deduplicate()
	turnChanged := g.ledger.Current() != previousTurn

	g.registry.Load(s.CharacterStats, s.StatsTemplate)
	g.registry.SetRoster(g.ledger.Order())

	playersChanged = prev == nil || !prev.Players.SameNames(s.Players)

	if batch := g.statsBatchLocked(prev, s); len(batch) > 0 && g.LLMKey != "" {
		g.coalescer.Request(g.ctx, batch)
	}
	if turnChanged {
		g.followTurnLocked()
	}
	g.colors.refresh(g.ledger.Order())

	return fresh, playersChanged, g.membersLocked(), true
}

// statsBatchLocked lists players who just joined or have no stats yet and
// are not already being generated.
func (g *GameContext) statsBatchLocked(prev *Shadow, s *domain.Session) []string {
	var before domain.Roster
	if prev != nil {
		before = prev.Players
	}
	var want []string
	for _, name := range g.ledger.Order() {
		if !before.Contains(name) || !s.CharacterStats.Has(name) {
			want = append(want, name)
		}
	}
	return g.coalescer.Filter(want)
}

// followTurnLocked recomputes the input mode after the turn moved, unless
// the player pinned a mode or is typing.
func (g *GameContext) followTurnLocked() {
	if g.mode.Pinned() || g.deps.Probe.Composing() {
		return
	}
	g.mode.ResetManual()
	g.mode.Update(g.ledger.IsMyTurn())
}

// applyMessage runs the directives in a model message and returns the
// fields they changed.
func (g *GameContext) applyMessage(text string) *domain.SessionPatch {
	g.mu.Lock()
	defer g.mu.Unlock()

	patch := domain.NewPatch()
	if g.ledger == nil || g.closed {
		return patch
	}

	for _, cmd := range command.Parse(text) {
		d, err := cmd.Decode()
		if err != nil {
			g.logger.Warn("dropping command", "command", cmd.Name, "error", err)
			continue
		}
		switch d := d.(type) {
		case command.TurnDirective:
			before := g.ledger.Current()
			if g.ledger.ApplyTurn(d.Target) && g.ledger.Current() != before {
				patch.SetCurrentTurn(g.ledger.Current()).SetTurnOrder(g.ledger.Order())
				g.followTurnLocked()
			}
		case command.StatsDirective:
			if applied := g.registry.ApplyStats(d.Character, d.Stats); applied.Changed {
				patch.SetCharacterStats(g.registry.Snapshot())
			}
		case command.TemplateDirective:
			changed, err := g.registry.ApplyTemplate(d.Template)
			if err != nil {
				g.logger.Warn("dropping template", "command", cmd.Name, "error", err)
				continue
			}
			if changed {
				patch.SetStatsTemplate(g.registry.Template())
			}
		case command.UnknownDirective:
			g.logger.Warn("unknown command", "command", d.Name, "value", cmd.Value)
		default:
			panic(fmt.Sprintf("unhandled directive %T", d))
		}
	}

	for _, block := range command.StatsBlocks(text) {
		applied, err := g.registry.ApplyCSV(block)
		if err != nil {
			g.logger.Warn("dropping stats block", "error", err)
			continue
		}
		for _, a := range applied {
			if a.Changed {
				patch.SetCharacterStats(g.registry.Snapshot())
				break
			}
		}
	}

	g.absorbLocked(patch)
	return patch
}

// Committed records that patch reached the store. Pending messages it
// carried are no longer re-appended on poll.
func (g *GameContext) Committed(patch *domain.SessionPatch) {
	raw := patch.Raw(domain.FieldChatHistory)
	if len(raw) == 0 {
		return
	}
	var written []domain.Message
	if err := json.Unmarshal(raw, &written); err != nil {
		g.logger.Warn("failed to decode committed history", "error", err)
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := len(g.pending); k > 0; k-- {
		if matchesAt(written, len(written)-k, g.pending[:k]) {
			g.pending = slices.Clone(g.pending[k:])
			return
		}
	}
}

// Pending returns the local messages not yet confirmed by the store.
func (g *GameContext) Pending() []domain.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.pending)
}

func matchesAt(history []domain.Message, at int, want []domain.Message) bool {
	if at < 0 || at+len(want) > len(history) {
		return false
	}
	for i, m := range want {
		if !history[at+i].Equal(m) {
			return false
		}
	}
	return true
}

// absorbLocked folds our own write into the shadow so the next poll does
// not treat it as a remote change.
func (g *GameContext) absorbLocked(patch *domain.SessionPatch) {
	if g.shadow == nil || patch.Empty() {
		return
	}
	if patch.Has(domain.FieldCurrentTurn) {
		g.shadow.CurrentTurn = g.ledger.Current()
	}
	if patch.Has(domain.FieldPlayers) {
		g.shadow.Players = g.ledger.Players()
	}
	if patch.Has(domain.FieldCharacterStats) {
		g.shadow.CharacterStats = g.registry.Snapshot()
	}
	if patch.Has(domain.FieldChatHistory) {
		g.shadow.ChatLength = len(g.history)
		g.shadow.LastMessage = nil
		if n := len(g.history); n > 0 {
			last := g.history[n-1]
			last.Parts = slices.Clone(last.Parts)
			g.shadow.LastMessage = &last
		}
	}
}

// RequestStats queues stats generation for names.
func (g *GameContext) RequestStats(names []string) bool {
	if g.LLMKey == "" {
		return false
	}
	return g.coalescer.Request(g.ctx, names)
}

// WaitStats blocks until queued stats requests finish.
func (g *GameContext) WaitStats() {
	g.coalescer.Wait()
}

func (g *GameContext) fetchStats(ctx context.Context, names []string) error {
	if g.deps.Completion == nil {
		return fmt.Errorf("no completion configured")
	}
	reply, err := g.deps.Completion.Generate(ctx, g.deps.Prompts.BatchStats(names), g.LLMKey, nil)
	if err != nil {
		return fmt.Errorf("failed to generate stats: %w", err)
	}
	blocks := command.StatsBlocks(reply)
	if len(blocks) == 0 {
		blocks = []string{reply}
	}

	g.mu.Lock()
	if g.closed || g.registry == nil {
		g.mu.Unlock()
		return ctx.Err()
	}
	changed := false
	var lastErr error
	for _, block := range blocks {
		applied, err := g.registry.ApplyCSV(block)
		if err != nil {
			lastErr = err
			continue
		}
		for _, a := range applied {
			changed = changed || a.Changed
		}
	}
	if !changed {
		g.mu.Unlock()
		if lastErr != nil {
			return fmt.Errorf("failed to parse stats reply: %w", lastErr)
		}
		return nil
	}
	patch := domain.NewPatch().SetCharacterStats(g.registry.Snapshot())
	g.absorbLocked(patch)
	members := g.membersLocked()
	g.mu.Unlock()

	if g.deps.View != nil {
		g.deps.View.UpdateMembers(members)
	}
	if _, err := g.deps.Store.Update(ctx, g.SessionID, patch); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// scheduleRerender redraws the chat after RerenderDelay, coalescing
// repeated requests.
func (g *GameContext) scheduleRerender() {
	if g.deps.View == nil {
		return
	}
	if g.deps.RerenderDelay <= 0 {
		g.redraw()
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if g.rerender != nil {
		g.rerender.Reset(g.deps.RerenderDelay)
		return
	}
	g.rerender = time.AfterFunc(g.deps.RerenderDelay, g.redraw)
}

func (g *GameContext) redraw() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	history := slices.Clone(g.history)
	g.mu.Unlock()
	g.deps.View.Rerender(history)
}
