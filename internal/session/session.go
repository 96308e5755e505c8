// Package session drives one client through creating, joining, playing and
// leaving a shared game.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/inputmode"
	"github.com/DeweyHur/online-trpg/internal/prompt"
	"github.com/DeweyHur/online-trpg/internal/stats"
)

// ErrNoCharacter is returned when the player acts before choosing a name.
var ErrNoCharacter = errors.New("choose a character first")

// Options tune the client.
type Options struct {
	PollInterval    time.Duration
	RerenderDelay   time.Duration
	StatsRequestTTL time.Duration
	ShortStatsCount int
	// Limiter throttles background stats generation.
	Limiter *rate.Limiter
	Prompts *prompt.Catalog
	Probe   engine.InputProbe
	Logger  *slog.Logger
}

// Client is one player's connection to a game.
type Client struct {
	store  engine.SessionStore
	llm    engine.Completion
	view   engine.View
	opts   Options
	logger *slog.Logger
	engine *engine.Engine

	mu   sync.Mutex
	game *engine.GameContext
}

// New creates a client that is not in any session.
func New(store engine.SessionStore, llm engine.Completion, view engine.View, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Prompts == nil {
		opts.Prompts = prompt.New("")
	}
	return &Client{
		store:  store,
		llm:    llm,
		view:   view,
		opts:   opts,
		logger: opts.Logger,
		engine: engine.New(store, view, opts.PollInterval, opts.Logger),
	}
}

// Create asks the GM to set the scene for startingPrompt, stores the new
// session and enters it. Polling runs until Leave or ctx is done.
func (c *Client) Create(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error) {
	setup := c.opts.Prompts.GameSetup(startingPrompt)
	reply, err := c.llm.Generate(ctx, setup, llmKey, nil)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to generate opening scene: %w", err))
	}

	s, err := c.store.Create(ctx, llmKey, startingPrompt)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to create session: %w", err))
	}

	history := []domain.Message{
		domain.NewMessage(domain.RoleUser, domain.AuthorSystem, setup),
		domain.NewMessage(domain.RoleModel, domain.AuthorGM, reply),
	}
	s, err = c.store.Update(ctx, s.ID, domain.NewPatch().SetChatHistory(history))
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to save opening scene: %w", err))
	}

	c.logger.Info("session created", "session_id", s.ID)
	if err := c.enter(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Join enters an existing session. A session with no recorded turn picks
// it up from the history, and players without stats are queued for them.
func (c *Client) Join(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to join session %s: %w", sessionID, err))
	}
	if err := c.enter(ctx, s); err != nil {
		return nil, err
	}
	g := c.Game()

	if patch := g.RecoverTurn(s.CurrentTurn); !patch.Empty() {
		c.write(ctx, g, patch)
	}
	if missing := g.Statless(); len(missing) > 0 {
		g.RequestStats(missing)
	}
	c.logger.Info("session joined", "session_id", s.ID, "players", s.Players.Len())
	return s, nil
}

// enter replaces any current game with a fresh one bound to s and starts
// polling.
func (c *Client) enter(ctx context.Context, s *domain.Session) error {
	c.Leave()

	g := engine.NewGameContext(ctx, s.ID, s.GeminiAPIKey, engine.Deps{
		Store:           c.store,
		Completion:      c.llm,
		View:            c.view,
		Probe:           c.opts.Probe,
		Prompts:         c.opts.Prompts,
		Logger:          c.logger,
		Limiter:         c.opts.Limiter,
		ShortStatsCount: c.opts.ShortStatsCount,
		StatsRequestTTL: c.opts.StatsRequestTTL,
		RerenderDelay:   c.opts.RerenderDelay,
	})
	g.Seed(s)

	c.mu.Lock()
	c.game = g
	c.mu.Unlock()

	if c.view != nil {
		c.view.Rerender(g.History())
		c.view.UpdateMembers(g.Members())
	}
	c.engine.Bind(g)
	if err := c.engine.Start(ctx); err != nil {
		return c.fail(fmt.Errorf("failed to start polling: %w", err))
	}
	return nil
}

// Leave stops polling and discards the game. It is safe to call when not
// in a session.
func (c *Client) Leave() {
	c.mu.Lock()
	g := c.game
	c.game = nil
	c.mu.Unlock()

	c.engine.Stop()
	if g != nil {
		g.Close()
		c.logger.Info("session left", "session_id", g.SessionID)
	}
}

// Game returns the current game, or nil.
func (c *Client) Game() *engine.GameContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

func (c *Client) active() (*engine.GameContext, error) {
	g := c.Game()
	if g == nil {
		return nil, c.fail(engine.ErrNoSession)
	}
	return g, nil
}

// JoinAs claims a character. A new name is added to the roster and queued
// for stats; an existing one only becomes the local identity.
func (c *Client) JoinAs(ctx context.Context, name string) error {
	g, err := c.active()
	if err != nil {
		return err
	}
	patch, err := g.AddCharacter("mem_"+uuid.New().String()[:8], name)
	if err != nil {
		return c.fail(fmt.Errorf("failed to add character: %w", err))
	}
	if c.view != nil {
		c.view.UpdateMembers(g.Members())
	}
	if patch == nil {
		c.notify(engine.NoticeSystem, fmt.Sprintf("You are playing %s.", name))
		return nil
	}
	if err := c.write(ctx, g, patch); err != nil {
		return err
	}
	g.RequestStats([]string{name})
	return nil
}

// SendAction posts text as the local character. In action mode the GM is
// asked to respond and its reply is applied before the history is saved.
func (c *Client) SendAction(ctx context.Context, text string) error {
	g, err := c.active()
	if err != nil {
		return err
	}
	self := g.Identity()
	if self == "" {
		return c.fail(ErrNoCharacter)
	}

	if err := c.engine.Refresh(ctx); err != nil && !errors.Is(err, engine.ErrNoSession) {
		c.logger.Warn("refresh before send failed", "error", err)
	}

	prior := g.History()
	msg := domain.NewMessage(domain.RoleUser, self, text)
	patch := g.Append(msg)
	c.deliver(msg)

	if g.Mode() == inputmode.Action {
		request := g.ModePrompt() + "\n\n" + self + ": " + text
		reply, err := c.llm.Generate(ctx, request, g.LLMKey, prior)
		if err != nil {
			c.notify(engine.NoticeError, fmt.Sprintf("The GM could not answer: %v", err))
		} else {
			gm := domain.NewMessage(domain.RoleModel, domain.AuthorGM, reply)
			c.deliver(gm)
			patch.Merge(g.Append(gm))
			if c.view != nil {
				c.view.UpdateMembers(g.Members())
			}
		}
	}
	return c.write(ctx, g, patch)
}

// RemovePlayer kicks name from the game.
func (c *Client) RemovePlayer(ctx context.Context, name string) error {
	g, err := c.active()
	if err != nil {
		return err
	}
	patch, err := g.RemoveCharacter(name)
	if err != nil {
		return c.fail(fmt.Errorf("failed to remove %s: %w", name, err))
	}
	if c.view != nil {
		c.view.UpdateMembers(g.Members())
		c.view.Rerender(g.History())
	}
	return c.write(ctx, g, patch)
}

// Advance passes the turn to the next player.
func (c *Client) Advance(ctx context.Context) error {
	g, err := c.active()
	if err != nil {
		return err
	}
	patch, err := g.AdvanceTurn()
	if err != nil {
		return c.fail(fmt.Errorf("failed to advance turn: %w", err))
	}
	if patch == nil {
		return nil
	}
	if c.view != nil {
		c.view.UpdateMembers(g.Members())
	}
	return c.write(ctx, g, patch)
}

// SetMode handles "chat", "action" and "auto"; auto follows the turn again.
func (c *Client) SetMode(mode string) (inputmode.Mode, error) {
	g, err := c.active()
	if err != nil {
		return "", err
	}
	if mode == "auto" {
		return g.FollowTurn(), nil
	}
	m, err := inputmode.Parse(mode)
	if err != nil {
		return "", c.fail(err)
	}
	g.SetMode(m)
	return m, nil
}

// Pin keeps the current input mode across turn changes.
func (c *Client) Pin() error {
	g, err := c.active()
	if err != nil {
		return err
	}
	g.PinMode()
	return nil
}

// Members returns the roster of the current game.
func (c *Client) Members() []engine.Member {
	if g := c.Game(); g != nil {
		return g.Members()
	}
	return nil
}

// DetailedStats returns every stat shown for name.
func (c *Client) DetailedStats(name string) []stats.Stat {
	if g := c.Game(); g != nil {
		return g.DetailedStats(name)
	}
	return nil
}

// Status reports the poll loop.
func (c *Client) Status() engine.Status {
	return c.engine.Status()
}

func (c *Client) write(ctx context.Context, g *engine.GameContext, patch *domain.SessionPatch) error {
	if patch.Empty() {
		return nil
	}
	if _, err := c.store.Update(ctx, g.SessionID, patch); err != nil {
		return c.fail(fmt.Errorf("failed to save %v: %w", patch.Fields(), err))
	}
	g.Committed(patch)
	return nil
}

func (c *Client) deliver(msg domain.Message) {
	if c.view != nil {
		c.view.Deliver(msg)
	}
}

func (c *Client) notify(kind engine.NoticeKind, text string) {
	if c.view != nil {
		c.view.Notify(engine.Notice{Kind: kind, Text: text})
	}
}

// fail reports err to the player and returns it.
func (c *Client) fail(err error) error {
	c.logger.Error("session operation failed", "error", err)
	c.notify(engine.NoticeError, err.Error())
	return err
}
