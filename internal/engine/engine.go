package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// DefaultPollInterval is how often the session record is fetched.
const DefaultPollInterval = 5 * time.Second

// ErrNoSession is returned when the engine has no session bound.
var ErrNoSession = errors.New("no active session")

// State is the engine lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
)

// Engine polls the session store and reconciles the bound GameContext.
type Engine struct {
	store    SessionStore
	view     View
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	game   *GameContext
	cancel context.CancelFunc
	done   chan struct{}

	inFlight atomic.Bool
	status   statusRecorder
}

// New creates an idle engine. interval <= 0 uses DefaultPollInterval.
func New(store SessionStore, view View, interval time.Duration, logger *slog.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, view: view, logger: logger, interval: interval}
}

// Bind makes g the session the engine reconciles.
func (e *Engine) Bind(g *GameContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.game = g
}

// Game returns the bound session, or nil.
func (e *Engine) Game() *GameContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game
}

// Start begins polling the bound session until Stop or ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.game == nil {
		return ErrNoSession
	}
	if e.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(loopCtx, e.done)
	e.logger.Info("polling started", "session_id", e.game.SessionID, "interval", e.interval)
	return nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Stop ends polling and unbinds the session. Results of a tick still in
// flight are discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done, game := e.cancel, e.done, e.game
	e.cancel, e.done, e.game = nil, nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if game != nil {
		e.logger.Info("polling stopped", "session_id", game.SessionID)
	}
}

// State reports whether the engine is polling.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return StatePolling
	}
	return StateIdle
}

// Tick runs one reconciliation pass. Errors are logged, never returned, so
// one bad tick does not stop polling.
func (e *Engine) Tick(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil && !errors.Is(err, ErrNoSession) && ctx.Err() == nil {
		e.logger.Error("poll tick failed", "error", err)
	}
}

// Refresh runs one reconciliation pass and returns its error. A pass that
// overlaps one already running is skipped.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Debug("poll tick skipped, previous tick still running")
		return nil
	}
	defer e.inFlight.Store(false)

	g := e.Game()
	if g == nil {
		return ErrNoSession
	}

	start := time.Now()
	err := e.reconcile(ctx, g)
	e.status.record(g.SessionID, start, time.Since(start), err)
	return err
}

func (e *Engine) reconcile(ctx context.Context, g *GameContext) error {
	snap, err := e.store.Get(ctx, g.SessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}
	if e.Game() != g {
		return nil
	}

	fresh, playersChanged, members, ok := g.sync(snap)
	if !ok {
		return nil
	}
	if members != nil && e.view != nil {
		e.view.UpdateMembers(members)
	}
	if playersChanged {
		g.scheduleRerender()
	}
	return e.deliver(ctx, g, fresh)
}

// deliver shows each new message, then applies its directives and writes
// back what they changed before moving on to the next message.
func (e *Engine) deliver(ctx context.Context, g *GameContext, fresh []domain.Message) error {
	var failed error
	for _, msg := range fresh {
		if e.view != nil {
			e.view.Deliver(msg)
		}
		if msg.Role != domain.RoleModel {
			continue
		}
		patch := g.applyMessage(msg.Text())
		if patch.Empty() {
			continue
		}
		if _, err := e.store.Update(ctx, g.SessionID, patch); err != nil {
			e.logger.Error("failed to write back command results", "session_id", g.SessionID, "fields", patch.Fields(), "error", err)
			failed = fmt.Errorf("failed to write back %v: %w", patch.Fields(), err)
			continue
		}
		if e.view != nil {
			e.view.UpdateMembers(g.Members())
		}
	}
	return failed
}

// Status returns polling metrics.
func (e *Engine) Status() Status {
	st := e.status.snapshot()
	st.State = e.State()
	if g := e.Game(); g != nil {
		st.SessionID = g.SessionID
	}
	return st
}
