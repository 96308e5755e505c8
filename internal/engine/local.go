package engine

import (
	"fmt"
	"slices"

	"github.com/DeweyHur/online-trpg/internal/command"
	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Local changes made by this player. Each returns the patch the caller must
// write back; the shadow already reflects it.

// Append adds locally authored messages to the history. Directives in
// model messages are applied as if the message had been polled.
func (g *GameContext) Append(msgs ...domain.Message) *domain.SessionPatch {
	g.mu.Lock()
	g.history = append(g.history, msgs...)
	g.pending = append(g.pending, msgs...)
	g.known = len(g.history)
	g.mu.Unlock()

	patch := domain.NewPatch()
	for _, msg := range msgs {
		if msg.Role == domain.RoleModel {
			patch.Merge(g.applyMessage(msg.Text()))
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	patch.SetChatHistory(g.history)
	g.absorbLocked(patch)
	return patch
}

// AddCharacter puts name on the roster under id and makes it the local
// identity. For a name already on the roster only the identity is set and
// the patch is nil.
func (g *GameContext) AddCharacter(id, name string) (*domain.SessionPatch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return nil, ErrNoSession
	}

	g.ledger.SetIdentity(name)
	if g.ledger.Has(name) {
		g.mode.Update(g.ledger.IsMyTurn())
		return nil, nil
	}

	g.ledger.AddPlayer(id, name)
	g.ledger.Deduplicate()
	g.registry.SetRoster(g.ledger.Order())
	g.colors.refresh(g.ledger.Order())
	g.mode.Update(g.ledger.IsMyTurn())

	notice := domain.NewMessage(domain.RoleUser, domain.AuthorSystem, g.deps.Prompts.Join(name))
	g.history = append(g.history, notice)
	g.pending = append(g.pending, notice)
	g.known = len(g.history)

	patch := domain.NewPatch().
		SetPlayers(g.ledger.Players()).
		SetTurnOrder(g.ledger.Order()).
		SetCurrentTurn(g.ledger.Current()).
		SetChatHistory(g.history)
	g.absorbLocked(patch)
	return patch, nil
}

// RemoveCharacter drops name from the roster, prunes its stats and records
// a leave message. The local player cannot remove themselves.
func (g *GameContext) RemoveCharacter(name string) (*domain.SessionPatch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return nil, ErrNoSession
	}
	if name == g.ledger.Identity() {
		return nil, fmt.Errorf("cannot remove your own character %q", name)
	}
	if !g.ledger.RemovePlayer(name) {
		return nil, &domain.MembershipError{Name: name}
	}
	g.registry.Prune(g.ledger.Order())
	g.registry.SetRoster(g.ledger.Order())
	g.coalescer.Forget(name)
	g.colors.refresh(g.ledger.Order())
	g.followTurnLocked()

	notice := domain.NewMessage(domain.RoleUser, domain.AuthorSystem, g.deps.Prompts.Leave(name))
	g.history = append(g.history, notice)
	g.pending = append(g.pending, notice)
	g.known = len(g.history)

	patch := domain.NewPatch().
		SetPlayers(g.ledger.Players()).
		SetTurnOrder(g.ledger.Order()).
		SetCurrentTurn(g.ledger.Current()).
		SetCharacterStats(g.registry.Snapshot()).
		SetChatHistory(g.history)
	g.absorbLocked(patch)
	return patch, nil
}

// AdvanceTurn passes the turn to the next player in order.
func (g *GameContext) AdvanceTurn() (*domain.SessionPatch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return nil, ErrNoSession
	}
	before := g.ledger.Current()
	g.ledger.Advance()
	if g.ledger.Current() == before {
		return nil, nil
	}
	g.followTurnLocked()
	patch := domain.NewPatch().
		SetCurrentTurn(g.ledger.Current()).
		SetTurnOrder(g.ledger.Order())
	g.absorbLocked(patch)
	return patch, nil
}

// RecoverTurn fills a session with no recorded turn from the newest
// ${Turn=...} in its history, falling back to the head of the order.
func (g *GameContext) RecoverTurn(recorded string) *domain.SessionPatch {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil || recorded != "" {
		return nil
	}
	if name, ok := command.LatestTurn(g.history); ok && g.ledger.Has(name) {
		g.ledger.ApplyTurn(name)
	}
	if g.ledger.Current() == "" {
		return nil
	}
	g.mode.Update(g.ledger.IsMyTurn())
	patch := domain.NewPatch().
		SetCurrentTurn(g.ledger.Current()).
		SetTurnOrder(g.ledger.Order())
	g.absorbLocked(patch)
	return patch
}

// Statless lists roster names that have no stats yet.
func (g *GameContext) Statless() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger == nil {
		return nil
	}
	return slices.DeleteFunc(g.ledger.Order(), g.registry.Has)
}
