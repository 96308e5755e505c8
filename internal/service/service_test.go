package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DeweyHur/online-trpg/internal/adapter/gemini"
	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/policy"
	"github.com/DeweyHur/online-trpg/tests/helpers"
)

func newTestService(t *testing.T, seed ...*domain.Session) *Service {
	t.Helper()
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	db := helpers.NewTestSQLiteStore(t)
	for _, s := range seed {
		helpers.SeedSession(t, db, s)
	}
	return New(db, gemini.NewMockClient(), policyEngine)
}

func TestCreateSessionSeedsEmptyDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateSession(ctx, "key", "A tavern at dusk")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(created.ID) != len("sess_")+8 {
		t.Fatalf("unexpected id %q", created.ID)
	}

	got, err := svc.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.GeminiAPIKey != "key" || got.CurrentTurn != "" || len(got.ChatHistory) != 0 || got.Players.Len() != 0 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestUpdateSessionMergesFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	created, _ := svc.CreateSession(ctx, "key", "")

	players := domain.NewRoster("m1", "Alice", "m2", "Bob")
	patch := domain.NewPatch().
		SetPlayers(players).
		SetTurnOrder([]string{"Alice", "Bob"}).
		SetCurrentTurn("Alice")
	if _, err := svc.UpdateSession(ctx, created.ID, patch); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	history := []domain.Message{domain.NewMessage(domain.RoleModel, domain.AuthorGM, "Welcome.")}
	updated, err := svc.UpdateSession(ctx, created.ID, domain.NewPatch().SetChatHistory(history))
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.CurrentTurn != "Alice" || len(updated.ChatHistory) != 1 || updated.Players.Len() != 2 {
		t.Fatalf("fields not merged: %+v", updated)
	}
}

func TestUpdateSessionRejectsTurnOutsideOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	created, _ := svc.CreateSession(ctx, "key", "")

	_, err := svc.UpdateSession(ctx, created.ID, domain.NewPatch().SetCurrentTurn("Ghost"))
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}

	got, _ := svc.GetSession(ctx, created.ID)
	if got.CurrentTurn != "" {
		t.Fatalf("rejected update was stored: %+v", got)
	}
}

func TestUpdateSessionRejectsImmutableField(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	created, _ := svc.CreateSession(ctx, "key", "")

	var patch domain.SessionPatch
	if err := patch.UnmarshalJSON([]byte(`{"gemini_api_key":"stolen"}`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	_, err := svc.UpdateSession(ctx, created.ID, &patch)
	var invalid *InvalidUpdateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidUpdateError, got %v", err)
	}
}

func TestUpdateSessionMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UpdateSession(context.Background(), "sess_missing", domain.NewPatch().SetTurnOrder(nil))
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGenerateUsesCompletion(t *testing.T) {
	svc := newTestService(t)
	reply, err := svc.Generate(context.Background(), "I open the door", "key", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a reply")
	}
}

func TestUpdateSessionAdvancesSeededGame(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, helpers.TavernSession("sess_tavern"))

	history := append(helpers.TavernSession("").ChatHistory,
		domain.NewMessage(domain.RoleUser, "Alice", "I open the door"))
	updated, err := svc.UpdateSession(ctx, "sess_tavern", domain.NewPatch().
		SetChatHistory(history).
		SetCurrentTurn("Bob"))
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.CurrentTurn != "Bob" || len(updated.ChatHistory) != 3 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if hp, _ := updated.CharacterStats["Alice"].Get("HP"); hp != "10/10" {
		t.Fatalf("untouched stats changed: %q", hp)
	}
}

func TestUpdateSessionRejectsDroppingCurrentPlayerFromOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, helpers.TavernSession("sess_tavern"))

	_, err := svc.UpdateSession(ctx, "sess_tavern", domain.NewPatch().SetTurnOrder([]string{"Bob"}))
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}

	got, _ := svc.GetSession(ctx, "sess_tavern")
	if len(got.TurnOrder) != 2 || got.CurrentTurn != "Alice" {
		t.Fatalf("rejected update was stored: %+v", got)
	}
}
