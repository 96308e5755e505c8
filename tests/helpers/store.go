package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/repository"
)

// NewTestSQLiteStore opens an in-memory store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// TavernSession is a game in progress: Alice and Bob at the table, Alice to
// act, an opening scene and one stat each.
func TavernSession(id string) *domain.Session {
	return &domain.Session{
		ID:           id,
		GeminiAPIKey: "key",
		Players:      domain.NewRoster("mem_alice", "Alice", "mem_bob", "Bob"),
		TurnOrder:    []string{"Alice", "Bob"},
		CurrentTurn:  "Alice",
		ChatHistory: []domain.Message{
			domain.NewMessage(domain.RoleUser, domain.AuthorSystem, "setup"),
			domain.NewMessage(domain.RoleModel, domain.AuthorGM, "A tavern at dusk. ${Turn=Alice}"),
		},
		CharacterStats: domain.CharacterStats{
			"Alice": domain.NewStatSheet("HP", "10/10"),
			"Bob":   domain.NewStatSheet("HP", "8/8"),
		},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// SeedSession stores session as-is and returns it.
func SeedSession(t *testing.T, s store.Store, session *domain.Session) *domain.Session {
	t.Helper()
	if err := s.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("failed to seed session %s: %v", session.ID, err)
	}
	return session
}
