package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/policy"
)

// CreateSession stores an empty session owned by llmKey.
func (s *Service) CreateSession(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error) {
	session := &domain.Session{
		ID:             "sess_" + uuid.New().String()[:8],
		GeminiAPIKey:   llmKey,
		Players:        domain.NewRoster(),
		ChatHistory:    []domain.Message{},
		TurnOrder:      []string{},
		CharacterStats: domain.CharacterStats{},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("session %s created (prompt %d chars)", session.ID, len(startingPrompt))
	return session, nil
}

// GetSession returns a session; unknown ids wrap domain.ErrSessionNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// UpdateSession shallow-merges patch into the session. The merged result
// must pass the update policy or nothing is written.
func (s *Service) UpdateSession(ctx context.Context, sessionID string, patch *domain.SessionPatch) (*domain.Session, error) {
	if patch.Empty() {
		return s.store.GetSession(ctx, sessionID)
	}
	updated, err := s.store.UpdateSession(ctx, sessionID, func(session *domain.Session) error {
		if err := patch.Apply(session); err != nil {
			return &InvalidUpdateError{Err: err}
		}
		return s.admit(ctx, patch.Fields(), session)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) admit(ctx context.Context, fields []string, session *domain.Session) error {
	if s.policyEngine == nil {
		return nil
	}
	input, err := policy.UpdateInput(fields, session)
	if err != nil {
		return err
	}
	decision, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if !decision.Allow {
		log.Printf("WARN: update of %v on %s rejected: %v", fields, session.ID, decision.Reasons)
		return &RejectedError{Reasons: decision.Reasons}
	}
	return nil
}
