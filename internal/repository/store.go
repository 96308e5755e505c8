// Package store persists sessions for the gateway.
package store

import (
	"context"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Store defines the interface for session persistence.
type Store interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// UpdateSession applies mutate atomically. An error from mutate aborts
	// the write and is returned unchanged.
	UpdateSession(ctx context.Context, sessionID string, mutate func(*domain.Session) error) (*domain.Session, error)

	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
