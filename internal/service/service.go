// Package service implements the gateway: session documents and the GM
// completion proxy.
package service

import (
	"fmt"
	"strings"

	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/policy"
	"github.com/DeweyHur/online-trpg/internal/repository"
)

type Service struct {
	store        store.Store
	completion   engine.Completion
	policyEngine *policy.Engine
}

// New creates the gateway service. A nil policy engine admits every update.
func New(store store.Store, completion engine.Completion, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		completion:   completion,
		policyEngine: policyEngine,
	}
}

// InvalidUpdateError reports a patch that cannot be applied.
type InvalidUpdateError struct {
	Err error
}

func (e *InvalidUpdateError) Error() string { return "invalid update: " + e.Err.Error() }

func (e *InvalidUpdateError) Unwrap() error { return e.Err }

// RejectedError reports an update the policy refused.
type RejectedError struct {
	Reasons []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("update rejected: %s", strings.Join(e.Reasons, "; "))
}
