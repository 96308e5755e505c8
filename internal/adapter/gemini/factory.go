package gemini

import (
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/DeweyHur/online-trpg/internal/engine"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "TRPG_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewCompletion returns a MockClient when mode is MOCK and a real Client
// otherwise.
func NewCompletion(mode, baseURL, model string, timeout time.Duration, limiter *rate.Limiter) engine.Completion {
	if mode == ModeMock {
		log.Println("TRPG_MODE=MOCK detected, using mock Gemini client")
		return NewMockClient()
	}

	return NewClient(baseURL, model, timeout, limiter)
}
