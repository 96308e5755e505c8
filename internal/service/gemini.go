package service

import (
	"context"
	"log"
	"time"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Generate proxies a GM completion.
func (s *Service) Generate(ctx context.Context, prompt, apiKey string, prior []domain.Message) (string, error) {
	startTime := time.Now()
	reply, err := s.completion.Generate(ctx, prompt, apiKey, prior)
	if err != nil {
		log.Printf("WARN: completion failed after %v: %v", time.Since(startTime), err)
		return "", err
	}
	log.Printf("completion done in %v (%d prior messages, %d chars)", time.Since(startTime), len(prior), len(reply))
	return reply, nil
}
