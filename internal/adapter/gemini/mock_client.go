package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
)

// MockClient answers without calling Gemini. Stats requests get a small
// GeminiStats block so the whole flow can be exercised offline.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements engine.Completion.
var _ engine.Completion = (*MockClient)(nil)

// Generate returns a canned GM reply.
func (m *MockClient) Generate(ctx context.Context, prompt, apiKey string, prior []domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt, "${GeminiStats=") {
		return m.mockStats(prompt), nil
	}
	return fmt.Sprintf("[MOCK] The GM considers %q. (%d earlier messages)", truncate(lastLine(prompt), 100), len(prior)), nil
}

// mockStats gives every name listed at the end of the first prompt line the
// same sheet.
func (m *MockClient) mockStats(prompt string) string {
	var b strings.Builder
	b.WriteString("${GeminiStats=character|stat_name|value|description\n")
	for _, name := range listedNames(prompt) {
		fmt.Fprintf(&b, "%s|❤️ HP|10/10|health\n%s|💪 STR|12|strength\n", name, name)
	}
	b.WriteString("}")
	return b.String()
}

func listedNames(prompt string) []string {
	first, _, _ := strings.Cut(prompt, "\n")
	i := strings.LastIndex(first, ": ")
	if i < 0 {
		return nil
	}
	var names []string
	for _, n := range strings.Split(first[i+2:], ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
