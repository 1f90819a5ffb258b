package recap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uabbasi/good-measure-giving/internal/llm"
)

// ErrNotConfigured is returned when no language model client is available.
var ErrNotConfigured = errors.New("recap generation is not configured")

// Service turns fact sheets into recap text.
type Service struct {
	client llm.Client
}

// NewService wraps a language model client. A nil client yields a disabled
// service.
func NewService(client llm.Client) *Service {
	return &Service{client: client}
}

// Enabled reports whether recap generation is available.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Generate produces the recap text for a fact sheet.
func (s *Service) Generate(ctx context.Context, facts FactSheet) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}

	text, err := s.client.GenerateContent(ctx, BuildPrompt(facts))
	if err != nil {
		return "", fmt.Errorf("failed to generate recap: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty recap")
	}
	return text, nil
}
