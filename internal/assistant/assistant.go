// Package assistant hosts the chat endpoint's language-model backend. Only
// a placeholder provider exists today; a real provider plugs in behind the
// same interface once tool-calling lands.
package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Provider answers one chat message.
type Provider interface {
	Chat(ctx context.Context, message string) (string, error)
}

// DummyProvider is a placeholder used until a real model is wired up.
type DummyProvider struct{}

func NewDummyProvider() *DummyProvider {
	return &DummyProvider{}
}

func (p *DummyProvider) Chat(_ context.Context, message string) (string, error) {
	return fmt.Sprintf("Minerva dummy LLM here.\nYou said: %s\n\nLLM integration is not wired up yet.", strings.TrimSpace(message)), nil
}
