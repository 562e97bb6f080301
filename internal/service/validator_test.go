package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

func newTestValidator() *Validator {
	return NewValidator(config.LimitsConfig{
		MaxMessageChars:      50000,
		MaxSystemPromptChars: 10000,
	})
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	v := newTestValidator()
	errs := v.Validate(&domain.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "hi"},
		},
		SystemPrompt: "custom prompt",
	})
	assert.Empty(t, errs)
}

func TestValidateRequiresUserMessage(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name     string
		messages []domain.ChatMessage
	}{
		{"empty", nil},
		{"assistant_only", []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "hi"}}},
		{"system_only", []domain.ChatMessage{{Role: domain.RoleSystem, Content: "be brief"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := v.Validate(&domain.ChatRequest{Messages: tc.messages})
			assert.Contains(t, errs, "At least one user message is required")
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	v := newTestValidator()
	errs := v.Validate(&domain.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: "narrator", Content: "once upon a time"},
			{Role: domain.RoleAssistant, Content: strings.Repeat("x", 50001)},
		},
		SystemPrompt: strings.Repeat("p", 10001),
	})

	// Invalid role, oversized content, no user message, oversized prompt -
	// all reported at once, not just the first.
	assert.Len(t, errs, 4)
	assert.Contains(t, errs, "At least one user message is required")
}

func TestValidateContentAtLimit(t *testing.T) {
	v := newTestValidator()
	errs := v.Validate(&domain.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: strings.Repeat("x", 50000)},
		},
	})
	assert.Empty(t, errs)
}

func TestLastUserMessage(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "answer"},
		{Role: domain.RoleUser, Content: "second"},
	}
	assert.Equal(t, "second", LastUserMessage(msgs))
	assert.Equal(t, "", LastUserMessage(nil))
}
