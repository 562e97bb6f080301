package service

import (
	"fmt"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

// Validator checks inbound chat requests before any external call is made.
type Validator struct {
	maxMessageChars      int
	maxSystemPromptChars int
}

// NewValidator creates a validator with the configured size limits.
func NewValidator(cfg config.LimitsConfig) *Validator {
	v := &Validator{
		maxMessageChars:      cfg.MaxMessageChars,
		maxSystemPromptChars: cfg.MaxSystemPromptChars,
	}
	if v.maxMessageChars <= 0 {
		v.maxMessageChars = 50000
	}
	if v.maxSystemPromptChars <= 0 {
		v.maxSystemPromptChars = 10000
	}
	return v
}

// Validate collects every violated rule, not just the first. An empty
// result means the request is accepted as-is; accepted content is never
// transformed.
func (v *Validator) Validate(req *domain.ChatRequest) []string {
	var errs []string

	if len(req.Messages) == 0 {
		errs = append(errs, "Messages array is required and must not be empty")
	}

	hasUser := false
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem, domain.RoleUser, domain.RoleAssistant:
		default:
			errs = append(errs, fmt.Sprintf("Message %d has invalid role %q", i, msg.Role))
		}
		if msg.Role == domain.RoleUser {
			hasUser = true
		}
		if len(msg.Content) > v.maxMessageChars {
			errs = append(errs, fmt.Sprintf("Message %d content exceeds maximum length of %d characters", i, v.maxMessageChars))
		}
	}

	if !hasUser {
		errs = append(errs, "At least one user message is required")
	}

	if len(req.SystemPrompt) > v.maxSystemPromptChars {
		errs = append(errs, fmt.Sprintf("System prompt exceeds maximum length of %d characters", v.maxSystemPromptChars))
	}

	return errs
}

// LastUserMessage returns the content of the most recent user-role message.
func LastUserMessage(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
