package service

import (
	"fmt"
	"strings"

	"github.com/ragchat-io/ragchat/internal/domain"
)

const noContextSummary = "No relevant documents found in knowledge base"

const contextInstructions = `Instructions for using this context:
- Prioritize information from the knowledge base when it is relevant to the question
- Cite documents by their index and filename when you use them
- Fall back to your general knowledge when the knowledge base is not relevant
- Tell the user whether your answer comes from the knowledge base or general knowledge
- Stay accurate and do not invent details the context does not support`

// AugmentPrompt merges the base system prompt with retrieval context into
// one enhanced system instruction. Without context the base prompt passes
// through unchanged.
func AugmentPrompt(basePrompt string, ragCtx *domain.RAGContext) *domain.EnhancedSystemPrompt {
	if ragCtx == nil || !ragCtx.HasContext {
		return &domain.EnhancedSystemPrompt{
			Prompt:         basePrompt,
			HasRAGContext:  false,
			ContextSummary: noContextSummary,
			TokenEstimate:  EstimateTokens(basePrompt),
		}
	}

	summary := fmt.Sprintf("Found %d relevant documents (avg. relevance: %.2f)",
		ragCtx.DocumentCount, ragCtx.AverageScore)

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n## Knowledge Base Context\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString(ragCtx.ContextText)
	b.WriteString("\n\n## ")
	b.WriteString(contextInstructions)

	prompt := b.String()
	return &domain.EnhancedSystemPrompt{
		Prompt:         prompt,
		HasRAGContext:  true,
		ContextSummary: summary,
		TokenEstimate:  EstimateTokens(prompt),
	}
}

// EstimateTokens is a deliberately crude length/4 approximation, rounded
// up. It is a compatibility contract, not a tokenizer; do not replace it
// with a real one.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
