package synthesis

import (
	"fmt"
	"strings"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/session"
)

const synthesisSystemPrompt = `You are a concise synthesis agent for an enterprise assistant.
Combine the retrieved results below into one direct answer to the user's question.
Only state facts that appear in the retrieved results. If the results do not
answer the question, say so. Do not invent issue keys, page titles, URLs or
any other specifics. Cite the source system in brackets, e.g. [jira].`

const fallbackSystemPrompt = `You are a helpful enterprise assistant. No backend system was
consulted for this question, so answer conversationally from the dialogue
alone. Do not invent issue keys, documents or repository names.`

// buildSynthesisPrompt assembles the user prompt: conversation context,
// retrieved items, optional recalled items from earlier turns, then the
// question. The model's inputs are scoped to exactly this material.
func buildSynthesisPrompt(query string, history []session.Turn, items, related []adapters.ResultItem) string {
	var sb strings.Builder

	if ctx := historyContext(history); ctx != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Retrieved results:\n")
	for i, it := range items {
		sb.WriteString(formatItem(i+1, it))
	}

	if len(related) > 0 {
		sb.WriteString("\nRelated items from earlier in this conversation:\n")
		for i, it := range related {
			sb.WriteString(formatItem(i+1, it))
		}
	}

	sb.WriteString("\nUser question: ")
	sb.WriteString(query)
	return sb.String()
}

// buildFallbackPrompt assembles the conversational prompt used when no
// system was selected.
func buildFallbackPrompt(query string, history []session.Turn) string {
	var sb strings.Builder
	if ctx := historyContext(history); ctx != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User question: ")
	sb.WriteString(query)
	return sb.String()
}

func formatItem(n int, it adapters.ResultItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. [%s] %s\n", n, it.SystemID, it.Title)
	if it.Snippet != "" {
		fmt.Fprintf(&sb, "   %s\n", it.Snippet)
	}
	if it.URL != "" {
		fmt.Fprintf(&sb, "   %s\n", it.URL)
	}
	return sb.String()
}

// historyContext renders the rolling window the way the chat transcript
// reads: speaker, text, and for assistant turns the systems used.
func historyContext(history []session.Turn) string {
	if len(history) == 0 {
		return ""
	}

	var lines []string
	for _, t := range history {
		role := "Assistant"
		if t.IsUser {
			role = "User"
		}
		line := fmt.Sprintf("%s: %s", role, t.Text)
		if !t.IsUser && len(t.SystemsUsed) > 0 {
			used := make([]string, len(t.SystemsUsed))
			for i, id := range t.SystemsUsed {
				used[i] = string(id)
			}
			line += fmt.Sprintf(" (used: %s)", strings.Join(used, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
