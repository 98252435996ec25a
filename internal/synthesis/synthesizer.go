package synthesis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/llm"
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/session"
)

// Result is the synthesizer's output for one query cycle.
type Result struct {
	// Synthesis is the natural-language answer. Always populated, even in
	// degraded mode.
	Synthesis string

	// Used lists the systems whose successful results contributed to the
	// answer. Empty in degraded or conversational mode.
	Used []registry.SystemID

	// Responses summarizes each contributing system's results, one line
	// per system (the raw per-system view the chat UI can expand).
	Responses map[registry.SystemID]string

	// Degraded is set when every invoked adapter failed, or when results
	// were retrieved but the answer could not be generated.
	Degraded bool

	// FailureCount is the number of invoked adapters that failed.
	// Observability only; never surfaced as a user-facing error while at
	// least one system succeeded.
	FailureCount int
}

// Synthesizer turns per-system adapter results into one answer via the
// configured LLM provider. Its only suspension point is the provider call.
type Synthesizer struct {
	provider llm.Provider
	maxItems int
}

// Options tune the synthesizer.
type Options struct {
	// MaxItems caps how many merged items are placed in the prompt.
	MaxItems int
}

// New creates a Synthesizer on the given provider.
func New(provider llm.Provider, opts Options) *Synthesizer {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 20
	}
	return &Synthesizer{provider: provider, maxItems: opts.MaxItems}
}

// Synthesize merges the adapter results and produces the answer.
//
// Behavior by case:
//   - at least one success: answer from the merged items (plus optional
//     recalled items from earlier turns); an LLM failure degrades to a
//     disclosure message, never an error.
//   - every invoked adapter failed: deterministic degraded disclosure,
//     no LLM call, no error.
//   - nothing was invoked: conversational fallback from query and history
//     alone; here an LLM failure is returned as an error (total failure).
func (s *Synthesizer) Synthesize(ctx context.Context, query string, history []session.Turn, results map[registry.SystemID]adapters.Result, related []adapters.ResultItem) (*Result, error) {
	succeeded, failed := partition(results)

	if len(results) > 0 && len(succeeded) == 0 {
		return &Result{
			Synthesis:    degradedMessage(failed),
			Degraded:     true,
			FailureCount: len(failed),
		}, nil
	}

	if len(results) == 0 {
		text, err := s.complete(ctx, fallbackSystemPrompt, buildFallbackPrompt(query, history))
		if err != nil {
			return nil, fmt.Errorf("conversational fallback: %w", err)
		}
		return &Result{Synthesis: text}, nil
	}

	recent := recentSystems(history)
	items := Merge(results, recent, s.maxItems)

	res := &Result{
		Used:         succeeded,
		Responses:    summarize(results),
		FailureCount: len(failed),
	}

	text, err := s.complete(ctx, synthesisSystemPrompt, buildSynthesisPrompt(query, history, items, related))
	if err != nil {
		// Results were retrieved; losing only the prose is degraded
		// operation, not a request failure.
		log.Printf("synthesis: completion failed, degrading: %v", err)
		res.Synthesis = "I found results in " + joinSystems(succeeded) +
			" but could not generate an answer right now. " + rawSummary(results)
		res.Degraded = true
		return res, nil
	}

	res.Synthesis = text
	return res, nil
}

func (s *Synthesizer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("provider %s returned an empty completion", s.provider.Name())
	}
	return resp.Content, nil
}

// partition splits the result map into sorted success and failure id lists.
func partition(results map[registry.SystemID]adapters.Result) (succeeded, failed []registry.SystemID) {
	for id, res := range results {
		if res.OK() {
			succeeded = append(succeeded, id)
		} else {
			failed = append(failed, id)
		}
	}
	sort.Slice(succeeded, func(i, j int) bool { return succeeded[i] < succeeded[j] })
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return succeeded, failed
}

// summarize builds the per-system one-line summaries for successful systems.
func summarize(results map[registry.SystemID]adapters.Result) map[registry.SystemID]string {
	out := make(map[registry.SystemID]string)
	for id, res := range results {
		if !res.OK() {
			continue
		}
		if len(res.Items) == 0 {
			out[id] = "no matching results"
			continue
		}
		titles := make([]string, 0, len(res.Items))
		for _, it := range res.Items {
			titles = append(titles, it.Title)
		}
		out[id] = fmt.Sprintf("%d result(s): %s", len(res.Items), strings.Join(titles, "; "))
	}
	return out
}

func rawSummary(results map[registry.SystemID]adapters.Result) string {
	summaries := summarize(results)
	ids := make([]registry.SystemID, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var parts []string
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %s", id, summaries[id]))
	}
	return strings.Join(parts, " | ")
}

func degradedMessage(failed []registry.SystemID) string {
	return fmt.Sprintf(
		"I could not reach any system right now (%s failed to respond). Please try again in a moment.",
		joinSystems(failed),
	)
}

func joinSystems(ids []registry.SystemID) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	return strings.Join(strs, ", ")
}

// recentSystems mirrors the router's recency logic: the systems of the
// most recent assistant turn.
func recentSystems(history []session.Turn) map[registry.SystemID]bool {
	recent := make(map[registry.SystemID]bool)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsUser {
			continue
		}
		for _, id := range history[i].SystemsUsed {
			recent[id] = true
		}
		break
	}
	return recent
}
