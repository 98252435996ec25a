package router

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/session"
)

// Decision is one routing verdict: consult this system, with this
// relevance, for this reason. Produced fresh per query and never persisted.
type Decision struct {
	SystemID  registry.SystemID `json:"system_id"`
	Relevance float64           `json:"relevance"`
	Rationale string            `json:"rationale"`
}

// Scoring weights. A primary keyword is a strong signal, a pattern match a
// medium one, a secondary keyword a weak one. A system used in the
// previous assistant turn gets a recency boost so follow-up questions
// stay on the same system.
const (
	primaryWeight   = 3
	secondaryWeight = 1
	patternWeight   = 2
	recencyWeight   = 2

	// minSelect is the raw score a system must reach to be consulted.
	minSelect = 2

	// maxSignal is the raw score treated as full relevance. Scores are
	// clamped into [0,1] against it.
	maxSignal = 8
)

// Router scores a query against every system in the registry. Routing is
// a purely local decision: no network calls, no model calls, and the same
// inputs always produce the same decisions.
type Router struct {
	reg      *registry.Registry
	patterns map[registry.SystemID][]*regexp.Regexp
}

// New builds a Router over the given registry, compiling each system's
// routing patterns. An empty registry or an invalid pattern is a
// configuration error.
func New(reg *registry.Registry) (*Router, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, fmt.Errorf("router: registry is empty")
	}

	patterns := make(map[registry.SystemID][]*regexp.Regexp)
	for _, d := range reg.List() {
		for _, p := range d.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("router: compiling pattern %q for %s: %w", p, d.ID, err)
			}
			patterns[d.ID] = append(patterns[d.ID], re)
		}
	}

	return &Router{reg: reg, patterns: patterns}, nil
}

// Route scores the query against every registered system and returns the
// systems worth consulting, sorted by descending relevance. An empty
// result means no system cleared the threshold and the caller should fall
// back to a plain conversational answer.
func (r *Router) Route(queryText string, history []session.Turn) []Decision {
	scored := r.score(queryText, history)

	var decisions []Decision
	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}

	// Systems must clear the absolute minimum and hold at least half the
	// strongest signal, so one dominant match does not drag every weak
	// match along with it.
	half := maxScore / 2
	for _, s := range scored {
		if s.score < minSelect || s.score < half {
			continue
		}
		decisions = append(decisions, Decision{
			SystemID:  s.id,
			Relevance: clamp(float64(s.score) / maxSignal),
			Rationale: s.rationale(),
		})
	}

	sortDecisions(decisions)
	return decisions
}

// Suggest estimates which systems the next turn is likely to need, given
// the current query and the answer just produced. It is advisory only:
// the empty set is a valid result.
func (r *Router) Suggest(queryText, answerText string) []registry.SystemID {
	decisions := r.Route(queryText+"\n"+answerText, nil)
	ids := make([]registry.SystemID, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.SystemID)
	}
	return ids
}

type systemScore struct {
	id       registry.SystemID
	score    int
	keywords []string
	patterns []string
	recent   bool
}

func (s systemScore) rationale() string {
	var parts []string
	if len(s.keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(s.keywords, ", "))
	}
	if len(s.patterns) > 0 {
		parts = append(parts, "patterns: "+strings.Join(s.patterns, ", "))
	}
	if s.recent {
		parts = append(parts, "used in previous turn")
	}
	if len(parts) == 0 {
		return "no signal"
	}
	return strings.Join(parts, "; ")
}

func (r *Router) score(queryText string, history []session.Turn) []systemScore {
	lower := strings.ToLower(queryText)
	recent := lastSystemsUsed(history)

	var scored []systemScore
	for _, d := range r.reg.List() {
		s := systemScore{id: d.ID}

		for _, kw := range d.PrimaryKeywords {
			if strings.Contains(lower, kw) {
				s.score += primaryWeight
				s.keywords = append(s.keywords, kw)
			}
		}
		for _, kw := range d.SecondaryKeywords {
			if strings.Contains(lower, kw) {
				s.score += secondaryWeight
				s.keywords = append(s.keywords, kw)
			}
		}
		for _, re := range r.patterns[d.ID] {
			if re.MatchString(lower) {
				s.score += patternWeight
				s.patterns = append(s.patterns, re.String())
			}
		}
		if recent[d.ID] {
			s.score += recencyWeight
			s.recent = true
		}

		scored = append(scored, s)
	}
	return scored
}

// lastSystemsUsed returns the systems of the most recent assistant turn.
func lastSystemsUsed(history []session.Turn) map[registry.SystemID]bool {
	used := make(map[registry.SystemID]bool)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsUser {
			continue
		}
		for _, id := range history[i].SystemsUsed {
			used[id] = true
		}
		break
	}
	return used
}

// sortDecisions orders by descending relevance, then by system id so that
// equal scores still produce a stable order.
func sortDecisions(decisions []Decision) {
	sort.Slice(decisions, func(i, j int) bool {
		if decisions[i].Relevance != decisions[j].Relevance {
			return decisions[i].Relevance > decisions[j].Relevance
		}
		return decisions[i].SystemID < decisions[j].SystemID
	})
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
