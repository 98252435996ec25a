package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/audit"
	"github.com/karimsalem/askbridge/internal/fanout"
	"github.com/karimsalem/askbridge/internal/memory"
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/router"
	"github.com/karimsalem/askbridge/internal/session"
	"github.com/karimsalem/askbridge/internal/synthesis"
)

// ErrUnknownSystem marks a selected_mcps entry that is not in the registry.
var ErrUnknownSystem = errors.New("unknown system")

// ErrEmptyQuery marks a request without query text.
var ErrEmptyQuery = errors.New("query is required")

// Orchestrator runs one query cycle: route, fan out, synthesize. All
// state it touches is either read-only (registry, router, executor) or
// scoped to a session (turn log, recall), so concurrent cycles are safe.
type Orchestrator struct {
	reg      *registry.Registry
	router   *router.Router
	executor *fanout.Executor
	synth    *synthesis.Synthesizer

	// Optional collaborators; each may be nil.
	sessions *session.Store
	recall   *memory.Recall
	auditLog *audit.Store

	window int
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Registry    *registry.Registry
	Router      *router.Router
	Executor    *fanout.Executor
	Synthesizer *synthesis.Synthesizer

	Sessions *session.Store
	Recall   *memory.Recall
	Audit    *audit.Store

	// HistoryWindow is the rolling number of turns passed to routing and
	// synthesis. Zero disables history.
	HistoryWindow int
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, fmt.Errorf("orchestrator: registry is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("orchestrator: router is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("orchestrator: executor is required")
	}
	if opts.Synthesizer == nil {
		return nil, fmt.Errorf("orchestrator: synthesizer is required")
	}

	return &Orchestrator{
		reg:      opts.Registry,
		router:   opts.Router,
		executor: opts.Executor,
		synth:    opts.Synthesizer,
		sessions: opts.Sessions,
		recall:   opts.Recall,
		auditLog: opts.Audit,
		window:   opts.HistoryWindow,
	}, nil
}

// Registry exposes the system catalog for the /api/mcps endpoint.
func (o *Orchestrator) Registry() *registry.Registry { return o.reg }

// Execute runs one orchestration cycle. Adapter failures never surface as
// an error here; the only error cases are an invalid request or total
// failure (nothing selected and the conversational fallback itself
// failed).
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}
	started := time.Now()

	history, err := o.history(ctx, req)
	if err != nil {
		log.Printf("orchestrator: loading history: %v", err)
		history = nil // degrade to routing without context
	}

	decisions, forced, err := o.decide(req, history)
	if err != nil {
		return nil, err
	}

	results := o.executor.Execute(ctx, decisions, req.Query)

	var related []adapters.ResultItem
	if o.recall != nil && req.SessionID != "" {
		related, err = o.recall.Related(ctx, req.SessionID, req.Query, 3)
		if err != nil {
			log.Printf("orchestrator: recall lookup: %v", err)
			related = nil
		}
	}

	synthRes, err := o.synth.Synthesize(ctx, req.Query, history, results, related)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	resp := &Response{
		Query:         req.Query,
		SessionID:     req.SessionID,
		Synthesis:     synthRes.Synthesis,
		MCPsUsed:      synthRes.Used,
		SuggestedMCPs: o.router.Suggest(req.Query, synthRes.Synthesis),
		Responses:     synthRes.Responses,
		Degraded:      synthRes.Degraded,
	}
	if resp.MCPsUsed == nil {
		resp.MCPsUsed = []registry.SystemID{}
	}
	if resp.SuggestedMCPs == nil {
		resp.SuggestedMCPs = []registry.SystemID{}
	}

	o.remember(ctx, req, results)
	o.appendTurns(ctx, req, resp)
	o.record(ctx, req, decisions, results, synthRes, forced, time.Since(started))

	return resp, nil
}

// history resolves the rolling context window: explicit history from the
// request wins, otherwise the stored session log.
func (o *Orchestrator) history(ctx context.Context, req Request) ([]session.Turn, error) {
	if o.window <= 0 {
		return nil, nil
	}
	if len(req.ConversationHistory) > 0 {
		return session.Trim(req.ConversationHistory, o.window), nil
	}
	if o.sessions == nil || req.SessionID == "" {
		return nil, nil
	}
	return o.sessions.Window(ctx, req.SessionID, o.window)
}

// decide produces the route decisions: forced selection when the caller
// set selected_mcps, otherwise the router's verdict.
func (o *Orchestrator) decide(req Request, history []session.Turn) ([]router.Decision, bool, error) {
	if len(req.SelectedMCPs) == 0 {
		return o.router.Route(req.Query, history), false, nil
	}

	decisions := make([]router.Decision, 0, len(req.SelectedMCPs))
	for _, raw := range req.SelectedMCPs {
		id, err := o.reg.Parse(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %q", ErrUnknownSystem, raw)
		}
		decisions = append(decisions, router.Decision{
			SystemID:  id,
			Relevance: 1,
			Rationale: "forced by caller",
		})
	}
	return decisions, true, nil
}

func (o *Orchestrator) remember(ctx context.Context, req Request, results map[registry.SystemID]adapters.Result) {
	if o.recall == nil || req.SessionID == "" {
		return
	}
	var items []adapters.ResultItem
	for _, res := range results {
		if res.OK() {
			items = append(items, res.Items...)
		}
	}
	if err := o.recall.Remember(ctx, req.SessionID, items); err != nil {
		log.Printf("orchestrator: recall index: %v", err)
	}
}

func (o *Orchestrator) appendTurns(ctx context.Context, req Request, resp *Response) {
	if o.sessions == nil || req.SessionID == "" {
		return
	}
	if _, err := o.sessions.AppendTurn(ctx, session.Turn{
		SessionID: req.SessionID,
		Text:      req.Query,
		IsUser:    true,
	}); err != nil {
		log.Printf("orchestrator: appending user turn: %v", err)
		return
	}
	if _, err := o.sessions.AppendTurn(ctx, session.Turn{
		SessionID:   req.SessionID,
		Text:        resp.Synthesis,
		SystemsUsed: resp.MCPsUsed,
	}); err != nil {
		log.Printf("orchestrator: appending assistant turn: %v", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, req Request, decisions []router.Decision, results map[registry.SystemID]adapters.Result, synthRes *synthesis.Result, forced bool, took time.Duration) {
	if o.auditLog == nil {
		return
	}

	routed := make([]registry.SystemID, len(decisions))
	for i, d := range decisions {
		routed[i] = d.SystemID
	}
	var failed []registry.SystemID
	for id, res := range results {
		if !res.OK() {
			failed = append(failed, id)
		}
	}

	entry := audit.Entry{
		SessionID:     req.SessionID,
		Query:         req.Query,
		Routed:        routed,
		SystemsUsed:   synthRes.Used,
		SystemsFailed: failed,
		Forced:        forced,
		Degraded:      synthRes.Degraded,
		Duration:      took,
	}
	if err := o.auditLog.Log(ctx, entry); err != nil {
		log.Printf("orchestrator: audit log: %v", err)
	}
}
