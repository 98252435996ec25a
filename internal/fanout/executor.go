package fanout

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/router"
)

// ProgressFunc is called after each adapter settles (completed, failed or
// timed out). Used by the CLI to drive a progress bar.
type ProgressFunc func(done, total int, system registry.SystemID)

// Options bound one fan-out cycle.
type Options struct {
	// PerCallTimeout bounds a single adapter invocation (including its
	// one retry, each attempt gets the full timeout).
	PerCallTimeout time.Duration

	// OverallDeadline bounds the whole fan-out. Adapters still pending
	// when it expires are cancelled and recorded as deadline failures.
	OverallDeadline time.Duration

	OnProgress ProgressFunc
}

const (
	defaultPerCallTimeout  = 30 * time.Second
	defaultOverallDeadline = 60 * time.Second
)

// Executor invokes the selected adapters concurrently and collects their
// results. One adapter's failure or slowness never blocks the others.
type Executor struct {
	adapters map[registry.SystemID]adapters.Adapter
	opts     Options
}

// New creates an Executor over the given adapters.
func New(list []adapters.Adapter, opts Options) *Executor {
	if opts.PerCallTimeout <= 0 {
		opts.PerCallTimeout = defaultPerCallTimeout
	}
	if opts.OverallDeadline <= 0 {
		opts.OverallDeadline = defaultOverallDeadline
	}

	byID := make(map[registry.SystemID]adapters.Adapter, len(list))
	for _, a := range list {
		byID[a.ID()] = a
	}
	return &Executor{adapters: byID, opts: opts}
}

// Has reports whether an adapter is wired for the given system.
func (e *Executor) Has(id registry.SystemID) bool {
	_, ok := e.adapters[id]
	return ok
}

// Adapter returns the adapter wired for the given system, if any.
func (e *Executor) Adapter(id registry.SystemID) (adapters.Adapter, bool) {
	a, ok := e.adapters[id]
	return a, ok
}

// Execute fans the query out to every routed system in parallel and
// returns one Result per system. It returns as soon as every invocation
// has settled or the overall deadline expires, whichever is first.
func (e *Executor) Execute(ctx context.Context, decisions []router.Decision, query string) map[registry.SystemID]adapters.Result {
	results := make(map[registry.SystemID]adapters.Result, len(decisions))
	if len(decisions) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.OverallDeadline)
	defer cancel()

	type settled struct {
		id  registry.SystemID
		res adapters.Result
	}
	ch := make(chan settled, len(decisions))

	var wg sync.WaitGroup
	launched := 0
	for _, d := range decisions {
		adapter, ok := e.adapters[d.SystemID]
		if !ok {
			results[d.SystemID] = adapters.Result{
				SystemID: d.SystemID,
				Err:      adapters.NewFailure(adapters.FailureUnknown, "no adapter configured for %s", d.SystemID),
			}
			continue
		}

		launched++
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()
			ch <- settled{id: a.ID(), res: e.invoke(ctx, a, query)}
		}(adapter)
	}

	// Drain the channel once all goroutines are done, even if we stop
	// listening early at the deadline.
	go func() {
		wg.Wait()
		close(ch)
	}()

	pending := launched
	for pending > 0 {
		select {
		case s, ok := <-ch:
			if !ok {
				pending = 0
				break
			}
			results[s.id] = s.res
			pending--
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(launched-pending, launched, s.id)
			}
		case <-ctx.Done():
			// Whatever has not settled yet is out of time. Partial
			// output from still-running adapters is discarded.
			for _, d := range decisions {
				if _, done := results[d.SystemID]; !done {
					results[d.SystemID] = adapters.Result{
						SystemID: d.SystemID,
						Err:      adapters.NewFailure(adapters.FailureDeadline, "overall deadline exceeded"),
					}
				}
			}
			return results
		}
	}

	return results
}

// invoke runs one adapter with the per-call timeout, retrying exactly once
// on a transient classification.
func (e *Executor) invoke(ctx context.Context, a adapters.Adapter, query string) adapters.Result {
	res := e.attempt(ctx, a, query)
	if res.OK() || !res.Err.Retryable() {
		return res
	}

	log.Printf("fanout: retrying %s after %s failure", a.ID(), res.Err.Kind)
	return e.attempt(ctx, a, query)
}

func (e *Executor) attempt(ctx context.Context, a adapters.Adapter, query string) adapters.Result {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.PerCallTimeout)
	defer cancel()

	items, err := a.Query(callCtx, query)
	if err != nil {
		return adapters.Result{SystemID: a.ID(), Err: adapters.ClassifyErr(err)}
	}

	// Attribution must survive normalization bugs in adapters.
	for i := range items {
		if items[i].SystemID == "" {
			items[i].SystemID = a.ID()
		}
	}
	return adapters.Result{SystemID: a.ID(), Items: items}
}
