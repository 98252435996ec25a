package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/router"
)

// fakeAdapter scripts one backend for executor tests.
type fakeAdapter struct {
	id    registry.SystemID
	items []adapters.ResultItem
	errs  []error // consumed per call; nil entry means success
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeAdapter) ID() registry.SystemID { return f.id }

func (f *fakeAdapter) Ping(ctx context.Context) error { return nil }

func (f *fakeAdapter) Query(ctx context.Context, query string) ([]adapters.ResultItem, error) {
	call := int(f.calls.Add(1)) - 1

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.items, nil
}

func decisionsFor(ids ...registry.SystemID) []router.Decision {
	out := make([]router.Decision, len(ids))
	for i, id := range ids {
		out[i] = router.Decision{SystemID: id, Relevance: 1}
	}
	return out
}

func TestExecutePartialFailure(t *testing.T) {
	good := &fakeAdapter{
		id:    registry.SystemJira,
		items: []adapters.ResultItem{{Title: "ABC-1"}},
	}
	bad := &fakeAdapter{
		id:   registry.SystemConfluence,
		errs: []error{adapters.NewFailure(adapters.FailureAuth, "401"), adapters.NewFailure(adapters.FailureAuth, "401")},
	}

	e := New([]adapters.Adapter{good, bad}, Options{})
	results := e.Execute(context.Background(), decisionsFor(good.id, bad.id), "q")

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[good.id].OK() {
		t.Errorf("jira result failed: %v", results[good.id].Err)
	}
	if results[bad.id].OK() {
		t.Error("confluence result should have failed")
	}
	if results[bad.id].Err.Kind != adapters.FailureAuth {
		t.Errorf("failure kind = %s, want auth", results[bad.id].Err.Kind)
	}
}

func TestExecuteRetriesTransientOnce(t *testing.T) {
	flaky := &fakeAdapter{
		id:    registry.SystemJira,
		items: []adapters.ResultItem{{Title: "recovered"}},
		errs:  []error{adapters.NewFailure(adapters.FailureTransient, "503")},
	}

	e := New([]adapters.Adapter{flaky}, Options{})
	results := e.Execute(context.Background(), decisionsFor(flaky.id), "q")

	if got := flaky.calls.Load(); got != 2 {
		t.Fatalf("adapter called %d times, want 2", got)
	}
	if !results[flaky.id].OK() {
		t.Fatalf("result failed after retry: %v", results[flaky.id].Err)
	}
}

func TestExecuteDoesNotRetryPermanentFailures(t *testing.T) {
	denied := &fakeAdapter{
		id:   registry.SystemJira,
		errs: []error{adapters.NewFailure(adapters.FailureAuth, "403")},
	}

	e := New([]adapters.Adapter{denied}, Options{})
	results := e.Execute(context.Background(), decisionsFor(denied.id), "q")

	if got := denied.calls.Load(); got != 1 {
		t.Fatalf("adapter called %d times, want 1", got)
	}
	if results[denied.id].Err.Kind != adapters.FailureAuth {
		t.Errorf("failure kind = %s, want auth", results[denied.id].Err.Kind)
	}
}

func TestExecuteGivesUpAfterSecondTransientFailure(t *testing.T) {
	down := &fakeAdapter{
		id: registry.SystemBitbucket,
		errs: []error{
			adapters.NewFailure(adapters.FailureTransient, "502"),
			adapters.NewFailure(adapters.FailureTransient, "502"),
		},
	}

	e := New([]adapters.Adapter{down}, Options{})
	results := e.Execute(context.Background(), decisionsFor(down.id), "q")

	if got := down.calls.Load(); got != 2 {
		t.Fatalf("adapter called %d times, want 2", got)
	}
	if results[down.id].OK() {
		t.Fatal("result should have failed")
	}
}

func TestExecuteOverallDeadline(t *testing.T) {
	fast := &fakeAdapter{
		id:    registry.SystemJira,
		items: []adapters.ResultItem{{Title: "quick"}},
	}
	slow := &fakeAdapter{
		id:    registry.SystemConfluence,
		delay: time.Second,
	}

	e := New([]adapters.Adapter{fast, slow}, Options{
		PerCallTimeout:  time.Second,
		OverallDeadline: 80 * time.Millisecond,
	})
	start := time.Now()
	results := e.Execute(context.Background(), decisionsFor(fast.id, slow.id), "q")

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Execute took %v, deadline did not bound it", elapsed)
	}
	if !results[fast.id].OK() {
		t.Errorf("fast adapter should have succeeded: %v", results[fast.id].Err)
	}
	slowRes := results[slow.id]
	if slowRes.OK() {
		t.Fatal("slow adapter should not have succeeded")
	}
	// The cancellation can surface either as the executor's deadline mark
	// or as the adapter's own timeout, depending on who observes it first.
	if slowRes.Err.Kind != adapters.FailureDeadline && slowRes.Err.Kind != adapters.FailureTimeout {
		t.Errorf("slow failure kind = %s, want deadline or timeout", slowRes.Err.Kind)
	}
}

func TestExecutePerCallTimeout(t *testing.T) {
	hung := &fakeAdapter{
		id:    registry.SystemJira,
		delay: time.Second,
	}

	e := New([]adapters.Adapter{hung}, Options{
		PerCallTimeout:  50 * time.Millisecond,
		OverallDeadline: 5 * time.Second,
	})
	results := e.Execute(context.Background(), decisionsFor(hung.id), "q")

	res := results[hung.id]
	if res.OK() {
		t.Fatal("hung adapter should have timed out")
	}
	if res.Err.Kind != adapters.FailureTimeout {
		t.Errorf("failure kind = %s, want timeout", res.Err.Kind)
	}
}

func TestExecuteUnconfiguredSystem(t *testing.T) {
	e := New(nil, Options{})
	results := e.Execute(context.Background(), decisionsFor(registry.SystemJira), "q")

	res := results[registry.SystemJira]
	if res.OK() || res.Err.Kind != adapters.FailureUnknown {
		t.Fatalf("result = %+v, want unknown failure", res)
	}
}

func TestExecuteBackfillsItemAttribution(t *testing.T) {
	a := &fakeAdapter{
		id:    registry.SystemJira,
		items: []adapters.ResultItem{{Title: "no system id"}},
	}

	e := New([]adapters.Adapter{a}, Options{})
	results := e.Execute(context.Background(), decisionsFor(a.id), "q")

	for _, it := range results[a.id].Items {
		if it.SystemID != a.id {
			t.Errorf("item %q attributed to %q, want %q", it.Title, it.SystemID, a.id)
		}
	}
}

func TestExecuteReportsProgress(t *testing.T) {
	a := &fakeAdapter{id: registry.SystemJira, items: []adapters.ResultItem{{Title: "x"}}}
	b := &fakeAdapter{id: registry.SystemConfluence, items: []adapters.ResultItem{{Title: "y"}}}

	var mu sync.Mutex
	var seen []int
	e := New([]adapters.Adapter{a, b}, Options{
		OnProgress: func(done, total int, system registry.SystemID) {
			mu.Lock()
			defer mu.Unlock()
			if total != 2 {
				t.Errorf("total = %d, want 2", total)
			}
			seen = append(seen, done)
		},
	})
	e.Execute(context.Background(), decisionsFor(a.id, b.id), "q")

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("progress callbacks = %v, want [1 2]", seen)
	}
}

func TestExecuteEmptyDecisions(t *testing.T) {
	e := New(nil, Options{})
	if results := e.Execute(context.Background(), nil, "q"); len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}
