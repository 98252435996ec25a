package synthesis

import (
	"reflect"
	"testing"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
)

func TestMergeOrdersByScore(t *testing.T) {
	results := map[registry.SystemID]adapters.Result{
		registry.SystemJira: {
			SystemID: registry.SystemJira,
			Items: []adapters.ResultItem{
				{SystemID: registry.SystemJira, Title: "low", Score: 0.2},
				{SystemID: registry.SystemJira, Title: "high", Score: 0.9},
			},
		},
		registry.SystemConfluence: {
			SystemID: registry.SystemConfluence,
			Items: []adapters.ResultItem{
				{SystemID: registry.SystemConfluence, Title: "mid", Score: 0.5},
			},
		},
	}

	items := Merge(results, nil, 0)
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	if !reflect.DeepEqual(titles, []string{"high", "mid", "low"}) {
		t.Fatalf("order = %v", titles)
	}
}

func TestMergeSkipsFailedResults(t *testing.T) {
	results := map[registry.SystemID]adapters.Result{
		registry.SystemJira: {
			SystemID: registry.SystemJira,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemJira, Title: "kept", Score: 1}},
		},
		registry.SystemConfluence: {
			SystemID: registry.SystemConfluence,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemConfluence, Title: "dropped", Score: 1}},
			Err:      adapters.NewFailure(adapters.FailureTimeout, "timed out"),
		},
	}

	items := Merge(results, nil, 0)
	if len(items) != 1 || items[0].Title != "kept" {
		t.Fatalf("items = %+v, want only the jira item", items)
	}
}

func TestMergeRecencyBias(t *testing.T) {
	results := map[registry.SystemID]adapters.Result{
		registry.SystemJira: {
			SystemID: registry.SystemJira,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemJira, Title: "jira item", Score: 0.5}},
		},
		registry.SystemBitbucket: {
			SystemID: registry.SystemBitbucket,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemBitbucket, Title: "bitbucket item", Score: 0.4}},
		},
	}

	recent := map[registry.SystemID]bool{registry.SystemBitbucket: true}
	items := Merge(results, recent, 0)
	if items[0].Title != "bitbucket item" {
		t.Fatalf("first item = %q, want the recency-boosted one", items[0].Title)
	}
}

func TestMergeLimit(t *testing.T) {
	results := map[registry.SystemID]adapters.Result{
		registry.SystemJira: {
			SystemID: registry.SystemJira,
			Items: []adapters.ResultItem{
				{SystemID: registry.SystemJira, Title: "a", Score: 0.3},
				{SystemID: registry.SystemJira, Title: "b", Score: 0.2},
				{SystemID: registry.SystemJira, Title: "c", Score: 0.1},
			},
		},
	}

	if items := Merge(results, nil, 2); len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
}

// Merging must not depend on map iteration order: equal scores fall back
// to system id, then title.
func TestMergeStableAcrossRuns(t *testing.T) {
	results := map[registry.SystemID]adapters.Result{
		registry.SystemJira: {
			SystemID: registry.SystemJira,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemJira, Title: "same", Score: 0.5}},
		},
		registry.SystemConfluence: {
			SystemID: registry.SystemConfluence,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemConfluence, Title: "same", Score: 0.5}},
		},
		registry.SystemBitbucket: {
			SystemID: registry.SystemBitbucket,
			Items:    []adapters.ResultItem{{SystemID: registry.SystemBitbucket, Title: "same", Score: 0.5}},
		},
	}

	first := Merge(results, nil, 0)
	for i := 0; i < 20; i++ {
		if got := Merge(results, nil, 0); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	if first[0].SystemID != registry.SystemBitbucket {
		t.Errorf("tiebreak order starts with %s, want bitbucket", first[0].SystemID)
	}
}
