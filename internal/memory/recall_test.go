package memory

import (
	"context"
	"math"
	"testing"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
)

// hashEmbedder maps text into a deterministic bucket-count vector, so
// identical texts are identical vectors and similar texts are close.
type hashEmbedder struct{}

func (hashEmbedder) Name() string    { return "hash" }
func (hashEmbedder) Dimensions() int { return 16 }

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for _, r := range text {
			vec[int(r)%16]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range vec {
				vec[j] /= n
			}
		}
		out[i] = vec
	}
	return out, nil
}

func TestRememberAndRelated(t *testing.T) {
	r := New(hashEmbedder{})
	ctx := context.Background()

	items := []adapters.ResultItem{
		{SystemID: registry.SystemJira, Title: "OPS-7: Login outage", URL: "https://jira/browse/OPS-7", Score: 0.9},
		{SystemID: registry.SystemConfluence, Title: "Quarterly planning notes", URL: "https://wiki/q", Score: 0.5},
	}
	if err := r.Remember(ctx, "s1", items); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	got, err := r.Related(ctx, "s1", "OPS-7: Login outage", 1)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "OPS-7: Login outage" {
		t.Errorf("Title = %q", got[0].Title)
	}
	if got[0].SystemID != registry.SystemJira {
		t.Errorf("SystemID = %s", got[0].SystemID)
	}
	if got[0].Score != 0.9 {
		t.Errorf("Score = %v, want the stored score", got[0].Score)
	}
}

func TestRelatedEmptySessionIsNil(t *testing.T) {
	r := New(hashEmbedder{})

	got, err := r.Related(context.Background(), "never-seen", "anything", 3)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestRelatedClampsLimitToCollectionSize(t *testing.T) {
	r := New(hashEmbedder{})
	ctx := context.Background()

	if err := r.Remember(ctx, "s1", []adapters.ResultItem{
		{SystemID: registry.SystemJira, Title: "only item"},
	}); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	got, err := r.Related(ctx, "s1", "only item", 10)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestNilRecallIsNoOp(t *testing.T) {
	var r *Recall
	ctx := context.Background()

	if err := r.Remember(ctx, "s1", []adapters.ResultItem{{Title: "x"}}); err != nil {
		t.Fatalf("Remember on nil: %v", err)
	}
	got, err := r.Related(ctx, "s1", "x", 3)
	if err != nil || got != nil {
		t.Fatalf("Related on nil = %v, %v", got, err)
	}
}

func TestRememberDeduplicatesByIdentity(t *testing.T) {
	r := New(hashEmbedder{})
	ctx := context.Background()

	item := adapters.ResultItem{SystemID: registry.SystemJira, Title: "OPS-7: Login outage", URL: "u"}
	if err := r.Remember(ctx, "s1", []adapters.ResultItem{item}); err != nil {
		t.Fatalf("first Remember: %v", err)
	}
	if err := r.Remember(ctx, "s1", []adapters.ResultItem{item}); err != nil {
		t.Fatalf("second Remember: %v", err)
	}

	got, err := r.Related(ctx, "s1", "OPS-7", 10)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (same item re-indexed, not duplicated)", len(got))
	}
}
