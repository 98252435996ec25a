package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/embeddings"
	"github.com/karimsalem/askbridge/internal/registry"
)

// Recall is a per-session semantic memory of previously retrieved result
// items. The synthesizer can pull a handful of related items from earlier
// turns to keep follow-up answers grounded in what was already found.
// Entirely optional: a nil *Recall is a no-op.
type Recall struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc

	mu sync.Mutex // guards collection creation
}

// New creates an in-memory Recall over the given embedder.
func New(embedder embeddings.Embedder) *Recall {
	return &Recall{
		db:        chromem.NewDB(),
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

// Remember indexes the items retrieved for one session turn.
func (r *Recall) Remember(ctx context.Context, sessionID string, items []adapters.ResultItem) error {
	if r == nil || sessionID == "" || len(items) == 0 {
		return nil
	}

	col, err := r.collection(sessionID)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(items))
	for _, it := range items {
		content := it.Title
		if it.Snippet != "" {
			content += "\n" + it.Snippet
		}
		docs = append(docs, chromem.Document{
			ID:      itemID(it),
			Content: content,
			Metadata: map[string]string{
				"system_id": string(it.SystemID),
				"title":     it.Title,
				"url":       it.URL,
				"score":     strconv.FormatFloat(it.Score, 'f', -1, 64),
			},
		})
	}

	return col.AddDocuments(ctx, docs, 1)
}

// Related returns up to limit previously retrieved items related to the
// query. Returns nil when the session has no memory yet.
func (r *Recall) Related(ctx context.Context, sessionID, query string, limit int) ([]adapters.ResultItem, error) {
	if r == nil || sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	col, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("recall query: %w", err)
	}

	items := make([]adapters.ResultItem, 0, len(results))
	for _, res := range results {
		score, _ := strconv.ParseFloat(res.Metadata["score"], 64)
		items = append(items, adapters.ResultItem{
			SystemID: registry.SystemID(res.Metadata["system_id"]),
			Title:    res.Metadata["title"],
			Snippet:  res.Content,
			URL:      res.Metadata["url"],
			Score:    score,
		})
	}
	return items, nil
}

func (r *Recall) collection(sessionID string) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	col, err := r.db.GetOrCreateCollection("session-"+sessionID, nil, r.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("recall collection: %w", err)
	}
	return col, nil
}

func itemID(it adapters.ResultItem) string {
	h := sha1.Sum([]byte(string(it.SystemID) + "|" + it.Title + "|" + it.URL))
	return hex.EncodeToString(h[:])
}
