package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/karimsalem/askbridge/internal/registry"
)

// ConfluenceConfig holds connection settings for a Confluence instance.
type ConfluenceConfig struct {
	BaseURL string
	Token   string // bearer token
	Scope   []string
	Limit   int
}

// ConfluenceAdapter queries the Confluence REST API (CQL search) and
// normalizes pages into ResultItems.
type ConfluenceAdapter struct {
	cfg        ConfluenceConfig
	scope      Scope
	httpClient *http.Client
}

// NewConfluenceAdapter creates a Confluence adapter.
func NewConfluenceAdapter(cfg ConfluenceConfig) (*ConfluenceAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("confluence: base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("confluence: token is required")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}

	return &ConfluenceAdapter{
		cfg:        cfg,
		scope:      Scope{Patterns: cfg.Scope},
		httpClient: &http.Client{},
	}, nil
}

func (a *ConfluenceAdapter) ID() registry.SystemID { return registry.SystemConfluence }

type confluenceSearchResponse struct {
	Results []confluenceResult `json:"results"`
	Size    int                `json:"size"`
}

type confluenceResult struct {
	Content struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Links struct {
			WebUI string `json:"webui"`
		} `json:"_links"`
	} `json:"content"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

// Query runs a CQL text search and returns matching pages.
func (a *ConfluenceAdapter) Query(ctx context.Context, query string) ([]ResultItem, error) {
	cql := fmt.Sprintf(`type=page AND text ~ "%s"`, escapeCQL(query))

	endpoint := fmt.Sprintf("%s/rest/api/search?cql=%s&limit=%d&excerpt=highlight",
		strings.TrimRight(a.cfg.BaseURL, "/"), url.QueryEscape(cql), a.cfg.Limit)

	var result confluenceSearchResponse
	if err := a.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	items := make([]ResultItem, 0, len(result.Results))
	for i, r := range result.Results {
		title := r.Content.Title
		if title == "" {
			title = r.Title
		}
		pageURL := r.URL
		if pageURL == "" && r.Content.Links.WebUI != "" {
			pageURL = strings.TrimRight(a.cfg.BaseURL, "/") + r.Content.Links.WebUI
		}
		items = append(items, ResultItem{
			SystemID: registry.SystemConfluence,
			Title:    title,
			Snippet:  truncate(stripMarkup(r.Excerpt)),
			URL:      pageURL,
			Score:    rankScore(i, len(result.Results)),
		})
		// Space key rides along for scope filtering below.
		items[len(items)-1] = withSpaceKey(items[len(items)-1], r.Content.Space.Key)
	}

	if len(a.scope.Patterns) == 0 {
		return items, nil
	}
	var out []ResultItem
	for i, r := range result.Results {
		if i < len(items) && a.scope.Allows(r.Content.Space.Key) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Ping verifies credentials against the current-user endpoint.
func (a *ConfluenceAdapter) Ping(ctx context.Context) error {
	var out map[string]interface{}
	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/rest/api/user/current"
	return a.get(ctx, endpoint, &out)
}

func (a *ConfluenceAdapter) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewFailure(FailureUnknown, "building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ClassifyErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return NewFailure(ClassifyStatus(resp.StatusCode), "confluence API %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewFailure(FailureUnknown, "decoding confluence response: %v", err)
	}
	return nil
}

func withSpaceKey(it ResultItem, space string) ResultItem {
	if space != "" && it.Snippet != "" {
		it.Snippet = "[" + space + "] " + it.Snippet
	} else if space != "" {
		it.Snippet = "[" + space + "]"
	}
	return it
}

var markupRegex = regexp.MustCompile(`<[^>]*>|@@@(?:hl|endhl)@@@`)

// stripMarkup removes Confluence excerpt highlighting and HTML tags.
func stripMarkup(s string) string {
	return strings.TrimSpace(markupRegex.ReplaceAllString(s, ""))
}

// escapeCQL escapes quotes and backslashes for embedding in a CQL string.
func escapeCQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
