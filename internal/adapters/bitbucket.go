package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/karimsalem/askbridge/internal/registry"
)

// BitbucketConfig holds connection settings for a Bitbucket Server/DC
// instance.
type BitbucketConfig struct {
	BaseURL string
	Token   string // bearer token
	Scope   []string
	Limit   int
}

// BitbucketAdapter queries the Bitbucket REST API for repositories and
// open pull requests matching the query, normalized into ResultItems.
type BitbucketAdapter struct {
	cfg        BitbucketConfig
	apiBase    string
	scope      Scope
	httpClient *http.Client
}

// NewBitbucketAdapter creates a Bitbucket adapter.
func NewBitbucketAdapter(cfg BitbucketConfig) (*BitbucketAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bitbucket: base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bitbucket: token is required")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}

	return &BitbucketAdapter{
		cfg:        cfg,
		apiBase:    strings.TrimRight(cfg.BaseURL, "/") + "/rest/api/1.0",
		scope:      Scope{Patterns: cfg.Scope},
		httpClient: &http.Client{},
	}, nil
}

func (a *BitbucketAdapter) ID() registry.SystemID { return registry.SystemBitbucket }

type bitbucketRepoPage struct {
	Values []bitbucketRepo `json:"values"`
	Size   int             `json:"size"`
}

type bitbucketRepo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Project     struct {
		Key string `json:"key"`
	} `json:"project"`
	Links struct {
		Self []struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"links"`
}

// Query searches repositories by name and returns them with their open
// pull request counts folded into the snippet.
func (a *BitbucketAdapter) Query(ctx context.Context, query string) ([]ResultItem, error) {
	term := searchTerm(query)

	endpoint := fmt.Sprintf("%s/repos?name=%s&limit=%d", a.apiBase, url.QueryEscape(term), a.cfg.Limit)

	var page bitbucketRepoPage
	if err := a.get(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	items := make([]ResultItem, 0, len(page.Values))
	for i, repo := range page.Values {
		slug := repo.Project.Key + "/" + repo.Slug
		if !a.scope.Allows(slug) {
			continue
		}

		snippet := repo.Description
		if prs := a.openPullRequests(ctx, repo); prs != "" {
			if snippet != "" {
				snippet += " | "
			}
			snippet += prs
		}

		items = append(items, ResultItem{
			SystemID: registry.SystemBitbucket,
			Title:    slug,
			Snippet:  truncate(snippet),
			URL:      a.repoURL(repo),
			Score:    rankScore(i, len(page.Values)),
		})
	}
	return items, nil
}

type bitbucketPRPage struct {
	Values []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		State string `json:"state"`
	} `json:"values"`
	Size int `json:"size"`
}

// openPullRequests summarizes open PRs for a repository. Failures here
// degrade to an empty summary: the repository hit itself still counts.
func (a *BitbucketAdapter) openPullRequests(ctx context.Context, repo bitbucketRepo) string {
	endpoint := fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests?state=OPEN&limit=5",
		a.apiBase, url.PathEscape(repo.Project.Key), url.PathEscape(repo.Slug))

	var page bitbucketPRPage
	if err := a.get(ctx, endpoint, &page); err != nil {
		return ""
	}
	if len(page.Values) == 0 {
		return ""
	}

	titles := make([]string, 0, len(page.Values))
	for _, pr := range page.Values {
		titles = append(titles, fmt.Sprintf("#%d %s", pr.ID, pr.Title))
	}
	return fmt.Sprintf("Open PRs: %s", strings.Join(titles, "; "))
}

// Ping verifies credentials by listing one project.
func (a *BitbucketAdapter) Ping(ctx context.Context) error {
	var out map[string]interface{}
	return a.get(ctx, a.apiBase+"/projects?limit=1", &out)
}

func (a *BitbucketAdapter) get(ctx context.Context, endpoint string, out interface{}) error {
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
		return NewFailure(ClassifyStatus(resp.StatusCode), "bitbucket API %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewFailure(FailureUnknown, "decoding bitbucket response: %v", err)
	}
	return nil
}

func (a *BitbucketAdapter) repoURL(repo bitbucketRepo) string {
	if len(repo.Links.Self) > 0 {
		return repo.Links.Self[0].Href
	}
	return fmt.Sprintf("%s/projects/%s/repos/%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), repo.Project.Key, repo.Slug)
}

// searchTerm extracts a short name filter from a free-text query: the
// repos endpoint matches on repository name, not full text.
func searchTerm(query string) string {
	stop := map[string]bool{
		"the": true, "a": true, "an": true, "in": true, "for": true,
		"show": true, "me": true, "my": true, "find": true, "list": true,
		"repository": true, "repositories": true, "repo": true, "repos": true,
		"pull": true, "request": true, "requests": true, "open": true,
		"code": true, "review": true, "about": true, "and": true, "of": true,
	}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `.,!?"'`)
		if len(word) > 2 && !stop[word] {
			return word
		}
	}
	return ""
}
