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

// JiraConfig holds connection settings for a Jira instance.
type JiraConfig struct {
	BaseURL string
	Token   string // bearer token
	Scope   []string
	Limit   int
}

// JiraAdapter queries the Jira REST API and normalizes issues into
// ResultItems. Calls are bounded by the caller's context; the adapter
// itself holds no deadline and no mutable state.
type JiraAdapter struct {
	cfg        JiraConfig
	apiBase    string
	scope      Scope
	httpClient *http.Client
}

// NewJiraAdapter creates a Jira adapter. BaseURL and Token must be set.
func NewJiraAdapter(cfg JiraConfig) (*JiraAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira: base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("jira: token is required")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.Contains(base, "/rest/api/") {
		base += "/rest/api/3"
	}

	return &JiraAdapter{
		cfg:        cfg,
		apiBase:    base,
		scope:      Scope{Patterns: cfg.Scope},
		httpClient: &http.Client{},
	}, nil
}

func (a *JiraAdapter) ID() registry.SystemID { return registry.SystemJira }

type jiraSearchResponse struct {
	Issues []jiraIssue `json:"issues"`
	Total  int         `json:"total"`
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

// Query runs a JQL full-text search and returns matching issues.
func (a *JiraAdapter) Query(ctx context.Context, query string) ([]ResultItem, error) {
	jql := fmt.Sprintf(`text ~ "%s" ORDER BY updated DESC`, escapeJQL(query))

	endpoint := fmt.Sprintf("%s/search?jql=%s&maxResults=%d&fields=summary,status,priority,project,assignee",
		a.apiBase, url.QueryEscape(jql), a.cfg.Limit)

	var result jiraSearchResponse
	if err := a.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	items := make([]ResultItem, 0, len(result.Issues))
	for i, issue := range result.Issues {
		items = append(items, ResultItem{
			SystemID: registry.SystemJira,
			Title:    fmt.Sprintf("%s: %s", issue.Key, issue.Fields.Summary),
			Snippet:  truncate(jiraSnippet(issue)),
			URL:      a.browseURL(issue.Key),
			Score:    rankScore(i, len(result.Issues)),
		})
	}

	return a.scope.FilterItems(items, func(it ResultItem) string {
		return projectKeyFromTitle(it.Title)
	}), nil
}

// Ping verifies credentials against the /myself endpoint.
func (a *JiraAdapter) Ping(ctx context.Context) error {
	var out map[string]interface{}
	return a.get(ctx, a.apiBase+"/myself", &out)
}

func (a *JiraAdapter) get(ctx context.Context, endpoint string, out interface{}) error {
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
		return NewFailure(ClassifyStatus(resp.StatusCode), "jira API %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewFailure(FailureUnknown, "decoding jira response: %v", err)
	}
	return nil
}

func (a *JiraAdapter) browseURL(key string) string {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	if i := strings.Index(base, "/rest/api/"); i >= 0 {
		base = base[:i]
	}
	return base + "/browse/" + key
}

func jiraSnippet(issue jiraIssue) string {
	var parts []string
	if issue.Fields.Status.Name != "" {
		parts = append(parts, "Status: "+issue.Fields.Status.Name)
	}
	if issue.Fields.Priority.Name != "" {
		parts = append(parts, "Priority: "+issue.Fields.Priority.Name)
	}
	if issue.Fields.Assignee.DisplayName != "" {
		parts = append(parts, "Assignee: "+issue.Fields.Assignee.DisplayName)
	}
	if issue.Fields.Project.Key != "" {
		parts = append(parts, "Project: "+issue.Fields.Project.Key)
	}
	return strings.Join(parts, " | ")
}

// projectKeyFromTitle recovers the project key from an "ABC-123: ..."
// title, for scope filtering.
func projectKeyFromTitle(title string) string {
	key, _, ok := strings.Cut(title, ":")
	if !ok {
		return title
	}
	proj, _, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok {
		return key
	}
	return proj
}

// escapeJQL escapes quotes and backslashes for embedding in a JQL string.
func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
