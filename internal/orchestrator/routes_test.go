package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/karimsalem/askbridge/internal/adapters"
	"github.com/karimsalem/askbridge/internal/registry"
)

func newTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, f.orch)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postQuery(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/query: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleQuery(t *testing.T) {
	f := newFixture(t, &stubProvider{reply: "OPS-1 tracks the outage. [jira]"})
	srv := newTestServer(t, f)

	resp := postQuery(t, srv, `{"query": "show me ticket OPS-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out.Query != "show me ticket OPS-1" {
		t.Errorf("Query = %q", out.Query)
	}
	if len(out.MCPsUsed) != 1 || out.MCPsUsed[0] != registry.SystemJira {
		t.Errorf("MCPsUsed = %v", out.MCPsUsed)
	}
	if out.Synthesis == "" {
		t.Error("Synthesis is empty")
	}
}

func TestHandleQueryPartialFailureIs200(t *testing.T) {
	f := newFixture(t, &stubProvider{reply: "Answer from what survived."})
	f.conf.err = adapters.NewFailure(adapters.FailureTimeout, "timed out")
	srv := newTestServer(t, f)

	resp := postQuery(t, srv, `{"query": "find the documentation page for ticket OPS-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, partial failure must stay 200", resp.StatusCode)
	}
}

func TestHandleQueryValidation(t *testing.T) {
	f := newFixture(t, &stubProvider{reply: "unused"})
	srv := newTestServer(t, f)

	cases := []struct {
		name string
		body string
	}{
		{"empty query", `{"query": ""}`},
		{"unknown selected system", `{"query": "q", "selected_mcps": ["sharepoint"]}`},
		{"malformed json", `{`},
	}
	for _, c := range cases {
		resp := postQuery(t, srv, c.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", c.name, resp.StatusCode)
		}
	}
}

func TestHandleQueryTotalFailureIs500(t *testing.T) {
	f := newFixture(t, &stubProvider{err: errors.New("provider down")})
	srv := newTestServer(t, f)

	resp := postQuery(t, srv, `{"query": "good morning everyone"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleListSystems(t *testing.T) {
	f := newFixture(t, &stubProvider{reply: "unused"})
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/mcps")
	if err != nil {
		t.Fatalf("GET /api/mcps: %v", err)
	}
	defer resp.Body.Close()

	var out map[string][]systemInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	infos := out["mcps"]
	if len(infos) != 3 {
		t.Fatalf("len = %d, want 3", len(infos))
	}
	for _, info := range infos {
		if info.ID == "" || info.Name == "" || info.Description == "" {
			t.Errorf("incomplete system info: %+v", info)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t, &stubProvider{reply: "unused"})
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out struct {
		Status  string `json:"status"`
		Systems int    `json:"systems"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out.Status != "healthy" {
		t.Errorf("status = %q", out.Status)
	}
	if out.Systems != 3 {
		t.Errorf("systems = %d, want 3", out.Systems)
	}
}
