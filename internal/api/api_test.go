package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/pubservice"
	"github.com/iisdela/pubsearch/internal/testutil"
)

// testEnv sets up a fixture source, snapshot DB, service and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*pubservice.Service, http.Handler) {
	t.Helper()
	svc := newService(t)
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func newService(t *testing.T) *pubservice.Service {
	t.Helper()
	_, src := testutil.SourceDir(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New(src, testutil.TestDB(t), catalog.Tables{
		Publications: testutil.PublicationsTable,
		Authors:      testutil.AuthorsTable,
	}, logger)
	return pubservice.NewService(cat, nil, nil, logger)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSearch(t *testing.T, w *httptest.ResponseRecorder) SearchResponse {
	t.Helper()
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func TestSearch_NoFilters(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(t, router, "/publications")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeSearch(t, w)
	if resp.Count != 5 || len(resp.Results) != 5 {
		t.Errorf("count = %d, want 5", resp.Count)
	}
	if len(resp.Skipped) != 1 {
		t.Errorf("skipped = %d, want 1", len(resp.Skipped))
	}
}

func TestSearch_TagFilter(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(t, router, "/publications?data_type_tags=Fish")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeSearch(t, w)
	// Fishery must not match; the unknown-type Fish record is skipped.
	if resp.Count != 1 || resp.Results[0].Publication.Title != "Mercury in lake trout" {
		t.Errorf("results = %+v", resp.Results)
	}
	if len(resp.Skipped) != 1 {
		t.Errorf("skipped = %+v", resp.Skipped)
	}
}

func TestSearch_ResultShape(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(t, router, "/publications?lake_tags=227")

	var raw struct {
		Count   int `json:"count"`
		Results []struct {
			Citation    string         `json:"citation"`
			TagSummary  string         `json:"tag_summary"`
			Publication map[string]any `json:"publication"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw.Count != 1 {
		t.Fatalf("count = %d", raw.Count)
	}
	r := raw.Results[0]
	if !strings.HasPrefix(r.Citation, "Brown, K. (2020). Phosphorus loading and algal blooms. Limnology and Oceanography, 65.") {
		t.Errorf("citation = %q", r.Citation)
	}
	if r.TagSummary != "Lakes: 227 | Data Types: Water quality; Algae | Environmental Issues: Eutrophication" {
		t.Errorf("tag summary = %q", r.TagSummary)
	}
	if r.Publication["type"] != "journal" || r.Publication["relationship_to_iisd_ela"] != "supported" {
		t.Errorf("publication = %v", r.Publication)
	}
	if _, leaked := r.Publication["approved"]; leaked {
		t.Error("approval state should not be exposed")
	}
}

func TestSearch_YearAndCategory(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(t, router, "/publications?year_start=2015&year_end=2020&category=authored")
	resp := decodeSearch(t, w)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Results[0].Publication.Authors != "Adams, P." || resp.Results[1].Publication.Authors != "Smith, J.; Doe, A." {
		t.Errorf("order = %q, %q", resp.Results[0].Publication.Authors, resp.Results[1].Publication.Authors)
	}
}

func TestSearch_InvalidParams(t *testing.T) {
	_, router := testEnv(t, "")
	for _, q := range []string{
		"year_start=20x5",
		"year_start=2021&year_end=2015",
		"category=alumni",
	} {
		w := get(t, router, "/publications?"+q)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestSearch_NotLoaded(t *testing.T) {
	router := NewRouter(newService(t), false, "", nil)
	w := get(t, router, "/publications")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAuthorPublications(t *testing.T) {
	_, router := testEnv(t, "")
	w := get(t, router, "/publications/by-author/"+url.PathEscape("Brown, K."))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeSearch(t, w)
	if resp.Count != 1 || resp.Results[0].Publication.Authors != "Brown, K." {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestListAuthorsAndTags(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/authors")
	var authors AuthorsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &authors); err != nil {
		t.Fatalf("decode authors: %v", err)
	}
	if authors.Total != 3 || authors.Authors[0] != "Adams, P." {
		t.Errorf("authors = %+v", authors)
	}

	w = get(t, router, "/tags")
	var tags TagsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("decode tags: %v", err)
	}
	if len(tags.Lakes) != 5 || tags.Lakes[4] != "Other" {
		t.Errorf("lakes = %v", tags.Lakes)
	}
}

func TestDatasetAndReload(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(t, router, "/dataset")
	var before DatasetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if before.Publications != 6 || before.Hidden != 1 || len(before.RowErrors) != 2 {
		t.Errorf("dataset = %+v", before)
	}

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}
	var after DatasetResponse
	_ = json.Unmarshal(w.Body.Bytes(), &after)
	if after.Version != before.Version {
		t.Error("unchanged source should keep the dataset version")
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/authors", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := get(t, router, "/authors")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/authors", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(newService(t), authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	w := get(t, router, "/events")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
