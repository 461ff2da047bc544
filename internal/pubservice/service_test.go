package pubservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/metrics"
	"github.com/iisdela/pubsearch/internal/search"
	"github.com/iisdela/pubsearch/internal/sse"
	"github.com/iisdela/pubsearch/internal/testutil"
)

type recordingNotifier struct {
	reloads []sse.ReloadInfo
}

func (r *recordingNotifier) PublishReload(info sse.ReloadInfo) {
	r.reloads = append(r.reloads, info)
}

func newTestService(t *testing.T) (*Service, *recordingNotifier, string) {
	t.Helper()
	dir, src := testutil.SourceDir(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New(src, testutil.TestDB(t), catalog.Tables{
		Publications: testutil.PublicationsTable,
		Authors:      testutil.AuthorsTable,
	}, logger)
	n := &recordingNotifier{}
	return NewService(cat, metrics.New(), n, logger), n, dir
}

func TestSearch_NotLoaded(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Search(context.Background(), search.Params{}); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("err = %v, want ErrNotLoaded", err)
	}
}

func TestSearch_SkipsUnknownType(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	res, err := svc.Search(ctx, search.Params{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Count != 5 || len(res.Results) != 5 {
		t.Errorf("count = %d, want 5", res.Count)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Title != "A book chapter" {
		t.Errorf("skipped = %+v", res.Skipped)
	}
	if res.Results[0].Publication.Authors != "Adams, P." {
		t.Errorf("first result = %q, want Adams", res.Results[0].Publication.Authors)
	}
}

func TestSearch_InvalidParams(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	_, err := svc.Search(ctx, search.Params{YearStart: "abc"})
	if !errors.Is(err, apperr.ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}
}

func TestAuthorPublications(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	res, err := svc.AuthorPublications(ctx, "Smith, J.")
	if err != nil {
		t.Fatalf("AuthorPublications: %v", err)
	}
	if res.Count != 1 || !strings.HasPrefix(res.Results[0].Text, "Smith, J., Doe, A. (2015).") {
		t.Errorf("result = %+v", res)
	}
}

func TestReload_NotifiesOnlyOnChange(t *testing.T) {
	svc, n, dir := newTestService(t)
	ctx := context.Background()

	info, err := svc.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if info.Publications != 6 || info.Authors != 3 {
		t.Errorf("info = %+v", info)
	}
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("second Reload: %v", err)
	}
	if len(n.reloads) != 1 {
		t.Fatalf("reload events = %d, want 1", len(n.reloads))
	}

	testutil.WriteTable(t, dir, testutil.AuthorsTable, "Name\nOnly, O.\n")
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("third Reload: %v", err)
	}
	if len(n.reloads) != 2 || n.reloads[1].Authors != 1 {
		t.Errorf("reloads = %+v", n.reloads)
	}
}

func TestDatasetAndTags(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	info, err := svc.Dataset(ctx)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if len(info.History) != 1 || info.History[0].Version != info.Version {
		t.Errorf("history = %+v", info.History)
	}
	if len(info.RowErrors) != 2 {
		t.Errorf("row errors = %d, want 2", len(info.RowErrors))
	}

	tags, err := svc.TagOptions(ctx)
	if err != nil {
		t.Fatalf("TagOptions: %v", err)
	}
	if len(tags.Lakes) == 0 || tags.Lakes[len(tags.Lakes)-1] != "Other" {
		t.Errorf("lakes = %v", tags.Lakes)
	}

	authors, err := svc.Authors(ctx)
	if err != nil || len(authors) != 3 {
		t.Errorf("authors = %v, %v", authors, err)
	}
}
