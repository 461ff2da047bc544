// Package pubservice coordinates the catalog, the combined search and the
// citation formatter for the HTTP, web and MCP surfaces.
package pubservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/citation"
	"github.com/iisdela/pubsearch/internal/loader"
	"github.com/iisdela/pubsearch/internal/metrics"
	"github.com/iisdela/pubsearch/internal/search"
	"github.com/iisdela/pubsearch/internal/snapshot"
	"github.com/iisdela/pubsearch/internal/sse"
)

// Result is a rendered search.
type Result struct {
	Count   int              `json:"count"`
	Results []citation.Entry `json:"results"`
	Skipped []citation.Skip  `json:"skipped"`
	Version string           `json:"version"`
}

// DatasetInfo describes the loaded dataset.
type DatasetInfo struct {
	Version      string                `json:"version"`
	Checksum     string                `json:"checksum"`
	Source       string                `json:"source"`
	LoadedAt     time.Time             `json:"loaded_at"`
	Publications int                   `json:"publications"`
	Authors      int                   `json:"authors"`
	Rows         int                   `json:"rows"`
	Hidden       int                   `json:"hidden"`
	RowErrors    []loader.RowError     `json:"row_errors"`
	Stale        []string              `json:"stale"`
	History      []snapshot.LoadRecord `json:"history,omitempty"`
}

// Notifier receives reload announcements. *sse.Broker implements it.
type Notifier interface {
	PublishReload(info sse.ReloadInfo)
}

// Service serves publication queries over the current dataset.
type Service struct {
	catalog  *catalog.Catalog
	metrics  *metrics.Metrics
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new publication service. m and n may be nil.
func NewService(c *catalog.Catalog, m *metrics.Metrics, n Notifier, logger *slog.Logger) *Service {
	return &Service{catalog: c, metrics: m, notifier: n, logger: logger}
}

// Search validates p, runs the combined search and renders the matches.
func (s *Service) Search(_ context.Context, p search.Params) (*Result, error) {
	ds, err := s.catalog.Current()
	if err != nil {
		s.metrics.ObserveSearch(metrics.OutcomeError, 0)
		return nil, err
	}

	matches, err := search.Combined(ds.Publications, p)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, apperr.ErrInvalidParams) {
			outcome = metrics.OutcomeInvalid
		}
		s.metrics.ObserveSearch(outcome, 0)
		return nil, err
	}

	entries, skipped := citation.FormatAll(matches, s.logger)
	s.metrics.ObserveSearch(metrics.OutcomeOK, len(entries))

	return &Result{
		Count:   len(entries),
		Results: entries,
		Skipped: nonNilSlice(skipped),
		Version: ds.Version,
	}, nil
}

// AuthorPublications returns the publications naming author.
func (s *Service) AuthorPublications(ctx context.Context, author string) (*Result, error) {
	return s.Search(ctx, search.Params{AuthorTags: []string{author}})
}

// Authors returns the author directory.
func (s *Service) Authors(_ context.Context) ([]string, error) {
	ds, err := s.catalog.Current()
	if err != nil {
		return nil, err
	}
	return ds.AuthorNames(), nil
}

// TagOptions returns the distinct tag values of the dataset.
func (s *Service) TagOptions(_ context.Context) (catalog.TagOptions, error) {
	ds, err := s.catalog.Current()
	if err != nil {
		return catalog.TagOptions{}, err
	}
	return ds.TagOptions(), nil
}

// Dataset describes the current dataset and recent loads.
func (s *Service) Dataset(_ context.Context) (*DatasetInfo, error) {
	ds, err := s.catalog.Current()
	if err != nil {
		return nil, err
	}
	info := datasetInfo(ds)
	history, err := s.catalog.History(10)
	if err != nil {
		s.logger.Warn("dataset history unavailable", slog.String("error", err.Error()))
	}
	info.History = history
	return info, nil
}

// Reload loads the source again. Subscribers are notified only when the
// content changed.
func (s *Service) Reload(ctx context.Context) (*DatasetInfo, error) {
	res, err := s.catalog.Load(ctx)
	if err != nil {
		s.metrics.ObserveLoad(metrics.OutcomeError, 0, 0, 0)
		return nil, err
	}
	ds := res.Dataset
	s.metrics.ObserveLoad(metrics.OutcomeOK, len(ds.Publications), len(ds.Authors), len(ds.RowErrors))

	if res.Changed && s.notifier != nil {
		s.notifier.PublishReload(sse.ReloadInfo{
			Version:      ds.Version,
			Publications: len(ds.Publications),
			Authors:      len(ds.Authors),
			RowErrors:    len(ds.RowErrors),
			LoadedAt:     ds.LoadedAt,
		})
	}
	return datasetInfo(ds), nil
}

func datasetInfo(ds *catalog.Dataset) *DatasetInfo {
	return &DatasetInfo{
		Version:      ds.Version,
		Checksum:     ds.Checksum,
		Source:       ds.Source,
		LoadedAt:     ds.LoadedAt,
		Publications: len(ds.Publications),
		Authors:      len(ds.Authors),
		Rows:         ds.Rows,
		Hidden:       ds.Hidden,
		RowErrors:    nonNilSlice(ds.RowErrors),
		Stale:        nonNilSlice(ds.Stale),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
