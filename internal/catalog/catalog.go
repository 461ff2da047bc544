// Package catalog holds the base set: the approved publications and the
// author directory, loaded from the source and read-only until the next load.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/checksum"
	"github.com/iisdela/pubsearch/internal/loader"
	"github.com/iisdela/pubsearch/internal/models"
	"github.com/iisdela/pubsearch/internal/snapshot"
	"github.com/iisdela/pubsearch/internal/source"
)

// Dataset is one loaded generation of the base set.
type Dataset struct {
	Version      string
	Checksum     string
	Source       string
	LoadedAt     time.Time
	Publications []models.Publication
	Authors      []models.Author
	RowErrors    []loader.RowError
	Rows         int
	Hidden       int
	Stale        []string
}

// TagOptions lists the distinct values of each tag field in a dataset.
type TagOptions struct {
	DataTypes []string `json:"data_type_tags"`
	Issues    []string `json:"environmental_issue_tags"`
	Lakes     []string `json:"lake_tags"`
}

// Tables names the two source tables.
type Tables struct {
	Publications string
	Authors      string
}

// Catalog owns the current Dataset. Readers get an immutable snapshot;
// Load builds a new Dataset and swaps it in.
type Catalog struct {
	src    source.Provider
	store  snapshot.Store
	tables Tables
	logger *slog.Logger

	current atomic.Pointer[Dataset]
	loadMu  sync.Mutex
}

// New creates a Catalog. store may be nil to disable the snapshot fallback.
func New(src source.Provider, store snapshot.Store, tables Tables, logger *slog.Logger) *Catalog {
	return &Catalog{src: src, store: store, tables: tables, logger: logger}
}

// Current returns the loaded dataset or apperr.ErrNotLoaded.
func (c *Catalog) Current() (*Dataset, error) {
	ds := c.current.Load()
	if ds == nil {
		return nil, apperr.ErrNotLoaded
	}
	return ds, nil
}

// LoadResult reports the outcome of a Load.
type LoadResult struct {
	Dataset *Dataset
	Changed bool // false when the source content matched the current dataset
}

// Load fetches both tables, parses them and installs the new dataset.
// If the content is identical to the current dataset, the current one is kept.
// A failed load leaves the current dataset in place.
func (c *Catalog) Load(ctx context.Context) (*LoadResult, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	names := []string{c.tables.Publications, c.tables.Authors}
	synced, err := snapshot.Sync(ctx, c.store, c.src, names, c.logger)
	if err != nil {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}

	sum := checksum.Tables(synced.Tables)
	if prev := c.current.Load(); prev != nil && prev.Checksum == sum {
		c.logger.Debug("catalog: content unchanged", slog.String("version", prev.Version))
		if slices.Equal(prev.Stale, synced.Stale) {
			return &LoadResult{Dataset: prev}, nil
		}
		// Same content, different freshness: keep the version, refresh Stale.
		next := *prev
		next.Stale = synced.Stale
		c.current.Store(&next)
		c.logger.Info("catalog: stale tables changed", slog.Any("stale", next.Stale))
		return &LoadResult{Dataset: &next}, nil
	}

	pubs, err := loader.ParsePublications(bytes.NewReader(synced.Tables[c.tables.Publications]))
	if err != nil {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}
	authors, err := loader.ParseAuthors(bytes.NewReader(synced.Tables[c.tables.Authors]))
	if err != nil {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}

	ds := &Dataset{
		Version:      uuid.NewString(),
		Checksum:     sum,
		Source:       c.src.Name(),
		LoadedAt:     time.Now().UTC(),
		Publications: pubs.Publications,
		Authors:      authors,
		RowErrors:    pubs.Errors,
		Rows:         pubs.Rows,
		Hidden:       pubs.Hidden,
		Stale:        synced.Stale,
	}

	for _, re := range ds.RowErrors {
		c.logger.Warn("catalog: row problem",
			slog.Int("line", re.Line),
			slog.String("column", re.Column),
			slog.String("reason", re.Reason),
			slog.Bool("skipped", re.Skipped))
	}

	if c.store != nil {
		rec := snapshot.LoadRecord{
			Version:      ds.Version,
			Checksum:     ds.Checksum,
			Source:       ds.Source,
			Publications: len(ds.Publications),
			Authors:      len(ds.Authors),
			RowErrors:    len(ds.RowErrors),
			Stale:        len(ds.Stale) > 0,
			LoadedAt:     ds.LoadedAt,
		}
		if err := c.store.RecordLoad(rec); err != nil {
			c.logger.Warn("catalog: record load failed", slog.String("error", err.Error()))
		}
	}

	c.current.Store(ds)
	c.logger.Info("catalog: dataset loaded",
		slog.String("version", ds.Version),
		slog.String("source", ds.Source),
		slog.Int("publications", len(ds.Publications)),
		slog.Int("authors", len(ds.Authors)),
		slog.Int("hidden", ds.Hidden),
		slog.Int("row_errors", len(ds.RowErrors)))

	return &LoadResult{Dataset: ds, Changed: true}, nil
}

// History returns the most recent loads recorded in the snapshot store.
func (c *Catalog) History(limit int) ([]snapshot.LoadRecord, error) {
	if c.store == nil {
		return []snapshot.LoadRecord{}, nil
	}
	return c.store.RecentLoads(limit)
}

// TagOptions collects the distinct tag values of the dataset. Data-type and
// issue tags sort alphabetically; lakes sort numerically with non-numeric
// values ("Other") last.
func (d *Dataset) TagOptions() TagOptions {
	dt := map[string]struct{}{}
	is := map[string]struct{}{}
	lk := map[string]struct{}{}
	for _, p := range d.Publications {
		for _, t := range p.DataTypes.Items {
			dt[t] = struct{}{}
		}
		for _, t := range p.Issues.Items {
			is[t] = struct{}{}
		}
		for _, t := range p.Lakes.Items {
			lk[t] = struct{}{}
		}
	}

	lakes := keys(lk)
	sort.SliceStable(lakes, func(i, j int) bool {
		a, aErr := strconv.Atoi(lakes[i])
		b, bErr := strconv.Atoi(lakes[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return lakes[i] < lakes[j]
		}
	})

	dts := keys(dt)
	sort.Strings(dts)
	iss := keys(is)
	sort.Strings(iss)

	return TagOptions{DataTypes: dts, Issues: iss, Lakes: lakes}
}

// AuthorNames returns the author directory as plain strings.
func (d *Dataset) AuthorNames() []string {
	out := make([]string, len(d.Authors))
	for i, a := range d.Authors {
		out[i] = a.Name
	}
	return out
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
