package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iisdela/pubsearch/internal/checksum"
	"github.com/iisdela/pubsearch/internal/source"
)

// SyncResult holds the tables produced by one Sync pass.
type SyncResult struct {
	Tables  map[string][]byte
	Changed bool     // at least one table differs from the stored copy
	Stale   []string // tables served from the stored copy after a fetch failure
}

// Sync fetches every named table from src and brings the snapshot up to date:
//   - fetched tables whose checksum changed are stored
//   - tables that fail to fetch fall back to the stored copy
//
// Sync fails only when a table can neither be fetched nor read from the
// snapshot. A nil store disables the fallback.
func Sync(ctx context.Context, store Store, src source.Provider, names []string, logger *slog.Logger) (*SyncResult, error) {
	res := &SyncResult{Tables: make(map[string][]byte, len(names))}

	stored := map[string]string{}
	if store != nil {
		cs, err := store.Checksums()
		if err != nil {
			logger.Warn("sync: read checksums failed", slog.String("error", err.Error()))
		} else {
			stored = cs
		}
	}

	for _, name := range names {
		data, fetchErr := src.Fetch(ctx, name)
		if fetchErr == nil {
			res.Tables[name] = data
			cs := checksum.Sum(data)
			if stored[name] == cs {
				continue
			}
			res.Changed = true
			if store == nil {
				continue
			}
			if err := store.PutTable(Table{Name: name, Checksum: cs, Content: data, FetchedAt: time.Now().UTC()}); err != nil {
				logger.Warn("sync: store failed", slog.String("table", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: stored", slog.String("table", name))
			}
			continue
		}

		if store == nil {
			return nil, fmt.Errorf("snapshot: fetch %s from %s: %w", name, src.Name(), fetchErr)
		}
		t, err := store.GetTable(name)
		if err != nil {
			return nil, fmt.Errorf("snapshot: fetch %s from %s: %w (no stored copy: %v)", name, src.Name(), fetchErr, err)
		}
		logger.Warn("sync: fetch failed, using stored copy",
			slog.String("table", name),
			slog.Time("fetched_at", t.FetchedAt),
			slog.String("error", fetchErr.Error()))
		res.Tables[name] = t.Content
		res.Stale = append(res.Stale, name)
	}

	return res, nil
}
