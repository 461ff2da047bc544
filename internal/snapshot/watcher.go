package snapshot

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called once per burst of file changes with the
// names of the tables that changed.
type ChangeCallback func(tables []string)

// debounce collapses editor save sequences (write, chmod, rename) into one reload.
const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on a directory source and reports
// changes to the named tables (<root>/<table>.csv) until ctx is cancelled.
func Watch(ctx context.Context, root string, tables []string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	byFile := make(map[string]string, len(tables))
	for _, t := range tables {
		byFile[t+".csv"] = t
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := make(map[string]struct{})

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			changed := make([]string, 0, len(pending))
			for t := range pending {
				changed = append(changed, t)
			}
			sort.Strings(changed)
			clear(pending)
			if len(changed) > 0 && cb != nil {
				cb(changed)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, ".csv") {
				continue
			}
			table, ok := byFile[base]
			if !ok {
				continue
			}
			logger.Debug("watcher: table changed", slog.String("table", table), slog.String("op", ev.Op.String()))
			pending[table] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
