// Package keepalive visits hosted deployments so that idle hosts which
// put apps to sleep keep them running.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/iisdela/pubsearch/internal/metrics"
)

// Outcome is the result of one visit.
type Outcome string

const (
	OutcomeAwake   Outcome = "awake"   // app answered normally
	OutcomeWoken   Outcome = "woken"   // app was asleep and a wake-up was sent
	OutcomeVisited Outcome = "visited" // page loaded; state unknown
	OutcomeFailed  Outcome = "failed"
)

// Pinger visits one URL.
type Pinger interface {
	Ping(ctx context.Context, url string) (Outcome, string, error)
}

// Runner pings every URL and appends a line per visit to a log file.
type Runner struct {
	pinger  Pinger
	urls    []string
	logPath string
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRunner creates a Runner. An empty logPath disables the log file;
// m may be nil.
func NewRunner(p Pinger, urls []string, logPath string, logger *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{pinger: p, urls: urls, logPath: logPath, logger: logger, metrics: m, now: time.Now}
}

// Run performs one pass. Failures of single URLs are logged and do not
// stop the pass; Run only fails when the log file cannot be opened.
func (r *Runner) Run(ctx context.Context) error {
	out := io.Discard
	if r.logPath != "" {
		f, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("keepalive: open log: %w", err)
		}
		defer f.Close()
		out = f
	}

	fmt.Fprintf(out, "Execution started at: %s\n", r.now().Format(time.RFC3339))

	for _, url := range r.urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		outcome, detail, err := r.pinger.Ping(ctx, url)
		ts := r.now().Format(time.RFC3339)
		if err != nil {
			outcome = OutcomeFailed
			fmt.Fprintf(out, "[%s] Error pinging %s: %v\n", ts, url, err)
			r.logger.Warn("keepalive: ping failed", slog.String("url", url), slog.String("error", err.Error()))
		} else {
			fmt.Fprintf(out, "[%s] %s\n", ts, detail)
			r.logger.Info("keepalive: pinged", slog.String("url", url), slog.String("outcome", string(outcome)))
		}
		r.metrics.ObservePing(string(outcome))
	}
	return nil
}
