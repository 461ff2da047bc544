package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGSheetsBaseURL is the public Google Docs host.
const DefaultGSheetsBaseURL = "https://docs.google.com"

// maxTableSize caps a single exported sheet.
const maxTableSize = 20 << 20

// GSheets reads sheets of a Google spreadsheet through the CSV export endpoint.
// The spreadsheet must be shared as "anyone with the link can view".
type GSheets struct {
	baseURL       string
	spreadsheetID string
	client        *http.Client
}

// NewGSheets creates a provider for spreadsheetID. An empty baseURL
// selects DefaultGSheetsBaseURL.
func NewGSheets(baseURL, spreadsheetID string, timeout time.Duration) *GSheets {
	if baseURL == "" {
		baseURL = DefaultGSheetsBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GSheets{
		baseURL:       strings.TrimRight(baseURL, "/"),
		spreadsheetID: spreadsheetID,
		client:        &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (g *GSheets) Name() string { return "gsheets" }

// ExportURL returns the CSV export URL for table.
func (g *GSheets) ExportURL(table string) string {
	q := url.Values{}
	q.Set("tqx", "out:csv")
	q.Set("sheet", table)
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s",
		g.baseURL, url.PathEscape(g.spreadsheetID), q.Encode())
}

// Fetch implements Provider.
func (g *GSheets) Fetch(ctx context.Context, table string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.ExportURL(table), nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch %s: unexpected status %d", table, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTableSize))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", table, err)
	}
	return data, nil
}
