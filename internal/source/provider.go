// Package source fetches the publication tables from the external tabular store.
package source

import "context"

// Provider is the interface for reading named tables as CSV.
type Provider interface {
	// Fetch returns the CSV bytes of table (e.g. "Publications").
	Fetch(ctx context.Context, table string) ([]byte, error)
	// Name identifies the provider in logs.
	Name() string
}
