package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir implements Provider backed by CSV files in a local directory.
// Table "Publications" is read from <root>/Publications.csv.
type Dir struct {
	root string // absolute path
}

// NewDir creates a Dir provider rooted at the given directory.
// The directory must already exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Name implements Provider.
func (d *Dir) Name() string { return "dir" }

// Path returns the file that backs table, rejecting names that would
// escape the root.
func (d *Dir) Path(table string) (string, error) {
	if table == "" || strings.ContainsAny(table, `/\`) || table == "." || table == ".." {
		return "", fmt.Errorf("source: invalid table name: %q", table)
	}
	abs := filepath.Join(d.root, table+".csv")
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("source: table escapes root: %q", table)
	}
	return abs, nil
}

// Fetch implements Provider.
func (d *Dir) Fetch(ctx context.Context, table string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.Path(table)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", table, err)
	}
	return data, nil
}
