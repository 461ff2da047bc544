package snapshot

import "time"

// Store defines the snapshot operations used by the catalog.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Store interface {
	PutTable(t Table) error
	GetTable(name string) (*Table, error)
	Checksums() (map[string]string, error)
	RecordLoad(l LoadRecord) error
	RecentLoads(limit int) ([]LoadRecord, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Table is one stored source table.
type Table struct {
	Name      string
	Checksum  string
	Content   []byte
	FetchedAt time.Time
}

// LoadRecord is one entry of the dataset load history.
type LoadRecord struct {
	Version      string    `json:"version"`
	Checksum     string    `json:"checksum"`
	Source       string    `json:"source"`
	Publications int       `json:"publications"`
	Authors      int       `json:"authors"`
	RowErrors    int       `json:"row_errors"`
	Stale        bool      `json:"stale"`
	LoadedAt     time.Time `json:"loaded_at"`
}
