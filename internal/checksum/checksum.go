package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Tables returns one digest over several named tables. Names are hashed
// in sorted order so the result does not depend on map iteration.
func Tables(tables map[string][]byte) string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(Sum(tables[name])))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
