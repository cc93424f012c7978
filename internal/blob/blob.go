// Package blob stores uploaded file contents. Metadata lives in Postgres;
// only the raw bytes go through a Store.
package blob

import (
	"errors"
	"io"
)

// ErrNotFound is returned when the named object is missing from storage.
// Callers deleting files treat it as drift to log, not a failure.
var ErrNotFound = errors.New("blob: object not found")

// Store is the contents backend. Save returns the storage path/key the
// metadata row should record.
type Store interface {
	Save(name string, r io.Reader) (path string, err error)
	Open(path string) (io.ReadCloser, error)
	Delete(path string) error
}
