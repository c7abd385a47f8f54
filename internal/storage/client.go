// Package storage defines the content store consumed by the importer: a
// narrow interface that persists a byte blob and hands back a retrievable
// reference. The importer never cares where the bytes actually live.
package storage

import (
	"context"
	"io"
)

// SavedFile describes a persisted blob.
type SavedFile struct {
	// Reference is the stable, retrievable reference to the stored blob,
	// e.g. a URL path served by the HTTP layer.
	Reference string
	// Size is the number of bytes written.
	Size int64
}

// Store persists attachment blobs.
type Store interface {
	// Save persists content under a name derived from filename and
	// returns the retrievable reference.
	Save(ctx context.Context, filename string, content io.Reader) (*SavedFile, error)

	// Open retrieves a previously saved blob by its reference.
	Open(ctx context.Context, reference string) (io.ReadCloser, error)

	// Delete removes a stored blob. Deleting an unknown reference is not
	// an error.
	Delete(ctx context.Context, reference string) error
}
