// Package spill persists encoded datasets to pluggable blob storage:
// in-memory for tests, local disk with mmap-backed reads, S3 or
// MinIO-compatible object stores. Partition images are written as
// individually compressed blobs described by a JSON manifest, with a
// CURRENT pointer naming the live manifest version.
package spill

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing spilled data blobs.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create opens a new writable blob. The blob becomes visible under
	// name once Close returns.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, in
	// lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a write-once handle. Data is not guaranteed to be
// visible until Close succeeds.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Sync flushes buffered data to stable storage where the backend
	// supports it.
	Sync() error
}

// Mappable is an optional interface for Blobs that expose their
// contents as a byte slice without copying. The slice is valid until
// the Blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}
