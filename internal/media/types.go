package media

import (
	"context"
	"io"
	"time"
)

// WriteMode controls what Put does when the key already exists.
type WriteMode int

const (
	// WriteOverwrite replaces any existing object.
	WriteOverwrite WriteMode = iota
	// WriteExclusive fails with ErrAssetExists when the key is taken.
	WriteExclusive
)

// Collision policies for Service.Ingest.
const (
	CollisionOverwrite = "overwrite"
	CollisionSuffix    = "suffix"
)

// Asset is a persisted attachment.
type Asset struct {
	Key         string    `json:"key"`
	Path        string    `json:"path"`
	Mime        string    `json:"mime"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// IngestInput carries the data needed to persist a downloaded attachment.
type IngestInput struct {
	Title        string
	Extension    string
	AttachmentID string
	Data         []byte
	// MaxBytes optionally overrides MaxAssetBytes.
	MaxBytes int64
}

// StorageProvider abstracts object storage operations.
type StorageProvider interface {
	// Put writes data to storage under the given key.
	Put(ctx context.Context, key string, reader io.Reader, mode WriteMode) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// AccessPath returns the local path a consumer can read the key from.
	AccessPath(key string) string
}

// Sweeper is implemented by providers that can expire old objects.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) (int, error)
}

// Entry describes a stored object.
type Entry struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// Lister is implemented by providers that can enumerate their objects.
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}
