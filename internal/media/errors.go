package media

import "errors"

var (
	// ErrAssetNotFound indicates the requested file does not exist.
	ErrAssetNotFound = errors.New("media asset not found")
	// ErrProviderUnavailable indicates the storage provider is not configured.
	ErrProviderUnavailable = errors.New("storage provider unavailable")
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrPathTraversal indicates a storage key attempted directory traversal.
	ErrPathTraversal = errors.New("path traversal is forbidden")
	// ErrAssetExists is returned by exclusive writes when the key is taken.
	ErrAssetExists = errors.New("media asset already exists")
	// ErrEmptyPayload rejects zero-byte writes.
	ErrEmptyPayload = errors.New("asset payload is empty")
)
