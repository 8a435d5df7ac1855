package downloader

import "errors"

// Chunk failure kinds. Every ChunkResult error matches exactly one of them.
var (
	ErrTransport  = errors.New("chunk transport failed")
	ErrDecode     = errors.New("chunk payload could not be decoded")
	ErrRemote     = errors.New("gateway reported failure")
	ErrShortRead  = errors.New("chunk length mismatch")
	ErrEmptyChunk = errors.New("chunk payload is empty")
)
