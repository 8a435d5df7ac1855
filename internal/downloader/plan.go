package downloader

import "github.com/memohai/filesummary/internal/attachment"

// DefaultChunkSize is the byte range requested per gateway call.
const DefaultChunkSize int64 = 64 * 1024

// ChunkRequest is one byte range of an attachment. StartOffset+RequestedLength
// never exceeds TotalLength; Plan guarantees it.
type ChunkRequest struct {
	Index             int
	AttachmentID      string
	AppID             string
	TotalLength       int64
	StartOffset       int64
	RequestedLength   int64
	RequesterIdentity string
}

// ChunkResult is the outcome of one fetch: Bytes on success, Err otherwise.
type ChunkResult struct {
	Bytes []byte
	Err   error
}

// OK reports a successful fetch.
func (r ChunkResult) OK() bool {
	return r.Err == nil
}

// ChunkCount returns ceil(total / chunkSize).
func ChunkCount(total, chunkSize int64) int64 {
	if total <= 0 || chunkSize <= 0 {
		return 0
	}
	return (total + chunkSize - 1) / chunkSize
}

// Plan lays out the ordered, non-overlapping requests covering the attachment.
func Plan(desc attachment.Descriptor, chunkSize int64, requester string) []ChunkRequest {
	count := ChunkCount(desc.TotalLength, chunkSize)
	reqs := make([]ChunkRequest, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * chunkSize
		reqs = append(reqs, ChunkRequest{
			Index:             int(i),
			AttachmentID:      desc.AttachmentID,
			AppID:             desc.AppID,
			TotalLength:       desc.TotalLength,
			StartOffset:       start,
			RequestedLength:   min(chunkSize, desc.TotalLength-start),
			RequesterIdentity: requester,
		})
	}
	return reqs
}
