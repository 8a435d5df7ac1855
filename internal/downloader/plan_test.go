package downloader

import (
	"testing"

	"github.com/memohai/filesummary/internal/attachment"
)

func TestChunkCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int64
		want  int64
	}{
		{total: 0, want: 0},
		{total: 1, want: 1},
		{total: 65535, want: 1},
		{total: 65536, want: 1},
		{total: 65537, want: 2},
		{total: 100000, want: 2},
		{total: 10 * 65536, want: 10},
	}
	for _, tt := range tests {
		if got := ChunkCount(tt.total, DefaultChunkSize); got != tt.want {
			t.Errorf("ChunkCount(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
	if got := ChunkCount(10, 0); got != 0 {
		t.Errorf("ChunkCount with zero chunk size = %d", got)
	}
}

func TestPlanCoversTotalInOrder(t *testing.T) {
	t.Parallel()

	for _, total := range []int64{0, 1, 65535, 65536, 65537, 100000, 1 << 20, 3*65536 + 17} {
		desc := attachment.Descriptor{AttachmentID: "att", AppID: "app", TotalLength: total}
		plan := Plan(desc, DefaultChunkSize, "wxid_bot")
		if int64(len(plan)) != ChunkCount(total, DefaultChunkSize) {
			t.Fatalf("total %d: %d requests, want %d", total, len(plan), ChunkCount(total, DefaultChunkSize))
		}
		var sum, next int64
		for i, req := range plan {
			if req.Index != i {
				t.Fatalf("total %d: index %d at position %d", total, req.Index, i)
			}
			if req.StartOffset != next {
				t.Fatalf("total %d: chunk %d starts at %d, want %d", total, i, req.StartOffset, next)
			}
			if req.RequestedLength <= 0 || req.RequestedLength > DefaultChunkSize {
				t.Fatalf("total %d: chunk %d length %d", total, i, req.RequestedLength)
			}
			if req.StartOffset+req.RequestedLength > total {
				t.Fatalf("total %d: chunk %d overruns", total, i)
			}
			if req.AttachmentID != "att" || req.AppID != "app" || req.TotalLength != total || req.RequesterIdentity != "wxid_bot" {
				t.Fatalf("total %d: chunk %d fields = %+v", total, i, req)
			}
			next = req.StartOffset + req.RequestedLength
			sum += req.RequestedLength
		}
		if sum != total {
			t.Fatalf("total %d: sum of lengths = %d", total, sum)
		}
	}
}
