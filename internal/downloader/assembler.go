package downloader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/filesummary/internal/attachment"
)

// ChunkOutcome records what happened to one planned chunk.
type ChunkOutcome struct {
	Request ChunkRequest
	Result  ChunkResult
}

// Assembly is the best-effort result of downloading an attachment.
type Assembly struct {
	// Data holds the successful chunks concatenated in ascending offset order.
	Data     []byte
	Outcomes []ChunkOutcome
	Expected int64
}

// Empty reports that no bytes were retrieved.
func (a Assembly) Empty() bool {
	return len(a.Data) == 0
}

// Complete reports that every chunk succeeded and the length matches.
func (a Assembly) Complete() bool {
	return int64(len(a.Data)) == a.Expected && len(a.Failed()) == 0
}

// Failed returns the outcomes of chunks that did not succeed.
func (a Assembly) Failed() []ChunkOutcome {
	var out []ChunkOutcome
	for _, o := range a.Outcomes {
		if !o.Result.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Assembler downloads attachments chunk by chunk.
type Assembler struct {
	fetcher   ChunkFetcher
	chunkSize int64
	requester string
	logger    *slog.Logger
}

// NewAssembler creates an assembler. A non-positive chunkSize uses
// DefaultChunkSize; requester is the bot wxid sent with every request.
func NewAssembler(log *slog.Logger, fetcher ChunkFetcher, chunkSize int64, requester string) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Assembler{
		fetcher:   fetcher,
		chunkSize: chunkSize,
		requester: requester,
		logger:    log.With(slog.String("component", "assembler")),
	}
}

// ChunkSize returns the configured range size.
func (a *Assembler) ChunkSize() int64 {
	return a.chunkSize
}

// Assemble fetches every chunk sequentially in ascending order. Failed chunks
// are logged and skipped; no length reconciliation happens here. Once ctx is
// done the remaining chunks are recorded as transport failures without being
// requested.
func (a *Assembler) Assemble(ctx context.Context, desc attachment.Descriptor) Assembly {
	plan := Plan(desc, a.chunkSize, a.requester)
	outcomes := make([]ChunkOutcome, 0, len(plan))
	log := a.logger.With(slog.String("attach_id", desc.AttachmentID))
	log.Info("download start", slog.Int64("total", desc.TotalLength), slog.Int("chunks", len(plan)))

	for _, req := range plan {
		var res ChunkResult
		if err := ctx.Err(); err != nil {
			res = ChunkResult{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
		} else {
			res = a.fetcher.Fetch(ctx, req)
		}
		outcomes = append(outcomes, ChunkOutcome{Request: req, Result: res})
		if res.OK() {
			log.Debug("chunk ok",
				slog.Int("chunk", req.Index+1),
				slog.Int("of", len(plan)),
				slog.Int64("start", req.StartOffset),
				slog.Int("bytes", len(res.Bytes)))
			continue
		}
		log.Warn("chunk failed",
			slog.Int("chunk", req.Index+1),
			slog.Int("of", len(plan)),
			slog.Int64("start", req.StartOffset),
			slog.String("kind", Kind(res.Err)),
			slog.Any("error", res.Err))
	}

	asm := Assembly{
		Data:     concat(outcomes),
		Outcomes: outcomes,
		Expected: desc.TotalLength,
	}
	log.Info("download finished",
		slog.Int("bytes", len(asm.Data)),
		slog.Int("failed_chunks", len(asm.Failed())),
		slog.Bool("complete", asm.Complete()))
	return asm
}

func concat(outcomes []ChunkOutcome) []byte {
	size := 0
	for _, o := range outcomes {
		if o.Result.OK() {
			size += len(o.Result.Bytes)
		}
	}
	if size == 0 {
		return nil
	}
	buf := make([]byte, 0, size)
	for _, o := range outcomes {
		if o.Result.OK() {
			buf = append(buf, o.Result.Bytes...)
		}
	}
	return buf
}
