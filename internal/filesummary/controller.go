// Package filesummary drives one attachment message through download,
// persistence, summarization and reply.
package filesummary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/memohai/filesummary/internal/attachment"
	"github.com/memohai/filesummary/internal/channel"
	"github.com/memohai/filesummary/internal/downloader"
	"github.com/memohai/filesummary/internal/media"
	"github.com/memohai/filesummary/internal/summary"
)

// Partial download policies.
const (
	PartialSummarize = "summarize"
	PartialReject    = "reject"
)

// HandlerPriority puts the file handler ahead of every other plugin.
const HandlerPriority = 100

// Assembler downloads an attachment.
type Assembler interface {
	Assemble(ctx context.Context, desc attachment.Descriptor) downloader.Assembly
}

// Store persists downloaded bytes.
type Store interface {
	Ingest(ctx context.Context, input media.IngestInput) (media.Asset, error)
}

// Summarizer summarizes a persisted file.
type Summarizer interface {
	SummarizeFile(ctx context.Context, path string) (string, error)
}

// Options are the plugin switches that shape a run. SaveOnly keeps the file
// and replies with its location instead of a summary. MaxBytes caps the
// declared attachment length; 0 means media.MaxAssetBytes.
type Options struct {
	Enable         bool
	GroupEnabled   bool
	NotifyFailures bool
	SaveOnly       bool
	PartialPolicy  string
	MaxBytes       int64
}

// Controller is the inbound handler for file attachment messages. It holds
// no per-run state, so concurrent runs are independent.
type Controller struct {
	opts       Options
	assembler  Assembler
	store      Store
	summarizer Summarizer
	sender     channel.Sender
	logger     *slog.Logger
}

// NewController wires the pipeline collaborators.
func NewController(log *slog.Logger, opts Options, assembler Assembler, store Store, summarizer Summarizer, sender channel.Sender) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if opts.PartialPolicy != PartialReject {
		opts.PartialPolicy = PartialSummarize
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = media.MaxAssetBytes
	}
	return &Controller{
		opts:       opts,
		assembler:  assembler,
		store:      store,
		summarizer: summarizer,
		sender:     sender,
		logger:     log.With(slog.String("component", "filesummary")),
	}
}

// HandleMessage is the channel.InboundHandler. Messages that are not file
// attachments continue to other handlers; every attempted run stops
// propagation, even when it fails.
func (c *Controller) HandleMessage(ctx context.Context, msg channel.InboundMessage) channel.Verdict {
	if !c.opts.Enable {
		return channel.Continue
	}
	if msg.MsgType != channel.MsgTypeApp {
		return channel.Continue
	}
	if msg.IsGroup && !c.opts.GroupEnabled {
		c.logger.Info("group message skipped",
			slog.Int64("msg_id", msg.MsgID),
			slog.String("from", msg.FromWxid),
			slog.String("sender", msg.SenderWxid))
		return channel.Continue
	}
	run := c.Process(ctx, msg)
	if run.Failure == FailureNotApplicable {
		return channel.Continue
	}
	return channel.Stop
}

// Process runs the pipeline for one message and returns its record. A panic
// is recovered into FailureInternal.
func (c *Controller) Process(ctx context.Context, msg channel.InboundMessage) (result Run) {
	run := newRun()
	log := c.logger.With(slog.String("run_id", run.ID.String()), slog.Int64("new_msg_id", msg.NewMsgID))
	target := msg.ReplyTarget()

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panic", slog.String("panic", fmt.Sprint(r)), slog.String("stack", string(debug.Stack())))
			run.fail(FailureInternal, fmt.Errorf("panic: %v", r))
			c.notifyFailure(context.WithoutCancel(ctx), log, target, *run)
		}
		result = *run
	}()

	desc, err := attachment.Parse(msg.Content, target, msg.IsGroup)
	if err != nil {
		if errors.Is(err, attachment.ErrNotAttachment) {
			run.fail(FailureNotApplicable, err)
			return
		}
		log.Warn("attachment parse failed", slog.Any("error", err))
		run.fail(FailureParse, err)
		c.notifyFailure(ctx, log, target, *run)
		return
	}
	run.Descriptor = desc
	run.enter(StateAttachmentDetected)
	log = log.With(slog.String("attach_id", desc.AttachmentID), slog.String("title", desc.Title))
	log.Info("file attachment detected",
		slog.String("ext", desc.FileExtension),
		slog.Int64("total", desc.TotalLength))

	if desc.TotalLength > c.opts.MaxBytes {
		log.Warn("attachment too large", slog.Int64("max", c.opts.MaxBytes))
		run.fail(FailureTooLarge, fmt.Errorf("%w: declared %d bytes, max %d", media.ErrAssetTooLarge, desc.TotalLength, c.opts.MaxBytes))
		c.notifyFailure(ctx, log, target, *run)
		return
	}

	if err := c.sender.SendText(ctx, target, downloadingNotice(desc.Title)); err != nil {
		log.Warn("downloading notice failed", slog.Any("error", err))
	}

	run.enter(StateDownloading)
	asm := c.assembler.Assemble(ctx, desc)
	run.Bytes = len(asm.Data)
	run.Complete = asm.Complete()
	if asm.Empty() {
		log.Warn("download produced no data", slog.Int("failed_chunks", len(asm.Failed())))
		run.fail(FailureDownloadEmpty, fmt.Errorf("no bytes retrieved of %d", desc.TotalLength))
		c.notifyFailure(ctx, log, target, *run)
		return
	}
	if !run.Complete {
		log.Warn("download incomplete",
			slog.Int("bytes", run.Bytes),
			slog.Int64("expected", desc.TotalLength),
			slog.String("policy", c.opts.PartialPolicy))
		if c.opts.PartialPolicy == PartialReject {
			run.fail(FailureDownloadPartialRejected, fmt.Errorf("got %d of %d bytes", run.Bytes, desc.TotalLength))
			c.notifyFailure(ctx, log, target, *run)
			return
		}
	}

	asset, err := c.store.Ingest(ctx, media.IngestInput{
		Title:        desc.Title,
		Extension:    desc.FileExtension,
		AttachmentID: desc.AttachmentID,
		Data:         asm.Data,
	})
	if err != nil {
		log.Error("persist failed", slog.Any("error", err))
		run.fail(FailurePersist, err)
		c.notifyFailure(ctx, log, target, *run)
		return
	}
	run.Path = asset.Path
	run.enter(StateDownloaded)
	log.Info("file saved", slog.String("path", asset.Path), slog.Int64("bytes", asset.SizeBytes))

	if c.opts.SaveOnly {
		if err := c.sender.SendText(ctx, target, savedNotice(desc.Title, asset.Key)); err != nil {
			log.Error("reply failed", slog.Any("error", err))
			run.fail(FailureReply, err)
			return
		}
		run.enter(StateReplied)
		log.Info("file kept without summary")
		return
	}

	run.enter(StateSummarizing)
	text, err := c.summarizer.SummarizeFile(ctx, asset.Path)
	if err != nil {
		var apiErr *summary.APIError
		switch {
		case errors.As(err, &apiErr):
			log.Error("summarize rejected", slog.Int("status", apiErr.StatusCode))
		case errors.Is(err, summary.ErrDisabled):
			log.Warn("summarization disabled, file kept", slog.String("path", asset.Path))
		default:
			log.Error("summarize failed", slog.Any("error", err))
		}
		run.fail(FailureSummarize, err)
		c.notifyFailure(ctx, log, target, *run)
		return
	}
	run.Summary = text

	if err := c.sender.SendText(ctx, target, text); err != nil {
		log.Error("reply failed", slog.Any("error", err))
		run.fail(FailureReply, err)
		return
	}
	run.enter(StateReplied)
	log.Info("summary sent", slog.Int("runes", len([]rune(text))))
	return
}

func (c *Controller) notifyFailure(ctx context.Context, log *slog.Logger, target string, run Run) {
	if !c.opts.NotifyFailures {
		return
	}
	text := failureNotice(run)
	if text == "" {
		return
	}
	if err := c.sender.SendText(ctx, target, text); err != nil {
		log.Warn("failure notice not delivered", slog.String("kind", string(run.Failure)), slog.Any("error", err))
	}
}
