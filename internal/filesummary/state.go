package filesummary

import (
	"github.com/google/uuid"

	"github.com/memohai/filesummary/internal/attachment"
)

// State is a pipeline run stage.
type State string

const (
	StateIdle               State = "idle"
	StateAttachmentDetected State = "attachment_detected"
	StateDownloading        State = "downloading"
	StateDownloaded         State = "downloaded"
	StateSummarizing        State = "summarizing"
	StateReplied            State = "replied"
	StateFailed             State = "failed"
)

// FailureKind explains why a run ended in StateFailed.
type FailureKind string

const (
	FailureNone                    FailureKind = ""
	FailureNotApplicable           FailureKind = "not_applicable"
	FailureParse                   FailureKind = "parse_failure"
	FailureTooLarge                FailureKind = "too_large"
	FailureDownloadEmpty           FailureKind = "download_empty"
	FailureDownloadPartialRejected FailureKind = "download_partial_rejected"
	FailurePersist                 FailureKind = "persist_failure"
	FailureSummarize               FailureKind = "summarize_failure"
	FailureReply                   FailureKind = "reply_failure"
	FailureInternal                FailureKind = "internal"
)

// Run records one pass through the pipeline.
type Run struct {
	ID         uuid.UUID
	State      State
	Failure    FailureKind
	Err        error
	Descriptor attachment.Descriptor
	Path       string
	Bytes      int
	Complete   bool
	Summary    string
	History    []State
}

func newRun() *Run {
	return &Run{ID: uuid.New(), State: StateIdle, History: []State{StateIdle}}
}

func (r *Run) enter(s State) {
	r.State = s
	r.History = append(r.History, s)
}

func (r *Run) fail(kind FailureKind, err error) {
	r.Failure = kind
	r.Err = err
	r.enter(StateFailed)
}

// Terminal reports whether the run has finished.
func (r Run) Terminal() bool {
	return r.State == StateReplied || r.State == StateFailed
}
