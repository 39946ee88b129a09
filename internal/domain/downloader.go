package domain

import (
	"context"
	"time"
)

// OutcomeStatus is the final state of one clip download
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// DownloadOutcome reports the result of downloading one clip
type DownloadOutcome struct {
	Clip     *Clip
	Status   OutcomeStatus
	FilePath string
	Bytes    int64
	Elapsed  time.Duration
	Attempts int
	Err      error
}

// DownloadProgressCallback receives the running byte count and the expected total (0 if unknown)
type DownloadProgressCallback func(downloaded, total int64)

// Downloader runs one extraction+download attempt for a clip on the given page
type Downloader interface {
	Download(ctx context.Context, page Page, clip *Clip, progress DownloadProgressCallback) (*DownloadOutcome, error)
}
