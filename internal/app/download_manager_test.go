package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

func newTestDownloadManager(repo domain.DownloadRepository, delays *[]time.Duration) *DownloadManager {
	config := &domain.DownloadConfig{MaxAttempts: 3, RetryDelay: 5 * time.Second}
	dm := NewDownloadManager(repo, nil, config, nil, zap.NewNop())
	dm.sleep = recordingSleep(delays)
	return dm
}

func testClip() *domain.Clip {
	return &domain.Clip{ID: "clip-1", Title: "Big Play", URL: "https://clips.example.com/clip-1", Game: "Rust"}
}

func exhausted() error {
	return domain.NewError(domain.KindExtractionExhausted, "probe", nil)
}

func TestProcessClip_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	repo := newMemoryRepo()
	dm := newTestDownloadManager(repo, &delays)
	downloader := &scriptedDownloader{results: []downloadResult{
		{outcome: &domain.DownloadOutcome{Status: domain.OutcomeSuccess, FilePath: "Big_Play.mp4", Bytes: 2048}},
	}}

	outcome := dm.ProcessClip(context.Background(), downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, downloader.calls)
	assert.Empty(t, delays)

	all, _ := repo.FindAll(nil)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusCompleted, all[0].Status)
	assert.Equal(t, int64(2048), all[0].Bytes)
}

func TestProcessClip_RetriesWithBackoffThenSucceeds(t *testing.T) {
	var delays []time.Duration
	dm := newTestDownloadManager(newMemoryRepo(), &delays)
	downloader := &scriptedDownloader{results: []downloadResult{
		{err: exhausted()},
		{outcome: &domain.DownloadOutcome{Status: domain.OutcomeSuccess, Bytes: 10}},
	}}

	outcome := dm.ProcessClip(context.Background(), downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, delays)
}

func TestProcessClip_FailsAfterThreeAttempts(t *testing.T) {
	var delays []time.Duration
	repo := newMemoryRepo()
	dm := newTestDownloadManager(repo, &delays)
	downloader := &scriptedDownloader{results: []downloadResult{
		{err: exhausted()},
		{err: &domain.Error{Kind: domain.KindDownloadHTTP, Op: "get", StatusCode: 403}},
		{err: domain.NewError(domain.KindNavigation, "navigate", context.DeadlineExceeded)},
		{outcome: &domain.DownloadOutcome{Status: domain.OutcomeSuccess}},
	}}

	outcome := dm.ProcessClip(context.Background(), downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, downloader.calls)
	assert.Equal(t, domain.KindNavigation, domain.KindOf(outcome.Err))
	// Backoff between attempts only, never after the last one
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, delays)

	all, _ := repo.FindAll(nil)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusFailed, all[0].Status)
	assert.Equal(t, 3, all[0].Attempts)
	assert.Equal(t, domain.KindNavigation, all[0].ErrorKind)
}

func TestProcessClip_SkippedIsNotRetried(t *testing.T) {
	var delays []time.Duration
	repo := newMemoryRepo()
	dm := newTestDownloadManager(repo, &delays)
	downloader := &scriptedDownloader{results: []downloadResult{
		{outcome: &domain.DownloadOutcome{Status: domain.OutcomeSkipped, FilePath: "Big_Play.mp4"}},
	}}

	outcome := dm.ProcessClip(context.Background(), downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, domain.OutcomeSkipped, outcome.Status)
	assert.Equal(t, 1, downloader.calls)

	all, _ := repo.FindAll(nil)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusSkipped, all[0].Status)
}

func TestProcessClip_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dm := newTestDownloadManager(nil, nil)
	dm.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	downloader := &scriptedDownloader{results: []downloadResult{{err: exhausted()}}}

	outcome := dm.ProcessClip(ctx, downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, domain.KindCancelled, domain.KindOf(outcome.Err))
	assert.Equal(t, 1, downloader.calls)
}

func TestProcessClip_CancelledAttemptStopsRetrying(t *testing.T) {
	var delays []time.Duration
	dm := newTestDownloadManager(nil, &delays)
	downloader := &scriptedDownloader{results: []downloadResult{
		{err: domain.NewError(domain.KindCancelled, "probe", context.Canceled)},
	}}

	outcome := dm.ProcessClip(context.Background(), downloader, &fakePage{}, testClip(), nil)

	assert.Equal(t, 1, downloader.calls)
	assert.Equal(t, domain.KindCancelled, domain.KindOf(outcome.Err))
	assert.Empty(t, delays)
}
