package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
	"github.com/yourusername/clip-extract-go/internal/infrastructure"
	"github.com/yourusername/clip-extract-go/pkg/logger"
)

// DownloadManager retries extraction+download as one unit per clip and
// records each clip's final outcome in the download history.
type DownloadManager struct {
	repo        domain.DownloadRepository
	notifier    *infrastructure.NotificationService
	config      *domain.DownloadConfig
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	sleep       SleepFunc
}

// NewDownloadManager creates a new download manager. repo, notifier and
// multiLogger may be nil.
func NewDownloadManager(
	repo domain.DownloadRepository,
	notifier *infrastructure.NotificationService,
	config *domain.DownloadConfig,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *DownloadManager {
	return &DownloadManager{
		repo:        repo,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// ProcessClip runs up to MaxAttempts fresh extraction+download attempts for clip,
// waiting RetryDelay between attempts. It never returns nil; a failed clip is
// reported in the outcome and never aborts the caller's batch.
func (dm *DownloadManager) ProcessClip(
	ctx context.Context,
	downloader domain.Downloader,
	page domain.Page,
	clip *domain.Clip,
	progress domain.DownloadProgressCallback,
) *domain.DownloadOutcome {
	record := domain.NewDownload(clip)
	dm.createRecord(record)

	maxAttempts := dm.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		record.IncrementAttempt()

		dm.logger.Info("Processing clip",
			zap.String("clip_id", clip.ID),
			zap.String("title", clip.Title),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts))

		outcome, err := downloader.Download(ctx, page, clip, progress)
		if err == nil {
			outcome.Attempts = attempt
			dm.finish(record, outcome)
			return outcome
		}

		lastErr = err
		dm.logger.Warn("Clip attempt failed",
			zap.String("clip_id", clip.ID),
			zap.Int("attempt", attempt),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))

		if domain.KindOf(err) == domain.KindCancelled || ctx.Err() != nil {
			break
		}
		if attempt == maxAttempts {
			break
		}

		dm.logger.Info("Retrying clip after backoff",
			zap.String("clip_id", clip.ID),
			zap.Duration("delay", dm.config.RetryDelay))
		if err := dm.sleep(ctx, dm.config.RetryDelay); err != nil {
			lastErr = domain.NewError(domain.KindCancelled, "retry backoff", err)
			break
		}
	}

	outcome := &domain.DownloadOutcome{
		Clip:     clip,
		Status:   domain.OutcomeFailed,
		Attempts: attempt,
		Err:      lastErr,
	}
	dm.finish(record, outcome)
	return outcome
}

func (dm *DownloadManager) createRecord(record *domain.Download) {
	if dm.repo == nil {
		return
	}
	if err := dm.repo.Create(record); err != nil {
		dm.logger.Error("Failed to record download", zap.String("clip_id", record.ClipID), zap.Error(err))
	}
}

func (dm *DownloadManager) finish(record *domain.Download, outcome *domain.DownloadOutcome) {
	record.Apply(outcome)
	if dm.repo != nil {
		if err := dm.repo.Update(record); err != nil {
			dm.logger.Error("Failed to update download record", zap.String("id", record.ID), zap.Error(err))
		}
	}

	clip := outcome.Clip
	fields := []zap.Field{
		zap.String("clip_id", clip.ID),
		zap.String("game", clip.Game),
		zap.String("status", string(outcome.Status)),
		zap.Int("attempts", outcome.Attempts),
	}

	switch outcome.Status {
	case domain.OutcomeSuccess:
		dm.logger.Info("Clip downloaded",
			zap.String("clip_id", clip.ID),
			zap.String("file", outcome.FilePath),
			zap.Int64("bytes", outcome.Bytes),
			zap.Duration("elapsed", outcome.Elapsed))
		dm.multiLogger.LogRunEvent("clip_completed", append(fields, zap.Int64("bytes", outcome.Bytes))...)
		dm.notifier.NotifyClipCompleted(clip, outcome.Bytes)
	case domain.OutcomeSkipped:
		dm.logger.Info("Clip already downloaded, skipping", zap.String("file", outcome.FilePath))
		dm.multiLogger.LogRunEvent("clip_skipped", fields...)
	default:
		dm.logger.Error("Clip failed after retries",
			zap.String("clip_id", clip.ID),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
		fields = append(fields, zap.String("error_kind", string(domain.KindOf(outcome.Err))), zap.Error(outcome.Err))
		dm.multiLogger.LogRunEvent("clip_failed", fields...)
		dm.multiLogger.LogAppError("clip failed", fields...)
		dm.notifier.NotifyClipFailed(clip, outcome.Err)
	}
}
