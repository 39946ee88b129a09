package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

const (
	defaultChunkSize = 1024
	partialSuffix    = ".part"
)

// ClipDownloader implements domain.Downloader: one extraction plus a streamed GET
type ClipDownloader struct {
	extractor domain.Extractor
	client    *http.Client
	config    *domain.DownloadConfig
	userAgent string
	logger    *zap.Logger
}

// NewClipDownloader creates a downloader writing into config.OutputDir
func NewClipDownloader(extractor domain.Extractor, client *http.Client, config *domain.DownloadConfig, userAgent string, logger *zap.Logger) *ClipDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &ClipDownloader{
		extractor: extractor,
		client:    client,
		config:    config,
		userAgent: userAgent,
		logger:    logger,
	}
}

// DestinationPath returns where the clip's media file lives
func (d *ClipDownloader) DestinationPath(clip *domain.Clip) string {
	return filepath.Join(d.config.OutputDir, clip.DestinationFileName())
}

// Download performs a single extraction+download attempt.
// An existing destination file short-circuits with OutcomeSkipped and no network activity.
func (d *ClipDownloader) Download(ctx context.Context, page domain.Page, clip *domain.Clip, progress domain.DownloadProgressCallback) (*domain.DownloadOutcome, error) {
	dest := d.DestinationPath(clip)
	if fileExists(dest) {
		d.logger.Info("Clip already exists, skipping", zap.String("title", clip.Title), zap.String("file", dest))
		return &domain.DownloadOutcome{Clip: clip, Status: domain.OutcomeSkipped, FilePath: dest}, nil
	}

	start := time.Now()

	result := d.extractor.Extract(ctx, page, clip.URL)
	if err := result.Failure(); err != nil {
		return nil, err
	}

	if progress == nil {
		progress = func(downloaded, total int64) {}
	}

	written, err := d.fetch(ctx, result.URL, dest, progress)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	d.logger.Info("Clip downloaded",
		zap.String("file", dest),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", elapsed))

	return &domain.DownloadOutcome{
		Clip:     clip,
		Status:   domain.OutcomeSuccess,
		FilePath: dest,
		Bytes:    written,
		Elapsed:  elapsed,
	}, nil
}

// fetch streams url into dest in fixed-size chunks.
// Data lands in dest+".part" and is renamed only after the body is fully written.
// With IdleTimeout set, a response that delivers no bytes for that long is abandoned.
func (d *ClipDownloader) fetch(ctx context.Context, url, dest string, progress domain.DownloadProgressCallback) (int64, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stalled atomic.Bool
	touch := func() {}
	if idle := d.config.IdleTimeout; idle > 0 {
		watchdog := time.AfterFunc(idle, func() {
			stalled.Store(true)
			cancel()
		})
		defer watchdog.Stop()
		touch = func() { watchdog.Reset(idle) }
	}
	stallErr := func(op string, err error) error {
		if stalled.Load() {
			return domain.NewError(domain.KindDownloadHTTP, op, fmt.Errorf("stalled for %s: %w", d.config.IdleTimeout, err))
		}
		return err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, domain.NewError(domain.KindDownloadHTTP, "request", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, stallErr("get", domain.NewError(domain.KindDownloadHTTP, "get", err))
	}
	defer resp.Body.Close()
	touch()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &domain.Error{Kind: domain.KindDownloadHTTP, Op: "get", StatusCode: resp.StatusCode}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, domain.NewError(domain.KindDownloadIO, "mkdir", err)
	}

	partPath := dest + partialSuffix
	file, err := os.Create(partPath)
	if err != nil {
		return 0, domain.NewError(domain.KindDownloadIO, "create", err)
	}

	written, err := d.copyChunks(file, resp.Body, total, func(downloaded, total int64) {
		touch()
		progress(downloaded, total)
	})
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = domain.NewError(domain.KindDownloadIO, "close", closeErr)
	}
	if err != nil {
		os.Remove(partPath)
		return written, stallErr("read", err)
	}

	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return written, domain.NewError(domain.KindDownloadIO, "rename", err)
	}
	return written, nil
}

func (d *ClipDownloader) copyChunks(dst io.Writer, src io.Reader, total int64, progress domain.DownloadProgressCallback) (int64, error) {
	chunkSize := d.config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	buf := make([]byte, chunkSize)

	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, domain.NewError(domain.KindDownloadIO, "write", err)
			}
			written += int64(n)
			progress(written, total)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, domain.NewError(domain.KindDownloadHTTP, "read", fmt.Errorf("after %d bytes: %w", written, readErr))
		}
	}
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
