package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// Extractor recovers the signed media URL from a rendered clip page.
//
// Per clip it navigates, mutes, then runs up to maxAttempts probes. A probe mutes
// every media element, clicks a random in-viewport point and queries for a video
// with a resolved src. A final mute pass runs once the probe loop ends.
type Extractor struct {
	maxAttempts       int
	interval          time.Duration
	navigationTimeout time.Duration
	viewport          domain.Viewport
	rng               *rand.Rand
	sleep             SleepFunc
	logger            *zap.Logger
}

// NewExtractor creates an extractor for pages rendered at the given viewport
func NewExtractor(config *domain.BrowserConfig, viewport domain.Viewport, rng *rand.Rand, logger *zap.Logger) *Extractor {
	return &Extractor{
		maxAttempts:       config.ProbeAttempts,
		interval:          config.ProbeInterval,
		navigationTimeout: config.NavigationTimeout,
		viewport:          viewport,
		rng:               rng,
		sleep:             sleepContext,
		logger:            logger,
	}
}

// Extract runs the navigation and probe loop for one clip page
func (e *Extractor) Extract(ctx context.Context, page domain.Page, clipURL string) *domain.ExtractionResult {
	start := time.Now()
	e.logger.Info("Navigating to clip", zap.String("url", clipURL))

	if err := e.navigate(ctx, page, clipURL); err != nil {
		e.logger.Warn("Clip page navigation failed", zap.String("url", clipURL), zap.Error(err))
		return &domain.ExtractionResult{Err: domain.NewError(domain.KindNavigation, "navigate", err)}
	}
	e.logger.Debug("DOM content loaded", zap.Duration("elapsed", time.Since(start)))

	if muted, err := page.MuteMedia(ctx); err != nil {
		e.logger.Debug("Initial mute failed", zap.Error(err))
	} else {
		e.logger.Info("Muted media elements", zap.Int("count", muted))
	}

	result := e.probe(ctx, page)

	// Pages keep unmuting as players initialize; mute once more regardless of outcome.
	if _, err := page.MuteMedia(ctx); err != nil {
		e.logger.Debug("Final mute failed", zap.Error(err))
	}

	if result.OK() {
		e.logger.Info("Signed URL extracted",
			zap.Int("attempt", result.Attempts),
			zap.Duration("elapsed", time.Since(start)))
	} else {
		e.logger.Warn("Failed to extract video URL",
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err))
	}
	return result
}

func (e *Extractor) navigate(ctx context.Context, page domain.Page, clipURL string) error {
	navCtx := ctx
	if e.navigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, e.navigationTimeout)
		defer cancel()
	}
	return page.Navigate(navCtx, clipURL)
}

func (e *Extractor) probe(ctx context.Context, page domain.Page) *domain.ExtractionResult {
	result := &domain.ExtractionResult{}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result.Attempts = attempt

		src, err := e.probeOnce(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				result.Err = domain.NewError(domain.KindCancelled, "probe", ctx.Err())
				return result
			}
			e.logger.Warn("Probe attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		} else if src != "" {
			result.URL = src
			return result
		}

		if attempt == e.maxAttempts {
			break
		}
		if err := e.sleep(ctx, e.interval); err != nil {
			result.Err = domain.NewError(domain.KindCancelled, "probe", err)
			return result
		}
	}

	result.Err = domain.NewError(domain.KindExtractionExhausted, "probe",
		fmt.Errorf("no video source after %d attempts", result.Attempts))
	return result
}

// probeOnce mutes, simulates a tap and queries the DOM
func (e *Extractor) probeOnce(ctx context.Context, page domain.Page) (string, error) {
	if _, err := page.MuteMedia(ctx); err != nil {
		return "", fmt.Errorf("mute: %w", err)
	}

	x, y := e.randomPoint()
	e.logger.Debug("Simulating user interaction", zap.Float64("x", x), zap.Float64("y", y))
	if err := page.Click(ctx, x, y); err != nil {
		return "", fmt.Errorf("click: %w", err)
	}

	src, err := page.VideoSource(ctx)
	if err != nil {
		return "", fmt.Errorf("query video: %w", err)
	}
	return src, nil
}

func (e *Extractor) randomPoint() (float64, float64) {
	width, height := e.viewport.Width, e.viewport.Height
	if width <= 0 || height <= 0 {
		width, height = 500, 500
	}
	return float64(e.rng.Intn(width)), float64(e.rng.Intn(height))
}
