package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
	"github.com/yourusername/clip-extract-go/internal/infrastructure"
	"github.com/yourusername/clip-extract-go/pkg/logger"
)

// ClipListing is a catalog clip plus whether it is already on disk
type ClipListing struct {
	Clip       *domain.Clip
	FilePath   string
	Downloaded bool
}

// GameListing is the result of listing one game's clips
type GameListing struct {
	Game  string
	Clips []*ClipListing
	Err   error
}

// GameReport summarizes one game within a batch
type GameReport struct {
	Game     string
	Clips    int
	Err      error
	NoClips  bool
	Outcomes []*domain.DownloadOutcome
}

// BatchReport summarizes a batch run
type BatchReport struct {
	Browser  string
	Profile  *domain.FingerprintProfile
	PublicIP string
	Games    []*GameReport
}

// Counts returns how many clips succeeded, were skipped and failed
func (r *BatchReport) Counts() (succeeded, skipped, failed int) {
	for _, g := range r.Games {
		for _, o := range g.Outcomes {
			switch o.Status {
			case domain.OutcomeSuccess:
				succeeded++
			case domain.OutcomeSkipped:
				skipped++
			default:
				failed++
			}
		}
	}
	return succeeded, skipped, failed
}

// ProgressFactory returns the progress callback used while downloading clip
type ProgressFactory func(clip *domain.Clip) domain.DownloadProgressCallback

// Runner drives the batch modes: it authenticates, opens one browser session
// per run and feeds clips through the download manager one at a time.
type Runner struct {
	catalog     domain.Catalog
	launcher    domain.BrowserLauncher
	downloadMgr *DownloadManager
	notifier    *infrastructure.NotificationService
	config      *domain.Config
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	rng         *rand.Rand
	progress    ProgressFactory

	newDownloader func(profile *domain.FingerprintProfile) domain.Downloader
	lookupIP      func(ctx context.Context) (string, error)
}

// NewRunner creates a new runner
func NewRunner(
	catalog domain.Catalog,
	launcher domain.BrowserLauncher,
	downloadMgr *DownloadManager,
	notifier *infrastructure.NotificationService,
	config *domain.Config,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *Runner {
	r := &Runner{
		catalog:     catalog,
		launcher:    launcher,
		downloadMgr: downloadMgr,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.newDownloader = r.clipDownloader
	if url := config.Browser.IPLookupURL; url != "" {
		client := &http.Client{Timeout: config.Catalog.RequestTimeout}
		r.lookupIP = func(ctx context.Context) (string, error) {
			return infrastructure.LookupPublicIP(ctx, client, url)
		}
	}
	return r
}

// SetProgress installs a per-clip progress callback factory
func (r *Runner) SetProgress(progress ProgressFactory) {
	r.progress = progress
}

// SupportedGames returns the configured games in processing order
func (r *Runner) SupportedGames() []string {
	return r.config.Catalog.Games
}

// ListClips fetches clips per game and marks the ones already downloaded.
// No browser is started.
func (r *Runner) ListClips(ctx context.Context, game string, limit int) ([]*GameListing, error) {
	if err := r.catalog.Authenticate(ctx); err != nil {
		return nil, err
	}

	limit = r.limitOrDefault(limit)
	var listings []*GameListing
	for _, g := range r.resolveGames(game) {
		if err := ctx.Err(); err != nil {
			return listings, domain.NewError(domain.KindCancelled, "list", err)
		}

		listing := &GameListing{Game: g}
		listings = append(listings, listing)

		clips, err := r.catalog.TopClips(ctx, g, limit)
		if err != nil {
			r.logger.Error("Failed to fetch clips", zap.String("game", g), zap.Error(err))
			listing.Err = err
			continue
		}
		for _, clip := range clips {
			path := filepath.Join(r.config.Download.OutputDir, clip.DestinationFileName())
			listing.Clips = append(listing.Clips, &ClipListing{
				Clip:       clip,
				FilePath:   path,
				Downloaded: fileExists(path),
			})
		}
	}
	return listings, nil
}

// DownloadLatest downloads up to limit recent clips for every configured game,
// or only for game when it is set.
func (r *Runner) DownloadLatest(ctx context.Context, game string, limit int) (*BatchReport, error) {
	if err := r.catalog.Authenticate(ctx); err != nil {
		return nil, err
	}

	limit = r.limitOrDefault(limit)
	games := r.resolveGames(game)

	return r.withSession(ctx, func(report *BatchReport, page domain.Page, downloader domain.Downloader) error {
		for _, g := range games {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Games = append(report.Games, r.processGame(ctx, page, downloader, g, limit))
		}
		return ctx.Err()
	})
}

// DownloadByTitle downloads the first clip whose title equals title, ignoring case.
// Games are searched in order; the browser starts only once a match is found.
func (r *Runner) DownloadByTitle(ctx context.Context, title, game string) (*BatchReport, error) {
	if err := r.catalog.Authenticate(ctx); err != nil {
		return nil, err
	}

	var match *domain.Clip
	for _, g := range r.resolveGames(game) {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewError(domain.KindCancelled, "search", err)
		}
		clips, err := r.catalog.TopClips(ctx, g, r.config.Catalog.TitleSearchLimit)
		if err != nil {
			r.logger.Warn("Failed to search game", zap.String("game", g), zap.Error(err))
			continue
		}
		if match = findByTitle(clips, title); match != nil {
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%q: %w", title, domain.ErrClipNotFound)
	}

	r.logger.Info("Found clip by title", zap.String("title", match.Title), zap.String("game", match.Game))
	return r.downloadSingle(ctx, match)
}

// TestDownload downloads one random clip from game, or from a random configured game
func (r *Runner) TestDownload(ctx context.Context, game string, limit int) (*BatchReport, error) {
	if err := r.catalog.Authenticate(ctx); err != nil {
		return nil, err
	}

	if game == "" {
		games := r.SupportedGames()
		if len(games) == 0 {
			return nil, fmt.Errorf("no games configured")
		}
		game = games[r.rng.Intn(len(games))]
	} else {
		game = r.resolveGames(game)[0]
	}

	clips, err := r.catalog.TopClips(ctx, game, r.limitOrDefault(limit))
	if err != nil {
		return &BatchReport{Games: []*GameReport{{Game: game, Err: err}}}, nil
	}
	if len(clips) == 0 {
		return &BatchReport{Games: []*GameReport{{Game: game, NoClips: true}}}, nil
	}

	clip := clips[r.rng.Intn(len(clips))]
	r.logger.Info("Selected random clip", zap.String("game", game), zap.String("title", clip.Title))
	return r.downloadSingle(ctx, clip)
}

func (r *Runner) downloadSingle(ctx context.Context, clip *domain.Clip) (*BatchReport, error) {
	return r.withSession(ctx, func(report *BatchReport, page domain.Page, downloader domain.Downloader) error {
		outcome := r.downloadMgr.ProcessClip(ctx, downloader, page, clip, r.progressFor(clip))
		report.Games = append(report.Games, &GameReport{
			Game:     clip.Game,
			Clips:    1,
			Outcomes: []*domain.DownloadOutcome{outcome},
		})
		return ctx.Err()
	})
}

// withSession opens a fingerprinted browser session and one page, runs fn and
// always closes the session. A cancelled context is reported as KindCancelled
// alongside the partial report.
func (r *Runner) withSession(ctx context.Context, fn func(*BatchReport, domain.Page, domain.Downloader) error) (*BatchReport, error) {
	profile, err := r.newProfile()
	if err != nil {
		return nil, err
	}

	session, err := r.launcher.Open(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("Failed to close browser session", zap.Error(err))
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	report := &BatchReport{Browser: session.Version(), Profile: profile}
	if r.lookupIP != nil {
		if ip, err := r.lookupIP(ctx); err != nil {
			r.logger.Warn("Public IP lookup failed", zap.Error(err))
		} else {
			report.PublicIP = ip
		}
	}
	r.multiLogger.LogRunEvent("batch_started",
		zap.String("browser", report.Browser),
		zap.String("public_ip", report.PublicIP),
		zap.String("locale", profile.Locale),
		zap.String("timezone", profile.TimezoneID))

	runErr := fn(report, page, r.newDownloader(profile))

	succeeded, skipped, failed := report.Counts()
	r.multiLogger.LogRunEvent("batch_finished",
		zap.Int("succeeded", succeeded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Bool("cancelled", runErr != nil))
	r.notifier.NotifyBatchFinished(succeeded, skipped, failed)

	if runErr != nil {
		r.logger.Warn("Batch interrupted", zap.Error(runErr))
		return report, domain.NewError(domain.KindCancelled, "batch", runErr)
	}
	return report, nil
}

func (r *Runner) processGame(ctx context.Context, page domain.Page, downloader domain.Downloader, game string, limit int) *GameReport {
	report := &GameReport{Game: game}

	clips, err := r.catalog.TopClips(ctx, game, limit)
	if err != nil {
		r.logger.Error("Failed to fetch clips, skipping game", zap.String("game", game), zap.Error(err))
		r.multiLogger.LogAppError("catalog request failed", zap.String("game", game), zap.Error(err))
		report.Err = err
		return report
	}

	report.Clips = len(clips)
	if len(clips) == 0 {
		r.logger.Info("No clips found", zap.String("game", game))
		report.NoClips = true
		return report
	}

	r.logger.Info("Processing game", zap.String("game", game), zap.Int("clips", len(clips)))
	for _, clip := range clips {
		if ctx.Err() != nil {
			break
		}
		report.Outcomes = append(report.Outcomes,
			r.downloadMgr.ProcessClip(ctx, downloader, page, clip, r.progressFor(clip)))
	}
	return report
}

func (r *Runner) newProfile() (*domain.FingerprintProfile, error) {
	userAgents, err := infrastructure.LoadLines(r.config.Browser.UserAgentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load user agents: %w", err)
	}
	proxies, err := infrastructure.LoadLines(r.config.Browser.ProxiesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load proxies: %w", err)
	}

	profile, err := domain.NewProfileGenerator(userAgents, proxies).Generate(r.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fingerprint: %w", err)
	}

	r.logger.Info("Generated browser fingerprint",
		zap.String("locale", profile.Locale),
		zap.String("timezone", profile.TimezoneID),
		zap.Int("width", profile.Viewport.Width),
		zap.Int("height", profile.Viewport.Height),
		zap.String("color_scheme", string(profile.ColorScheme)),
		zap.Bool("custom_user_agent", profile.UserAgent != ""))
	return profile, nil
}

func (r *Runner) clipDownloader(profile *domain.FingerprintProfile) domain.Downloader {
	extractor := NewExtractor(&r.config.Browser, profile.Viewport, r.rng, r.logger)
	client := &http.Client{}
	return infrastructure.NewClipDownloader(extractor, client, &r.config.Download, profile.UserAgent, r.logger)
}

func (r *Runner) progressFor(clip *domain.Clip) domain.DownloadProgressCallback {
	if r.progress == nil {
		return nil
	}
	return r.progress(clip)
}

func (r *Runner) limitOrDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	if r.config.Catalog.DefaultLimit > 0 {
		return r.config.Catalog.DefaultLimit
	}
	return 5
}

// resolveGames maps an optional game filter to the games to process.
// Known names are normalized to their configured spelling.
func (r *Runner) resolveGames(game string) []string {
	if game == "" {
		return r.config.Catalog.Games
	}
	for _, g := range r.config.Catalog.Games {
		if strings.EqualFold(g, game) {
			return []string{g}
		}
	}
	return []string{game}
}

func findByTitle(clips []*domain.Clip, title string) *domain.Clip {
	for _, clip := range clips {
		if clip.MatchesTitle(title) {
			return clip
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
