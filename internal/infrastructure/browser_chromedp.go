package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

const (
	muteMediaScript = `(() => {
		const media = document.querySelectorAll('video, audio');
		media.forEach(el => { el.muted = true; el.volume = 0; });
		return media.length;
	})()`

	videoSourceScript = `(() => {
		const video = document.querySelector('video[src]');
		return video && video.src ? video.src : "";
	})()`
)

// ChromeLauncher starts Chrome sessions over the DevTools protocol
type ChromeLauncher struct {
	config *domain.BrowserConfig
	logger *zap.Logger
}

// NewChromeLauncher creates a new launcher
func NewChromeLauncher(config *domain.BrowserConfig, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{config: config, logger: logger}
}

// Open launches a browser process configured from profile.
// The returned session must be closed; on error nothing is left running.
func (l *ChromeLauncher) Open(ctx context.Context, profile *domain.FingerprintProfile) (domain.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("lang", profile.Locale),
		chromedp.WindowSize(profile.Viewport.Width, profile.Viewport.Height),
	)
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	if profile.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(profile.UserAgent))
	}
	if profile.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(profile.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	session := &ChromeSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		profile:       profile,
		logger:        l.logger,
	}

	var product string
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			_, product, _, _, _, err = browser.GetVersion().Do(ctx)
			return err
		}),
		browser.GrantPermissions([]browser.PermissionType{browser.PermissionTypeGeolocation}),
	)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	session.version = product

	l.logger.Info("Browser session opened",
		zap.String("browser", product),
		zap.Bool("headless", l.config.Headless),
		zap.String("locale", profile.Locale),
		zap.String("timezone", profile.TimezoneID),
		zap.Bool("proxy", profile.Proxy != ""))

	return session, nil
}

// ChromeSession owns one Chrome process; its first tab is the browsing context
type ChromeSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	profile       *domain.FingerprintProfile
	version       string
	logger        *zap.Logger

	mu         sync.Mutex
	pageTaken  bool
	tabCancels []context.CancelFunc
	closeOnce  sync.Once
}

// Version returns the browser product string, e.g. "HeadlessChrome/120.0.6099.109"
func (s *ChromeSession) Version() string {
	return s.version
}

// Profile returns the session fingerprint
func (s *ChromeSession) Profile() *domain.FingerprintProfile {
	return s.profile
}

// NewPage returns a tab with the profile's emulation applied.
// The first call reuses the tab opened at launch; later tabs live until Close.
func (s *ChromeSession) NewPage(ctx context.Context) (domain.Page, error) {
	s.mu.Lock()
	tabCtx := s.ctx
	if s.pageTaken {
		var cancel context.CancelFunc
		tabCtx, cancel = chromedp.NewContext(s.ctx)
		s.tabCancels = append(s.tabCancels, cancel)
	}
	s.pageTaken = true
	s.mu.Unlock()

	p := &ChromePage{ctx: tabCtx}
	runCtx, stop := p.bind(ctx)
	defer stop()

	if err := chromedp.Run(runCtx, emulationActions(s.profile)...); err != nil {
		return nil, fmt.Errorf("failed to apply profile: %w", err)
	}
	return p, nil
}

// Close shuts the browser down and releases the allocator
func (s *ChromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for _, cancel := range s.tabCancels {
			cancel()
		}
		s.mu.Unlock()
		err = chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocCancel()
		if s.logger != nil {
			s.logger.Info("Browser session closed")
		}
	})
	return err
}

func emulationActions(profile *domain.FingerprintProfile) []chromedp.Action {
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(profile.Viewport.Width), int64(profile.Viewport.Height), profile.DeviceScaleFactor, true),
		emulation.SetTouchEmulationEnabled(profile.HasTouch).WithMaxTouchPoints(5),
		emulation.SetLocaleOverride().WithLocale(profile.Locale),
		emulation.SetTimezoneOverride(profile.TimezoneID),
		emulation.SetGeolocationOverride().
			WithLatitude(profile.Geolocation.Latitude).
			WithLongitude(profile.Geolocation.Longitude).
			WithAccuracy(100),
		emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
			{Name: "prefers-color-scheme", Value: string(profile.ColorScheme)},
		}),
		page.SetBypassCSP(true),
		security.SetIgnoreCertificateErrors(true),
	}
	if profile.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(profile.UserAgent).WithAcceptLanguage(profile.Locale))
	}
	return actions
}

// ChromePage is a tab driven through chromedp
type ChromePage struct {
	ctx context.Context
}

// bind derives a chromedp context for the tab that also honours ctx's deadline and cancellation
func (p *ChromePage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(p.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		parent := cancel
		cancel = func() {
			cancelDeadline()
			parent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads url and waits for DOMContentLoaded, not the full load event
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	loaded := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(runCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error: %s", errorText)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	select {
	case <-loaded:
		return nil
	case <-runCtx.Done():
		return fmt.Errorf("waiting for DOM content: %w", runCtx.Err())
	}
}

// MuteMedia mutes all audio and video elements
func (p *ChromePage) MuteMedia(ctx context.Context) (int, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var count int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(muteMediaScript, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// Click dispatches a pointer move followed by a left press and release
func (p *ChromePage) Click(ctx context.Context, x, y float64) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.MouseEvent(input.MouseMoved, x, y),
		chromedp.MouseClickXY(x, y),
	)
}

// VideoSource returns the src of the first video element exposing one
func (p *ChromePage) VideoSource(ctx context.Context) (string, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var src string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(videoSourceScript, &src)); err != nil {
		return "", err
	}
	return src, nil
}
