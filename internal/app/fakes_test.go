package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// fakePage records every call in order and answers VideoSource from a script
type fakePage struct {
	mu          sync.Mutex
	events      []string
	navigateErr error
	// sources[i] is returned by the i-th VideoSource call; past the end returns ""
	sources   []string
	sourceErr map[int]error
	clicks    [][2]float64
	probes    int
}

func (p *fakePage) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate")
	return p.navigateErr
}

func (p *fakePage) MuteMedia(ctx context.Context) (int, error) {
	p.record("mute")
	return 1, nil
}

func (p *fakePage) Click(ctx context.Context, x, y float64) error {
	p.record("click")
	p.mu.Lock()
	p.clicks = append(p.clicks, [2]float64{x, y})
	p.mu.Unlock()
	return nil
}

func (p *fakePage) VideoSource(ctx context.Context) (string, error) {
	p.record("query")
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.probes
	p.probes++
	if err, ok := p.sourceErr[i]; ok {
		return "", err
	}
	if i < len(p.sources) {
		return p.sources[i], nil
	}
	return "", nil
}

func (p *fakePage) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// recordingSleep returns a SleepFunc that records durations without blocking
func recordingSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		*delays = append(*delays, d)
		return nil
	}
}

// scriptedDownloader returns the queued results in order
type scriptedDownloader struct {
	results []downloadResult
	calls   int
}

type downloadResult struct {
	outcome *domain.DownloadOutcome
	err     error
}

func (d *scriptedDownloader) Download(ctx context.Context, page domain.Page, clip *domain.Clip, progress domain.DownloadProgressCallback) (*domain.DownloadOutcome, error) {
	i := d.calls
	d.calls++
	if i >= len(d.results) {
		return nil, domain.NewError(domain.KindExtractionExhausted, "extract", errors.New("no more results"))
	}
	r := d.results[i]
	if r.outcome != nil {
		r.outcome.Clip = clip
	}
	return r.outcome, r.err
}

// memoryRepo implements domain.DownloadRepository in memory
type memoryRepo struct {
	mu        sync.Mutex
	downloads map[string]*domain.Download
	creates   int
	updates   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{downloads: make(map[string]*domain.Download)}
}

func (m *memoryRepo) Create(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	copied := *download
	m.downloads[download.ID] = &copied
	return nil
}

func (m *memoryRepo) Update(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	copied := *download
	m.downloads[download.ID] = &copied
	return nil
}

func (m *memoryRepo) FindByID(id string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.downloads[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("download %s not found", id)
}

func (m *memoryRepo) FindByClipID(clipID string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.downloads {
		if d.ClipID == clipID {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domain.Download
	for _, d := range m.downloads {
		all = append(all, d)
	}
	return all, nil
}

func (m *memoryRepo) GetStats() (*domain.DownloadStats, error) {
	return &domain.DownloadStats{}, nil
}

// fakeCatalog serves clips per game
type fakeCatalog struct {
	authErr   error
	clips     map[string][]*domain.Clip
	errs      map[string]error
	authCalls int
	requests  []string
	limits    []int
}

func (c *fakeCatalog) Authenticate(ctx context.Context) error {
	c.authCalls++
	return c.authErr
}

func (c *fakeCatalog) TopClips(ctx context.Context, game string, limit int) ([]*domain.Clip, error) {
	c.requests = append(c.requests, game)
	c.limits = append(c.limits, limit)
	if err, ok := c.errs[game]; ok {
		return nil, err
	}
	clips := c.clips[game]
	if len(clips) > limit {
		clips = clips[:limit]
	}
	return clips, nil
}

// fakeSession and fakeLauncher stand in for the browser
type fakeSession struct {
	page    *fakePage
	profile *domain.FingerprintProfile
	closed  int
}

func (s *fakeSession) NewPage(ctx context.Context) (domain.Page, error) { return s.page, nil }
func (s *fakeSession) Version() string                                  { return "HeadlessChrome/120.0.0.0" }
func (s *fakeSession) Profile() *domain.FingerprintProfile               { return s.profile }
func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeLauncher struct {
	opened  int
	session *fakeSession
	err     error
}

func (l *fakeLauncher) Open(ctx context.Context, profile *domain.FingerprintProfile) (domain.BrowserSession, error) {
	l.opened++
	if l.err != nil {
		return nil, l.err
	}
	l.session = &fakeSession{page: &fakePage{}, profile: profile}
	return l.session, nil
}
