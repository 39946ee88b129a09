package domain

import (
	"context"
	"errors"
)

// Page is a single browser tab used to render clip pages
type Page interface {
	// Navigate loads url and returns once DOM content has loaded
	Navigate(ctx context.Context, url string) error

	// MuteMedia mutes every media element in the DOM and returns how many were found
	MuteMedia(ctx context.Context) (int, error)

	// Click moves the pointer to (x, y) and presses and releases the primary button
	Click(ctx context.Context, x, y float64) error

	// VideoSource returns the resolved src of the first video element that has one, or ""
	VideoSource(ctx context.Context) (string, error)
}

// BrowserSession owns one browser process and one isolated browsing context
type BrowserSession interface {
	// NewPage opens a tab configured with the session's profile
	NewPage(ctx context.Context) (Page, error)

	// Version returns the effective browser version string
	Version() string

	// Profile returns the fingerprint the session was opened with
	Profile() *FingerprintProfile

	// Close releases the context and the browser process. Safe to call more than once.
	Close() error
}

// BrowserLauncher opens browser sessions
type BrowserLauncher interface {
	Open(ctx context.Context, profile *FingerprintProfile) (BrowserSession, error)
}

// ExtractionResult is either a resolved media URL or a failure
type ExtractionResult struct {
	URL      string
	Attempts int
	Err      error
}

// OK reports whether a media URL was resolved
func (r *ExtractionResult) OK() bool {
	return r.Err == nil && r.URL != ""
}

// Failure returns the reason r holds no URL, or nil when a URL was resolved
func (r *ExtractionResult) Failure() error {
	if r.OK() {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return NewError(KindExtractionExhausted, "extract", errors.New("no media url extracted"))
}

// Extractor resolves the signed media URL of a clip page
type Extractor interface {
	Extract(ctx context.Context, page Page, clipURL string) *ExtractionResult
}
