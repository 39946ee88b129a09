package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// stubExtractor returns a fixed result and counts calls
type stubExtractor struct {
	result *domain.ExtractionResult
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context, page domain.Page, clipURL string) *domain.ExtractionResult {
	s.calls++
	return s.result
}

func newMediaServer(t *testing.T, payload []byte, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != "test-agent" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestDownloader(t *testing.T, extractor domain.Extractor, client *http.Client) *ClipDownloader {
	t.Helper()
	config := &domain.DownloadConfig{OutputDir: t.TempDir(), ChunkSize: 1024}
	return NewClipDownloader(extractor, client, config, "test-agent", zap.NewNop())
}

func TestClipDownloader_SkipsExistingFile(t *testing.T) {
	srv, hits := newMediaServer(t, []byte("data"), http.StatusOK)
	extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/clip.mp4", Attempts: 1}}
	d := newTestDownloader(t, extractor, srv.Client())

	clip := &domain.Clip{ID: "1", Title: "Already Here", URL: "https://clips.example.com/1"}
	dest := d.DestinationPath(clip)
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	outcome, err := d.Download(context.Background(), nil, clip, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSkipped, outcome.Status)
	assert.Equal(t, dest, outcome.FilePath)
	assert.Zero(t, extractor.calls)
	assert.Zero(t, atomic.LoadInt32(hits))

	content, _ := os.ReadFile(dest)
	assert.Equal(t, "old", string(content))
}

func TestClipDownloader_StreamsInChunks(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 300) // 3000 bytes
	srv, _ := newMediaServer(t, payload, http.StatusOK)
	extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/clip.mp4", Attempts: 2}}
	d := newTestDownloader(t, extractor, srv.Client())

	clip := &domain.Clip{ID: "2", Title: "Big Raid / Part 1", URL: "https://clips.example.com/2"}

	var calls []int64
	var lastTotal int64
	progress := func(downloaded, total int64) {
		calls = append(calls, downloaded)
		lastTotal = total
	}

	outcome, err := d.Download(context.Background(), nil, clip, progress)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
	assert.Equal(t, int64(len(payload)), outcome.Bytes)
	assert.Equal(t, filepath.Join(d.config.OutputDir, "Big_Raid___Part_1.mp4"), outcome.FilePath)
	assert.Equal(t, int64(len(payload)), lastTotal)

	require.NotEmpty(t, calls)
	assert.Equal(t, int64(len(payload)), calls[len(calls)-1])
	var prev int64
	for _, c := range calls {
		assert.LessOrEqual(t, c-prev, int64(1024))
		assert.Greater(t, c, prev)
		prev = c
	}

	content, err := os.ReadFile(outcome.FilePath)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	_, err = os.Stat(outcome.FilePath + partialSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestClipDownloader_HTTPErrorCarriesStatus(t *testing.T) {
	srv, _ := newMediaServer(t, nil, http.StatusForbidden)
	extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/expired.mp4", Attempts: 1}}
	d := newTestDownloader(t, extractor, srv.Client())

	clip := &domain.Clip{ID: "3", Title: "Expired", URL: "https://clips.example.com/3"}
	outcome, err := d.Download(context.Background(), nil, clip, nil)

	assert.Nil(t, outcome)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindDownloadHTTP, de.Kind)
	assert.Equal(t, http.StatusForbidden, de.StatusCode)

	entries, _ := os.ReadDir(d.config.OutputDir)
	assert.Empty(t, entries)
}

func TestClipDownloader_ExtractionFailurePropagates(t *testing.T) {
	extractor := &stubExtractor{result: &domain.ExtractionResult{
		Attempts: 30,
		Err:      domain.NewError(domain.KindExtractionExhausted, "probe", nil),
	}}
	d := newTestDownloader(t, extractor, nil)

	clip := &domain.Clip{ID: "4", Title: "Never Loads", URL: "https://clips.example.com/4"}
	_, err := d.Download(context.Background(), nil, clip, nil)

	assert.Equal(t, domain.KindExtractionExhausted, domain.KindOf(err))
	assert.Equal(t, 1, extractor.calls)
}

func TestClipDownloader_TruncatedBodyRemovesPartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5000")
		w.Write(bytes.Repeat([]byte("x"), 100))
	}))
	t.Cleanup(srv.Close)

	extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/cut.mp4", Attempts: 1}}
	d := newTestDownloader(t, extractor, srv.Client())

	clip := &domain.Clip{ID: "5", Title: "Cut Short", URL: "https://clips.example.com/5"}
	_, err := d.Download(context.Background(), nil, clip, nil)

	assert.Equal(t, domain.KindDownloadHTTP, domain.KindOf(err))
	entries, _ := os.ReadDir(d.config.OutputDir)
	assert.Empty(t, entries)
}

func TestClipDownloader_UnwritableDestination(t *testing.T) {
	srv, _ := newMediaServer(t, []byte("data"), http.StatusOK)
	extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/clip.mp4", Attempts: 1}}
	d := newTestDownloader(t, extractor, srv.Client())

	// A regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	d.config.OutputDir = blocker

	clip := &domain.Clip{ID: "6", Title: "Nowhere", URL: "https://clips.example.com/6"}
	_, err := d.Download(context.Background(), nil, clip, nil)

	assert.Equal(t, domain.KindDownloadIO, domain.KindOf(err))
}

func TestClipDownloader_StalledStreamTimesOut(t *testing.T) {
	tests := []struct {
		name        string
		sendHeaders bool
	}{
		{name: "no response headers", sendHeaders: false},
		{name: "body stops mid-stream", sendHeaders: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.sendHeaders {
					w.Header().Set("Content-Length", "5000")
					w.Write(bytes.Repeat([]byte("x"), 100))
					w.(http.Flusher).Flush()
				}
				select {
				case <-r.Context().Done():
				case <-release:
				}
			}))
			t.Cleanup(srv.Close)
			t.Cleanup(func() { close(release) })

			extractor := &stubExtractor{result: &domain.ExtractionResult{URL: srv.URL + "/stall.mp4", Attempts: 1}}
			d := newTestDownloader(t, extractor, srv.Client())
			d.config.IdleTimeout = 50 * time.Millisecond

			clip := &domain.Clip{ID: "7", Title: "Frozen", URL: "https://clips.example.com/7"}
			_, err := d.Download(context.Background(), nil, clip, nil)

			require.Error(t, err)
			assert.Equal(t, domain.KindDownloadHTTP, domain.KindOf(err))
			assert.Contains(t, err.Error(), "stalled")
			entries, _ := os.ReadDir(d.config.OutputDir)
			assert.Empty(t, entries)
		})
	}
}
