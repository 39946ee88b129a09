package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/clip-extract-go/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteDownloadRepository, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history", "test.db")
	repo, err := NewSQLiteDownloadRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
	}
	return repo, cleanup
}

func newRecord(clipID, game string) *domain.Download {
	return domain.NewDownload(&domain.Clip{
		ID:    clipID,
		Title: "Clip " + clipID,
		URL:   "https://clips.example.com/" + clipID,
		Game:  game,
	})
}

func TestCreateAndFindByID(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	dl := newRecord("c1", "Rust")
	require.NoError(t, repo.Create(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1", found.ClipID)
	assert.Equal(t, domain.StatusProcessing, found.Status)
}

func TestUpdatePersistsOutcome(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	dl := newRecord("c1", "Rust")
	require.NoError(t, repo.Create(dl))

	dl.Apply(&domain.DownloadOutcome{
		Status:   domain.OutcomeSuccess,
		FilePath: "Clip_c1.mp4",
		Bytes:    4096,
		Elapsed:  2 * time.Second,
		Attempts: 2,
	})
	require.NoError(t, repo.Update(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.Equal(t, int64(4096), found.Bytes)
	assert.Equal(t, 2, found.Attempts)
	assert.NotNil(t, found.CompletedAt)
}

func TestFindByClipID_ReturnsNilWhenNoMatch(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	found, err := repo.FindByClipID("missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindByClipID_ReturnsNewest(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	older := newRecord("c1", "Rust")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(older))

	newer := newRecord("c1", "Rust")
	require.NoError(t, repo.Create(newer))

	found, err := repo.FindByClipID("c1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, newer.ID, found.ID)
}

func TestFindAll_Filters(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	rust := newRecord("c1", "Rust")
	rust.MarkFailed(domain.NewError(domain.KindNavigation, "navigate", errors.New("timeout")))
	require.NoError(t, repo.Create(rust))
	require.NoError(t, repo.Create(newRecord("c2", "Dota 2")))

	all, err := repo.FindAll(map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := repo.FindAll(map[string]interface{}{"status": domain.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.KindNavigation, failed[0].ErrorKind)

	dota, err := repo.FindAll(map[string]interface{}{"game": "Dota 2"})
	require.NoError(t, err)
	require.Len(t, dota, 1)
	assert.Equal(t, "c2", dota[0].ClipID)
}

func TestGetStats(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	done := newRecord("c1", "Rust")
	done.MarkCompleted("a.mp4", 100, time.Second)
	require.NoError(t, repo.Create(done))

	skipped := newRecord("c2", "Rust")
	skipped.MarkSkipped("b.mp4")
	require.NoError(t, repo.Create(skipped))

	failed := newRecord("c3", "Rust")
	failed.MarkFailed(errors.New("boom"))
	require.NoError(t, repo.Create(failed))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(100), stats.Bytes)
}
