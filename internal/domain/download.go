package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a clip download record
type DownloadStatus string

const (
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusSkipped    DownloadStatus = "skipped"
	StatusFailed     DownloadStatus = "failed"
)

// Download is the history record of one processed clip
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	ClipID       string         `json:"clip_id" gorm:"index"`
	Title        string         `json:"title"`
	URL          string         `json:"url" gorm:"not null"`
	Game         string         `json:"game" gorm:"index"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	Attempts     int            `json:"attempts" gorm:"default:0"`
	Bytes        int64          `json:"bytes" gorm:"default:0"`
	ElapsedMs    int64          `json:"elapsed_ms" gorm:"default:0"`
	FilePath     string         `json:"file_path,omitempty"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a history record for a clip about to be processed
func NewDownload(clip *Clip) *Download {
	now := time.Now()
	return &Download{
		ID:        uuid.New().String(),
		ClipID:    clip.ID,
		Title:     clip.Title,
		URL:       clip.URL,
		Game:      clip.Game,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IncrementAttempt records one more extraction+download attempt
func (d *Download) IncrementAttempt() {
	d.Attempts++
	d.UpdatedAt = time.Now()
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(filePath string, bytes int64, elapsed time.Duration) {
	d.Status = StatusCompleted
	d.FilePath = filePath
	d.Bytes = bytes
	d.ElapsedMs = elapsed.Milliseconds()
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkSkipped marks the download as skipped because the file already exists
func (d *Download) MarkSkipped(filePath string) {
	d.Status = StatusSkipped
	d.FilePath = filePath
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Status = StatusFailed
	d.ErrorKind = KindOf(err)
	if err != nil {
		d.ErrorMessage = err.Error()
	}
	d.UpdatedAt = time.Now()
}

// Apply copies a final outcome onto the record
func (d *Download) Apply(outcome *DownloadOutcome) {
	d.Attempts = outcome.Attempts
	switch outcome.Status {
	case OutcomeSuccess:
		d.MarkCompleted(outcome.FilePath, outcome.Bytes, outcome.Elapsed)
	case OutcomeSkipped:
		d.MarkSkipped(outcome.FilePath)
	default:
		d.MarkFailed(outcome.Err)
	}
}

// IsTerminal checks if the record is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status != StatusProcessing
}

// ValidateStatus checks if a status filter value is known
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusProcessing, StatusCompleted, StatusSkipped, StatusFailed:
		return true
	}
	return false
}
