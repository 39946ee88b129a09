package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new record
	Create(download *Download) error

	// Update updates an existing record
	Update(download *Download) error

	// FindByID finds a record by ID
	FindByID(id string) (*Download, error)

	// FindByClipID returns the most recent record for a clip, or nil
	FindByClipID(clipID string) (*Download, error)

	// FindAll finds all records with optional equality filters, newest first
	FindAll(filters map[string]interface{}) ([]*Download, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total      int64 `json:"total"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
	Bytes      int64 `json:"bytes"`
}
