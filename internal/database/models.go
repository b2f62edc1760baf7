package database

import "time"

// JobStatus is the state of a transcode job.
type JobStatus string

const (
	// JobPending marks a job waiting to be claimed.
	JobPending JobStatus = "PENDING"
	// JobProcessing marks a claimed job the external tool is working on.
	JobProcessing JobStatus = "PROCESSING"
	// JobDone marks a successfully completed job. DONE is terminal.
	JobDone JobStatus = "DONE"
	// JobFailed marks a failed job. FAILED is terminal until an explicit retry.
	JobFailed JobStatus = "FAILED"
)

// Asset transcode status values. Assets start as NONE and mirror the state
// of their job once one exists.
const (
	TranscodeNone = "NONE"
)

// MediaAsset is one discovered media file with its derived metadata.
type MediaAsset struct {
	ID              int64     `json:"id"`
	AbsPath         string    `json:"absPath"`
	RelPath         string    `json:"relPath"`
	Extension       string    `json:"extension"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	ParentCategory  string    `json:"parentCategory,omitempty"`
	Collection      string    `json:"collection,omitempty"`
	Price           float64   `json:"price"`
	DurationSeconds float64   `json:"durationSeconds"`
	MimeType        string    `json:"mimeType,omitempty"`
	PlayPath        string    `json:"playPath,omitempty"`
	TranscodeStatus string    `json:"transcodeStatus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PlayablePath returns the path clients should be served: the transcoded
// derivative when one exists, the original file otherwise.
func (a *MediaAsset) PlayablePath() string {
	if a.PlayPath != "" {
		return a.PlayPath
	}
	return a.AbsPath
}

// TranscodeProfile holds the encoder parameters for one source extension.
// Args is passed through to the external tool untouched.
type TranscodeProfile struct {
	Extension string    `json:"extension"`
	Args      string    `json:"args"`
	OutputExt string    `json:"outputExt"`
	CreatedAt time.Time `json:"createdAt"`
}

// TranscodeJob is one queued conversion task.
type TranscodeJob struct {
	ID               int64      `json:"id"`
	AssetID          int64      `json:"assetId"`
	ProfileExtension string     `json:"profileExtension"`
	Status           JobStatus  `json:"status"`
	AttemptCount     int        `json:"attemptCount"`
	LastError        string     `json:"lastError,omitempty"`
	ClaimedAt        *time.Time `json:"claimedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// QueueStats summarizes the transcode queue by status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}

// ScanFolder is one top-level library folder with its imported asset count.
type ScanFolder struct {
	Name       string `json:"name"`
	AssetCount int    `json:"assetCount"`
}

// LibraryStats summarizes the library for the admin dashboard.
type LibraryStats struct {
	TotalAssets     int        `json:"totalAssets"`
	TotalCategories int        `json:"totalCategories"`
	TotalDuration   float64    `json:"totalDurationSeconds"`
	MissingDuration int        `json:"missingDuration"`
	Queue           QueueStats `json:"queue"`
}
