package domain

import "time"

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobError   JobStatus = "error"
)

// Terminal reports whether the job has reached success or error.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// SyncStatus tracks downstream ingestion of a job's snapshot.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

type Selection struct {
	CategoryID    string `json:"categoryId"`
	SubcategoryID string `json:"subcategoryId,omitempty"`
	Label         string `json:"label,omitempty"`
}

// JobParams are the inputs a job was started with.
type JobParams struct {
	CategoryURLs    []string    `json:"categoryUrls"`
	Selections      []Selection `json:"selections"`
	PageLimit       int         `json:"pageLimit"`
	ListingLimit    int         `json:"listingLimit"`
	DelayMs         int         `json:"delayMs"`
	DetailDelayMs   int         `json:"detailDelayMs"`
	CategoryDelayMs int         `json:"categoryDelayMs,omitempty"`
	Headless        bool        `json:"headless"`
	UserAgent       string      `json:"userAgent,omitempty"`
	TriggeredBy     string      `json:"triggeredBy"`
	PlanID          string      `json:"planId,omitempty"`
}

type Progress struct {
	Phase     string  `json:"phase"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message,omitempty"`
}

type Job struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Params       JobParams  `json:"params"`
	LogPath      string     `json:"logPath"`
	OutputPath   string     `json:"outputPath,omitempty"`
	Progress     Progress   `json:"progress"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	SyncStatus   SyncStatus `json:"supabaseSyncStatus"`
	SyncMessage  string     `json:"syncMessage,omitempty"`
}

// JobPatch is a partial job update. Nil fields are left untouched.
type JobPatch struct {
	Status       *JobStatus
	StartedAt    *time.Time
	FinishedAt   *time.Time
	LogPath      *string
	OutputPath   *string
	Progress     *Progress
	ErrorMessage *string
}
