package types

import "time"

// DownloadStatus is the lifecycle state of a scheduled download.
type DownloadStatus string

const (
	StatusPending   DownloadStatus = "pending"
	StatusSucceeded DownloadStatus = "succeeded"
	StatusFailed    DownloadStatus = "failed"
)

// DownloadRecord describes one matched resource and what became of it.
type DownloadRecord struct {
	ID          int64          `json:"id"`
	SourceURL   string         `json:"source_url"`
	FileName    string         `json:"file_name"`
	Destination string         `json:"destination"`
	Status      DownloadStatus `json:"status"`
	StatusCode  int            `json:"status_code,omitempty"`
	Bytes       int64          `json:"bytes,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitzero"`
}

// RunSummary tallies a capture run. Counters are snapshots and may still move
// while Done is false.
type RunSummary struct {
	TargetURL  string `json:"target_url"`
	Origin     string `json:"origin"`
	SearchTerm string `json:"search_term"`
	Directory  string `json:"directory"`
	Observed   int64  `json:"observed"`
	Matched    int64  `json:"matched"`
	Excluded   int64  `json:"excluded"`
	Rejected   int64  `json:"rejected"`
	InFlight   int64  `json:"in_flight"`
	Succeeded  int64  `json:"succeeded"`
	Failed     int64  `json:"failed"`
	Done       bool   `json:"done"`
}
