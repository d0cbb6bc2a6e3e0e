package models

import "time"

// JobStatus is the lifecycle state of a tracked job.
type JobStatus string

const (
	JobIdle      JobStatus = "idle"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ParseRecord is one parsed paper: the download outcome fields joined with
// the summary fields produced by the LLM analysis.
type ParseRecord struct {
	Title         string         `json:"title"`
	BaseID        string         `json:"arxiv_id"`
	IDWithVersion string         `json:"id_with_version"`
	FileName      string         `json:"file_name"`
	FilePath      string         `json:"file_path"`
	Status        DownloadStatus `json:"status"`

	Innovation string `json:"innovation"`
	Method     string `json:"method"`
	Conclusion string `json:"conclusion"`
	Summary    string `json:"summary"`

	ParseStatus string `json:"parse_status"` // "succeeded" or "failed"
	ParseError  string `json:"parse_error,omitempty"`
	ParsedAt    string `json:"parsed_at"`
}

// ParseJobState is the observable state of the parse job. Snapshots returned
// by the state store are deep copies; Results never aliases live state.
type ParseJobState struct {
	Status     JobStatus     `json:"status"`
	Total      int           `json:"total"`
	Current    int           `json:"current"`
	Message    string        `json:"message"`
	LastError  string        `json:"last_error,omitempty"`
	Results    []ParseRecord `json:"results"`
	StartedAt  string        `json:"started_at,omitempty"`
	FinishedAt string        `json:"finished_at,omitempty"`
	UpdatedAt  string        `json:"updated_at,omitempty"`
	SourceDir  string        `json:"source_dir,omitempty"`
}

// ExportJobState is the observable state of the spreadsheet export job.
type ExportJobState struct {
	Status    JobStatus `json:"status"`
	FilePath  string    `json:"file_path,omitempty"`
	Message   string    `json:"message"`
	TargetDir string    `json:"target_dir,omitempty"`
	UpdatedAt string    `json:"updated_at,omitempty"`
}

// RunRecord is one crawl run persisted to the history store.
type RunRecord struct {
	ID         string     `badgerhold:"key" json:"id"`
	Keywords   []string   `json:"keywords"`
	YearRange  string     `json:"year_range"`
	MaxResults int        `json:"max_results"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	Summary    RunSummary `json:"summary"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
