package scanner

import "time"

// Report summarizes the result of a single Scan run.
type Report struct {
	Summary ReportSummary `json:"summary"`
	Dirs    []DirInfo     `json:"dirs"`
}

// ReportSummary contains aggregated statistics for a Scan run.
type ReportSummary struct {
	RootPath          string             `json:"rootPath"`
	StatusFilePath    string             `json:"statusFilePath,omitempty"`
	ProfileUsed       string             `json:"profileUsed,omitempty"`
	ConfigFilePath    string             `json:"configFilePath,omitempty"`
	TotalDirsScanned  int                `json:"totalDirsScanned"`
	PendingCount      int                `json:"pendingCount"`
	DoneCount         int                `json:"doneCount"`
	NotConvergedCount int                `json:"notConvergedCount"`
	Fractions         map[Status]float64 `json:"fractions"`
	DurationSeconds   float64            `json:"durationSeconds"`
	Concurrency       int                `json:"concurrency"`
	Timestamp         time.Time          `json:"timestamp"`
	SchemaVersion     string             `json:"schemaVersion,omitempty"`
}

// DirInfo details the classification of a single work directory.
type DirInfo struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"durationMs"`
}
