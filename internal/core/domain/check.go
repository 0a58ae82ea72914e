package domain

import "time"

// CheckDef is one evaluation question with its reference answer.
type CheckDef struct {
	ID              string
	Category        string
	Question        string
	ReferenceAnswer string

	// Expect holds rule nodes evaluated against the actual answer.
	// Each node sees the fields "answer" and "reference".
	Expect []map[string]any
}

// CheckResult is the outcome of running one check.
type CheckResult struct {
	CheckID       string
	Category      string
	Question      string
	Reference     string
	Answer        string
	ScriptScore   float64
	SemanticScore float64
	Failed        bool
	Error         string
	Log           []string
	Duration      time.Duration
}

// CheckRunSummary aggregates a bulk check run.
type CheckRunSummary struct {
	Results       []CheckResult
	ScriptScore   float64
	SemanticScore float64
	Failed        int
	StartedAt     time.Time
	EndedAt       time.Time
}
