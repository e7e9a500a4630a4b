package models

import "time"

// RCA status values
const (
	RCAStatusCompleted = "completed"
	RCAStatusFailed    = "failed"
)

// RCA resolution status values
const (
	ResolutionOpen       = "open"
	ResolutionInProgress = "in_progress"
	ResolutionResolved   = "resolved"
)

// RootCauseAnalysis is the persisted result of one hypothesis-building run.
// It is written once and only ResolutionStatus/ResolvedAt change afterward.
// The solution and SOP lists are denormalized snapshots of scored candidates
// at analysis time, not live references.
type RootCauseAnalysis struct {
	ID                   int64             `json:"id"`
	IncidentID           string            `json:"incident_id"` // Externally generated, unique
	IncidentDescription  string            `json:"incident_description"`
	IncidentStart        time.Time         `json:"incident_start"`
	IncidentEnd          *time.Time        `json:"incident_end,omitempty"`
	AffectedSystems      []string          `json:"affected_systems"`
	RootCause            string            `json:"root_cause"`
	ConfidenceScore      float64           `json:"confidence_score"` // [0.0, 1.0]
	Evidence             []string          `json:"evidence"`
	ContributingFactors  []string          `json:"contributing_factors"`
	SimilarIncidents     []SimilarIncident `json:"similar_incidents"`
	RecommendedSolutions []Solution        `json:"recommended_solutions"`
	SOPReferences        []string          `json:"sop_references"`
	Timeline             []TimelineEvent   `json:"timeline"`
	Status               string            `json:"status"`
	ResolutionStatus     string            `json:"resolution_status"`
	ResolvedAt           *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// Hypothesis is one ranked root-cause candidate with its supporting data.
type Hypothesis struct {
	Cause      string   `json:"cause"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
	Source     string   `json:"source"` // "operational", "similarity", "logs", "none"
}

// SimilarIncident references a training case judged relevant to the
// incident under analysis, with its rescored relevance.
type SimilarIncident struct {
	TrainingDataID  int64  `json:"training_data_id"`
	Description     string `json:"description"`
	RootCause       string `json:"root_cause"`
	Category        string `json:"category"`
	Score           int    `json:"score"`
	UsefulnessCount int    `json:"usefulness_count"`
}

// TimelineEvent is one entry in the reconstructed incident timeline.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
}
