package models

import "time"

// SolutionFeedback records that a concrete solution text was marked useful.
// Identity is the combination of (SolutionDescription, SolutionOrder,
// KnowledgeBaseID, TrainingDataID, RCAID) - the same solution text reused
// across incidents accumulates a single counter. At most one of the three
// source references is set; all nil means an ad-hoc RCA-derived solution.
type SolutionFeedback struct {
	ID                  int64     `json:"id"`
	IncidentDescription string    `json:"incident_description"`
	SolutionDescription string    `json:"solution_description"`
	SolutionOrder       int       `json:"solution_order"`
	KnowledgeBaseID     *int64    `json:"knowledge_base_id,omitempty"`
	TrainingDataID      *int64    `json:"training_data_id,omitempty"`
	RCAID               *int64    `json:"rca_id,omitempty"`
	UsefulnessCount     int       `json:"usefulness_count"` // Always >= 1 while the row exists
	MarkedAt            time.Time `json:"marked_at"`
}

// SolutionSource identifies which table (if any) a solution came from.
type SolutionSource struct {
	KnowledgeBaseID *int64 `json:"knowledge_base_id,omitempty"`
	TrainingDataID  *int64 `json:"training_data_id,omitempty"`
	RCAID           *int64 `json:"rca_id,omitempty"`
}
