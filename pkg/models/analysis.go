package models

// Urgency levels for incident analysis
const (
	UrgencyLow      = "Low"
	UrgencyMedium   = "Medium"
	UrgencyHigh     = "High"
	UrgencyCritical = "Critical"
)

// Solution source labels
const (
	SolutionSourceTraining  = "Training Data"
	SolutionSourceKnowledge = "Knowledge Base"
	SolutionSourceStatic    = "Standard Procedure"
)

// IncidentAnalysis is the structured output of incident classification,
// produced either by the inference service or the rule-based fallback.
type IncidentAnalysis struct {
	IncidentType    string   `json:"incident_type"`
	PatternMatch    string   `json:"pattern_match"`
	RootCause       string   `json:"root_cause"`
	Impact          string   `json:"impact"`
	Urgency         string   `json:"urgency"`
	AffectedSystems []string `json:"affected_systems"`
}

// Solution is one ranked candidate resolution. Order is 1-based display
// position, assigned after the final fusion sort. Score is the normalized
// display score, not the raw fused score.
type Solution struct {
	Order           int    `json:"order"`
	Description     string `json:"description"`
	Score           int    `json:"score"`
	Source          string `json:"source"`
	UserVerified    bool   `json:"user_verified"`
	UsefulnessCount int    `json:"usefulness_count"`
	KnowledgeBaseID *int64 `json:"knowledge_base_id,omitempty"`
	TrainingDataID  *int64 `json:"training_data_id,omitempty"`
}

// ResolutionPlan is the ranked solution list for one incident, paged by the
// lazy-loading endpoint. TotalCount covers the whole computed list, not just
// the returned page.
type ResolutionPlan struct {
	Summary    string     `json:"summary"`
	Solutions  []Solution `json:"solutions"`
	TotalCount int        `json:"total_count"`
	ErrorType  string     `json:"error_type"`
}

// EscalationSummary is a pre-filled handover message for duty officers who
// need to escalate an unresolved incident.
type EscalationSummary struct {
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	Urgency         string   `json:"urgency"`
	AffectedSystems []string `json:"affected_systems"`
}

// EscalationTemplate is a named escalation channel with its message skeleton.
type EscalationTemplate struct {
	Name        string `json:"name"`
	Recipient   string `json:"recipient"`
	Description string `json:"description"`
	Skeleton    string `json:"skeleton"`
}
