package models

import "time"

// Container duplication issue classifications
const (
	DuplicationNone         = ""
	DuplicationVersioning   = "composite_pk_versioning"
	DuplicationRapidInsert  = "rapid_duplicate_insert"
	DuplicationDataMismatch = "data_inconsistency"
)

// Vessel advisory conflict codes
const (
	VesselAdviceConflict       = "VESSEL_ERR_4"
	VesselAdviceMultipleActive = "MULTIPLE_ACTIVE"
)

// EDI error classifications
const (
	EDIErrorStructural = "structural"
	EDIErrorDataFormat = "data_format"
	EDIErrorCapacity   = "capacity"
)

// ContainerDuplication is the correlator's verdict on one container number.
type ContainerDuplication struct {
	ContainerNumber  string  `json:"container_number"`
	HasDuplicates    bool    `json:"has_duplicates"`
	IssueType        string  `json:"issue_type,omitempty"`
	VersionCount     int     `json:"version_count"`
	TimeDeltaSeconds float64 `json:"time_delta_seconds,omitempty"`
	RootCause        string  `json:"root_cause,omitempty"`
	Solution         string  `json:"solution,omitempty"`
}

// VesselAdviceConflictResult reports the advisory state for one vessel.
type VesselAdviceConflictResult struct {
	VesselName      string     `json:"vessel_name"`
	HasConflict     bool       `json:"has_conflict"`
	ErrorCode       string     `json:"error_code,omitempty"`
	ActiveAdviceIDs []int64    `json:"active_advice_ids,omitempty"`
	AdviceNumber    string     `json:"advice_number,omitempty"`
	ActiveSince     *time.Time `json:"active_since,omitempty"`
	HistoricalCount int        `json:"historical_count"`
	RootCause       string     `json:"root_cause,omitempty"`
	Solution        string     `json:"solution,omitempty"`
}

// EDIErrorAnalysis classifies one failed EDI message.
type EDIErrorAnalysis struct {
	MessageRef      string `json:"message_ref"`
	Found           bool   `json:"found"`
	Status          string `json:"status,omitempty"`
	MessageType     string `json:"message_type,omitempty"`
	Classification  string `json:"classification,omitempty"`
	RootCause       string `json:"root_cause,omitempty"`
	Remediation     string `json:"remediation,omitempty"`
	ContainerNumber string `json:"container_number,omitempty"`
}

// EventCascade is a temporally clustered group of failed API events.
type EventCascade struct {
	Start  time.Time  `json:"start"`
	End    time.Time  `json:"end"`
	Events []APIEvent `json:"events"`
}

// APITrace is the full event trail for one correlation ID.
type APITrace struct {
	CorrelationID string     `json:"correlation_id"`
	Events        []APIEvent `json:"events"`
}

// CorrelationReport aggregates per-entity findings for one incident window.
// Per-entity failures are recorded in Errors without aborting the rest.
type CorrelationReport struct {
	Containers      []ContainerDuplication       `json:"containers,omitempty"`
	VesselAdvices   []VesselAdviceConflictResult `json:"vessel_advices,omitempty"`
	EDIErrors       []EDIErrorAnalysis           `json:"edi_errors,omitempty"`
	WindowEDIErrors []EDIMessage                 `json:"window_edi_errors,omitempty"`
	APITraces       []APITrace                   `json:"api_traces,omitempty"`
	Cascades        []EventCascade               `json:"cascades,omitempty"`
	Errors          []string                     `json:"errors,omitempty"`
}
