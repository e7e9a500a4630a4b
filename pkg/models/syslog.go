package models

import "time"

// Log levels, normalized to upper case on ingestion
const (
	LogLevelDebug   = "DEBUG"
	LogLevelInfo    = "INFO"
	LogLevelWarn    = "WARN"
	LogLevelWarning = "WARNING"
	LogLevelError   = "ERROR"
	LogLevelFatal   = "FATAL"
)

// SystemLog is one parsed application log line attached to an incident.
type SystemLog struct {
	ID         int64     `json:"id"`
	IncidentID string    `json:"incident_id"`
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Source     string    `json:"source"`
	Message    string    `json:"message"`
	Raw        string    `json:"raw,omitempty"`
}

// IsErrorLevel reports whether the entry is ERROR severity or worse.
func (l *SystemLog) IsErrorLevel() bool {
	return l.Level == LogLevelError || l.Level == LogLevelFatal
}

// IsWarningLevel reports whether the entry is a warning.
func (l *SystemLog) IsWarningLevel() bool {
	return l.Level == LogLevelWarn || l.Level == LogLevelWarning
}

// ErrorPattern is a group of error lines sharing a normalized message shape
// (digits and hex identifiers collapsed). Only patterns with two or more
// occurrences are reported.
type ErrorPattern struct {
	Pattern     string    `json:"pattern"`
	PatternType string    `json:"pattern_type"` // "REPEATED_ERROR"
	Count       int       `json:"count"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Example     string    `json:"example"`
}

// LogCascade is a run of error-level entries close enough in time to be
// treated as one causally related group.
type LogCascade struct {
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Events []SystemLog `json:"events"`
}
