package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// TrainingCase is a historically labeled incident used both as a few-shot
// example for inference and as a retrieval corpus for candidate solutions.
// Only validated cases participate in retrieval.
type TrainingCase struct {
	ID                  int64     `json:"id"`
	IncidentDescription string    `json:"incident_description"`
	ExpectedType        string    `json:"expected_incident_type"`
	ExpectedRootCause   string    `json:"expected_root_cause"`
	ExpectedImpact      string    `json:"expected_impact"`
	ExpectedUrgency     string    `json:"expected_urgency"`
	AffectedSystemsRaw  string    `json:"-"` // Serialized list, see AffectedSystems
	Category            string    `json:"category"`
	Notes               string    `json:"notes,omitempty"`
	IsValidated         bool      `json:"is_validated"`
	UsefulnessCount     int       `json:"usefulness_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AffectedSystems decodes the persisted system list. Order is preserved.
// Malformed or empty payloads decode to nil.
func (c *TrainingCase) AffectedSystems() []string {
	if c.AffectedSystemsRaw == "" {
		return nil
	}
	var systems []string
	if err := json.Unmarshal([]byte(c.AffectedSystemsRaw), &systems); err != nil {
		return nil
	}
	return systems
}

// SetAffectedSystems serializes the system list for persistence.
func (c *TrainingCase) SetAffectedSystems(systems []string) error {
	if len(systems) == 0 {
		c.AffectedSystemsRaw = ""
		return nil
	}
	data, err := json.Marshal(systems)
	if err != nil {
		return err
	}
	c.AffectedSystemsRaw = string(data)
	return nil
}

// Similarity scores this case against a free-text query: Jaccard overlap of
// the word sets, +0.2 when the query appears verbatim inside the
// description, +0.1 when the case category appears inside the query.
// Clamped to 1.0. An empty query scores 0.0.
func (c *TrainingCase) Similarity(query string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	description := strings.ToLower(c.IncidentDescription)

	queryWords := wordSet(query)
	descWords := wordSet(description)

	var intersection int
	for w := range queryWords {
		if _, ok := descWords[w]; ok {
			intersection++
		}
	}
	union := len(queryWords) + len(descWords) - intersection

	var score float64
	if union > 0 {
		score = float64(intersection) / float64(union)
	}

	if strings.Contains(description, query) {
		score += 0.2
	}
	if c.Category != "" && strings.Contains(query, strings.ToLower(c.Category)) {
		score += 0.1
	}

	return math.Min(score, 1.0)
}
