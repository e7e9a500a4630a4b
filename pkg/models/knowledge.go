package models

import (
	"math"
	"strings"
	"time"
)

// Status values for knowledge base entries
const (
	KnowledgeStatusActive   = "Active"
	KnowledgeStatusInactive = "Inactive"
	KnowledgeStatusDraft    = "Draft"
)

// KnowledgeEntry represents a reusable resolution template in the knowledge
// base. Only Active entries participate in retrieval. ViewCount and LastUsed
// are touched on every retrieval hit; UsefulnessCount is adjusted only by
// the feedback ledger.
type KnowledgeEntry struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Category        string     `json:"category"`
	Type            string     `json:"type"`
	Keywords        string     `json:"keywords"`
	Priority        int        `json:"priority"` // 1 (low) to 4 (critical)
	Status          string     `json:"status"`
	ViewCount       int        `json:"view_count"`
	UsefulnessCount int        `json:"usefulness_count"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Relevance scores this entry against a free-text query. The result is in
// [0.0, 1.0]: substring hits on title/content/keywords carry fixed weights,
// word overlap adds a proportional bonus, and priority plus recent usage
// nudge frequently helpful entries upward. An empty query scores 0.0.
func (k *KnowledgeEntry) Relevance(query string, now time.Time) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	title := strings.ToLower(k.Title)
	content := strings.ToLower(k.Content)
	keywords := strings.ToLower(k.Keywords)

	var score float64
	if strings.Contains(title, query) {
		score += 0.4
	}
	if strings.Contains(content, query) {
		score += 0.3
	}
	if strings.Contains(keywords, query) {
		score += 0.2
	}

	queryWords := strings.Fields(query)
	if len(queryWords) > 0 {
		titleWords := wordSet(title)
		contentWords := wordSet(content)

		var titleHits, contentHits int
		for _, w := range queryWords {
			if _, ok := titleWords[w]; ok {
				titleHits++
			}
			if _, ok := contentWords[w]; ok {
				contentHits++
			}
		}
		score += 0.2 * float64(titleHits) / float64(len(queryWords))
		score += 0.1 * float64(contentHits) / float64(len(queryWords))
	}

	score += float64(k.Priority) * 0.05

	if k.LastUsed != nil && k.ViewCount > 0 {
		// Whole elapsed days, with anything under a day counting as one.
		days := math.Floor(now.Sub(*k.LastUsed).Hours() / 24)
		if days < 1 {
			days = 1
		}
		score += math.Min(0.1, float64(k.ViewCount)*0.01/days)
	}

	return math.Min(score, 1.0)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
