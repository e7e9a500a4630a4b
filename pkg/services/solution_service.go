package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// SolutionService ranks candidate solutions from the training corpus and
// the knowledge base for an incident description.
type SolutionService interface {
	// FuseSolutions runs the staged search (exact, keyword, category) over
	// both corpora and returns ranked solutions plus SOP references.
	// Verified solutions rise to the top; the result is never empty.
	FuseSolutions(ctx context.Context, description string) ([]models.Solution, []string)

	// GenerateResolutionPlan is the direct query flow: fingerprint the
	// description, search both corpora by error type and key phrases, and
	// return every match sorted by usefulness then relevance.
	GenerateResolutionPlan(ctx context.Context, description string) *models.ResolutionPlan
}

type solutionService struct {
	fingerprinter *Fingerprinter
	knowledge     KnowledgeService
	training      TrainingService
	feedback      repositories.FeedbackRepository
	scoring       config.ScoringConfig
	logger        *zap.Logger
}

// NewSolutionService creates a new SolutionService.
func NewSolutionService(fingerprinter *Fingerprinter, knowledge KnowledgeService, training TrainingService,
	feedback repositories.FeedbackRepository, scoring config.ScoringConfig, logger *zap.Logger) SolutionService {
	return &solutionService{
		fingerprinter: fingerprinter,
		knowledge:     knowledge,
		training:      training,
		feedback:      feedback,
		scoring:       scoring,
		logger:        logger.Named("solution-service"),
	}
}

var _ SolutionService = (*solutionService)(nil)

// Stage limits for the fused search.
const (
	stageExactTrainingLimit     = 15
	stageExactKnowledgeLimit    = 10
	stageKeywordTrainingLimit   = 5
	stageKeywordKnowledgeLimit  = 3
	stageCategoryTrainingLimit  = 3
	stageCategoryKnowledgeLimit = 2
	maxSearchKeywords           = 8
	topTrainingSolutions        = 10
	topSOPReferences            = 5
)

// techTerms and errorWords drive the enhanced relevance bonuses. Matching
// requires the term on both sides of the comparison.
var (
	fusionTechTerms  = []string{"EDIFACT", "COARRI", "CODECO", "COPRAR", "container", "vessel", "segment", "translator"}
	fusionErrorWords = []string{"error", "fail", "reject", "invalid", "timeout", "duplicate", "mismatch"}
)

type scoredTraining struct {
	tc    *models.TrainingCase
	score int
}

type scoredKnowledge struct {
	entry *models.KnowledgeEntry
	score int
}

func (s *solutionService) FuseSolutions(ctx context.Context, description string) ([]models.Solution, []string) {
	keywords := ExtractKeywords(description)

	trainingMatches, knowledgeMatches := s.stagedSearch(ctx, description, keywords)

	scoredT := make([]scoredTraining, 0, len(trainingMatches))
	for _, tc := range trainingMatches {
		base := s.scoring.TrainingBase + tc.UsefulnessCount*s.scoring.TrainingUseful
		text := strings.TrimSpace(tc.IncidentDescription + " " + tc.ExpectedRootCause + " " + tc.Notes)
		scoredT = append(scoredT, scoredTraining{tc: tc, score: s.enhancedScore(text, description, keywords, base)})
	}
	sort.SliceStable(scoredT, func(i, j int) bool { return scoredT[i].score > scoredT[j].score })
	if len(scoredT) > topTrainingSolutions {
		scoredT = scoredT[:topTrainingSolutions]
	}

	scoredK := make([]scoredKnowledge, 0, len(knowledgeMatches))
	for _, entry := range knowledgeMatches {
		base := s.scoring.KnowledgeBase + entry.UsefulnessCount*s.scoring.KnowledgeUseful
		text := strings.TrimSpace(entry.Title + " " + entry.Content)
		scoredK = append(scoredK, scoredKnowledge{entry: entry, score: s.enhancedScore(text, description, keywords, base)})
	}
	sort.SliceStable(scoredK, func(i, j int) bool { return scoredK[i].score > scoredK[j].score })
	if len(scoredK) > topSOPReferences {
		scoredK = scoredK[:topSOPReferences]
	}

	// SOP titles must be unique in the final list.
	seenTitles := make(map[string]struct{})
	uniqueK := scoredK[:0]
	for _, sk := range scoredK {
		if _, dup := seenTitles[sk.entry.Title]; dup {
			continue
		}
		seenTitles[sk.entry.Title] = struct{}{}
		uniqueK = append(uniqueK, sk)
	}
	scoredK = uniqueK

	solutions := s.buildSolutions(ctx, description, scoredT)
	sops := buildSOPReferences(scoredK)

	if len(solutions) == 0 {
		s.logger.Info("No corpus solutions matched, using static fallbacks",
			zap.String("description", description))
		solutions = staticFallbackSolutions()
	}
	if len(sops) == 0 {
		sops = staticFallbackSOPs()
	}
	return solutions, sops
}

// stagedSearch runs the three retrieval stages and returns deduplicated
// match lists. Stage one searches with the whole description, stage two
// with individual keywords, stage three with coarse category terms that
// only contribute results unseen in earlier stages.
func (s *solutionService) stagedSearch(ctx context.Context, description string, keywords []string) ([]*models.TrainingCase, []*models.KnowledgeEntry) {
	seenTraining := make(map[int64]struct{})
	seenKnowledge := make(map[int64]struct{})
	var trainingMatches []*models.TrainingCase
	var knowledgeMatches []*models.KnowledgeEntry

	addTraining := func(cases []*models.TrainingCase) {
		for _, tc := range cases {
			if _, dup := seenTraining[tc.ID]; dup {
				continue
			}
			seenTraining[tc.ID] = struct{}{}
			trainingMatches = append(trainingMatches, tc)
		}
	}
	addKnowledge := func(entries []*models.KnowledgeEntry) {
		for _, e := range entries {
			if _, dup := seenKnowledge[e.ID]; dup {
				continue
			}
			seenKnowledge[e.ID] = struct{}{}
			knowledgeMatches = append(knowledgeMatches, e)
		}
	}

	addTraining(s.training.FindRelevant(ctx, description, stageExactTrainingLimit))
	addKnowledge(s.knowledge.FindRelevant(ctx, description, stageExactKnowledgeLimit))

	searchKeywords := keywords
	if len(searchKeywords) > maxSearchKeywords {
		searchKeywords = searchKeywords[:maxSearchKeywords]
	}
	for _, kw := range searchKeywords {
		addTraining(s.training.FindRelevant(ctx, kw, stageKeywordTrainingLimit))
		addKnowledge(s.knowledge.FindRelevant(ctx, kw, stageKeywordKnowledgeLimit))
	}

	for _, term := range categoryTerms(description) {
		addTraining(s.training.FindRelevant(ctx, term, stageCategoryTrainingLimit))
		addKnowledge(s.knowledge.FindRelevant(ctx, term, stageCategoryKnowledgeLimit))
	}

	return trainingMatches, knowledgeMatches
}

// categoryTerms maps coarse description categories to fallback search terms.
func categoryTerms(description string) []string {
	lower := strings.ToLower(description)
	var terms []string
	if containsAnyKeyword(lower, "edifact", "edi", "coarri", "codeco") {
		terms = append(terms, "EDI", "EDIFACT", "message", "parsing", "format")
	}
	if containsAnyKeyword(lower, "container", "cntr", "duplicate") {
		terms = append(terms, "Container", "CNTR", "duplication", "booking")
	}
	if containsAnyKeyword(lower, "vessel", "ship", "arrival", "eta") {
		terms = append(terms, "Vessel", "Ship", "arrival", "scheduling")
	}
	return terms
}

// enhancedScore adds keyword, technical term, error pattern and word
// overlap bonuses on top of a base score.
func (s *solutionService) enhancedScore(text, target string, keywords []string, base int) int {
	if text == "" || target == "" {
		return base
	}

	score := base
	textLower := strings.ToLower(text)
	targetLower := strings.ToLower(target)

	for _, kw := range keywords {
		if !strings.Contains(textLower, strings.ToLower(kw)) {
			continue
		}
		switch {
		case len(kw) > 6:
			score += s.scoring.KeywordBonusLong
		case len(kw) > 4:
			score += s.scoring.KeywordBonusMedium
		default:
			score += s.scoring.KeywordBonusShort
		}
	}

	for _, term := range fusionTechTerms {
		t := strings.ToLower(term)
		if strings.Contains(textLower, t) && strings.Contains(targetLower, t) {
			score += s.scoring.TechTermBonus
		}
	}

	for _, word := range fusionErrorWords {
		if strings.Contains(textLower, word) && strings.Contains(targetLower, word) {
			score += s.scoring.ErrorPatternBonus
		}
	}

	textWords := fieldSet(textLower)
	targetWords := fieldSet(targetLower)
	if len(textWords) > 0 {
		overlap := 0
		union := len(targetWords)
		for w := range textWords {
			if _, ok := targetWords[w]; ok {
				overlap++
			} else {
				union++
			}
		}
		if union > 0 {
			score += int(float64(overlap) / float64(union) * 100)
		}
	}
	return score
}

func fieldSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		set[w] = struct{}{}
	}
	return set
}

// buildSolutions converts scored training cases into display solutions:
// feedback-verified entries adopt the recorded usefulness count, duplicate
// descriptions collapse, and verified entries sort first.
func (s *solutionService) buildSolutions(ctx context.Context, description string, scored []scoredTraining) []models.Solution {
	feedbackRows, err := s.feedback.ListPositive(ctx)
	if err != nil {
		s.logger.Warn("Failed to load solution feedback", zap.Error(err))
		feedbackRows = nil
	}

	var solutions []models.Solution
	seenDescriptions := make(map[string]struct{})

	for _, st := range scored {
		text := st.tc.ExpectedRootCause
		if text == "" {
			text = st.tc.IncidentDescription
		}
		if text == "" {
			text = "See training data"
		}
		if len(text) > 500 {
			text = text[:500] + "..."
		}

		key := strings.TrimSpace(strings.ToLower(text))
		if _, dup := seenDescriptions[key]; dup {
			continue
		}
		seenDescriptions[key] = struct{}{}

		verified := false
		usefulness := st.tc.UsefulnessCount
		lower := strings.ToLower(text)
		for _, fb := range feedbackRows {
			fbLower := strings.ToLower(fb.SolutionDescription)
			if fbLower == "" {
				continue
			}
			if strings.Contains(fbLower, lower) || strings.Contains(lower, fbLower) {
				verified = true
				usefulness = fb.UsefulnessCount
				break
			}
		}

		id := st.tc.ID
		solutions = append(solutions, models.Solution{
			Description:     text,
			Score:           normalizeScore(st.score, 10, 60, 99),
			Source:          models.SolutionSourceTraining,
			UserVerified:    verified,
			UsefulnessCount: usefulness,
			TrainingDataID:  &id,
		})
	}

	sort.SliceStable(solutions, func(i, j int) bool {
		if solutions[i].UserVerified != solutions[j].UserVerified {
			return solutions[i].UserVerified
		}
		return solutions[i].UsefulnessCount > solutions[j].UsefulnessCount
	})
	for i := range solutions {
		solutions[i].Order = i + 1
	}
	return solutions
}

func buildSOPReferences(scored []scoredKnowledge) []string {
	var sops []string
	for _, sk := range scored {
		preview := sk.entry.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		score := normalizeScore(sk.score, 8, 70, 95)
		sops = append(sops, fmt.Sprintf("%s (%d%%): %s", sk.entry.Title, score, preview))
	}
	return sops
}

// normalizeScore maps a raw fused score onto a bounded display percentage.
func normalizeScore(raw, divisor, floor, ceiling int) int {
	score := raw / divisor
	if score < floor {
		score = floor
	}
	if score > ceiling {
		score = ceiling
	}
	return score
}

func staticFallbackSolutions() []models.Solution {
	return []models.Solution{
		{
			Order:       1,
			Description: "Review system logs around the incident time to identify error patterns and root causes.",
			Score:       75,
			Source:      models.SolutionSourceStatic,
		},
		{
			Order:       2,
			Description: "Escalate to technical support team with incident details and timeline information.",
			Score:       70,
			Source:      models.SolutionSourceStatic,
		},
	}
}

func staticFallbackSOPs() []string {
	return []string{
		"Standard Incident Response Procedure (80%): 1. Document incident details 2. Analyze system logs 3. Identify root cause 4. Implement solution 5. Monitor resolution 6. Update documentation",
	}
}

var partnerLetterPattern = regexp.MustCompile(`Partner-([A-Z])`)

func (s *solutionService) GenerateResolutionPlan(ctx context.Context, description string) *models.ResolutionPlan {
	errorType := s.fingerprinter.ErrorType(description)
	keyPhrases := ExtractKeyPhrases(description)

	knowledgeMatches := s.searchKnowledgeForPlan(ctx, errorType, description)
	trainingMatches := s.searchTrainingForPlan(ctx, errorType, keyPhrases)

	type rankedSolution struct {
		solution   models.Solution
		usefulness int
		relevance  int
	}
	var ranked []rankedSolution

	for _, entry := range knowledgeMatches {
		id := entry.ID
		ranked = append(ranked, rankedSolution{
			solution: models.Solution{
				Description:     entry.Content,
				Source:          models.SolutionSourceKnowledge,
				UsefulnessCount: entry.UsefulnessCount,
				KnowledgeBaseID: &id,
			},
			usefulness: entry.UsefulnessCount,
			relevance:  10 + entry.UsefulnessCount,
		})
	}

	descPartner := partnerLetterPattern.FindStringSubmatch(description)
	for _, tc := range trainingMatches {
		relevance := 100 + tc.UsefulnessCount

		incidentLower := strings.ToLower(tc.IncidentDescription)
		for _, phrase := range keyPhrases {
			if strings.Contains(incidentLower, strings.ToLower(phrase)) {
				relevance += 50
			}
		}
		if descPartner != nil {
			if casePartner := partnerLetterPattern.FindStringSubmatch(tc.IncidentDescription); casePartner != nil && casePartner[1] == descPartner[1] {
				relevance += 100
			}
		}

		id := tc.ID
		ranked = append(ranked, rankedSolution{
			solution: models.Solution{
				Description:     formatTrainingSolution(tc),
				Source:          models.SolutionSourceTraining,
				UsefulnessCount: tc.UsefulnessCount,
				TrainingDataID:  &id,
			},
			usefulness: tc.UsefulnessCount,
			relevance:  relevance,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].usefulness != ranked[j].usefulness {
			return ranked[i].usefulness > ranked[j].usefulness
		}
		return ranked[i].relevance > ranked[j].relevance
	})

	solutions := make([]models.Solution, 0, len(ranked))
	for i, r := range ranked {
		r.solution.Order = i + 1
		r.solution.Score = r.relevance
		solutions = append(solutions, r.solution)
	}

	return &models.ResolutionPlan{
		Summary:    fmt.Sprintf("Found %d matching solutions for '%s' (sorted by usefulness, then relevance)", len(solutions), errorType),
		Solutions:  solutions,
		TotalCount: len(solutions),
		ErrorType:  errorType,
	}
}

// planSearchLimit caps broader-term fallback searches in the query flow.
const planSearchLimit = 5

func (s *solutionService) searchKnowledgeForPlan(ctx context.Context, errorType, description string) []*models.KnowledgeEntry {
	seen := make(map[int64]struct{})
	var matches []*models.KnowledgeEntry

	add := func(entries []*models.KnowledgeEntry, err error) {
		if err != nil {
			s.logger.Warn("Knowledge search failed", zap.Error(err))
			return
		}
		for _, e := range entries {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			matches = append(matches, e)
		}
	}

	add(s.knowledge.Search(ctx, errorType, 0))
	add(s.knowledge.Search(ctx, description, 0))

	if len(matches) == 0 {
		for _, term := range broaderTerms(errorType, true) {
			add(s.knowledge.Search(ctx, term, 0))
			if len(matches) >= planSearchLimit {
				break
			}
		}
	}
	return matches
}

func (s *solutionService) searchTrainingForPlan(ctx context.Context, errorType string, keyPhrases []string) []*models.TrainingCase {
	seen := make(map[int64]struct{})
	var matches []*models.TrainingCase

	add := func(cases []*models.TrainingCase, err error) {
		if err != nil {
			s.logger.Warn("Training search failed", zap.Error(err))
			return
		}
		for _, tc := range cases {
			if _, dup := seen[tc.ID]; dup {
				continue
			}
			seen[tc.ID] = struct{}{}
			matches = append(matches, tc)
		}
	}

	for _, phrase := range keyPhrases {
		add(s.training.Search(ctx, phrase, 0))
	}
	add(s.training.Search(ctx, errorType, 0))

	if len(matches) == 0 {
		for _, term := range broaderTerms(errorType, false) {
			add(s.training.Search(ctx, term, 0))
			if len(matches) >= planSearchLimit {
				break
			}
		}
	}
	return matches
}

// broaderTerms widens a fingerprint tag into category search terms when the
// specific tag found nothing.
func broaderTerms(errorType string, knowledge bool) []string {
	lower := strings.ToLower(errorType)
	switch {
	case strings.Contains(lower, "edi"):
		if knowledge {
			return []string{"EDI", "EDI/API", "message", "parsing"}
		}
		return []string{"EDI", "EDI/API"}
	case strings.Contains(lower, "container"):
		if knowledge {
			return []string{"Container", "CNTR", "duplicate"}
		}
		return []string{"Container", "Container Booking", "Container Report"}
	case strings.Contains(lower, "vessel"):
		if knowledge {
			return []string{"Vessel", "ship", "arrival"}
		}
		return []string{"Vessel"}
	}
	return nil
}

// formatTrainingSolution renders a case's root cause and procedure notes
// into one display block.
func formatTrainingSolution(tc *models.TrainingCase) string {
	solution := tc.ExpectedRootCause
	sop := tc.Notes
	switch {
	case solution != "" && sop != "":
		return fmt.Sprintf("Solution: %s\n\nSOP: %s", solution, sop)
	case solution != "":
		return "Solution: " + solution
	case sop != "":
		return "SOP: " + sop
	default:
		return tc.IncidentDescription
	}
}
