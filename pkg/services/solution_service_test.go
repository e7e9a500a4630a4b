package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

func newTestSolutionService(kb *mockKnowledgeRepo, tr *mockTrainingRepo, fb *mockFeedbackRepo) SolutionService {
	logger := zap.NewNop()
	scoring := testScoring()
	return NewSolutionService(
		NewFingerprinter(),
		NewKnowledgeService(kb, scoring, logger),
		NewTrainingService(tr, scoring, logger),
		fb,
		scoring,
		logger,
	)
}

func coarriCase(id int64, usefulness int) *models.TrainingCase {
	return &models.TrainingCase{
		ID:                  id,
		IncidentDescription: "COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment from Partner-B",
		ExpectedRootCause:   "Partner-B sends non-standard qualifier in LOC segment, translator mapping missing",
		Category:            "EDI/API",
		Notes:               "Update translator mapping table and replay the message",
		IsValidated:         true,
		UsefulnessCount:     usefulness,
	}
}

func TestFuseSolutionsRanksTrainingMatches(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{
		coarriCase(1, 0),
		{
			ID:                  2,
			IncidentDescription: "Gate camera offline at lane 4",
			ExpectedRootCause:   "Camera power supply failure",
			Category:            "Gate",
			IsValidated:         true,
		},
	}}
	kb := &mockKnowledgeRepo{entries: []*models.KnowledgeEntry{
		kbEntry(1, "EDIFACT COARRI troubleshooting", "Segment-by-segment COARRI error triage for container translation problems", 0),
	}}
	svc := newTestSolutionService(kb, tr, &mockFeedbackRepo{})

	solutions, sops := svc.FuseSolutions(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment")

	require.NotEmpty(t, solutions)
	assert.Equal(t, 1, solutions[0].Order)
	assert.Contains(t, solutions[0].Description, "Partner-B sends non-standard qualifier")
	assert.Equal(t, models.SolutionSourceTraining, solutions[0].Source)
	require.NotNil(t, solutions[0].TrainingDataID)
	assert.Equal(t, int64(1), *solutions[0].TrainingDataID)
	assert.GreaterOrEqual(t, solutions[0].Score, 60)
	assert.LessOrEqual(t, solutions[0].Score, 99)

	require.NotEmpty(t, sops)
	assert.Contains(t, sops[0], "EDIFACT COARRI troubleshooting")
}

func TestFuseSolutionsDeduplicatesByDescription(t *testing.T) {
	a := coarriCase(1, 0)
	b := coarriCase(2, 0)
	// Same solution text modulo case and whitespace.
	b.ExpectedRootCause = "  PARTNER-B SENDS NON-STANDARD QUALIFIER IN LOC SEGMENT, TRANSLATOR MAPPING MISSING "
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{a, b}}
	svc := newTestSolutionService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{})

	solutions, _ := svc.FuseSolutions(context.Background(),
		"COARRI container translation error from Partner-B")

	descriptions := make(map[string]int)
	for _, s := range solutions {
		key := normalizeDescription(s.Description)
		descriptions[key]++
	}
	for desc, n := range descriptions {
		assert.Equal(t, 1, n, "duplicate solution text survived: %q", desc)
	}
}

func normalizeDescription(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' {
			continue
		}
		if 'A' <= r && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func TestFuseSolutionsIsIdempotent(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{coarriCase(1, 2), coarriCase(2, 5)}}
	tr.cases[1].ExpectedRootCause = "Different root cause about vessel scheduling conflicts"
	svc := newTestSolutionService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{})

	first, _ := svc.FuseSolutions(context.Background(), "COARRI container translation error")
	second, _ := svc.FuseSolutions(context.Background(), "COARRI container translation error")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Description, second[i].Description)
		assert.Equal(t, first[i].Order, second[i].Order)
	}
}

func TestFuseSolutionsVerifiedFirst(t *testing.T) {
	popular := coarriCase(1, 9)
	verified := coarriCase(2, 0)
	verified.ExpectedRootCause = "Reload the translator mapping cache after partner onboarding"
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{popular, verified}}

	fb := &mockFeedbackRepo{}
	_, err := fb.Mark(context.Background(), &models.SolutionFeedback{
		SolutionDescription: "Reload the translator mapping cache after partner onboarding",
		SolutionOrder:       1,
		MarkedAt:            time.Now(),
	})
	require.NoError(t, err)

	svc := newTestSolutionService(&mockKnowledgeRepo{}, tr, fb)
	solutions, _ := svc.FuseSolutions(context.Background(), "COARRI container translation error")

	require.GreaterOrEqual(t, len(solutions), 2)
	// The verified solution outranks the higher-usefulness unverified one.
	assert.True(t, solutions[0].UserVerified)
	assert.Contains(t, solutions[0].Description, "Reload the translator mapping cache")
	assert.Equal(t, 1, solutions[0].UsefulnessCount)
}

func TestFuseSolutionsStaticFallbacks(t *testing.T) {
	svc := newTestSolutionService(&mockKnowledgeRepo{}, &mockTrainingRepo{}, &mockFeedbackRepo{})

	solutions, sops := svc.FuseSolutions(context.Background(), "completely unknown situation")

	require.Len(t, solutions, 2)
	assert.Equal(t, models.SolutionSourceStatic, solutions[0].Source)
	assert.Equal(t, 75, solutions[0].Score)
	assert.Equal(t, 70, solutions[1].Score)
	require.Len(t, sops, 1)
	assert.Contains(t, sops[0], "Standard Incident Response Procedure")
}

func TestFuseSolutionsTruncatesLongDescriptions(t *testing.T) {
	long := coarriCase(1, 0)
	for len(long.ExpectedRootCause) <= 500 {
		long.ExpectedRootCause += " more translator mapping detail"
	}
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{long}}
	svc := newTestSolutionService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{})

	solutions, _ := svc.FuseSolutions(context.Background(), "COARRI container translation error")

	require.NotEmpty(t, solutions)
	assert.Len(t, solutions[0].Description, 503)
	assert.True(t, len(solutions[0].Description) <= 503)
}

func TestGenerateResolutionPlanSortsByUsefulness(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{
		coarriCase(1, 1),
		coarriCase(2, 7),
	}}
	tr.cases[1].ExpectedRootCause = "Well proven translator fix"
	kb := &mockKnowledgeRepo{entries: []*models.KnowledgeEntry{
		kbEntry(1, "COARRI error SOP", "COARRI container translation handling", 3),
	}}
	svc := newTestSolutionService(kb, tr, &mockFeedbackRepo{})

	plan := svc.GenerateResolutionPlan(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment from Partner-B")

	assert.Equal(t, "coarri_container_error", plan.ErrorType)
	assert.Contains(t, plan.Summary, "coarri_container_error")
	require.NotEmpty(t, plan.Solutions)
	assert.Equal(t, plan.TotalCount, len(plan.Solutions))

	// Highest usefulness first regardless of source.
	assert.Equal(t, 7, plan.Solutions[0].UsefulnessCount)
	assert.Contains(t, plan.Solutions[0].Description, "Well proven translator fix")
	for i, sol := range plan.Solutions {
		assert.Equal(t, i+1, sol.Order)
	}
}

func TestGenerateResolutionPlanBroaderTermsFallback(t *testing.T) {
	kb := &mockKnowledgeRepo{entries: []*models.KnowledgeEntry{
		kbEntry(1, "EDI baseline checks", "General EDI connectivity and parsing checklist", 0),
	}}
	svc := newTestSolutionService(kb, &mockTrainingRepo{}, &mockFeedbackRepo{})

	// The tag "edifact_parsing_error" matches nothing directly; the EDI
	// broader term picks up the checklist entry.
	plan := svc.GenerateResolutionPlan(context.Background(), "cannot parse EDIFACT message payload")

	assert.Equal(t, "edifact_parsing_error", plan.ErrorType)
	require.NotEmpty(t, plan.Solutions)
	assert.Equal(t, models.SolutionSourceKnowledge, plan.Solutions[0].Source)
}

func TestGenerateResolutionPlanFormatsTrainingSolutions(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{coarriCase(1, 0)}}
	svc := newTestSolutionService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{})

	plan := svc.GenerateResolutionPlan(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment")

	require.NotEmpty(t, plan.Solutions)
	assert.Contains(t, plan.Solutions[0].Description, "Solution: Partner-B sends non-standard qualifier")
	assert.Contains(t, plan.Solutions[0].Description, "SOP: Update translator mapping table")
}
