package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/llm"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// newLocalSolutionCache builds the real cache without a Redis client, so
// the tests exercise the same in-process fallback a Redis-less deployment
// runs on.
func newLocalSolutionCache() SolutionCache {
	return NewSolutionCache(nil, time.Minute, zap.NewNop())
}

func newTestIncidentService(kb *mockKnowledgeRepo, tr *mockTrainingRepo, fb *mockFeedbackRepo,
	cache SolutionCache) IncidentService {
	logger := zap.NewNop()
	scoring := testScoring()
	knowledge := NewKnowledgeService(kb, scoring, logger)
	training := NewTrainingService(tr, scoring, logger)
	fp := NewFingerprinter()
	return NewIncidentService(
		llm.NewService(nil, time.Second, logger),
		fp,
		knowledge,
		training,
		NewSolutionService(fp, knowledge, training, fb, scoring, logger),
		NewFeedbackService(fb, kb, tr, logger),
		NewEscalationService(logger),
		cache,
		testTriage(),
		logger,
	)
}

func TestIncidentAnalyzeRejectsNoise(t *testing.T) {
	svc := newTestIncidentService(&mockKnowledgeRepo{}, &mockTrainingRepo{}, &mockFeedbackRepo{}, newLocalSolutionCache())

	_, err := svc.Analyze(context.Background(), "asdf qwerty")
	assert.ErrorIs(t, err, apperrors.ErrInvalidIncident)

	_, err = svc.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIncidentAnalyzeFullFlow(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{coarriCase(1, 2)}}
	cache := newLocalSolutionCache()
	svc := newTestIncidentService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{}, cache)

	result, err := svc.Analyze(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment from Partner-B")
	require.NoError(t, err)

	assert.NotEmpty(t, result.IncidentID)
	assert.Equal(t, "edifact_unexpected_qualifier", result.ErrorType)
	assert.Equal(t, "Container Management", result.Analysis.IncidentType)
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.Plan.Solutions)
	assert.Contains(t, result.Plan.Summary, "edifact_unexpected_qualifier")

	require.NotNil(t, result.EscalationSummary)
	assert.Contains(t, result.EscalationSummary.Subject, result.IncidentID)
	assert.Len(t, result.EscalationTemplates, 3)

	_, cached := cache.Get(context.Background(), result.IncidentID)
	assert.True(t, cached)
}

func TestIncidentAnalyzeMarksVerifiedSolutions(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{coarriCase(1, 0)}}
	fb := &mockFeedbackRepo{}
	_, err := fb.Mark(context.Background(), &models.SolutionFeedback{
		SolutionDescription: "Update translator mapping table and replay the message",
		SolutionOrder:       1,
	})
	require.NoError(t, err)
	svc := newTestIncidentService(&mockKnowledgeRepo{}, tr, fb, newLocalSolutionCache())

	result, err := svc.Analyze(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment from Partner-B")
	require.NoError(t, err)

	verified := false
	for _, sol := range result.Plan.Solutions {
		if sol.UserVerified {
			verified = true
			assert.Equal(t, 1, sol.UsefulnessCount)
		}
	}
	assert.True(t, verified)
}

func TestLoadMorePagesThroughPlan(t *testing.T) {
	cache := newLocalSolutionCache()
	svc := newTestIncidentService(&mockKnowledgeRepo{}, &mockTrainingRepo{}, &mockFeedbackRepo{}, cache)

	solutions := make([]models.Solution, 20)
	for i := range solutions {
		solutions[i] = models.Solution{Order: i + 1, Description: "step", Score: 50}
	}
	cache.Put(context.Background(), "INC-PAGED", &models.ResolutionPlan{Solutions: solutions, TotalCount: 20})

	page, err := svc.LoadMore(context.Background(), "INC-PAGED", 15, 15)
	require.NoError(t, err)
	assert.Len(t, page.Solutions, 5)
	assert.Equal(t, 16, page.Solutions[0].Order)
	assert.Equal(t, 20, page.Solutions[4].Order)
	assert.False(t, page.HasMore)
	assert.Equal(t, 20, page.TotalCount)
	assert.Equal(t, 20, page.LoadedCount)

	page, err = svc.LoadMore(context.Background(), "INC-PAGED", 0, 15)
	require.NoError(t, err)
	assert.Len(t, page.Solutions, 15)
	assert.True(t, page.HasMore)
}

func TestLoadMoreWithoutRedis(t *testing.T) {
	tr := &mockTrainingRepo{cases: []*models.TrainingCase{coarriCase(1, 2)}}
	svc := newTestIncidentService(&mockKnowledgeRepo{}, tr, &mockFeedbackRepo{}, newLocalSolutionCache())

	result, err := svc.Analyze(context.Background(),
		"COARRI container translation error: unexpected qualifier 'XYZ' in LOC segment from Partner-B")
	require.NoError(t, err)

	page, err := svc.LoadMore(context.Background(), result.IncidentID, 0, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, page.Solutions)
	assert.Equal(t, result.Plan.TotalCount, page.TotalCount)
}

func TestLoadMoreExpiredPlan(t *testing.T) {
	svc := newTestIncidentService(&mockKnowledgeRepo{}, &mockTrainingRepo{}, &mockFeedbackRepo{}, newLocalSolutionCache())

	_, err := svc.LoadMore(context.Background(), "INC-GONE", 0, 15)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
