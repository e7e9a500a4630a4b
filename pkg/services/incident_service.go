package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/llm"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/logging"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// relevantTrainingExamples and relevantKnowledgeEntries size the few-shot
// context handed to the model.
const (
	relevantTrainingExamples = 3
	relevantKnowledgeEntries = 5
)

// IncidentResult is the full outcome of one intake analysis: the structured
// classification, the first page of the resolution plan, and pre-drafted
// escalation material.
type IncidentResult struct {
	IncidentID          string                      `json:"incident_id"`
	ErrorType           string                      `json:"error_type"`
	Analysis            *models.IncidentAnalysis    `json:"analysis"`
	Plan                *models.ResolutionPlan      `json:"plan"`
	EscalationSummary   *models.EscalationSummary   `json:"escalation_summary"`
	EscalationTemplates []models.EscalationTemplate `json:"escalation_templates"`
}

// SolutionPage is one slice of the computed solution list.
type SolutionPage struct {
	Solutions   []models.Solution `json:"solutions"`
	HasMore     bool              `json:"has_more"`
	TotalCount  int               `json:"total_count"`
	LoadedCount int               `json:"loaded_count"`
}

// IncidentService runs the intake flow: validation gate, structured
// analysis with retrieved context, resolution plan and escalation drafts.
// The full plan is cached so LoadMore can page through it.
type IncidentService interface {
	Analyze(ctx context.Context, description string) (*IncidentResult, error)

	// LoadMore returns the next page of a previously computed plan.
	// Returns apperrors.ErrNotFound when the cached plan has expired.
	LoadMore(ctx context.Context, incidentID string, offset, limit int) (*SolutionPage, error)
}

type incidentService struct {
	ai            llm.Service
	fingerprinter *Fingerprinter
	knowledge     KnowledgeService
	training      TrainingService
	solutions     SolutionService
	feedback      FeedbackService
	escalation    EscalationService
	cache         SolutionCache
	triage        config.TriageConfig
	logger        *zap.Logger
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(ai llm.Service, fingerprinter *Fingerprinter, knowledge KnowledgeService,
	training TrainingService, solutions SolutionService, feedback FeedbackService,
	escalation EscalationService, cache SolutionCache, triage config.TriageConfig,
	logger *zap.Logger) IncidentService {
	return &incidentService{
		ai:            ai,
		fingerprinter: fingerprinter,
		knowledge:     knowledge,
		training:      training,
		solutions:     solutions,
		feedback:      feedback,
		escalation:    escalation,
		cache:         cache,
		triage:        triage,
		logger:        logger.Named("incident-service"),
	}
}

var _ IncidentService = (*incidentService)(nil)

func (s *incidentService) Analyze(ctx context.Context, description string) (*IncidentResult, error) {
	if description == "" {
		return nil, fmt.Errorf("incident description is required: %w", apperrors.ErrInvalidInput)
	}
	if !s.ai.Validate(ctx, description) {
		return nil, apperrors.ErrInvalidIncident
	}

	errorType := s.fingerprinter.ErrorType(description)
	s.logger.Info("Analyzing incident",
		zap.String("error_type", errorType),
		zap.String("description", logging.Snippet(description)))

	training := s.training.FindRelevant(ctx, description, relevantTrainingExamples)
	knowledge := s.knowledge.FindRelevant(ctx, description, relevantKnowledgeEntries)
	analysis := s.ai.Analyze(ctx, description, training, knowledge)

	plan := s.solutions.GenerateResolutionPlan(ctx, description)
	s.markVerifiedSolutions(ctx, plan.Solutions)

	incidentID := uuid.NewString()
	s.cache.Put(ctx, incidentID, plan)

	firstPage := *plan
	if len(firstPage.Solutions) > s.triage.SolutionPageSize {
		firstPage.Solutions = firstPage.Solutions[:s.triage.SolutionPageSize]
	}

	summary := s.escalation.Summary(incidentID, description, analysis, plan.TotalCount)

	s.logger.Info("Incident analysis completed",
		zap.String("incident_id", incidentID),
		zap.String("incident_type", analysis.IncidentType),
		zap.String("urgency", analysis.Urgency),
		zap.Int("solutions", plan.TotalCount))

	return &IncidentResult{
		IncidentID:          incidentID,
		ErrorType:           errorType,
		Analysis:            analysis,
		Plan:                &firstPage,
		EscalationSummary:   summary,
		EscalationTemplates: s.escalation.Templates(incidentID, description, summary),
	}, nil
}

func (s *incidentService) LoadMore(ctx context.Context, incidentID string, offset, limit int) (*SolutionPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.triage.SolutionPageSize
	}

	plan, ok := s.cache.Get(ctx, incidentID)
	if !ok {
		return nil, fmt.Errorf("solutions for incident %s: %w", incidentID, apperrors.ErrNotFound)
	}

	total := len(plan.Solutions)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]models.Solution, end-start)
	copy(page, plan.Solutions[start:end])
	for i := range page {
		page[i].Order = start + i + 1
	}

	return &SolutionPage{
		Solutions:   page,
		HasMore:     end < total,
		TotalCount:  total,
		LoadedCount: end,
	}, nil
}

// markVerifiedSolutions flags plan entries the feedback ledger has seen
// marked useful, adopting the recorded count.
func (s *incidentService) markVerifiedSolutions(ctx context.Context, solutions []models.Solution) {
	for i := range solutions {
		if fb, ok := s.feedback.VerifiedMatch(ctx, solutions[i].Description); ok {
			solutions[i].UserVerified = true
			solutions[i].UsefulnessCount = fb.UsefulnessCount
		}
	}
}
