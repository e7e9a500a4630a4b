package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/logging"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// RCAService builds and persists root-cause analyses. An analysis fuses
// three evidence sources: operational data correlation, similar past
// incidents and uploaded log files.
type RCAService interface {
	// Analyze runs a full root-cause analysis and persists the result.
	// Logs must already be saved under the incident ID.
	Analyze(ctx context.Context, req AnalyzeRequest) (*models.RootCauseAnalysis, error)

	Get(ctx context.Context, incidentID string) (*models.RootCauseAnalysis, error)
	History(ctx context.Context, limit int) ([]*models.RootCauseAnalysis, error)
	Delete(ctx context.Context, incidentID string) error
	UpdateResolution(ctx context.Context, incidentID, resolutionStatus string) error
}

// AnalyzeRequest carries the inputs for one analysis run.
type AnalyzeRequest struct {
	IncidentID      string
	Description     string
	IncidentStart   time.Time
	IncidentEnd     *time.Time
	AffectedSystems []string
}

type rcaService struct {
	repo        repositories.RCARepository
	training    TrainingService
	solutions   SolutionService
	operational OperationalService
	logs        LogService
	triage      config.TriageConfig
	scoring     config.ScoringConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewRCAService creates a new RCAService.
func NewRCAService(repo repositories.RCARepository, training TrainingService, solutions SolutionService,
	operational OperationalService, logs LogService, triage config.TriageConfig, scoring config.ScoringConfig,
	logger *zap.Logger) RCAService {
	return &rcaService{
		repo:        repo,
		training:    training,
		solutions:   solutions,
		operational: operational,
		logs:        logs,
		triage:      triage,
		scoring:     scoring,
		logger:      logger.Named("rca-service"),
		now:         time.Now,
	}
}

var _ RCAService = (*rcaService)(nil)

// similarIncidentPool is how many retrieval candidates feed the rescoring
// filter; similarIncidentKeep is how many survive it.
const (
	similarIncidentPool = 25
	similarIncidentKeep = 5
)

var (
	similarTechTerms     = []string{"edifact", "coarri", "codeco", "coprar", "container", "vessel", "cntr", "baplie"}
	similarErrorPatterns = []string{"error", "fail", "reject", "invalid", "timeout", "duplicate", "mismatch", "stuck"}
	longWordPattern      = regexp.MustCompile(`\b\w{4,}\b`)
)

func (s *rcaService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.RootCauseAnalysis, error) {
	if req.IncidentID == "" {
		return nil, fmt.Errorf("incident id is required")
	}
	if req.Description == "" {
		return nil, fmt.Errorf("incident description is required")
	}

	s.logger.Info("Starting root cause analysis",
		zap.String("incident_id", req.IncidentID),
		zap.String("description", logging.Snippet(req.Description)))

	report := s.operational.Correlate(ctx, req.Description, req.IncidentStart)
	similar := s.findSimilarIncidents(ctx, req.Description)
	solutions, sops := s.solutions.FuseSolutions(ctx, req.Description)

	window := time.Duration(s.triage.SearchWindowHours) * time.Hour
	incidentLogs, err := s.logs.FindByIncident(ctx, req.IncidentID)
	if err != nil {
		s.logger.Warn("Failed to load incident logs", zap.Error(err))
		incidentLogs = nil
	}
	if len(incidentLogs) == 0 {
		windowLogs, err := s.logs.FindAround(ctx, req.IncidentStart, window)
		if err != nil {
			s.logger.Warn("Failed to load window logs", zap.Error(err))
		} else {
			incidentLogs = windowLogs
		}
	}

	hypotheses := s.buildHypotheses(report, similar, solutions, incidentLogs)

	evidence := append([]string(nil), hypotheses[0].Evidence...)
	if n := operationalSourceCount(report); n > 0 {
		evidence = append(evidence, fmt.Sprintf("Operational Data: %d data source(s) analyzed", n))
	}

	rca := &models.RootCauseAnalysis{
		IncidentID:           req.IncidentID,
		IncidentDescription:  req.Description,
		IncidentStart:        req.IncidentStart,
		IncidentEnd:          req.IncidentEnd,
		AffectedSystems:      req.AffectedSystems,
		RootCause:            hypotheses[0].Cause,
		ConfidenceScore:      hypotheses[0].Confidence,
		Evidence:             evidence,
		ContributingFactors:  s.contributingFactors(hypotheses[0], incidentLogs),
		SimilarIncidents:     similar,
		RecommendedSolutions: solutions,
		SOPReferences:        sops,
		Timeline:             s.logs.Timeline(incidentLogs),
		Status:               models.RCAStatusCompleted,
		ResolutionStatus:     models.ResolutionOpen,
	}

	if err := s.repo.Create(ctx, rca); err != nil {
		return nil, fmt.Errorf("persist analysis for %s: %w", req.IncidentID, err)
	}

	s.logger.Info("Root cause analysis completed",
		zap.String("incident_id", req.IncidentID),
		zap.String("root_cause", logging.Snippet(rca.RootCause)),
		zap.Float64("confidence", rca.ConfidenceScore))
	return rca, nil
}

// findSimilarIncidents retrieves a candidate pool and rescores it with
// domain-weighted factors. Candidates below the minimum score are dropped.
func (s *rcaService) findSimilarIncidents(ctx context.Context, description string) []models.SimilarIncident {
	pool := s.training.FindRelevant(ctx, description, similarIncidentPool)

	type scored struct {
		tc    *models.TrainingCase
		score int
	}
	var candidates []scored
	for _, tc := range pool {
		score := s.rescoreIncident(tc, description)
		if score >= s.scoring.SimilarMinScore {
			candidates = append(candidates, scored{tc: tc, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > similarIncidentKeep {
		candidates = candidates[:similarIncidentKeep]
	}

	similar := make([]models.SimilarIncident, 0, len(candidates))
	for _, c := range candidates {
		similar = append(similar, models.SimilarIncident{
			TrainingDataID:  c.tc.ID,
			Description:     c.tc.IncidentDescription,
			RootCause:       c.tc.ExpectedRootCause,
			Category:        c.tc.Category,
			Score:           c.score,
			UsefulnessCount: c.tc.UsefulnessCount,
		})
	}
	return similar
}

func (s *rcaService) rescoreIncident(tc *models.TrainingCase, description string) int {
	targetLower := strings.ToLower(description)
	incidentLower := strings.ToLower(tc.IncidentDescription)

	score := 0

	targetWords := stringSet(longWordPattern.FindAllString(targetLower, -1))
	incidentWords := stringSet(longWordPattern.FindAllString(incidentLower, -1))
	for w := range targetWords {
		if _, ok := incidentWords[w]; ok {
			score += s.scoring.SimilarKeywordWeight
		}
	}

	for _, term := range similarTechTerms {
		if strings.Contains(targetLower, term) && strings.Contains(incidentLower, term) {
			score += s.scoring.SimilarTechWeight
		}
	}

	for _, pattern := range similarErrorPatterns {
		if strings.Contains(targetLower, pattern) && strings.Contains(incidentLower, pattern) {
			score += s.scoring.SimilarErrorWeight
		}
	}

	if tc.Category != "" {
		for _, catWord := range strings.Fields(strings.ToLower(tc.Category)) {
			if strings.Contains(targetLower, catWord) {
				score += s.scoring.SimilarCategoryWeight
			}
		}
	}

	score += tc.UsefulnessCount * s.scoring.SimilarUsefulWeight

	lengthDiff := len(description) - len(tc.IncidentDescription)
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff < 100 {
		score += s.scoring.SimilarLengthBonus
	}
	return score
}

// operationalSourceCount counts the correlation categories that produced
// findings for the incident.
func operationalSourceCount(report models.CorrelationReport) int {
	n := 0
	if len(report.Containers) > 0 {
		n++
	}
	if len(report.VesselAdvices) > 0 {
		n++
	}
	if len(report.EDIErrors) > 0 || len(report.WindowEDIErrors) > 0 {
		n++
	}
	if len(report.APITraces) > 0 || len(report.Cascades) > 0 {
		n++
	}
	return n
}

func stringSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// buildHypotheses assembles ranked root-cause hypotheses. Operational
// findings carry the highest confidence and are inserted at the front,
// ahead of similarity- and log-derived candidates. The result is never
// empty: with no evidence at all a zero-confidence placeholder remains.
func (s *rcaService) buildHypotheses(report models.CorrelationReport, similar []models.SimilarIncident,
	solutions []models.Solution, logs []models.SystemLog) []models.Hypothesis {
	var hypotheses []models.Hypothesis

	if len(similar) > 0 {
		top := similar[0]
		cause := top.RootCause
		if cause == "" {
			cause = "Root cause identified from similar incidents"
		}
		if len(solutions) > 0 {
			cause += fmt.Sprintf(" Recommended solution: %s", logging.TruncateString(solutions[0].Description, 100))
		}
		hypotheses = append(hypotheses, models.Hypothesis{
			Cause:      cause,
			Confidence: 0.85,
			Evidence: []string{
				fmt.Sprintf("Similar incident found: %s", logging.TruncateString(top.Description, 150)),
				fmt.Sprintf("Category: %s", top.Category),
				fmt.Sprintf("Based on %d similar past incidents", len(similar)),
			},
			Source: "similarity",
		})
	}

	hypotheses = append(hypotheses, s.logs.Hypotheses(logs)...)

	if len(hypotheses) == 0 {
		hypotheses = append(hypotheses, models.Hypothesis{
			Cause:      "Unable to determine root cause - insufficient data",
			Confidence: 0.0,
			Evidence:   []string{"No similar incidents found", "No log files uploaded"},
			Source:     "none",
		})
	}

	prepend := func(h models.Hypothesis) {
		hypotheses = append([]models.Hypothesis{h}, hypotheses...)
	}

	for _, c := range report.Containers {
		if !c.HasDuplicates {
			continue
		}
		cause := fmt.Sprintf("Container %s duplication detected: %s. %s", c.ContainerNumber, c.IssueType, c.RootCause)
		prepend(models.Hypothesis{
			Cause:      strings.TrimSpace(cause),
			Confidence: 0.95,
			Evidence:   []string{fmt.Sprintf("Database shows %d records for %s", c.VersionCount, c.ContainerNumber)},
			Source:     "operational",
		})
	}

	for _, v := range report.VesselAdvices {
		if !v.HasConflict || v.ErrorCode != models.VesselAdviceConflict {
			continue
		}
		evidence := []string{
			fmt.Sprintf("Active vessel advice #%s exists", v.AdviceNumber),
			"Unique constraint prevents multiple active advices for same vessel name",
		}
		if v.ActiveSince != nil {
			evidence[0] = fmt.Sprintf("Active vessel advice #%s exists since %s", v.AdviceNumber, v.ActiveSince.Format(time.RFC3339))
		}
		prepend(models.Hypothesis{
			Cause:      fmt.Sprintf("%s: %s", models.VesselAdviceConflict, v.RootCause),
			Confidence: 0.98,
			Evidence:   evidence,
			Source:     "operational",
		})
	}

	for _, e := range report.EDIErrors {
		if e.RootCause == "" {
			continue
		}
		prepend(models.Hypothesis{
			Cause:      fmt.Sprintf("EDI %s error: %s", e.MessageType, e.RootCause),
			Confidence: 0.90,
			Evidence:   []string{fmt.Sprintf("Message %s classified as %s", e.MessageRef, e.Classification)},
			Source:     "operational",
		})
	}

	return hypotheses
}

func (s *rcaService) contributingFactors(top models.Hypothesis, logs []models.SystemLog) []string {
	var factors []string
	switch top.Source {
	case "operational":
		switch {
		case strings.Contains(top.Cause, "duplication detected"):
			factors = append(factors,
				"Composite primary key (cntr_no, created_at)",
				"Possible race condition or double-submit")
		case strings.HasPrefix(top.Cause, models.VesselAdviceConflict):
			factors = append(factors, "Vessel advice lifecycle not properly managed")
		default:
			factors = append(factors, "Review EDI message structure")
		}
	}
	factors = append(factors, s.logs.ContributingFactors(logs)...)
	return factors
}

func (s *rcaService) Get(ctx context.Context, incidentID string) (*models.RootCauseAnalysis, error) {
	return s.repo.GetByIncidentID(ctx, incidentID)
}

func (s *rcaService) History(ctx context.Context, limit int) ([]*models.RootCauseAnalysis, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *rcaService) Delete(ctx context.Context, incidentID string) error {
	if err := s.repo.Delete(ctx, incidentID); err != nil {
		return err
	}
	// Attached logs go with the analysis.
	if err := s.logs.DeleteByIncident(ctx, incidentID); err != nil {
		s.logger.Warn("Failed to delete incident logs",
			zap.String("incident_id", incidentID),
			zap.Error(err))
	}
	return nil
}

func (s *rcaService) UpdateResolution(ctx context.Context, incidentID, resolutionStatus string) error {
	switch resolutionStatus {
	case models.ResolutionOpen, models.ResolutionInProgress, models.ResolutionResolved:
	default:
		return fmt.Errorf("invalid resolution status: %s", resolutionStatus)
	}

	var resolvedAt *time.Time
	if resolutionStatus == models.ResolutionResolved {
		now := s.now()
		resolvedAt = &now
	}
	return s.repo.UpdateResolution(ctx, incidentID, resolutionStatus, resolvedAt)
}
