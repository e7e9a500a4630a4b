package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/services"
)

// stubIncidentService implements services.IncidentService with canned data.
type stubIncidentService struct {
	result  *services.IncidentResult
	page    *services.SolutionPage
	err     error
	pageErr error
}

func (s *stubIncidentService) Analyze(_ context.Context, _ string) (*services.IncidentResult, error) {
	return s.result, s.err
}

func (s *stubIncidentService) LoadMore(_ context.Context, _ string, _, _ int) (*services.SolutionPage, error) {
	return s.page, s.pageErr
}

// stubRCAService implements services.RCAService over an in-memory list.
type stubRCAService struct {
	analyses   []*models.RootCauseAnalysis
	analyzeErr error
}

func (s *stubRCAService) Analyze(_ context.Context, req services.AnalyzeRequest) (*models.RootCauseAnalysis, error) {
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	rca := &models.RootCauseAnalysis{
		IncidentID:          req.IncidentID,
		IncidentDescription: req.Description,
		RootCause:           "stub root cause",
		ConfidenceScore:     0.5,
		Status:              models.RCAStatusCompleted,
		ResolutionStatus:    models.ResolutionOpen,
	}
	s.analyses = append(s.analyses, rca)
	return rca, nil
}

func (s *stubRCAService) Get(_ context.Context, incidentID string) (*models.RootCauseAnalysis, error) {
	for _, rca := range s.analyses {
		if rca.IncidentID == incidentID {
			return rca, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *stubRCAService) History(_ context.Context, limit int) ([]*models.RootCauseAnalysis, error) {
	if limit > len(s.analyses) {
		limit = len(s.analyses)
	}
	return s.analyses[:limit], nil
}

func (s *stubRCAService) Delete(_ context.Context, incidentID string) error {
	for i, rca := range s.analyses {
		if rca.IncidentID == incidentID {
			s.analyses = append(s.analyses[:i], s.analyses[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (s *stubRCAService) UpdateResolution(_ context.Context, incidentID, resolutionStatus string) error {
	switch resolutionStatus {
	case models.ResolutionOpen, models.ResolutionInProgress, models.ResolutionResolved:
	default:
		return fmt.Errorf("invalid resolution status: %s", resolutionStatus)
	}
	for _, rca := range s.analyses {
		if rca.IncidentID == incidentID {
			rca.ResolutionStatus = resolutionStatus
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// stubLogService implements services.LogService; only the parse and save
// paths used by the upload handler carry behavior.
type stubLogService struct {
	saved   []models.SystemLog
	saveErr error
}

func (s *stubLogService) ParseFile(content []byte, _ string) []models.SystemLog {
	if len(content) == 0 {
		return nil
	}
	return []models.SystemLog{{Level: "ERROR", Message: string(content)}}
}

func (s *stubLogService) Save(_ context.Context, incidentID string, logs []models.SystemLog) (int, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	for i := range logs {
		logs[i].IncidentID = incidentID
	}
	s.saved = append(s.saved, logs...)
	return len(logs), nil
}

func (s *stubLogService) FindByIncident(_ context.Context, _ string) ([]models.SystemLog, error) {
	return nil, nil
}

func (s *stubLogService) FindAround(_ context.Context, _ time.Time, _ time.Duration) ([]models.SystemLog, error) {
	return nil, nil
}

func (s *stubLogService) DeleteByIncident(_ context.Context, _ string) error { return nil }

func (s *stubLogService) DetectPatterns(_ []models.SystemLog) []models.ErrorPattern { return nil }

func (s *stubLogService) DetectCascades(_ []models.SystemLog) []models.LogCascade { return nil }

func (s *stubLogService) Hypotheses(_ []models.SystemLog) []models.Hypothesis { return nil }

func (s *stubLogService) ContributingFactors(_ []models.SystemLog) []string { return nil }

func (s *stubLogService) Timeline(_ []models.SystemLog) []models.TimelineEvent { return nil }

var (
	_ services.IncidentService = (*stubIncidentService)(nil)
	_ services.RCAService      = (*stubRCAService)(nil)
	_ services.LogService      = (*stubLogService)(nil)
)
