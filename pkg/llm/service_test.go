package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

func newTestService(client Client) Service {
	return NewService(client, 5*time.Second, zap.NewNop())
}

func TestAnalyze_NilClientUsesFallback(t *testing.T) {
	svc := newTestService(nil)
	analysis := svc.Analyze(context.Background(), "COARRI message rejected", nil, nil)
	if analysis == nil {
		t.Fatal("analysis must never be nil")
	}
	if analysis.IncidentType != "EDI Processing" {
		t.Errorf("expected fallback classification, got %q", analysis.IncidentType)
	}
}

func TestAnalyze_JSONResponse(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return `{"incident_type": "EDI Processing", "pattern_match": "COARRI rejection",
			"root_cause": "Invalid qualifier", "impact": "Partner messages delayed",
			"urgency": "high", "affected_systems": ["EDI Gateway"]}`, nil
	}

	analysis := newTestService(mock).Analyze(context.Background(), "COARRI rejected", nil, nil)
	if analysis.IncidentType != "EDI Processing" {
		t.Errorf("IncidentType = %q", analysis.IncidentType)
	}
	if analysis.Urgency != models.UrgencyHigh {
		t.Errorf("urgency should be normalized to High, got %q", analysis.Urgency)
	}
	if mock.CompleteCalls != 1 {
		t.Errorf("expected 1 call, got %d", mock.CompleteCalls)
	}
}

func TestAnalyze_LabeledLineFallbackTier(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "Incident Type: Vessel Operations\nRoot Cause: stale advisory\nUrgency: Critical\nAffected Systems: PORTNET, Vessel Management", nil
	}

	analysis := newTestService(mock).Analyze(context.Background(), "vessel issue", nil, nil)
	if analysis.IncidentType != "Vessel Operations" {
		t.Errorf("labeled-line tier should parse type, got %q", analysis.IncidentType)
	}
	if analysis.Urgency != models.UrgencyCritical {
		t.Errorf("Urgency = %q", analysis.Urgency)
	}
	if len(analysis.AffectedSystems) != 2 {
		t.Errorf("AffectedSystems = %v", analysis.AffectedSystems)
	}
}

func TestAnalyze_ErrorUsesFallback(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("gateway timeout")
	}

	analysis := newTestService(mock).Analyze(context.Background(), "duplicate container MSKU0000001", nil, nil)
	if analysis.IncidentType != "Container Management" {
		t.Errorf("expected fallback classification, got %q", analysis.IncidentType)
	}
}

func TestAnalyze_GarbageResponseUsesFallback(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "I am not sure what this is about.", nil
	}

	analysis := newTestService(mock).Analyze(context.Background(), "vessel advisory conflict", nil, nil)
	if analysis.IncidentType != "Vessel Operations" {
		t.Errorf("expected fallback classification, got %q", analysis.IncidentType)
	}
}

func TestAnalyze_RetriesTransientError(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		if mock.CompleteCalls == 1 {
			return "", errors.New("503 service unavailable")
		}
		return `{"incident_type": "EDI Processing", "urgency": "high"}`, nil
	}

	analysis := newTestService(mock).Analyze(context.Background(), "COARRI rejected", nil, nil)
	if analysis.IncidentType != "EDI Processing" {
		t.Errorf("retry should recover from a transient failure, got %q", analysis.IncidentType)
	}
	if mock.CompleteCalls != 2 {
		t.Errorf("expected 2 calls, got %d", mock.CompleteCalls)
	}
}

func TestAnalyze_NoRetryOnPermanentError(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("invalid api key")
	}

	analysis := newTestService(mock).Analyze(context.Background(), "duplicate container MSKU0000001", nil, nil)
	if analysis.IncidentType != "Container Management" {
		t.Errorf("expected fallback classification, got %q", analysis.IncidentType)
	}
	if mock.CompleteCalls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", mock.CompleteCalls)
	}
}

func TestValidate_DefaultsTrueOnError(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("unavailable")
	}

	if !newTestService(mock).Validate(context.Background(), "anything") {
		t.Error("validation outage must not reject input")
	}
}

func TestValidate_No(t *testing.T) {
	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "No", nil
	}

	if newTestService(mock).Validate(context.Background(), "asdf qwer zxcv") {
		t.Error("explicit no should reject")
	}
}

func TestDescribeImage_Placeholder(t *testing.T) {
	if got := newTestService(nil).DescribeImage(context.Background(), []byte{1, 2, 3}); got != ImagePlaceholder {
		t.Errorf("nil client should return placeholder, got %q", got)
	}

	mock := NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("vision unsupported")
	}
	if got := newTestService(mock).DescribeImage(context.Background(), []byte{1}); got != ImagePlaceholder {
		t.Errorf("error should return placeholder, got %q", got)
	}
}
