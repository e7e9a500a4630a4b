package llm

import (
	"testing"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

func TestFallbackAnalyze_Categories(t *testing.T) {
	tests := []struct {
		name         string
		description  string
		expectedType string
	}{
		{"container prefix", "Duplicate MSKU container showing in system", "Container Management"},
		{"vessel", "MV Pacific Voyager arrival advisory conflict", "Vessel Operations"},
		{"edi", "COARRI message rejected by translator", "EDI Processing"},
		{"gate", "Truck stuck at gate with access denied", "Terminal Operations"},
		{"billing", "Invoice shows wrong charge amount", "Financial Operations"},
		{"unmatched", "Something odd happened today", "General Inquiry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := FallbackAnalyze(tt.description)
			if analysis.IncidentType != tt.expectedType {
				t.Errorf("IncidentType = %q, want %q", analysis.IncidentType, tt.expectedType)
			}
			if analysis.Urgency == "" {
				t.Error("urgency must never be empty")
			}
			if len(analysis.AffectedSystems) == 0 {
				t.Error("affected systems must never be empty")
			}
		})
	}
}

func TestFallbackAnalyze_Urgency(t *testing.T) {
	if got := FallbackAnalyze("critical failure in gate system").Urgency; got != models.UrgencyHigh {
		t.Errorf("urgency keywords should raise to High, got %q", got)
	}
	if got := FallbackAnalyze("minor cosmetic issue on dashboard").Urgency; got != models.UrgencyLow {
		t.Errorf("minor issues should drop to Low, got %q", got)
	}
	if got := FallbackAnalyze("vessel schedule looks odd").Urgency; got != models.UrgencyHigh {
		t.Errorf("vessel incidents default to High, got %q", got)
	}
}

func TestFallbackValidate(t *testing.T) {
	if !FallbackValidate("container duplicated in booking system") {
		t.Error("multi-word description should validate")
	}
	if FallbackValidate("hi") {
		t.Error("two words or fewer should not validate")
	}
}
