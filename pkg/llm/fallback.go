package llm

import (
	"strings"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// ImagePlaceholder is returned when image description is unavailable.
const ImagePlaceholder = "Screenshot attached (automatic description unavailable)"

// FallbackAnalyze is the deterministic rule-based classifier used whenever
// the remote model is unconfigured, times out, or returns unusable output.
// Classification is keyword-driven and intentionally coarse.
func FallbackAnalyze(description string) *models.IncidentAnalysis {
	text := strings.ToLower(description)

	analysis := &models.IncidentAnalysis{
		IncidentType:    "General Inquiry",
		PatternMatch:    "No known pattern matched",
		RootCause:       "Requires manual investigation",
		Impact:          "Impact assessment pending operator review",
		Urgency:         models.UrgencyMedium,
		AffectedSystems: []string{"PORTNET"},
	}

	switch {
	case containsAny(text, "container", "cmau", "gesu", "trlu", "msku"):
		analysis.IncidentType = "Container Management"
		analysis.PatternMatch = "Container record anomaly"
		analysis.RootCause = "Possible duplicate or inconsistent container data"
		analysis.Impact = "Container tracking and billing accuracy affected"
		analysis.AffectedSystems = []string{"PORTNET", "Container Management"}
	case containsAny(text, "vessel", "ship", "mv "):
		analysis.IncidentType = "Vessel Operations"
		analysis.PatternMatch = "Vessel scheduling or advisory issue"
		analysis.RootCause = "Vessel advisory or arrival data conflict"
		analysis.Impact = "Vessel scheduling and berth planning affected"
		analysis.Urgency = models.UrgencyHigh
		analysis.AffectedSystems = []string{"PORTNET", "Vessel Management"}
	case containsAny(text, "edi", "message", "ref-ift", "coarri", "codeco", "coprar"):
		analysis.IncidentType = "EDI Processing"
		analysis.PatternMatch = "EDI message processing failure"
		analysis.RootCause = "Message translation or validation error"
		analysis.Impact = "Partner message exchange delayed"
		analysis.AffectedSystems = []string{"PORTNET", "EDI Gateway"}
	case containsAny(text, "gate", "truck", "access"):
		analysis.IncidentType = "Terminal Operations"
		analysis.PatternMatch = "Gate or access processing issue"
		analysis.RootCause = "Terminal access workflow disruption"
		analysis.Impact = "Gate throughput affected"
		analysis.AffectedSystems = []string{"PORTNET", "Gate System"}
	case containsAny(text, "billing", "invoice", "charge"):
		analysis.IncidentType = "Financial Operations"
		analysis.PatternMatch = "Billing or invoicing discrepancy"
		analysis.RootCause = "Charge calculation or invoice generation issue"
		analysis.Impact = "Financial reporting accuracy affected"
		analysis.AffectedSystems = []string{"PORTNET", "Billing"}
	}

	switch {
	case containsAny(text, "critical", "urgent", "error", "failure", "stuck", "down"):
		analysis.Urgency = models.UrgencyHigh
	case containsAny(text, "minor", "cosmetic"):
		analysis.Urgency = models.UrgencyLow
	}

	return analysis
}

// FallbackValidate accepts any description with more than two words.
func FallbackValidate(description string) bool {
	return len(strings.Fields(description)) > 2
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
