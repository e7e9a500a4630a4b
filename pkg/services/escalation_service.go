package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/logging"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// EscalationService drafts handover messages for incidents the duty officer
// cannot resolve. Everything is deterministic template assembly from the
// analysis result.
type EscalationService interface {
	Summary(incidentID, description string, analysis *models.IncidentAnalysis, solutionCount int) *models.EscalationSummary
	Templates(incidentID, description string, summary *models.EscalationSummary) []models.EscalationTemplate
}

type escalationService struct {
	logger *zap.Logger
}

// NewEscalationService creates a new EscalationService.
func NewEscalationService(logger *zap.Logger) EscalationService {
	return &escalationService{logger: logger.Named("escalation-service")}
}

var _ EscalationService = (*escalationService)(nil)

func (s *escalationService) Summary(incidentID, description string, analysis *models.IncidentAnalysis, solutionCount int) *models.EscalationSummary {
	urgency := "Medium"
	incidentType := "System Issue"
	rootCause := "Under investigation"
	systems := []string{"Unknown"}
	if analysis != nil {
		if analysis.Urgency != "" {
			urgency = analysis.Urgency
		}
		if analysis.IncidentType != "" {
			incidentType = analysis.IncidentType
		}
		if analysis.RootCause != "" {
			rootCause = analysis.RootCause
		}
		if len(analysis.AffectedSystems) > 0 {
			systems = analysis.AffectedSystems
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Incident %s requires escalation.\n\n", incidentID)
	fmt.Fprintf(&body, "Description: %s\n\n", description)
	fmt.Fprintf(&body, "Type: %s\n", incidentType)
	fmt.Fprintf(&body, "Urgency: %s\n", urgency)
	fmt.Fprintf(&body, "Suspected root cause: %s\n", rootCause)
	fmt.Fprintf(&body, "Affected systems: %s\n", strings.Join(systems, ", "))
	if solutionCount > 0 {
		fmt.Fprintf(&body, "\n%d candidate solutions were found but did not resolve the incident.\n", solutionCount)
	} else {
		body.WriteString("\nNo candidate solutions were found for this incident.\n")
	}

	summary := &models.EscalationSummary{
		Subject:         fmt.Sprintf("[%s] %s - incident %s", urgency, incidentType, incidentID),
		Body:            body.String(),
		Urgency:         urgency,
		AffectedSystems: systems,
	}

	s.logger.Info("Escalation summary generated",
		zap.String("incident_id", incidentID),
		zap.String("urgency", urgency))
	return summary
}

func (s *escalationService) Templates(incidentID, description string, summary *models.EscalationSummary) []models.EscalationTemplate {
	short := logging.TruncateString(description, 120)
	return []models.EscalationTemplate{
		{
			Name:        "email",
			Recipient:   "l3-support",
			Description: "Full handover email to the L3 application support queue",
			Skeleton:    fmt.Sprintf("Subject: %s\n\n%s\nPlease acknowledge receipt and advise an ETA.", summary.Subject, summary.Body),
		},
		{
			Name:        "sms",
			Recipient:   "duty-manager",
			Description: "Short page for the on-call duty manager",
			Skeleton:    fmt.Sprintf("[%s] Incident %s: %s. Escalated, see email for details.", summary.Urgency, incidentID, short),
		},
		{
			Name:        "chat",
			Recipient:   "#ops-incidents",
			Description: "Channel post for the operations incident room",
			Skeleton: fmt.Sprintf(":rotating_light: *%s incident %s*\n%s\nAffected: %s\nThread for updates.",
				summary.Urgency, incidentID, short, strings.Join(summary.AffectedSystems, ", ")),
		},
	}
}
