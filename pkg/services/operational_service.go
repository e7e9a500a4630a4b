package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// OperationalService correlates incident descriptions against the
// operational read model: container versions, vessel advisories, EDI
// messages and API event streams.
type OperationalService interface {
	DetectContainerDuplicates(ctx context.Context, containerNumber string) (models.ContainerDuplication, error)
	DetectVesselAdviceConflict(ctx context.Context, vesselName string) (models.VesselAdviceConflictResult, error)
	AnalyzeEDIError(ctx context.Context, messageRef string) (models.EDIErrorAnalysis, error)
	DetectEventCascades(ctx context.Context, start, end time.Time) ([]models.EventCascade, error)

	// Correlate extracts identifiers from the description and runs every
	// applicable check inside the window around incidentTime. A failure
	// against one entity is recorded in the report and does not abort the
	// others.
	Correlate(ctx context.Context, description string, incidentTime time.Time) models.CorrelationReport
}

type operationalService struct {
	repo    repositories.OperationalRepository
	triage  config.TriageConfig
	scoring config.ScoringConfig
	logger  *zap.Logger
}

// NewOperationalService creates a new OperationalService.
func NewOperationalService(repo repositories.OperationalRepository, triage config.TriageConfig, scoring config.ScoringConfig, logger *zap.Logger) OperationalService {
	return &operationalService{
		repo:    repo,
		triage:  triage,
		scoring: scoring,
		logger:  logger.Named("operational-service"),
	}
}

var _ OperationalService = (*operationalService)(nil)

// windowEDIErrorLimit caps the number of unrelated EDI errors pulled into a
// correlation report.
const windowEDIErrorLimit = 20

func (s *operationalService) DetectContainerDuplicates(ctx context.Context, containerNumber string) (models.ContainerDuplication, error) {
	result := models.ContainerDuplication{ContainerNumber: containerNumber}

	versions, err := s.repo.GetContainerVersions(ctx, containerNumber)
	if err != nil {
		return result, fmt.Errorf("container versions for %s: %w", containerNumber, err)
	}

	result.VersionCount = len(versions)
	if len(versions) <= 1 {
		return result, nil
	}

	result.HasDuplicates = true
	result.IssueType = models.DuplicationVersioning

	first := versions[0]
	identical := true
	for _, v := range versions[1:] {
		if v.Status != first.Status || v.VesselName != first.VesselName ||
			v.Origin != first.Origin || v.Destination != first.Destination {
			identical = false
			break
		}
	}

	if !identical {
		result.IssueType = models.DuplicationDataMismatch
		result.RootCause = "Duplicate container records carry conflicting data - versions disagree on status or routing"
		result.Solution = "Reconcile container versions and remove the stale records"
		return result, nil
	}

	// Rows come back oldest first.
	delta := versions[len(versions)-1].CreatedAt.Sub(first.CreatedAt).Seconds()
	result.TimeDeltaSeconds = delta
	if delta < s.scoring.RapidInsertSeconds {
		result.IssueType = models.DuplicationRapidInsert
		result.RootCause = fmt.Sprintf("Multiple inserts within %.1fs - likely race condition or double-submit", delta)
		result.Solution = "Add idempotency key or unique constraint on the submitting endpoint"
	}
	return result, nil
}

func (s *operationalService) DetectVesselAdviceConflict(ctx context.Context, vesselName string) (models.VesselAdviceConflictResult, error) {
	result := models.VesselAdviceConflictResult{VesselName: vesselName}

	advices, err := s.repo.GetAdvicesByVessel(ctx, vesselName)
	if err != nil {
		return result, fmt.Errorf("advices for %s: %w", vesselName, err)
	}
	if len(advices) == 0 {
		return result, nil
	}

	var active []models.VesselAdvice
	for _, a := range advices {
		if a.IsActive() {
			active = append(active, a)
		}
	}

	if len(active) == 0 {
		result.HistoricalCount = len(advices)
		result.RootCause = fmt.Sprintf("No active advice found, %d historical record(s) exist", len(advices))
		return result, nil
	}

	if len(active) > 1 {
		result.HasConflict = true
		result.ErrorCode = models.VesselAdviceMultipleActive
		result.RootCause = "Data integrity violation - multiple active advices found (should be prevented by unique constraint)"
		for _, a := range active {
			result.ActiveAdviceIDs = append(result.ActiveAdviceIDs, a.ID)
		}
		return result, nil
	}

	current := active[0]
	since := current.EffectiveStart
	result.HasConflict = true
	result.ErrorCode = models.VesselAdviceConflict
	result.AdviceNumber = current.AdviceNumber
	result.ActiveSince = &since
	result.ActiveAdviceIDs = []int64{current.ID}
	result.HistoricalCount = len(advices) - 1
	result.RootCause = fmt.Sprintf("Cannot create new advice - vessel '%s' already has active advice #%s", vesselName, current.AdviceNumber)
	result.Solution = "Expire the existing advice by setting effective_end_datetime before creating new advice"
	return result, nil
}

func (s *operationalService) AnalyzeEDIError(ctx context.Context, messageRef string) (models.EDIErrorAnalysis, error) {
	result := models.EDIErrorAnalysis{MessageRef: messageRef}

	msg, err := s.repo.GetEDIByRef(ctx, messageRef)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return result, nil
		}
		return result, fmt.Errorf("EDI message %s: %w", messageRef, err)
	}

	result.Found = true
	result.Status = msg.Status
	result.MessageType = msg.MessageType
	result.ContainerNumber = msg.ContainerNumber

	errorText := strings.ToLower(msg.ErrorText)
	switch {
	case errorText == "":
		// Stuck or still processing, nothing to classify.
	case strings.Contains(errorText, "segment missing"):
		result.Classification = models.EDIErrorStructural
		result.RootCause = "EDI message structure incomplete - required segment not found"
		result.Remediation = "Verify sender's EDI message template and segment ordering"
	case strings.Contains(errorText, "validation"):
		result.Classification = models.EDIErrorDataFormat
		result.RootCause = "EDI message validation failed - invalid data format or values"
		result.Remediation = "Check data type constraints and code list values"
	case strings.Contains(errorText, "timeout"):
		result.Classification = models.EDIErrorCapacity
		result.RootCause = "EDI processing timeout - message too large or system overload"
		result.Remediation = "Review message size limits and system performance"
	}
	return result, nil
}

func (s *operationalService) DetectEventCascades(ctx context.Context, start, end time.Time) ([]models.EventCascade, error) {
	events, err := s.repo.GetFailedAPIEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed API events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	window := time.Duration(s.scoring.CascadeWindowSeconds) * time.Second
	var cascades []models.EventCascade

	flush := func(group []models.APIEvent) {
		if len(group) < 2 {
			return
		}
		cascades = append(cascades, models.EventCascade{
			Start:  group[0].EventTS,
			End:    group[len(group)-1].EventTS,
			Events: group,
		})
	}

	current := []models.APIEvent{events[0]}
	for _, ev := range events[1:] {
		if ev.EventTS.Sub(current[len(current)-1].EventTS) <= window {
			current = append(current, ev)
			continue
		}
		flush(current)
		current = []models.APIEvent{ev}
	}
	flush(current)

	return cascades, nil
}

func (s *operationalService) Correlate(ctx context.Context, description string, incidentTime time.Time) models.CorrelationReport {
	var report models.CorrelationReport

	ids := ExtractIdentifiers(description)
	start := incidentTime.Add(-time.Duration(s.triage.SearchWindowHours) * time.Hour)
	end := incidentTime.Add(time.Duration(s.triage.SearchWindowHours) * time.Hour)

	record := func(entity string, err error) {
		s.logger.Warn("Correlation step failed",
			zap.String("entity", entity),
			zap.Error(err))
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entity, err))
	}

	for _, cntr := range ids.Containers {
		dup, err := s.DetectContainerDuplicates(ctx, cntr)
		if err != nil {
			record("container "+cntr, err)
			continue
		}
		if dup.VersionCount > 0 {
			report.Containers = append(report.Containers, dup)
		}
	}

	for _, name := range ids.Vessels {
		vessel, err := s.repo.GetVesselByName(ctx, strings.TrimSpace(trimVesselPrefix(name)))
		if err != nil {
			if !apperrors.IsNotFound(err) {
				record("vessel "+name, err)
			}
			continue
		}
		conflict, err := s.DetectVesselAdviceConflict(ctx, vessel.SystemName)
		if err != nil {
			record("vessel "+name, err)
			continue
		}
		conflict.VesselName = vessel.Name
		report.VesselAdvices = append(report.VesselAdvices, conflict)
	}

	for _, ref := range ids.EDIReferences {
		analysis, err := s.AnalyzeEDIError(ctx, ref)
		if err != nil {
			record("edi "+ref, err)
			continue
		}
		if analysis.Found {
			report.EDIErrors = append(report.EDIErrors, analysis)
		}
	}

	windowErrors, err := s.repo.GetEDIErrorsInWindow(ctx, start, end, windowEDIErrorLimit)
	if err != nil {
		record("edi window", err)
	} else {
		report.WindowEDIErrors = windowErrors
	}

	for _, corrID := range ids.CorrelationIDs {
		events, err := s.repo.GetAPIEventsByCorrelation(ctx, corrID)
		if err != nil {
			record("correlation "+corrID, err)
			continue
		}
		if len(events) > 0 {
			report.APITraces = append(report.APITraces, models.APITrace{
				CorrelationID: corrID,
				Events:        events,
			})
		}
	}

	cascades, err := s.DetectEventCascades(ctx, start, end)
	if err != nil {
		record("cascades", err)
	} else {
		report.Cascades = cascades
	}

	return report
}

// trimVesselPrefix strips the "MV"/"MS"/"MT" honorific so registry lookups
// match on the bare vessel name.
func trimVesselPrefix(name string) string {
	for _, prefix := range []string{"MV ", "MS ", "MT "} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}
