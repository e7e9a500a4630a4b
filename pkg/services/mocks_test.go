package services

import (
	"context"
	"strings"
	"time"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// mockKnowledgeRepo implements repositories.KnowledgeRepository for testing.
type mockKnowledgeRepo struct {
	entries    []*models.KnowledgeEntry
	listErr    error
	searchErr  error
	touchedIDs []int64
	touchErr   error
	adjusted   map[int64]int
}

func (m *mockKnowledgeRepo) Create(_ context.Context, entry *models.KnowledgeEntry) error {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockKnowledgeRepo) Update(_ context.Context, entry *models.KnowledgeEntry) error {
	for i, e := range m.entries {
		if e.ID == entry.ID {
			m.entries[i] = entry
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockKnowledgeRepo) Delete(_ context.Context, id int64) error {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockKnowledgeRepo) GetByID(_ context.Context, id int64) (*models.KnowledgeEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockKnowledgeRepo) List(_ context.Context) ([]*models.KnowledgeEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entries, nil
}

func (m *mockKnowledgeRepo) ListActive(_ context.Context) ([]*models.KnowledgeEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var active []*models.KnowledgeEntry
	for _, e := range m.entries {
		if e.Status == models.KnowledgeStatusActive {
			active = append(active, e)
		}
	}
	return active, nil
}

func (m *mockKnowledgeRepo) Search(_ context.Context, term string, limit int) ([]*models.KnowledgeEntry, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	needle := strings.ToLower(term)
	var hits []*models.KnowledgeEntry
	for _, e := range m.entries {
		if e.Status != models.KnowledgeStatusActive {
			continue
		}
		haystack := strings.ToLower(e.Title + " " + e.Content + " " + e.Keywords + " " + e.Category)
		if strings.Contains(haystack, needle) {
			hits = append(hits, e)
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func (m *mockKnowledgeRepo) TouchUsage(_ context.Context, ids []int64, usedAt time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touchedIDs = append(m.touchedIDs, ids...)
	for _, e := range m.entries {
		for _, id := range ids {
			if e.ID == id {
				e.ViewCount++
				t := usedAt
				e.LastUsed = &t
			}
		}
	}
	return nil
}

func (m *mockKnowledgeRepo) AdjustUsefulness(_ context.Context, id int64, delta int) error {
	if m.adjusted == nil {
		m.adjusted = make(map[int64]int)
	}
	m.adjusted[id] += delta
	for _, e := range m.entries {
		if e.ID == id {
			e.UsefulnessCount += delta
			if e.UsefulnessCount < 0 {
				e.UsefulnessCount = 0
			}
		}
	}
	return nil
}

// mockTrainingRepo implements repositories.TrainingRepository for testing.
type mockTrainingRepo struct {
	cases     []*models.TrainingCase
	listErr   error
	searchErr error
	adjusted  map[int64]int
}

func (m *mockTrainingRepo) Create(_ context.Context, c *models.TrainingCase) error {
	c.ID = int64(len(m.cases) + 1)
	m.cases = append(m.cases, c)
	return nil
}

func (m *mockTrainingRepo) Update(_ context.Context, c *models.TrainingCase) error {
	for i, tc := range m.cases {
		if tc.ID == c.ID {
			m.cases[i] = c
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockTrainingRepo) Delete(_ context.Context, id int64) error {
	for i, tc := range m.cases {
		if tc.ID == id {
			m.cases = append(m.cases[:i], m.cases[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockTrainingRepo) GetByID(_ context.Context, id int64) (*models.TrainingCase, error) {
	for _, tc := range m.cases {
		if tc.ID == id {
			return tc, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockTrainingRepo) List(_ context.Context) ([]*models.TrainingCase, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.cases, nil
}

func (m *mockTrainingRepo) ListValidated(_ context.Context) ([]*models.TrainingCase, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var validated []*models.TrainingCase
	for _, tc := range m.cases {
		if tc.IsValidated {
			validated = append(validated, tc)
		}
	}
	return validated, nil
}

func (m *mockTrainingRepo) Search(_ context.Context, term string, limit int) ([]*models.TrainingCase, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	needle := strings.ToLower(term)
	var hits []*models.TrainingCase
	for _, tc := range m.cases {
		if !tc.IsValidated {
			continue
		}
		haystack := strings.ToLower(tc.IncidentDescription + " " + tc.ExpectedRootCause + " " + tc.Notes + " " + tc.Category)
		if strings.Contains(haystack, needle) {
			hits = append(hits, tc)
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func (m *mockTrainingRepo) AdjustUsefulness(_ context.Context, id int64, delta int) error {
	if m.adjusted == nil {
		m.adjusted = make(map[int64]int)
	}
	m.adjusted[id] += delta
	for _, tc := range m.cases {
		if tc.ID == id {
			tc.UsefulnessCount += delta
			if tc.UsefulnessCount < 0 {
				tc.UsefulnessCount = 0
			}
		}
	}
	return nil
}

// mockFeedbackRepo implements repositories.FeedbackRepository for testing.
type mockFeedbackRepo struct {
	rows    []*models.SolutionFeedback
	markErr error
	listErr error
	nextID  int64
}

func sameSource(fb *models.SolutionFeedback, src models.SolutionSource) bool {
	eq := func(a, b *int64) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return *a == *b
	}
	return eq(fb.KnowledgeBaseID, src.KnowledgeBaseID) &&
		eq(fb.TrainingDataID, src.TrainingDataID) &&
		eq(fb.RCAID, src.RCAID)
}

func (m *mockFeedbackRepo) Mark(_ context.Context, fb *models.SolutionFeedback) (int, error) {
	if m.markErr != nil {
		return 0, m.markErr
	}
	src := models.SolutionSource{
		KnowledgeBaseID: fb.KnowledgeBaseID,
		TrainingDataID:  fb.TrainingDataID,
		RCAID:           fb.RCAID,
	}
	for _, row := range m.rows {
		if row.SolutionDescription == fb.SolutionDescription &&
			row.SolutionOrder == fb.SolutionOrder && sameSource(row, src) {
			row.UsefulnessCount++
			row.MarkedAt = fb.MarkedAt
			row.IncidentDescription = fb.IncidentDescription
			return row.UsefulnessCount, nil
		}
	}
	m.nextID++
	stored := *fb
	stored.ID = m.nextID
	stored.UsefulnessCount = 1
	m.rows = append(m.rows, &stored)
	return 1, nil
}

func (m *mockFeedbackRepo) Unmark(_ context.Context, description string, order int, src models.SolutionSource) error {
	for i, row := range m.rows {
		if row.SolutionDescription != description || row.SolutionOrder != order || !sameSource(row, src) {
			continue
		}
		if row.UsefulnessCount > 1 {
			row.UsefulnessCount--
		} else {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
		}
		return nil
	}
	return apperrors.ErrNotFound
}

func (m *mockFeedbackRepo) Find(_ context.Context, description string, order int, src models.SolutionSource) (*models.SolutionFeedback, error) {
	for _, row := range m.rows {
		if row.SolutionDescription == description && row.SolutionOrder == order && sameSource(row, src) {
			return row, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFeedbackRepo) ListPositive(_ context.Context) ([]*models.SolutionFeedback, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var positive []*models.SolutionFeedback
	for _, row := range m.rows {
		if row.UsefulnessCount > 0 {
			positive = append(positive, row)
		}
	}
	return positive, nil
}

// mockRCARepo implements repositories.RCARepository for testing.
type mockRCARepo struct {
	analyses  []*models.RootCauseAnalysis
	createErr error
	nextID    int64
}

func (m *mockRCARepo) Create(_ context.Context, rca *models.RootCauseAnalysis) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	rca.ID = m.nextID
	m.analyses = append(m.analyses, rca)
	return nil
}

func (m *mockRCARepo) GetByIncidentID(_ context.Context, incidentID string) (*models.RootCauseAnalysis, error) {
	for _, rca := range m.analyses {
		if rca.IncidentID == incidentID {
			return rca, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRCARepo) List(_ context.Context, limit int) ([]*models.RootCauseAnalysis, error) {
	if limit > 0 && len(m.analyses) > limit {
		return m.analyses[:limit], nil
	}
	return m.analyses, nil
}

func (m *mockRCARepo) Delete(_ context.Context, incidentID string) error {
	for i, rca := range m.analyses {
		if rca.IncidentID == incidentID {
			m.analyses = append(m.analyses[:i], m.analyses[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockRCARepo) UpdateResolution(_ context.Context, incidentID, resolutionStatus string, resolvedAt *time.Time) error {
	for _, rca := range m.analyses {
		if rca.IncidentID == incidentID {
			rca.ResolutionStatus = resolutionStatus
			rca.ResolvedAt = resolvedAt
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// mockSyslogRepo implements repositories.SyslogRepository for testing.
type mockSyslogRepo struct {
	logs    []models.SystemLog
	saveErr error
	findErr error
}

func (m *mockSyslogRepo) SaveBatch(_ context.Context, logs []models.SystemLog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *mockSyslogRepo) FindByIncident(_ context.Context, incidentID string) ([]models.SystemLog, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []models.SystemLog
	for _, l := range m.logs {
		if l.IncidentID == incidentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockSyslogRepo) FindWindow(_ context.Context, start, end time.Time) ([]models.SystemLog, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []models.SystemLog
	for _, l := range m.logs {
		if !l.Timestamp.Before(start) && !l.Timestamp.After(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockSyslogRepo) DeleteByIncident(_ context.Context, incidentID string) error {
	kept := m.logs[:0]
	for _, l := range m.logs {
		if l.IncidentID != incidentID {
			kept = append(kept, l)
		}
	}
	m.logs = kept
	return nil
}

// mockOperationalRepo implements repositories.OperationalRepository for testing.
type mockOperationalRepo struct {
	containers map[string][]models.Container
	vessels    []models.Vessel
	advices    map[string][]models.VesselAdvice
	ediByRef   map[string]*models.EDIMessage
	apiEvents  []models.APIEvent
	berths     map[string][]models.BerthApplication

	containerErr error
	vesselErr    error
	adviceErr    error
	ediErr       error
	apiErr       error
}

func (m *mockOperationalRepo) GetContainerVersions(_ context.Context, containerNumber string) ([]models.Container, error) {
	if m.containerErr != nil {
		return nil, m.containerErr
	}
	return m.containers[strings.ToUpper(containerNumber)], nil
}

func (m *mockOperationalRepo) GetVesselByName(_ context.Context, name string) (*models.Vessel, error) {
	if m.vesselErr != nil {
		return nil, m.vesselErr
	}
	needle := strings.ToLower(name)
	for i := range m.vessels {
		if strings.Contains(strings.ToLower(m.vessels[i].Name), needle) {
			return &m.vessels[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockOperationalRepo) GetVesselByIMO(_ context.Context, imo string) (*models.Vessel, error) {
	if m.vesselErr != nil {
		return nil, m.vesselErr
	}
	for i := range m.vessels {
		if m.vessels[i].IMONumber == imo {
			return &m.vessels[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockOperationalRepo) GetAdvicesByVessel(_ context.Context, systemName string) ([]models.VesselAdvice, error) {
	if m.adviceErr != nil {
		return nil, m.adviceErr
	}
	return m.advices[systemName], nil
}

func (m *mockOperationalRepo) GetEDIByRef(_ context.Context, messageRef string) (*models.EDIMessage, error) {
	if m.ediErr != nil {
		return nil, m.ediErr
	}
	if msg, ok := m.ediByRef[messageRef]; ok {
		return msg, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockOperationalRepo) GetEDIErrorsInWindow(_ context.Context, start, end time.Time, limit int) ([]models.EDIMessage, error) {
	if m.ediErr != nil {
		return nil, m.ediErr
	}
	var out []models.EDIMessage
	for _, msg := range m.ediByRef {
		if msg.Status == models.EDIStatusError && !msg.CreatedAt.Before(start) && !msg.CreatedAt.After(end) {
			out = append(out, *msg)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockOperationalRepo) GetAPIEventsByCorrelation(_ context.Context, correlationID string) ([]models.APIEvent, error) {
	if m.apiErr != nil {
		return nil, m.apiErr
	}
	var out []models.APIEvent
	for _, ev := range m.apiEvents {
		if ev.CorrelationID == correlationID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockOperationalRepo) GetFailedAPIEvents(_ context.Context, start, end time.Time) ([]models.APIEvent, error) {
	if m.apiErr != nil {
		return nil, m.apiErr
	}
	var out []models.APIEvent
	for _, ev := range m.apiEvents {
		if ev.HTTPStatus >= 400 && !ev.EventTS.Before(start) && !ev.EventTS.After(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockOperationalRepo) GetBerthApplications(_ context.Context, vesselName string) ([]models.BerthApplication, error) {
	return m.berths[vesselName], nil
}
