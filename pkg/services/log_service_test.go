package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

func newTestLogService(repo *mockSyslogRepo) LogService {
	return NewLogService(repo, zap.NewNop())
}

func logAt(ts time.Time, level, message string) models.SystemLog {
	return models.SystemLog{Timestamp: ts, Level: level, Message: message}
}

func TestParseFilePlaintextLayouts(t *testing.T) {
	content := `[2026-03-14 10:00:01] ERROR: Connection pool exhausted
2026-03-14 10:00:02 WARN queue depth rising
[INFO] [2026-03-14 10:00:03] message processed
FATAL 2026-03-14 10:00:04 - out of memory`

	svc := newTestLogService(&mockSyslogRepo{})
	entries := svc.ParseFile([]byte(content), "app.log")

	require.Len(t, entries, 4)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "Connection pool exhausted", entries[0].Message)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 1, 0, time.UTC), entries[0].Timestamp)
	assert.Equal(t, "WARN", entries[1].Level)
	assert.Equal(t, "INFO", entries[2].Level)
	assert.Equal(t, "FATAL", entries[3].Level)
	assert.Equal(t, "out of memory", entries[3].Message)
}

func TestParseFileKeepsUnparseableErrorLines(t *testing.T) {
	content := `some banner line
ERROR without any timestamp at all
plain chatter`

	svc := newTestLogService(&mockSyslogRepo{})
	entries := svc.ParseFile([]byte(content), "app.log")

	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Contains(t, entries[0].Message, "without any timestamp")
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestParseFileJSONLines(t *testing.T) {
	content := `{"timestamp":"2026-03-14T10:00:01","level":"error","message":"connection refused","service":"edi-gateway"}
{"time":"2026-03-14 10:00:02","severity":"WARN","msg":"retrying"}
not json at all
{"level":"INFO","message":"no timestamp, skipped"}`

	svc := newTestLogService(&mockSyslogRepo{})
	entries := svc.ParseFile([]byte(content), "app.json")

	require.Len(t, entries, 2)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "edi-gateway", entries[0].Source)
	assert.Equal(t, "WARN", entries[1].Level)
	assert.Equal(t, "retrying", entries[1].Message)
}

func TestSaveStampsIncidentID(t *testing.T) {
	repo := &mockSyslogRepo{}
	svc := newTestLogService(repo)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	n, err := svc.Save(context.Background(), "INC-100", []models.SystemLog{
		logAt(base, "ERROR", "boom"),
		logAt(base.Add(time.Second), "INFO", "recovered"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	saved, err := svc.FindByIncident(context.Background(), "INC-100")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestDetectPatternsGroupsNormalizedMessages(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logs := []models.SystemLog{
		logAt(base, "ERROR", "Timeout on request 12345"),
		logAt(base.Add(time.Minute), "ERROR", "Timeout on request 99887"),
		logAt(base.Add(2*time.Minute), "ERROR", "Disk full on /var"),
		logAt(base.Add(3*time.Minute), "INFO", "Timeout on request 11111"),
	}

	svc := newTestLogService(&mockSyslogRepo{})
	patterns := svc.DetectPatterns(logs)

	// Only the repeated timeout error forms a pattern; the single disk
	// error and the INFO line do not.
	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, "REPEATED_ERROR", p.PatternType)
	assert.Equal(t, 2, p.Count)
	assert.Equal(t, base, p.FirstSeen)
	assert.Equal(t, base.Add(time.Minute), p.LastSeen)
	assert.Contains(t, p.Example, "12345")
	assert.NotContains(t, p.Pattern, "12345")
}

func TestDetectCascadesFlushesTrailingRun(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logs := []models.SystemLog{
		logAt(base, "ERROR", "first"),
		logAt(base.Add(2*time.Second), "ERROR", "second"),
		logAt(base.Add(30*time.Second), "ERROR", "isolated"),
		logAt(base.Add(60*time.Second), "FATAL", "late one"),
		logAt(base.Add(63*time.Second), "ERROR", "late two"),
	}

	svc := newTestLogService(&mockSyslogRepo{})
	cascades := svc.DetectCascades(logs)

	require.Len(t, cascades, 2)
	assert.Equal(t, base, cascades[0].Start)
	assert.Len(t, cascades[0].Events, 2)
	assert.Equal(t, base.Add(60*time.Second), cascades[1].Start)
	assert.Len(t, cascades[1].Events, 2)
}

func TestHypothesesKeywordClasses(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		message    string
		cause      string
		confidence float64
	}{
		{"Connection pool exhausted after 30s", "Database connection pool exhaustion or timeout", 0.85},
		{"java.lang.OutOfMemoryError: heap space", "Memory exhaustion (Out of Memory)", 0.90},
		{"Host unreachable: 10.0.0.5", "Network connectivity issue", 0.80},
		{"Deadlock detected on table containers", "Database deadlock or lock contention", 0.88},
	}

	svc := newTestLogService(&mockSyslogRepo{})
	for _, tt := range tests {
		t.Run(tt.cause, func(t *testing.T) {
			hyps := svc.Hypotheses([]models.SystemLog{logAt(base, "ERROR", tt.message)})
			require.Len(t, hyps, 1)
			assert.Equal(t, tt.cause, hyps[0].Cause)
			assert.Equal(t, tt.confidence, hyps[0].Confidence)
			assert.Equal(t, "logs", hyps[0].Source)
			assert.NotEmpty(t, hyps[0].Evidence)
		})
	}
}

func TestHypothesesDefaultUsesFirstError(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logs := []models.SystemLog{
		logAt(base.Add(time.Minute), "ERROR", "Translator rejected COARRI for unknown reason"),
		logAt(base, "ERROR", "Unrecognised upstream failure"),
	}

	svc := newTestLogService(&mockSyslogRepo{})
	hyps := svc.Hypotheses(logs)

	require.Len(t, hyps, 1)
	// Earliest error wins even when lines arrive unordered.
	assert.Equal(t, "Unrecognised upstream failure", hyps[0].Cause)
	assert.Equal(t, 0.60, hyps[0].Confidence)
}

func TestHypothesesNoErrors(t *testing.T) {
	svc := newTestLogService(&mockSyslogRepo{})
	assert.Empty(t, svc.Hypotheses([]models.SystemLog{
		logAt(time.Now(), "INFO", "all fine"),
	}))
}

func TestContributingFactors(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logs := []models.SystemLog{
		logAt(base, "WARN", "queue depth rising"),
		logAt(base.Add(time.Second), "ERROR", "scheduled batch import failed"),
		logAt(base.Add(2*time.Second), "ERROR", "load spike on gateway"),
	}

	svc := newTestLogService(&mockSyslogRepo{})
	factors := svc.ContributingFactors(logs)

	assert.Contains(t, factors, "System issued 1 warnings before failure")
	assert.Contains(t, factors, "Incident coincides with batch job execution")
	assert.Contains(t, factors, "System load spike detected")
}

func TestTimelineFiltersAndCaps(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	var logs []models.SystemLog
	for i := 0; i < 60; i++ {
		logs = append(logs, logAt(base.Add(time.Duration(i)*time.Second), "ERROR", "boom"))
	}
	logs = append(logs, logAt(base.Add(-time.Second), "INFO", "ignored"))

	svc := newTestLogService(&mockSyslogRepo{})
	timeline := svc.Timeline(logs)

	assert.Len(t, timeline, 50)
	assert.Equal(t, base, timeline[0].Timestamp)
	for _, ev := range timeline {
		assert.NotEqual(t, "INFO", ev.Level)
	}
}
