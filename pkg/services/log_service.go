package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/logging"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// LogService ingests uploaded application logs and mines them for error
// patterns, cascades and root-cause hypotheses.
type LogService interface {
	// ParseFile parses JSON-lines or plaintext log content. Unparseable
	// lines are skipped; lines mentioning an error keyword are captured
	// even without a recognizable timestamp.
	ParseFile(content []byte, filename string) []models.SystemLog

	Save(ctx context.Context, incidentID string, logs []models.SystemLog) (int, error)
	FindByIncident(ctx context.Context, incidentID string) ([]models.SystemLog, error)
	FindAround(ctx context.Context, incidentTime time.Time, window time.Duration) ([]models.SystemLog, error)
	DeleteByIncident(ctx context.Context, incidentID string) error

	DetectPatterns(logs []models.SystemLog) []models.ErrorPattern
	DetectCascades(logs []models.SystemLog) []models.LogCascade
	Hypotheses(logs []models.SystemLog) []models.Hypothesis
	ContributingFactors(logs []models.SystemLog) []string
	Timeline(logs []models.SystemLog) []models.TimelineEvent
}

type logService struct {
	repo   repositories.SyslogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewLogService creates a new LogService.
func NewLogService(repo repositories.SyslogRepository, logger *zap.Logger) LogService {
	return &logService{
		repo:   repo,
		logger: logger.Named("log-service"),
		now:    time.Now,
	}
}

var _ LogService = (*logService)(nil)

// logCascadeWindow is the maximum spacing between error lines treated as
// one causally related run.
const logCascadeWindow = 5 * time.Second

// timelineLimit caps the reconstructed timeline length.
const timelineLimit = 50

var plaintextLayouts = []struct {
	re       *regexp.Regexp
	levelIdx int
	tsIdx    int
	msgIdx   int
}{
	// [2024-10-19 14:30:15] ERROR: Message
	{regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\]\s+(\w+):\s+(.+)`), 2, 1, 3},
	// 2024-10-19 14:30:15 ERROR Message
	{regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\s+(\w+)\s+(.+)`), 2, 1, 3},
	// [ERROR] [2024-10-19 14:30:15] Message
	{regexp.MustCompile(`^\[(\w+)\]\s+\[(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\]\s+(.+)`), 1, 2, 3},
	// ERROR 2024-10-19 14:30:15 - Message
	{regexp.MustCompile(`^(\w+)\s+(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\s+-\s+(.+)`), 1, 2, 3},
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
}

func (s *logService) ParseFile(content []byte, filename string) []models.SystemLog {
	text := string(content)

	var entries []models.SystemLog
	if strings.HasSuffix(filename, ".json") {
		entries = s.parseJSONLogs(text)
	} else {
		entries = s.parsePlaintextLogs(text, filename)
	}

	s.logger.Info("Parsed log file",
		zap.String("filename", filename),
		zap.Int("entries", len(entries)))
	return entries
}

type jsonLogLine struct {
	Timestamp   string `json:"timestamp"`
	Time        string `json:"time"`
	AtTimestamp string `json:"@timestamp"`
	Level       string `json:"level"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Msg         string `json:"msg"`
	Service     string `json:"service"`
	Logger      string `json:"logger"`
}

func (s *logService) parseJSONLogs(content string) []models.SystemLog {
	var entries []models.SystemLog

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var obj jsonLogLine
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		ts := parseTimestamp(firstNonEmpty(obj.Timestamp, obj.Time, obj.AtTimestamp))
		level := strings.ToUpper(firstNonEmpty(obj.Level, obj.Severity, models.LogLevelInfo))
		message := firstNonEmpty(obj.Message, obj.Msg)

		if ts.IsZero() || message == "" {
			continue
		}
		entries = append(entries, models.SystemLog{
			Timestamp: ts,
			Level:     level,
			Source:    firstNonEmpty(obj.Service, obj.Logger),
			Message:   message,
			Raw:       line,
		})
	}
	return entries
}

func (s *logService) parsePlaintextLogs(content, filename string) []models.SystemLog {
	var entries []models.SystemLog

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		matched := false
		for _, layout := range plaintextLayouts {
			m := layout.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			ts := parseTimestamp(m[layout.tsIdx])
			if ts.IsZero() {
				continue
			}
			entries = append(entries, models.SystemLog{
				Timestamp: ts,
				Level:     strings.ToUpper(m[layout.levelIdx]),
				Source:    filename,
				Message:   strings.TrimSpace(m[layout.msgIdx]),
				Raw:       line,
			})
			matched = true
			break
		}

		// A line that looks like an error is worth keeping even when no
		// layout matched; ingestion time stands in for the timestamp.
		if !matched && containsErrorKeyword(line) {
			level := models.LogLevelWarn
			if strings.Contains(strings.ToUpper(line), models.LogLevelError) {
				level = models.LogLevelError
			}
			entries = append(entries, models.SystemLog{
				Timestamp: s.now(),
				Level:     level,
				Source:    filename,
				Message:   strings.TrimSpace(line),
				Raw:       line,
			})
		}
	}
	return entries
}

func containsErrorKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range []string{"ERROR", "WARN", "CRITICAL", "FATAL"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *logService) Save(ctx context.Context, incidentID string, logs []models.SystemLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	for i := range logs {
		logs[i].IncidentID = incidentID
	}
	if err := s.repo.SaveBatch(ctx, logs); err != nil {
		return 0, fmt.Errorf("save logs: %w", err)
	}
	s.logger.Info("Saved incident logs",
		zap.String("incident_id", incidentID),
		zap.Int("count", len(logs)))
	return len(logs), nil
}

func (s *logService) FindByIncident(ctx context.Context, incidentID string) ([]models.SystemLog, error) {
	return s.repo.FindByIncident(ctx, incidentID)
}

func (s *logService) FindAround(ctx context.Context, incidentTime time.Time, window time.Duration) ([]models.SystemLog, error) {
	return s.repo.FindWindow(ctx, incidentTime.Add(-window), incidentTime.Add(window))
}

func (s *logService) DeleteByIncident(ctx context.Context, incidentID string) error {
	return s.repo.DeleteByIncident(ctx, incidentID)
}

var (
	digitRun = regexp.MustCompile(`\d+`)
	hexRun   = regexp.MustCompile(`[a-f0-9-]{32,}`)
)

// normalizeErrorMessage collapses volatile parts of a message (numbers,
// UUIDs) so repeats of the same error group together.
func normalizeErrorMessage(message string) string {
	normalized := digitRun.ReplaceAllString(message, "N")
	normalized = hexRun.ReplaceAllString(normalized, "ID")
	return strings.TrimSpace(strings.ToLower(normalized))
}

func (s *logService) DetectPatterns(logs []models.SystemLog) []models.ErrorPattern {
	groups := make(map[string][]models.SystemLog)
	var order []string

	for _, l := range logs {
		if !l.IsErrorLevel() {
			continue
		}
		key := logging.TruncateString(normalizeErrorMessage(l.Message), 50)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], l)
	}

	var patterns []models.ErrorPattern
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		first, last := group[0].Timestamp, group[0].Timestamp
		for _, l := range group[1:] {
			if l.Timestamp.Before(first) {
				first = l.Timestamp
			}
			if l.Timestamp.After(last) {
				last = l.Timestamp
			}
		}
		patterns = append(patterns, models.ErrorPattern{
			Pattern:     key,
			PatternType: "REPEATED_ERROR",
			Count:       len(group),
			FirstSeen:   first,
			LastSeen:    last,
			Example:     logging.TruncateString(group[0].Message, 200),
		})
	}
	return patterns
}

func (s *logService) DetectCascades(logs []models.SystemLog) []models.LogCascade {
	var errors []models.SystemLog
	for _, l := range logs {
		if l.IsErrorLevel() {
			errors = append(errors, l)
		}
	}
	if len(errors) == 0 {
		return nil
	}
	sort.SliceStable(errors, func(i, j int) bool {
		return errors[i].Timestamp.Before(errors[j].Timestamp)
	})

	var cascades []models.LogCascade
	flush := func(group []models.SystemLog) {
		if len(group) < 2 {
			return
		}
		cascades = append(cascades, models.LogCascade{
			Start:  group[0].Timestamp,
			End:    group[len(group)-1].Timestamp,
			Events: group,
		})
	}

	current := []models.SystemLog{errors[0]}
	for _, l := range errors[1:] {
		if l.Timestamp.Sub(current[len(current)-1].Timestamp) <= logCascadeWindow {
			current = append(current, l)
			continue
		}
		flush(current)
		current = []models.SystemLog{l}
	}
	flush(current)

	return cascades
}

func (s *logService) Hypotheses(logs []models.SystemLog) []models.Hypothesis {
	var errors []models.SystemLog
	for _, l := range logs {
		if l.IsErrorLevel() {
			errors = append(errors, l)
		}
	}
	if len(errors) == 0 {
		return nil
	}
	sort.SliceStable(errors, func(i, j int) bool {
		return errors[i].Timestamp.Before(errors[j].Timestamp)
	})
	first := errors[0]

	evidence := []string{
		fmt.Sprintf("First error occurred at %s", first.Timestamp.Format("15:04:05")),
		fmt.Sprintf("Error message: %s", logging.TruncateString(first.Message, 200)),
		fmt.Sprintf("Total errors in cascade: %d", len(errors)),
	}

	message := strings.ToLower(first.Message)
	var cause string
	var confidence float64
	switch {
	case containsAnyKeyword(message, "connection", "timeout", "pool"):
		cause = "Database connection pool exhaustion or timeout"
		confidence = 0.85
		evidence = append(evidence, "Multiple connection-related errors detected")
	case containsAnyKeyword(message, "memory", "heap", "oom"):
		cause = "Memory exhaustion (Out of Memory)"
		confidence = 0.90
		evidence = append(evidence, "Memory-related errors detected")
	case containsAnyKeyword(message, "network", "unreachable", "refused"):
		cause = "Network connectivity issue"
		confidence = 0.80
		evidence = append(evidence, "Network-related errors detected")
	case containsAnyKeyword(message, "deadlock", "lock timeout"):
		cause = "Database deadlock or lock contention"
		confidence = 0.88
		evidence = append(evidence, "Lock-related errors detected")
	default:
		cause = logging.TruncateString(first.Message, 200)
		confidence = 0.60
	}

	return []models.Hypothesis{{
		Cause:      cause,
		Confidence: confidence,
		Evidence:   evidence,
		Source:     "logs",
	}}
}

func (s *logService) ContributingFactors(logs []models.SystemLog) []string {
	var factors []string

	warnings := 0
	var errors []models.SystemLog
	for _, l := range logs {
		if l.IsWarningLevel() {
			warnings++
		}
		if l.IsErrorLevel() {
			errors = append(errors, l)
		}
	}

	if warnings > 0 {
		factors = append(factors, fmt.Sprintf("System issued %d warnings before failure", warnings))
	}

	if len(errors) > 10 && len(logs) > 1 {
		span := logs[len(logs)-1].Timestamp.Sub(logs[0].Timestamp).Seconds()
		if span > 0 {
			rate := float64(len(errors)) / span
			if rate > 1 {
				factors = append(factors, fmt.Sprintf("High error rate: %.1f errors/second", rate))
			}
		}
	}

	sample := logs
	if len(sample) > 50 {
		sample = sample[:50]
	}
	var b strings.Builder
	for _, l := range sample {
		b.WriteString(strings.ToLower(l.Message))
		b.WriteByte(' ')
	}
	messages := b.String()

	if strings.Contains(messages, "batch") || strings.Contains(messages, "scheduled") {
		factors = append(factors, "Incident coincides with batch job execution")
	}
	if strings.Contains(messages, "spike") || strings.Contains(messages, "load") {
		factors = append(factors, "System load spike detected")
	}
	return factors
}

func (s *logService) Timeline(logs []models.SystemLog) []models.TimelineEvent {
	sorted := make([]models.SystemLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var timeline []models.TimelineEvent
	for _, l := range sorted {
		if !l.IsErrorLevel() && !l.IsWarningLevel() {
			continue
		}
		timeline = append(timeline, models.TimelineEvent{
			Timestamp: l.Timestamp,
			Level:     l.Level,
			Source:    l.Source,
			Message:   logging.TruncateString(l.Message, 150),
		})
		if len(timeline) >= timelineLimit {
			break
		}
	}
	return timeline
}

func containsAnyKeyword(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
