package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/retry"
)

const analysisSystemMessage = `You are an L2 duty-officer assistant for a maritime port community system.
Classify the incident and respond with a single JSON object with keys:
incident_type, pattern_match, root_cause, impact, urgency (Low/Medium/High/Critical), affected_systems (array of strings).
Respond with JSON only.`

const validateSystemMessage = `You judge whether text is a genuine IT incident report for a maritime port system.
Respond with exactly "yes" or "no".`

// service implements Service over an optional remote client. A nil client
// means every call takes the fallback path immediately.
type service struct {
	client   Client
	timeout  time.Duration
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewService creates the inference service. client may be nil when no
// endpoint is configured.
func NewService(client Client, timeout time.Duration, logger *zap.Logger) Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &service{
		client:   client,
		timeout:  timeout,
		retryCfg: retry.DefaultConfig(),
		logger:   logger.Named("inference"),
	}
}

// complete runs one remote completion, retrying transient failures with
// backoff. The timeout bounds all attempts together.
func (s *service) complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	var raw string
	err := retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		r, err := s.client.Complete(ctx, systemMessage, prompt)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	return raw, err
}

var _ Service = (*service)(nil)

type analysisResponse struct {
	IncidentType    string   `json:"incident_type"`
	PatternMatch    string   `json:"pattern_match"`
	RootCause       string   `json:"root_cause"`
	Impact          string   `json:"impact"`
	Urgency         string   `json:"urgency"`
	AffectedSystems []string `json:"affected_systems"`
}

func (s *service) Analyze(ctx context.Context, description string, training []*models.TrainingCase, knowledge []*models.KnowledgeEntry) *models.IncidentAnalysis {
	if s.client == nil {
		return FallbackAnalyze(description)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.complete(ctx, analysisSystemMessage, buildAnalysisPrompt(description, training, knowledge))
	if err != nil {
		s.logger.Warn("analysis falling back to rule-based classifier", zap.Error(err))
		return FallbackAnalyze(description)
	}

	if analysis, ok := parseAnalysis(raw); ok {
		return analysis
	}

	s.logger.Warn("unparseable analysis response, using fallback",
		zap.Int("response_len", len(raw)))
	return FallbackAnalyze(description)
}

func (s *service) Validate(ctx context.Context, description string) bool {
	if s.client == nil {
		return FallbackValidate(description)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.complete(ctx, validateSystemMessage,
		fmt.Sprintf("Is this a genuine incident report?\n\n%s", description))
	if err != nil {
		// A validation outage must not block incident intake
		s.logger.Warn("validation unavailable, accepting input", zap.Error(err))
		return true
	}

	answer := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(answer, "no") {
		return false
	}
	return true
}

func (s *service) DescribeImage(ctx context.Context, image []byte) string {
	if s.client == nil || len(image) == 0 {
		return ImagePlaceholder
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Describe the relevant error shown in this screenshot (base64 PNG):\n%s",
		base64.StdEncoding.EncodeToString(image))

	raw, err := s.complete(ctx, "You describe screenshots of maritime port system errors concisely.", prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		return ImagePlaceholder
	}
	return strings.TrimSpace(raw)
}

func buildAnalysisPrompt(description string, training []*models.TrainingCase, knowledge []*models.KnowledgeEntry) string {
	var b strings.Builder

	if len(training) > 0 {
		b.WriteString("Previously labeled incidents:\n")
		for i, c := range training {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- Incident: %s\n  Type: %s | Root cause: %s | Urgency: %s\n",
				c.IncidentDescription, c.ExpectedType, c.ExpectedRootCause, c.ExpectedUrgency)
		}
		b.WriteString("\n")
	}

	if len(knowledge) > 0 {
		b.WriteString("Relevant knowledge base entries:\n")
		for i, k := range knowledge {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", k.Title, k.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Incident to analyze:\n%s", description)
	return b.String()
}

// parseAnalysis is the two-tier response parser: strict JSON decode first,
// labeled line scan second. Returns false when neither tier yields a usable
// incident type.
func parseAnalysis(raw string) (*models.IncidentAnalysis, bool) {
	if resp, err := ParseJSONResponse[analysisResponse](raw); err == nil && resp.IncidentType != "" {
		return &models.IncidentAnalysis{
			IncidentType:    resp.IncidentType,
			PatternMatch:    resp.PatternMatch,
			RootCause:       resp.RootCause,
			Impact:          resp.Impact,
			Urgency:         normalizeUrgency(resp.Urgency),
			AffectedSystems: resp.AffectedSystems,
		}, true
	}

	return parseLabeledLines(raw)
}

var labeledLine = regexp.MustCompile(`(?i)^\s*[-*]?\s*(incident[ _]?type|pattern[ _]?match|root[ _]?cause|impact|urgency|affected[ _]?systems?|type|cause|systems?)\s*[:=]\s*(.+)$`)

func parseLabeledLines(raw string) (*models.IncidentAnalysis, bool) {
	analysis := &models.IncidentAnalysis{}
	found := false

	for _, line := range strings.Split(raw, "\n") {
		m := labeledLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		label := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(m[1], " ", "_"), "-", "_"))
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}

		switch label {
		case "incident_type", "type":
			analysis.IncidentType = value
			found = true
		case "pattern_match":
			analysis.PatternMatch = value
		case "root_cause", "cause":
			analysis.RootCause = value
		case "impact":
			analysis.Impact = value
		case "urgency":
			analysis.Urgency = normalizeUrgency(value)
		case "affected_systems", "affected_system", "systems", "system":
			for _, sys := range strings.Split(value, ",") {
				if sys = strings.TrimSpace(sys); sys != "" {
					analysis.AffectedSystems = append(analysis.AffectedSystems, sys)
				}
			}
		}
	}

	if !found {
		return nil, false
	}
	if analysis.Urgency == "" {
		analysis.Urgency = models.UrgencyMedium
	}
	return analysis, true
}

func normalizeUrgency(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "low":
		return models.UrgencyLow
	case "medium", "moderate":
		return models.UrgencyMedium
	case "high":
		return models.UrgencyHigh
	case "critical":
		return models.UrgencyCritical
	default:
		return models.UrgencyMedium
	}
}
