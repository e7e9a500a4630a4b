package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FingerprintRule maps an error-description pattern to a canonical error tag.
// Rules are evaluated in order; the first match wins.
type FingerprintRule struct {
	Pattern string `yaml:"pattern"`
	Tag     string `yaml:"tag"`

	re *regexp.Regexp
}

// Fingerprinter classifies free-text incident descriptions into stable
// error-type tags used as search keys by the ranking engine.
type Fingerprinter struct {
	rules []FingerprintRule
}

// defaultFingerprintRules is the built-in ordered rule table. Maritime EDI
// patterns come first because they are the most specific; generic
// infrastructure patterns act as a catch-all tail.
var defaultFingerprintRules = []FingerprintRule{
	{Pattern: `unexpected qualifier.*['"]\w+['"]\s+in\s+\w+\s+segment`, Tag: "edifact_unexpected_qualifier"},
	{Pattern: `coarri.*container.*translation|container.*coarri.*error`, Tag: "coarri_container_error"},
	{Pattern: `edifact.*parse|edifact.*format|edifact.*message`, Tag: "edifact_parsing_error"},
	{Pattern: `codeco.*error|codeco.*reject`, Tag: "codeco_error"},
	{Pattern: `coprar.*error|coprar.*reject`, Tag: "coprar_error"},
	{Pattern: `baplie.*error|baplie.*reject`, Tag: "baplie_error"},
	{Pattern: `edi.*message.*stuck|edi.*stuck.*error`, Tag: "edi_message_stuck"},
	{Pattern: `segment.*error|segment.*reject|segment.*invalid`, Tag: "edi_segment_error"},
	{Pattern: `time ?zone drift`, Tag: "timezone_drift"},
	{Pattern: `dlq.*spike|spike.*dlq|dlq messages`, Tag: "dlq_spike"},
	{Pattern: `vessel_err|vessel error`, Tag: "vessel_err"},
	{Pattern: `duplicate.*container|container.*duplication`, Tag: "container_duplication"},
	{Pattern: `cntr.*duplicate|cntr.*error`, Tag: "container_reference_error"},
	{Pattern: `booking.*duplicate|booking.*conflict`, Tag: "booking_conflict"},
	{Pattern: `timeout`, Tag: "timeout"},
	{Pattern: `deadlock`, Tag: "deadlock"},
	{Pattern: `connection refused`, Tag: "connection_refused"},
	{Pattern: `invalid format`, Tag: "invalid_format"},
	{Pattern: `missing field`, Tag: "missing_field"},
	{Pattern: `auth.*fail|authentication failed`, Tag: "auth_failed"},
	{Pattern: `permission denied`, Tag: "permission_denied"},
	{Pattern: `file not found`, Tag: "file_not_found"},
	{Pattern: `memory leak`, Tag: "memory_leak"},
	{Pattern: `high cpu`, Tag: "high_cpu"},
	{Pattern: `disk full`, Tag: "disk_full"},
	{Pattern: `network unreachable`, Tag: "network_unreachable"},
	{Pattern: `service unavailable`, Tag: "service_unavailable"},
	{Pattern: `unknown error`, Tag: "unknown_error"},
}

var fallbackTokenPattern = regexp.MustCompile(`\w+`)

// NewFingerprinter builds a fingerprinter from the built-in rule table.
func NewFingerprinter() *Fingerprinter {
	fp, err := newFingerprinter(defaultFingerprintRules)
	if err != nil {
		// Built-in patterns are compile-time constants; a failure here is a
		// programming error.
		panic(err)
	}
	return fp
}

// NewFingerprinterFromFile builds a fingerprinter from a YAML rules file.
// The file holds an ordered list of {pattern, tag} entries replacing the
// built-in table.
func NewFingerprinterFromFile(path string) (*Fingerprinter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint rules: %w", err)
	}

	var rules []FingerprintRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse fingerprint rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("fingerprint rules file %s contains no rules", path)
	}
	return newFingerprinter(rules)
}

func newFingerprinter(rules []FingerprintRule) (*Fingerprinter, error) {
	compiled := make([]FingerprintRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile fingerprint pattern %q: %w", r.Pattern, err)
		}
		r.re = re
		compiled = append(compiled, r)
	}
	return &Fingerprinter{rules: compiled}, nil
}

// ErrorType returns the canonical tag for a description. When no rule
// matches, up to the first two word tokens are joined with an underscore;
// a description with no tokens at all maps to "unknown_error".
func (f *Fingerprinter) ErrorType(description string) string {
	text := strings.ToLower(description)

	for _, r := range f.rules {
		if r.re.MatchString(text) {
			return r.Tag
		}
	}

	tokens := fallbackTokenPattern.FindAllString(text, 2)
	if len(tokens) == 0 {
		return "unknown_error"
	}
	return strings.Join(tokens, "_")
}
