package services

import (
	"fmt"
	"regexp"
	"strings"
)

// stopWords are excluded from basic keyword extraction.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

var (
	wordPattern        = regexp.MustCompile(`\b\w+\b`)
	acronymPattern     = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	compoundPattern    = regexp.MustCompile(`\b\w+[-_]\w+\b`)
	numericErrPattern  = regexp.MustCompile(`(?i)\bERR[OR]*[-_]*\d+\b`)
	errorWordPattern   = regexp.MustCompile(`\b\w*[Ee]rror\w*\b`)
	failWordPattern    = regexp.MustCompile(`\b\w*[Ff]ail\w*\b`)
	ediMessagePattern  = regexp.MustCompile(`(?i)\b(COARRI|CODECO|COPRAR|APERAK|IFTMIN|IFTSTA)\b`)
	domainTermPattern  = regexp.MustCompile(`(?i)\b(container|cntr|segment|translator|rejection)\b`)
	partnerPattern     = regexp.MustCompile(`(?i)Partner-[A-Z]`)
	qualifierPattern   = regexp.MustCompile(`(?i)qualifier\s+'([^']+)'`)
	segmentRefPattern  = regexp.MustCompile(`(?i)in\s+(\w{3})\s+segment`)
	edifactTypePattern = regexp.MustCompile(`(?i)EDIFACT\s+(\w+)`)
)

// ExtractKeywords returns search keywords for a description: plain words
// longer than three characters minus stop words, acronyms, compound terms,
// numeric error codes, error/failure word variants and maritime EDI terms.
// Order is first occurrence per extraction pass, deduplicated.
func ExtractKeywords(text string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	add := func(kw string) {
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		add(w)
	}

	for _, p := range []*regexp.Regexp{
		acronymPattern,
		compoundPattern,
		numericErrPattern,
		errorWordPattern,
		failWordPattern,
		ediMessagePattern,
		domainTermPattern,
	} {
		for _, m := range p.FindAllString(text, -1) {
			add(m)
		}
	}

	return keywords
}

// ExtractKeyPhrases pulls high-signal phrases out of a description: partner
// references, EDIFACT qualifier values, segment names and message types.
// These phrases anchor training-case lookups before any keyword search.
func ExtractKeyPhrases(description string) []string {
	var phrases []string

	if m := partnerPattern.FindString(description); m != "" {
		phrases = append(phrases, m)
	}
	if m := qualifierPattern.FindStringSubmatch(description); m != nil {
		phrases = append(phrases, fmt.Sprintf("qualifier '%s'", m[1]))
	}
	if m := segmentRefPattern.FindStringSubmatch(description); m != nil {
		phrases = append(phrases, m[1]+" segment")
	}
	if m := edifactTypePattern.FindStringSubmatch(description); m != nil {
		phrases = append(phrases, "EDIFACT "+m[1])
	}
	return phrases
}
