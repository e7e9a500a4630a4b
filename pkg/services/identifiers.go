package services

import "regexp"

// Identifiers holds operational entity references extracted from an incident
// description, in order of appearance. Duplicates are preserved so callers
// can see how often a reference occurs.
type Identifiers struct {
	Containers     []string
	Vessels        []string
	ErrorCodes     []string
	EDIReferences  []string
	CorrelationIDs []string
	IMONumbers     []string
}

var (
	containerPattern   = regexp.MustCompile(`(?i)\b[A-Z]{4}\d{7}\b`)
	vesselPattern      = regexp.MustCompile(`(?i)\b(?:MV|MS|MT)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*(?:\s+\d+)?\b`)
	errorCodePattern   = regexp.MustCompile(`(?i)\b[A-Z]+_(?:ERR|ERROR|WARN)_\d+\b`)
	ediRefPattern      = regexp.MustCompile(`(?i)\bREF-[A-Z]+-\d+\b`)
	correlationPattern = regexp.MustCompile(`(?i)\bcorr-\d+\b`)
	imoPattern         = regexp.MustCompile(`(?i)\bIMO\s*(\d{7})\b|\b(\d{7})\b`)
)

// ExtractIdentifiers pulls container numbers, vessel names, error codes, EDI
// references, correlation IDs and IMO numbers out of free text.
func ExtractIdentifiers(text string) Identifiers {
	ids := Identifiers{
		Containers:     containerPattern.FindAllString(text, -1),
		Vessels:        vesselPattern.FindAllString(text, -1),
		ErrorCodes:     errorCodePattern.FindAllString(text, -1),
		EDIReferences:  ediRefPattern.FindAllString(text, -1),
		CorrelationIDs: correlationPattern.FindAllString(text, -1),
	}

	for _, m := range imoPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			ids.IMONumbers = append(ids.IMONumbers, m[1])
		case m[2] != "":
			ids.IMONumbers = append(ids.IMONumbers, m[2])
		}
	}
	return ids
}

// IsEmpty reports whether extraction found no identifiers at all.
func (i Identifiers) IsEmpty() bool {
	return len(i.Containers) == 0 && len(i.Vessels) == 0 && len(i.ErrorCodes) == 0 &&
		len(i.EDIReferences) == 0 && len(i.CorrelationIDs) == 0 && len(i.IMONumbers) == 0
}
