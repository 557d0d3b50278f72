package embedding

import "regexp"

type piiPattern struct {
	re    *regexp.Regexp
	token string
}

// Order matters: card numbers before Aadhaar so a 16-digit card is not
// half-consumed as a 12-digit Aadhaar, and Aadhaar before phone numbers.
var piiPatterns = []piiPattern{
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|6011)[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\b3[47]\d{2}[-\s]?\d{6}[-\s]?\d{5}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\b[2-9]\d{3}[-\s]?\d{4}[-\s]?\d{4}\b`), "[REDACTED_AADHAAR]"},
	{regexp.MustCompile(`(?i)\b[a-z]{5}\d{4}[a-z]\b`), "[REDACTED_PAN]"},
	{regexp.MustCompile(`(?:\+91[-\s]?)?\b[6-9]\d{9}\b`), "[REDACTED_PHONE]"},
	{regexp.MustCompile(`\+\d{1,3}[-\s]?\d{1,4}[-\s]?\d{3,4}[-\s]?\d{3,4}\b`), "[REDACTED_PHONE]"},
}

// Scrubber replaces personal identifiers before text leaves the process.
type Scrubber struct {
	patterns []piiPattern
}

func NewScrubber() *Scrubber {
	return &Scrubber{patterns: piiPatterns}
}

func (s *Scrubber) Scrub(text string) string {
	for _, p := range s.patterns {
		text = p.re.ReplaceAllString(text, p.token)
	}
	return text
}
