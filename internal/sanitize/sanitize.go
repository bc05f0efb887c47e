// Package sanitize neutralizes prompt-injection phrasings in user text
// before it reaches the inference collaborator. Matches are replaced with a
// fixed marker rather than deleted so the message keeps its shape.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxMessageLength is the character budget applied after substitution.
const MaxMessageLength = 2000

// Marker replaces every neutralized span.
const Marker = "[filtered]"

// Pre-compiled injection patterns, applied in order. All case-insensitive.
var injectionPatterns = []*regexp.Regexp{
	// Bracketed role markers: [system], [assistant], [INST], <<SYS>> etc.
	regexp.MustCompile(`(?i)\[\s*/?\s*(system|assistant|user|inst)\s*\]`),
	regexp.MustCompile(`(?i)<<\s*/?\s*sys\s*>>`),
	// Instruction-override phrasings.
	regexp.MustCompile(`(?i)ignore\s+(all\s+|the\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|messages?|context)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+|the\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|messages?)`),
	regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you|above|before)`),
	// Role reassignment.
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s`),
	regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)\s`),
	regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+are\s+)?(a|an|the)\s`),
	// Prompt exfiltration.
	regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your|the)\s+(system\s+)?(prompt|instructions)`),
	// Fake delimiter resets.
	regexp.MustCompile(`(?i)(^|\n)\s*###\s*(system|instruction)`),
}

// Sanitize neutralizes known injection phrasings, truncates to
// MaxMessageLength, and trims surrounding whitespace. Substitution runs
// before truncation so the budget measures sanitized text and a long benign
// prefix cannot push an injected suffix past the cut undetected. It is pure
// and total; empty output is the caller's validation concern.
func Sanitize(raw string) string {
	s := stripControlChars(raw)
	for _, re := range injectionPatterns {
		s = re.ReplaceAllString(s, Marker)
	}
	if len(s) > MaxMessageLength {
		s = s[:MaxMessageLength]
	}
	return strings.TrimSpace(s)
}

// stripControlChars removes ASCII control characters except newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
