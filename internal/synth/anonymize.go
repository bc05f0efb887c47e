package synth

import "regexp"

// Pre-compiled masking patterns for personally identifying substrings in
// free text bound for the collaborator.
var (
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	rePhone = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	reName  = regexp.MustCompile(`(?i)\bmy name is\s+[A-Z][a-zA-Z'\-]*`)
)

// Anonymize masks emails, phone numbers, and self-introductions before the
// text is folded into the synthesized context.
func Anonymize(s string) string {
	s = reEmail.ReplaceAllString(s, "[email]")
	s = rePhone.ReplaceAllString(s, "[phone]")
	s = reName.ReplaceAllString(s, "my name is [name]")
	return s
}
