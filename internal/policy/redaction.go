package policy

import "regexp"

type redactionRule struct {
	pattern *regexp.Regexp
	marker  string
}

// Rules run in order. Card and SSN shapes must be claimed before the looser
// phone pattern sees the digits.
var redactionRules = []redactionRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[REDACTED_SSN]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks emails, card numbers, SSNs and phone numbers in a transcript
// line before it leaves the process.
func RedactPII(input string) (redacted string, changed bool) {
	redacted = input
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(redacted, rule.marker)
		if next != redacted {
			changed = true
			redacted = next
		}
	}
	return redacted, changed
}
