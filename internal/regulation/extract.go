package regulation

import (
	"regexp"
	"strings"
)

var (
	registrationRe = regexp.MustCompile(`(?i)\b(SOR|SI)/\d{4}-\d+\b`)
	sponsorRe      = regexp.MustCompile(`(Department of [^,.\n]+|Minister of [^,.\n]+|[A-Z][a-z]+ Canada)`)

	enablingActRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:under|pursuant to) (?:the )?([^,.\n]+Act)`),
		regexp.MustCompile(`(?i)(?:made under|established under) (?:the )?([^,.\n]+Act)`),
	}

	// applied in order; each one sees the output of the previous
	namePrefixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Regulations?\s+amending\s+the\s+`),
		regexp.MustCompile(`(?i)^Order\s+amending\s+the\s+`),
		regexp.MustCompile(`(?i)^Regulations?\s+`),
		regexp.MustCompile(`(?i)^Order\s+`),
	}
)

// ExtractRegistrationID returns the first SOR/SI registration number in text,
// upper-cased, or "".
func ExtractRegistrationID(text string) string {
	return strings.ToUpper(registrationRe.FindString(text))
}

// ExtractSponsor prefers the feed's author and falls back to a department or
// minister named in the summary.
func ExtractSponsor(author, summary string) string {
	if a := strings.TrimSpace(author); a != "" {
		return a
	}
	if m := sponsorRe.FindStringSubmatch(summary); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractEnablingAct finds the parent Act named in text, or "".
func ExtractEnablingAct(text string) string {
	for _, re := range enablingActRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// CleanName strips boilerplate prefixes such as "Regulations Amending the".
func CleanName(title string) string {
	cleaned := title
	for _, re := range namePrefixRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}
