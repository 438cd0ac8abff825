package bill

import (
	"regexp"
	"strconv"
	"strings"
)

// Identifier categories.
const (
	ClassGovernment    = "government"
	ClassPrivateMember = "private-member"
	ClassSenate        = "senate"
	ClassUnknown       = "unknown"
)

// Title categories.
const (
	ClassAmending = "amending"
	ClassNewAct   = "new-act"
)

// Commons bills numbered above this are private members' bills.
const governmentBillMax = 200

var billNumberPattern = regexp.MustCompile(`(?i)^\s*([CS])-?(\d+)`)

// Classify derives the classification tag from a bill id and title, e.g.
// "government+amending" for C-11 titled "An Act to amend ...".
func Classify(id, title string) string {
	category := classifyID(id)
	if t := classifyTitle(title); t != "" {
		return category + "+" + t
	}
	return category
}

func classifyID(id string) string {
	m := billNumberPattern.FindStringSubmatch(id)
	if m == nil {
		return ClassUnknown
	}
	if strings.EqualFold(m[1], "S") {
		return ClassSenate
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return ClassUnknown
	}
	if n > governmentBillMax {
		return ClassPrivateMember
	}
	return ClassGovernment
}

func classifyTitle(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "to amend"):
		return ClassAmending
	case strings.Contains(t, "act respecting"):
		return ClassNewAct
	default:
		return ""
	}
}

// Parliament extracts the parliament number from a session code such as "44-1".
// It returns 0 when the session is not in that form.
func Parliament(session string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(session), "-")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}
