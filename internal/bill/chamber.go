package bill

import "strings"

// Chamber names used by the LEGISinfo feed.
const (
	ChamberHouse  = "House of Commons"
	ChamberSenate = "Senate"
)

// ChamberSide identifies which side of the legislature a chamber string refers to.
type ChamberSide int

const (
	ChamberUnrecognized ChamberSide = iota
	ChamberFirst                    // originating chamber (House of Commons)
	ChamberSecond                   // Senate
)

// SideOf classifies a raw chamber string.
func SideOf(chamber string) ChamberSide {
	c := strings.ToLower(strings.TrimSpace(chamber))
	switch {
	case c == "":
		return ChamberUnrecognized
	case strings.Contains(c, "senate"):
		return ChamberSecond
	case strings.Contains(c, "house"), strings.Contains(c, "commons"):
		return ChamberFirst
	default:
		return ChamberUnrecognized
	}
}
