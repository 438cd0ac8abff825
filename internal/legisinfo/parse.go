package legisinfo

import (
	"strings"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// BillURL is the public page of a bill.
const BillURL = "https://www.parl.ca/legisinfo/en/bill/"

const (
	unknownStatus     = "Unknown Status"
	unknownStatusCode = "UNKNOWN"
	unknownChamber    = "Unknown"
)

// Export is one parsed LEGISinfo document.
type Export struct {
	Observations []bill.Observation
	// Skipped counts bill records that carried a number or a session but
	// not both.
	Skipped int
}

// Parse converts a LEGISinfo XML export into observations. See ParseExport.
func Parse(data []byte) ([]bill.Observation, error) {
	export, err := ParseExport(data)
	return export.Observations, err
}

// ParseExport converts a LEGISinfo XML export. Every element whose name
// contains "Bill" is a candidate; candidates without a bill number or
// session are dropped, and those holding only one of the two are counted
// as skipped. A malformed document is an error.
func ParseExport(data []byte) (Export, error) {
	root, err := parseTree(data)
	if err != nil {
		return Export{}, ferrors.TransportError("malformed LEGISinfo XML").
			WithCause(err).
			WithRetry(ferrors.RetryNever).
			Build()
	}

	var out Export
	root.walk(func(n *node) {
		if !strings.Contains(n.name, "Bill") {
			return
		}
		obs, ok := observationFrom(n)
		switch {
		case ok:
			out.Observations = append(out.Observations, obs)
		case obs.ID != "" || obs.Session != "":
			out.Skipped++
		}
	})
	return out, nil
}

func observationFrom(n *node) (bill.Observation, bool) {
	id := n.first("BillNumberFormatted", "BillNumber", "Number")
	session := n.first("ParlSessionCode", "Session", "Parliament")
	if id == "" || session == "" {
		return bill.Observation{ID: id, Session: session}, false
	}

	obs := bill.Observation{
		Session:            session,
		ID:                 id,
		Title:              n.first("LongTitleEn", "ShortTitleEn", "Title"),
		StatusCode:         n.child("CurrentStatusId"),
		StatusText:         n.first("CurrentStatusEn", "LatestCompletedMajorStageEn", "Status"),
		Chamber:            chamberOf(n),
		SourceURL:          BillURL + session + "/" + id,
		Sponsor:            n.child("SponsorEn"),
		SponsorAffiliation: n.child("PoliticalAffiliationId"),
		SpecialAssentDate:  bill.ParseOptionalTimestamp(n.child("ReceivedRoyalAssentDateTime")),
		LastActivityDate:   bill.ParseOptionalTimestamp(n.child("LatestActivityDateTime")),
	}
	if obs.StatusCode == "" {
		obs.StatusCode = unknownStatusCode
	}
	if obs.StatusText == "" {
		obs.StatusText = unknownStatus
	}

	if pubs := n.countDescendants("Publication"); pubs > 0 || n.hasChild("Publications") {
		obs.PublicationCount = bill.IntPtr(pubs)
	}

	ministry := n.child("MinistryId")
	special := (ministry != "" && ministry != "0") || strings.Contains(n.child("BillTypeEn"), "Government Bill")
	obs.HasSpecialRecommendation = bill.BoolPtr(special)
	return obs, true
}

func chamberOf(n *node) string {
	switch n.child("OriginatingChamberId") {
	case "1":
		return bill.ChamberHouse
	case "2":
		return bill.ChamberSenate
	}
	if c := n.child("Chamber"); c != "" {
		return c
	}
	return unknownChamber
}
